package parser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bridgepool/bridgepool/internal/collector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fpA = "005fd4d7decbb250055b861579e6fdc79ad17bee"
	fpB = "0123456789ABCDEF0123456789ABCDEF01234567"
)

func rawFile(path string, lines ...string) *collector.RawFile {
	content := strings.Join(lines, "\n") + "\n"
	return &collector.RawFile{
		Path:    path,
		Raw:     []byte(content),
		Content: content,
	}
}

func sampleReport(path string) *collector.RawFile {
	return rawFile(path,
		"@type bridge-pool-assignment 1.0",
		"bridge-pool-assignment 2024-01-15 03:00:00",
		fpA+" email transport=obfs4 ip=4 blocklist=ru distributed=true state=functional bandwidth=accepted ratio=1.902",
		fpB+" https ip=6",
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz moat",
		"short settings",
	)
}

func TestParseFile(t *testing.T) {
	a, err := ParseFile(sampleReport("recent/bridge-pool-assignments/2024-01-15-03-00-00"))
	require.NoError(t, err)

	want := time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, a.Published)
	assert.Equal(t, "bridge-pool-assignment 2024-01-15 03:00:00", a.Header)
	assert.Equal(t, "recent/bridge-pool-assignments/2024-01-15-03-00-00", a.Path)
	assert.Len(t, a.FileSHA, 64)

	// non-hex fingerprint and short lines are dropped silently
	require.Len(t, a.Lines, 2)
	assert.Equal(t, fpA, a.Lines[0].Fingerprint)
	assert.Equal(t, fpB, a.Lines[1].Fingerprint)
	assert.Equal(t, "https", a.Lines[1].DistributionMethod)

	line := fpB + " https ip=6"
	assert.Equal(t, HashEntry([]byte(line), a.FileSHA), a.Lines[1].SHA)
}

func TestParseFile_CRLF(t *testing.T) {
	content := "bridge-pool-assignment 2024-01-15 03:00:00\r\n" + fpA + " email\r\n"
	a, err := ParseFile(&collector.RawFile{Raw: []byte(content), Content: content})
	require.NoError(t, err)

	assert.Equal(t, "bridge-pool-assignment 2024-01-15 03:00:00", a.Header)
	require.Len(t, a.Lines, 1)
	assert.Equal(t, "email", a.Lines[0].DistributionMethod)
	assert.Equal(t, HashEntry([]byte(fpA+" email"), a.FileSHA), a.Lines[0].SHA)
}

func TestParseFile_HeaderErrors(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		_, err := ParseFile(rawFile("x", fpA+" email"))
		assert.ErrorIs(t, err, ErrMissingHeader)
	})

	t.Run("extra header field", func(t *testing.T) {
		_, err := ParseFile(rawFile("x", "bridge-pool-assignment 2024-01-15 03:00:00 UTC", fpA+" email"))
		assert.ErrorIs(t, err, ErrInvalidTimestamp)
	})

	t.Run("missing time", func(t *testing.T) {
		_, err := ParseFile(rawFile("x", "bridge-pool-assignment 2024-01-15"))
		assert.ErrorIs(t, err, ErrInvalidTimestamp)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := ParseFile(rawFile("x", "bridge-pool-assignment 2024-13-15 03:00:00"))
		assert.ErrorIs(t, err, ErrInvalidTimestamp)
	})
}

func TestParseFile_DigestDeterminism(t *testing.T) {
	a1, err := ParseFile(sampleReport("first/path"))
	require.NoError(t, err)
	a2, err := ParseFile(sampleReport("other/path"))
	require.NoError(t, err)

	assert.Equal(t, a1.FileSHA, a2.FileSHA)
	assert.Equal(t, a1.Lines[0].SHA, a2.Lines[0].SHA)
	assert.Equal(t, HashBytes([]byte(sampleReport("").Content)), a1.FileSHA)
}

func TestParseFile_EntryDigestScopedToFile(t *testing.T) {
	line := fpA + " email transport=obfs4"

	a1, err := ParseFile(rawFile("a", "bridge-pool-assignment 2024-01-15 03:00:00", line))
	require.NoError(t, err)
	a2, err := ParseFile(rawFile("b", "bridge-pool-assignment 2024-01-15 04:00:00", line))
	require.NoError(t, err)

	require.Len(t, a1.Lines, 1)
	require.Len(t, a2.Lines, 1)
	assert.NotEqual(t, a1.FileSHA, a2.FileSHA)
	assert.NotEqual(t, a1.Lines[0].SHA, a2.Lines[0].SHA)
}

func TestParseFiles(t *testing.T) {
	good := []*collector.RawFile{
		rawFile("1", "bridge-pool-assignment 2024-01-15 01:00:00", fpA+" email"),
		rawFile("2", "bridge-pool-assignment 2024-01-15 02:00:00", fpA+" email"),
		rawFile("3", "bridge-pool-assignment 2024-01-15 03:00:00", fpA+" email"),
	}
	bad := rawFile("bad", "no header here", fpA+" email")

	t.Run("keeps input order", func(t *testing.T) {
		out, err := ParseFiles(context.Background(), good, WithWorkers(3))
		require.NoError(t, err)
		require.Len(t, out, 3)
		for i, a := range out {
			assert.Equal(t, good[i].Path, a.Path)
		}
		assert.Equal(t, 3, EntryCount(out))
	})

	t.Run("first bad file aborts", func(t *testing.T) {
		files := []*collector.RawFile{good[0], bad, good[1]}
		out, err := ParseFiles(context.Background(), files)
		require.ErrorIs(t, err, ErrMissingHeader)
		assert.Contains(t, err.Error(), `"bad"`)
		assert.Nil(t, out)
	})

	t.Run("skip invalid", func(t *testing.T) {
		files := []*collector.RawFile{good[0], bad, good[2]}
		out, err := ParseFiles(context.Background(), files, WithSkipInvalid(true), WithWorkers(1))
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "1", out[0].Path)
		assert.Equal(t, "3", out[1].Path)
	})

	t.Run("empty", func(t *testing.T) {
		out, err := ParseFiles(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestHashBytes(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashBytes([]byte("abc")))
	assert.Len(t, HashBytes([]byte("test content\nfor hashing")), 64)
	assert.NotEqual(t, HashEntry([]byte("abc"), "x"), HashEntry([]byte("abc"), "y"))
}
