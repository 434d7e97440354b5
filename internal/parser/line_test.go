package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_Valid(t *testing.T) {
	line := "005fd4d7decbb250055b861579e6fdc79ad17bee email transport=obfs4 ip=4 blocklist=ru distributed=true state=functional bandwidth=accepted ratio=1.902"

	entry, err := ParseLine(line)
	require.NoError(t, err)

	assert.Equal(t, "005fd4d7decbb250055b861579e6fdc79ad17bee", entry.Fingerprint)
	assert.Equal(t, "email", entry.DistributionMethod)
	require.NotNil(t, entry.Transport)
	assert.Equal(t, "obfs4", *entry.Transport)
	require.NotNil(t, entry.IP)
	assert.Equal(t, "4", *entry.IP)
	require.NotNil(t, entry.Blocklist)
	assert.Equal(t, "ru", *entry.Blocklist)
	require.NotNil(t, entry.Distributed)
	assert.True(t, *entry.Distributed)
	require.NotNil(t, entry.State)
	assert.Equal(t, "functional", *entry.State)
	require.NotNil(t, entry.Bandwidth)
	assert.Equal(t, "accepted", *entry.Bandwidth)
	require.NotNil(t, entry.Ratio)
	assert.Equal(t, 1.902, *entry.Ratio)
	assert.Empty(t, entry.SHA)
}

func TestParseLine_MethodOnly(t *testing.T) {
	entry, err := ParseLine("1234567890ABCDEF1234567890ABCDEF12345678 vanilla")
	require.NoError(t, err)

	assert.Equal(t, "vanilla", entry.DistributionMethod)
	assert.Nil(t, entry.Transport)
	assert.Nil(t, entry.IP)
	assert.Nil(t, entry.Blocklist)
	assert.Nil(t, entry.Distributed)
	assert.Nil(t, entry.State)
	assert.Nil(t, entry.Bandwidth)
	assert.Nil(t, entry.Ratio)
}

func TestParseLine_LenientAttributes(t *testing.T) {
	fp := "1234567890abcdef1234567890abcdef12345678"

	t.Run("unknown keys ignored", func(t *testing.T) {
		entry, err := ParseLine(fp + " https color=blue transport=snowflake")
		require.NoError(t, err)
		require.NotNil(t, entry.Transport)
		assert.Equal(t, "snowflake", *entry.Transport)
	})

	t.Run("malformed pairs ignored", func(t *testing.T) {
		entry, err := ParseLine(fp + " moat transport ip=4=6 state=")
		require.NoError(t, err)
		assert.Nil(t, entry.Transport)
		assert.Nil(t, entry.IP)
		require.NotNil(t, entry.State)
		assert.Equal(t, "", *entry.State)
	})

	t.Run("distributed anything but true is false", func(t *testing.T) {
		entry, err := ParseLine(fp + " email distributed=True")
		require.NoError(t, err)
		require.NotNil(t, entry.Distributed)
		assert.False(t, *entry.Distributed)
	})

	t.Run("unparsable ratio left unset", func(t *testing.T) {
		entry, err := ParseLine(fp + " email ratio=high")
		require.NoError(t, err)
		assert.Nil(t, entry.Ratio)
	})
}

func TestParseLine_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":              "",
		"single token":       "1234567890abcdef1234567890abcdef12345678",
		"short fingerprint":  "INVALID12345 vanilla transport=obfs4",
		"named fingerprint":  "invalid_fingerprint email",
		"long fingerprint":   "1234567890abcdef1234567890abcdef123456789 email",
		"header is not data": "bridge-pool-assignment 2024-01-15 03:00:00",
	}

	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLine(line)
			assert.ErrorIs(t, err, ErrInvalidLine)
		})
	}
}
