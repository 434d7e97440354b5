//go:build !noparquet

package exporter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetExporter_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	data := sampleAssignments(t)

	e, err := NewParquetExporter(path)
	require.NoError(t, err)
	require.NoError(t, e.Export(context.Background(), data))

	rows, err := parquet.ReadFile[ParquetRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, data[0].FileSHA, first.FileSHA)
	assert.Equal(t, data[0].Published, first.PublishedTimestamp)
	assert.Equal(t, fpA, first.Fingerprint)
	require.NotNil(t, first.Ratio)
	assert.InDelta(t, 1.902, *first.Ratio, 1e-9)
	require.NotNil(t, first.Distributed)
	assert.True(t, *first.Distributed)

	assert.Nil(t, rows[1].Transport)
	require.NotNil(t, rows[1].IP)
	assert.Equal(t, "6", *rows[1].IP)

	assert.Equal(t, data[1].FileSHA, rows[2].FileSHA)
	require.NotNil(t, rows[2].Distributed)
	assert.False(t, *rows[2].Distributed)
}

func TestParquetExporter_EmptyInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")

	e, err := NewParquetExporter(path)
	require.NoError(t, err)
	require.NoError(t, e.Export(context.Background(), nil))

	rows, err := parquet.ReadFile[ParquetRow](path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
