package archiver

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExporterRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for seq := uint64(1); seq <= 4; seq++ {
		require.NoError(t, store.Insert(ctx, seqEvent(seq, "booking.created")))
	}

	dir := t.TempDir()
	exporter, err := NewExporter(store, ExportConfig{Directory: dir, Interval: time.Hour, BatchSize: 3})
	require.NoError(t, err)

	rows, err := exporter.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, rows)

	watermark, err := store.ExportWatermark(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), watermark)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasSuffix(entries[0].Name(), ".parquet"))

	// Second run drains the remainder.
	rows, err = exporter.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, rows)

	// Nothing left to export.
	rows, err = exporter.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, rows)
}

func TestExporterRequiresDirectory(t *testing.T) {
	store := openTestStore(t)
	_, err := NewExporter(store, ExportConfig{})
	require.Error(t, err)
}
