package archiver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"staychain/core/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(DatabaseConfig{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "archive.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seqEvent(seq uint64, eventType string) types.SequencedEvent {
	return types.SequencedEvent{
		Sequence:  seq,
		Timestamp: 1_700_000_000 + seq,
		Event: types.Event{
			Type:       eventType,
			Attributes: map[string]string{"bookingId": "1"},
		},
	}
}

func TestStoreInsertAndLatestSequence(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	latest, err := store.LatestSequence(ctx)
	require.NoError(t, err)
	require.Zero(t, latest)

	require.NoError(t, store.Insert(ctx, seqEvent(1, "booking.created")))
	require.NoError(t, store.Insert(ctx, seqEvent(2, "booking.confirmed")))

	latest, err = store.LatestSequence(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), latest)
}

func TestStoreInsertIgnoresReplays(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, seqEvent(5, "booking.created")))
	// A reconnect may replay the same sequence; the original record wins.
	replay := seqEvent(5, "booking.cancelled")
	require.NoError(t, store.Insert(ctx, replay))

	records, err := store.EventsByType(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "booking.created", records[0].Type)
}

func TestStoreEventsByType(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, seqEvent(1, "booking.created")))
	require.NoError(t, store.Insert(ctx, seqEvent(2, "booking.confirmed")))
	require.NoError(t, store.Insert(ctx, seqEvent(3, "booking.created")))

	records, err := store.EventsByType(ctx, "booking.created", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, uint64(1), records[0].Sequence)
	require.Equal(t, uint64(3), records[1].Sequence)
}

func TestStoreExportWatermark(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, store.Insert(ctx, seqEvent(seq, "booking.created")))
	}

	watermark, err := store.ExportWatermark(ctx)
	require.NoError(t, err)
	require.Zero(t, watermark)

	pending, err := store.PendingExport(ctx, watermark, 3)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, uint64(1), pending[0].Sequence)

	require.NoError(t, store.SetExportWatermark(ctx, 3))

	watermark, err = store.ExportWatermark(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), watermark)

	pending, err = store.PendingExport(ctx, watermark, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, uint64(4), pending[0].Sequence)
}
