package archiver

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *Store) {
	t.Helper()
	store := openTestStore(t)
	svc, err := NewService(Config{
		ListenAddress: ":0",
		NodeWebsocket: defaultNodeWebsocket,
		Export:        ExportConfig{Interval: time.Hour},
	}, store, nil)
	require.NoError(t, err)
	return svc, store
}

func TestHandleEvents(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, seqEvent(1, "booking.created")))
	require.NoError(t, store.Insert(ctx, seqEvent(2, "booking.confirmed")))

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/events?type=booking.created", nil))
	require.Equal(t, 200, rec.Code)

	var payload []eventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload, 1)
	require.Equal(t, uint64(1), payload[0].Sequence)
	require.Equal(t, "booking.created", payload[0].Type)
	require.Equal(t, "1", payload[0].Attributes["bookingId"])
}

func TestHandleEventsRejectsBadLimit(t *testing.T) {
	svc, _ := newTestService(t)

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/events?limit=0", nil))
	require.Equal(t, 400, rec.Code)

	rec = httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/events?limit=100000", nil))
	require.Equal(t, 400, rec.Code)
}

func TestHandleEventsMethodNotAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/events", nil))
	require.Equal(t, 405, rec.Code)
}
