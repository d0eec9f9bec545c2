package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"staychain/core/types"
	"staychain/native/booking"
)

func dialEvents(t *testing.T, fx *rpcFixture, cursor uint64) (*websocket.Conn, context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	wsURL := "ws" + strings.TrimPrefix(fx.http.URL, "http") + fmt.Sprintf("/ws/events?cursor=%d", cursor)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		cancel()
		t.Fatalf("dial events: %v", err)
	}
	return conn, ctx, cancel
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) types.SequencedEvent {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var evt types.SequencedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return evt
}

func TestEventStreamDeliversBacklogAndLive(t *testing.T) {
	fx := newRPCFixture(t, Options{})

	fx.mustCall(testRPCToken, "booking_book", bookingBookParams{
		Caller:     rpcBech(fx.guest),
		SupplierID: 1,
		Totals:     []string{"500"},
		BaseRates:  []string{"100"},
		CheckIn:    fx.checkIn,
		CheckOut:   fx.checkOut,
	}, nil)

	var head struct {
		Head uint64 `json:"head"`
	}
	fx.mustCall("", "stay_eventsHead", nil, &head)
	if head.Head == 0 {
		t.Fatal("feed head is zero")
	}

	conn, ctx, cancel := dialEvents(t, fx, 0)
	defer cancel()
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var last uint64
	for i := uint64(0); i < head.Head; i++ {
		evt := readEvent(t, ctx, conn)
		if evt.Sequence != last+1 {
			t.Fatalf("backlog sequence gap: got %d after %d", evt.Sequence, last)
		}
		last = evt.Sequence
	}

	// A mutation made while connected is streamed live.
	fx.mustCall(testRPCToken, "booking_book", bookingBookParams{
		Caller:     rpcBech(fx.guest),
		SupplierID: 1,
		Totals:     []string{"600"},
		BaseRates:  []string{"100"},
		CheckIn:    fx.checkIn,
		CheckOut:   fx.checkOut,
	}, nil)

	sawRoomsBooked := false
	for !sawRoomsBooked {
		evt := readEvent(t, ctx, conn)
		if evt.Sequence != last+1 {
			t.Fatalf("live sequence gap: got %d after %d", evt.Sequence, last)
		}
		last = evt.Sequence
		if evt.Event.Type == booking.EventTypeRoomsBooked {
			sawRoomsBooked = true
		}
	}
}

func TestEventStreamResumesFromCursor(t *testing.T) {
	fx := newRPCFixture(t, Options{})

	fx.mustCall(testRPCToken, "booking_book", bookingBookParams{
		Caller:     rpcBech(fx.guest),
		SupplierID: 1,
		Totals:     []string{"500"},
		BaseRates:  []string{"100"},
		CheckIn:    fx.checkIn,
		CheckOut:   fx.checkOut,
	}, nil)

	var head struct {
		Head uint64 `json:"head"`
	}
	fx.mustCall("", "stay_eventsHead", nil, &head)
	if head.Head < 2 {
		t.Fatalf("head = %d, want at least 2", head.Head)
	}
	cursor := head.Head - 1

	conn, ctx, cancel := dialEvents(t, fx, cursor)
	defer cancel()
	defer conn.Close(websocket.StatusNormalClosure, "done")

	evt := readEvent(t, ctx, conn)
	if evt.Sequence != cursor+1 {
		t.Fatalf("resume sequence = %d, want %d", evt.Sequence, cursor+1)
	}
}

func TestEventStreamRejectsBadCursor(t *testing.T) {
	fx := newRPCFixture(t, Options{})

	resp, err := fx.http.Client().Get(fx.http.URL + "/ws/events?cursor=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
