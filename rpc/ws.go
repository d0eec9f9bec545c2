package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"staychain/core/types"
)

const (
	wsWriteTimeout    = 10 * time.Second
	wsHeartbeat       = 30 * time.Second
	eventBacklogBatch = 256
)

// handleEventsWS streams sequenced protocol events. The optional cursor
// query parameter names the last sequence the client has already seen; the
// stream resumes immediately after it.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.node == nil {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}
	cursor := uint64(0)
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
		cursor = parsed
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamEvents(r.Context(), conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor uint64) error {
	// Subscribe before draining the backlog so nothing falls between the
	// two. The live channel only wakes the pump; ordering always comes from
	// the persistent feed.
	ch, cancel := s.node.SubscribeEvents(eventBacklogBatch)
	defer cancel()

	lastSent := cursor
	if err := s.pumpEvents(ctx, conn, &lastSent); err != nil {
		return err
	}

	heartbeat := time.NewTicker(wsHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.pumpEvents(ctx, conn, &lastSent); err != nil {
				return err
			}
		case <-heartbeat.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				return err
			}
		}
	}
}

// pumpEvents writes every feed event past lastSent, in order.
func (s *Server) pumpEvents(ctx context.Context, conn *websocket.Conn, lastSent *uint64) error {
	for {
		batch, err := s.node.Events(*lastSent+1, eventBacklogBatch)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, evt := range batch {
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
			*lastSent = evt.Sequence
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt types.SequencedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
