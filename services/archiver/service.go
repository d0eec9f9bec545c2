package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nhooyr.io/websocket"

	"staychain/core/types"
)

const (
	reconnectFloor = time.Second
	reconnectCeil  = 30 * time.Second
)

// Service follows the node's websocket event stream into the archive store
// and drives the periodic parquet export.
type Service struct {
	cfg      Config
	store    *Store
	exporter *Exporter
	log      *slog.Logger
}

// NewService wires the archiver from its configuration. The export loop is
// only armed when an export directory is configured.
func NewService(cfg Config, store *Store, log *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	svc := &Service{cfg: cfg, store: store, log: log}
	if cfg.Export.Directory != "" {
		exporter, err := NewExporter(store, cfg.Export)
		if err != nil {
			return nil, err
		}
		svc.exporter = exporter
	}
	return svc, nil
}

// Run blocks until ctx is cancelled, restarting the stream follower with
// exponential backoff after every disconnect.
func (s *Service) Run(ctx context.Context) error {
	if s.exporter != nil {
		go s.exportLoop(ctx)
	}

	delay := reconnectFloor
	for {
		err := s.follow(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.Warn("event stream interrupted", slog.Any("error", err), slog.Duration("retryIn", delay))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectCeil {
			delay = reconnectCeil
		}
		if err == nil {
			delay = reconnectFloor
		}
	}
}

// follow resumes the stream immediately after the highest archived sequence
// and persists every event it reads.
func (s *Service) follow(ctx context.Context) error {
	cursor, err := s.store.LatestSequence(ctx)
	if err != nil {
		return err
	}

	target, err := url.Parse(s.cfg.NodeWebsocket)
	if err != nil {
		return fmt.Errorf("parse node websocket url: %w", err)
	}
	query := target.Query()
	query.Set("cursor", strconv.FormatUint(cursor, 10))
	target.RawQuery = query.Encode()

	conn, _, err := websocket.Dial(ctx, target.String(), nil)
	if err != nil {
		return fmt.Errorf("dial node websocket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "archiver stopping")

	s.log.Info("following event stream",
		slog.String("endpoint", s.cfg.NodeWebsocket),
		slog.Uint64("cursor", cursor))

	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var evt types.SequencedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			s.log.Warn("skipping undecodable event", slog.Any("error", err))
			continue
		}
		if err := s.store.Insert(ctx, evt); err != nil {
			return err
		}
	}
}

func (s *Service) exportLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Export.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rows, err := s.exporter.Run(ctx)
			if err != nil {
				s.log.Error("parquet export failed", slog.Any("error", err))
				continue
			}
			if rows > 0 {
				s.log.Info("parquet export complete", slog.Int("rows", rows))
			}
		}
	}
}

// Handler serves the archiver's health, metrics, and query endpoints.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/events", s.handleEvents)
	return mux
}

type eventResponse struct {
	Sequence   uint64            `json:"sequence"`
	Timestamp  uint64            `json:"timestamp"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

const maxQueryLimit = 1000

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxQueryLimit {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	records, err := s.store.EventsByType(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		s.log.Error("query archived events", slog.Any("error", err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	payload := make([]eventResponse, 0, len(records))
	for _, record := range records {
		attrs := map[string]string{}
		if record.Attributes != "" {
			if err := json.Unmarshal([]byte(record.Attributes), &attrs); err != nil {
				s.log.Warn("undecodable archived attributes", slog.Uint64("sequence", record.Sequence))
			}
		}
		payload = append(payload, eventResponse{
			Sequence:   record.Sequence,
			Timestamp:  record.Timestamp,
			Type:       record.Type,
			Attributes: attrs,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
