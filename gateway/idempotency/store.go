// Package idempotency replays cached responses for mutating gateway routes.
// Clients retry safely by sending the same Idempotency-Key header; the first
// response is stored in bbolt and identical retries get it back verbatim.
package idempotency

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
	"lukechampine.com/blake3"
)

const (
	// HeaderKey is the client-supplied idempotency key header.
	HeaderKey = "Idempotency-Key"
	// HeaderCache marks replayed responses.
	HeaderCache = "X-Idempotency-Cache"

	maxBodyBytes = 1 << 20
)

var bucketResponses = []byte("responses")

// Record is the stored response envelope for one idempotency key.
type Record struct {
	StatusCode  int       `json:"statusCode"`
	ContentType string    `json:"contentType,omitempty"`
	Body        []byte    `json:"body"`
	StoredAt    time.Time `json:"storedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Store persists response envelopes keyed by a digest of the request.
type Store struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// NewStore opens (and migrates) the bbolt file at path. A non-positive ttl
// defaults to 24 hours.
func NewStore(path string, ttl time.Duration) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResponses)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached response for digest. Expired entries are removed
// on read.
func (s *Store) Get(digest string) (Record, bool, error) {
	var record Record
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketResponses)
		raw := bucket.Get([]byte(digest))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		if s.now().After(record.ExpiresAt) {
			record = Record{}
			return bucket.Delete([]byte(digest))
		}
		return nil
	})
	if err != nil {
		return Record{}, false, err
	}
	if record.StatusCode == 0 {
		return Record{}, false, nil
	}
	return record, true, nil
}

// Put stores the response envelope under digest with the store TTL.
func (s *Store) Put(digest string, record Record) error {
	record.StoredAt = s.now()
	record.ExpiresAt = record.StoredAt.Add(s.ttl)
	return s.db.Update(func(tx *bolt.Tx) error {
		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketResponses).Put([]byte(digest), payload)
	})
}

// Digest derives the cache key from the client key and the full request
// identity, so reusing a key with a different payload misses the cache
// instead of replaying an unrelated response.
func Digest(key, method, path string, body []byte) string {
	var buf bytes.Buffer
	for _, part := range []string{key, method, path} {
		buf.WriteString(part)
		buf.WriteByte(0)
	}
	buf.Write(body)
	sum := blake3.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// Middleware replays cached responses for requests carrying an
// Idempotency-Key header and records fresh ones. Responses with 5xx or 429
// status are never cached so retries reach the handler again.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := strings.TrimSpace(r.Header.Get(HeaderKey))
		if key == "" || !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "read request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		digest := Digest(key, r.Method, r.URL.Path, body)
		if record, found, err := s.Get(digest); err == nil && found {
			if record.ContentType != "" {
				w.Header().Set("Content-Type", record.ContentType)
			}
			w.Header().Set(HeaderCache, "hit")
			w.WriteHeader(record.StatusCode)
			_, _ = w.Write(record.Body)
			return
		}

		recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		if recorder.status >= http.StatusInternalServerError || recorder.status == http.StatusTooManyRequests {
			return
		}
		_ = s.Put(digest, Record{
			StatusCode:  recorder.status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
	})
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
