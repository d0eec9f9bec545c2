package idempotency

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "idem.db"), ttl)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t, time.Hour)
	digest := Digest("abc", http.MethodPost, "/v1/bookings", []byte(`{"supplierId":1}`))

	if _, found, err := store.Get(digest); err != nil || found {
		t.Fatalf("expected miss, found=%v err=%v", found, err)
	}
	if err := store.Put(digest, Record{StatusCode: 200, ContentType: "application/json", Body: []byte(`{"ok":true}`)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	record, found, err := store.Get(digest)
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if record.StatusCode != 200 || string(record.Body) != `{"ok":true}` {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestStoreExpiresEntries(t *testing.T) {
	store := newTestStore(t, time.Minute)
	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }
	digest := Digest("abc", http.MethodPost, "/v1/bookings", nil)
	if err := store.Put(digest, Record{StatusCode: 200, Body: []byte("x")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, found, err := store.Get(digest); err != nil || found {
		t.Fatalf("expected expired entry to miss, found=%v err=%v", found, err)
	}
}

func TestDigestSeparatesKeyMethodPathAndBody(t *testing.T) {
	base := Digest("key", http.MethodPost, "/v1/bookings", []byte("a"))
	variants := []string{
		Digest("key2", http.MethodPost, "/v1/bookings", []byte("a")),
		Digest("key", http.MethodPut, "/v1/bookings", []byte("a")),
		Digest("key", http.MethodPost, "/v1/suppliers", []byte("a")),
		Digest("key", http.MethodPost, "/v1/bookings", []byte("b")),
	}
	for i, variant := range variants {
		if variant == base {
			t.Fatalf("variant %d collided with base digest", i)
		}
	}
	if base != Digest("key", http.MethodPost, "/v1/bookings", []byte("a")) {
		t.Fatal("digest is not deterministic")
	}
}

func TestMiddlewareReplaysResponse(t *testing.T) {
	store := newTestStore(t, time.Hour)
	var calls atomic.Int64
	handler := store.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"bookingIds":[1,2]}`))
	}))

	request := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(`{"supplierId":1}`))
		req.Header.Set(HeaderKey, "retry-1")
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		return res
	}

	first := request()
	if first.Code != http.StatusOK || first.Header().Get(HeaderCache) != "" {
		t.Fatalf("first request should be fresh: %d %q", first.Code, first.Header().Get(HeaderCache))
	}
	second := request()
	if second.Code != http.StatusOK {
		t.Fatalf("replay status %d", second.Code)
	}
	if second.Header().Get(HeaderCache) != "hit" {
		t.Fatal("expected replay marker header")
	}
	if second.Body.String() != `{"bookingIds":[1,2]}` {
		t.Fatalf("unexpected replay body %q", second.Body.String())
	}
	if calls.Load() != 1 {
		t.Fatalf("handler should run once, ran %d times", calls.Load())
	}
}

func TestMiddlewareSkipsServerErrors(t *testing.T) {
	store := newTestStore(t, time.Hour)
	var calls atomic.Int64
	handler := store.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream error", http.StatusBadGateway)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set(HeaderKey, "retry-2")
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusBadGateway {
			t.Fatalf("request %d: expected 502, got %d", i, res.Code)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("5xx responses must not be cached, handler ran %d times", calls.Load())
	}
}

func TestMiddlewareIgnoresReadsAndMissingKey(t *testing.T) {
	store := newTestStore(t, time.Hour)
	var calls atomic.Int64
	handler := store.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	get := httptest.NewRequest(http.MethodGet, "/v1/bookings/1", nil)
	get.Header.Set(HeaderKey, "retry-3")
	for i := 0; i < 2; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, get)
		if res.Header().Get(HeaderCache) != "" {
			t.Fatal("GET requests must bypass the cache")
		}
	}

	post := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(`{}`))
	for i := 0; i < 2; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, post)
		if res.Header().Get(HeaderCache) != "" {
			t.Fatal("requests without a key must bypass the cache")
		}
	}
	if calls.Load() != 4 {
		t.Fatalf("expected 4 handler invocations, got %d", calls.Load())
	}
}
