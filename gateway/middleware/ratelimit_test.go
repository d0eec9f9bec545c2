package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"booking": {RatePerSecond: 0.001, Burst: 1},
	}, nil)
	handler := limiter.Middleware("booking")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesVisitors(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"booking": {RatePerSecond: 0.001, Burst: 1},
	}, nil)
	handler := limiter.Middleware("booking")(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, first)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first visitor to pass, got %d", res.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	second.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	second.RemoteAddr = "10.0.0.1:5000"
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, second)
	if res.Code != http.StatusOK {
		t.Fatalf("expected distinct visitor to pass, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesRouteGroups(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"booking": {RatePerSecond: 0.001, Burst: 1},
		"token":   {RatePerSecond: 0.001, Burst: 1},
	}, nil)
	booking := limiter.Middleware("booking")(okHandler())
	token := limiter.Middleware("token")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.RemoteAddr = "10.0.0.2:6000"
	res := httptest.NewRecorder()
	booking.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected booking request to pass, got %d", res.Code)
	}

	tokenReq := httptest.NewRequest(http.MethodPost, "/v1/tokens/1/transfer", nil)
	tokenReq.RemoteAddr = "10.0.0.2:6000"
	res = httptest.NewRecorder()
	token.ServeHTTP(res, tokenReq)
	if res.Code != http.StatusOK {
		t.Fatalf("expected token request to have its own budget, got %d", res.Code)
	}
}

func TestRateLimiterUnconfiguredKeyPassesThrough(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{}, nil)
	handler := limiter.Middleware("events")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.RemoteAddr = "10.0.0.3:7000"
	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: expected pass-through, got %d", i, res.Code)
		}
	}
}
