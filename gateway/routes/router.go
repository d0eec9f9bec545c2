package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"staychain/gateway/idempotency"
	"staychain/gateway/middleware"
)

// Scopes names the JWT scopes required per route group.
type Scopes struct {
	Booking  []string
	Supplier []string
	Token    []string
	Admin    []string
}

// DefaultScopes is the scope layout issued tokens are expected to follow.
func DefaultScopes() Scopes {
	return Scopes{
		Booking:  []string{"booking.write"},
		Supplier: []string{"supplier.write"},
		Token:    []string{"token.write"},
		Admin:    []string{"admin"},
	}
}

// Config wires the router. Authenticator, RateLimiter, Observability, and
// Idempotency are optional; nil values disable the corresponding layer.
type Config struct {
	Client        *Client
	NodeProxy     http.Handler
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	Idempotency   *idempotency.Store
	CORS          middleware.CORSConfig
	Scopes        Scopes
}

// New assembles the gateway HTTP handler: request ids and CORS on every
// request, then per-group rate limiting and observability, auth and
// idempotency on mutating routes only.
func New(cfg Config) (http.Handler, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("rpc client is required")
	}
	scopes := cfg.Scopes
	if len(scopes.Booking) == 0 && len(scopes.Supplier) == 0 && len(scopes.Token) == 0 && len(scopes.Admin) == 0 {
		scopes = DefaultScopes()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.NodeProxy != nil {
		r.Handle("/rpc", cfg.NodeProxy)
	}

	group := func(prefix, name string, required []string, mount func(chi.Router), mountProtected func(chi.Router)) {
		r.Route(prefix, func(sr chi.Router) {
			if cfg.RateLimiter != nil {
				sr.Use(cfg.RateLimiter.Middleware(name))
			}
			if cfg.Observability != nil {
				sr.Use(cfg.Observability.Middleware(name))
			}
			if mount != nil {
				mount(sr)
			}
			if mountProtected != nil {
				sr.Group(func(g chi.Router) {
					if cfg.Authenticator != nil {
						g.Use(cfg.Authenticator.Middleware(required...))
					}
					if cfg.Idempotency != nil {
						g.Use(cfg.Idempotency.Middleware)
					}
					mountProtected(g)
				})
			}
		})
	}

	booking := newBookingRoutes(cfg.Client)
	group("/v1/bookings", "booking", scopes.Booking, booking.mountOpen, booking.mountProtected)

	supplier := newSupplierRoutes(cfg.Client)
	group("/v1/suppliers", "supplier", scopes.Supplier, supplier.mountOpen, supplier.mountProtected)

	token := newTokenRoutes(cfg.Client)
	group("/v1/tokens", "token", scopes.Token, token.mountOpen, token.mountProtected)

	admin := newAdminRoutes(cfg.Client)
	group("/v1/admin", "admin", scopes.Admin, nil, admin.mountProtected)

	query := newQueryRoutes(cfg.Client)
	group("/v1/balances", "query", nil, query.mountBalances, nil)
	group("/v1/events", "query", nil, query.mountEvents, nil)

	if cfg.Observability != nil {
		r.Handle("/metrics", cfg.Observability.MetricsHandler())
	}

	return r, nil
}
