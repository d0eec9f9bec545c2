package routes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// queryRoutes exposes balances and the event feed. All routes are read only
// and unauthenticated, mirroring the node RPC surface.
type queryRoutes struct {
	client *Client
}

func newQueryRoutes(client *Client) *queryRoutes {
	return &queryRoutes{client: client}
}

func (qr *queryRoutes) mountBalances(r chi.Router) {
	r.Get("/{address}", qr.balance)
}

func (qr *queryRoutes) mountEvents(r chi.Router) {
	r.Get("/head", qr.eventsHead)
	r.Get("/", qr.events)
}

func (qr *queryRoutes) balance(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(chi.URLParam(r, "address"))
	if address == "" {
		writeBadRequest(w, errors.New("address is required"))
		return
	}
	forward(w, r, qr.client, "currency_getBalance", map[string]string{"address": address})
}

type eventsQuery struct {
	From  uint64 `json:"from,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

func (qr *queryRoutes) events(w http.ResponseWriter, r *http.Request) {
	var query eventsQuery
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, errors.New("invalid from query parameter"))
			return
		}
		query.From = from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeBadRequest(w, errors.New("invalid limit query parameter"))
			return
		}
		query.Limit = limit
	}
	forward(w, r, qr.client, "stay_getEvents", query)
}

func (qr *queryRoutes) eventsHead(w http.ResponseWriter, r *http.Request) {
	forward(w, r, qr.client, "stay_eventsHead", nil)
}
