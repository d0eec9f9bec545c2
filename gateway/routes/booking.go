package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// bookingRoutes bridges the REST booking surface to the node's booking_*
// JSON-RPC methods.
type bookingRoutes struct {
	client *Client
}

func newBookingRoutes(client *Client) *bookingRoutes {
	return &bookingRoutes{client: client}
}

func (br *bookingRoutes) mountOpen(r chi.Router) {
	r.Get("/transfer-lock", br.transferLock)
	r.Get("/{bookingID}", br.get)
	r.Get("/", br.listByOwner)
}

func (br *bookingRoutes) mountProtected(r chi.Router) {
	r.Post("/", br.book)
	r.Post("/confirm", br.confirm)
	r.Post("/checkout", br.checkout)
	r.Post("/refunds", br.refund)
	r.Post("/{bookingID}/cancel", br.cancel)
	r.Post("/{bookingID}/transferability", br.toggleTransferability)
}

type bookRequest struct {
	Caller     string   `json:"caller,omitempty"`
	SupplierID uint64   `json:"supplierId"`
	Count      uint32   `json:"count,omitempty"`
	Totals     []string `json:"totals"`
	BaseRates  []string `json:"baseRates"`
	CheckIn    uint64   `json:"checkIn"`
	CheckOut   uint64   `json:"checkOut"`
}

func (br *bookingRoutes) book(w http.ResponseWriter, r *http.Request) {
	var body bookRequest
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := callerAddress(r, body.Caller)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, err)
		return
	}
	body.Caller = caller
	forward(w, r, br.client, "booking_book", body)
}

type confirmRequest struct {
	Caller       string   `json:"caller,omitempty"`
	SupplierID   uint64   `json:"supplierId"`
	BookingIDs   []uint64 `json:"bookingIds"`
	URIs         []string `json:"uris"`
	Transferable bool     `json:"transferable"`
}

func (br *bookingRoutes) confirm(w http.ResponseWriter, r *http.Request) {
	var body confirmRequest
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := callerAddress(r, body.Caller)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, err)
		return
	}
	body.Caller = caller
	forward(w, r, br.client, "booking_confirm", body)
}

type checkoutRequest struct {
	Caller     string   `json:"caller,omitempty"`
	SupplierID uint64   `json:"supplierId"`
	BookingIDs []uint64 `json:"bookingIds"`
}

func (br *bookingRoutes) checkout(w http.ResponseWriter, r *http.Request) {
	var body checkoutRequest
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := callerAddress(r, body.Caller)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, err)
		return
	}
	body.Caller = caller
	forward(w, r, br.client, "booking_checkout", body)
}

type cancelRequest struct {
	Caller     string `json:"caller,omitempty"`
	SupplierID uint64 `json:"supplierId"`
	BookingID  uint64 `json:"bookingId"`
	Penalty    string `json:"penalty"`
	Refund     string `json:"refund"`
	Charges    string `json:"charges"`
}

func (br *bookingRoutes) cancel(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseUintParam(r, "bookingID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var body cancelRequest
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := callerAddress(r, body.Caller)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, err)
		return
	}
	body.Caller = caller
	body.BookingID = bookingID
	forward(w, r, br.client, "booking_cancel", body)
}

type refundRequest struct {
	Caller     string   `json:"caller,omitempty"`
	SupplierID uint64   `json:"supplierId"`
	BookingIDs []uint64 `json:"bookingIds"`
	Owner      string   `json:"owner"`
}

func (br *bookingRoutes) refund(w http.ResponseWriter, r *http.Request) {
	var body refundRequest
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := callerAddress(r, body.Caller)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, err)
		return
	}
	body.Caller = caller
	forward(w, r, br.client, "booking_refund", body)
}

type toggleTransferabilityRequest struct {
	Caller       string `json:"caller,omitempty"`
	BookingID    uint64 `json:"bookingId"`
	Transferable bool   `json:"transferable"`
}

func (br *bookingRoutes) toggleTransferability(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseUintParam(r, "bookingID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var body toggleTransferabilityRequest
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := callerAddress(r, body.Caller)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, err)
		return
	}
	body.Caller = caller
	body.BookingID = bookingID
	forward(w, r, br.client, "booking_toggleToken", body)
}

func (br *bookingRoutes) get(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseUintParam(r, "bookingID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	forward(w, r, br.client, "booking_get", map[string]uint64{"id": bookingID})
}

func (br *bookingRoutes) listByOwner(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		writeBadRequest(w, errors.New("owner query parameter is required"))
		return
	}
	forward(w, r, br.client, "booking_listByOwner", map[string]string{"owner": owner})
}

func (br *bookingRoutes) transferLock(w http.ResponseWriter, r *http.Request) {
	supplierID, err := parseUintQuery(r, "supplierId")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	tokenID, err := parseUintQuery(r, "tokenId")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	forward(w, r, br.client, "booking_transferLock", map[string]uint64{
		"supplierId": supplierID,
		"tokenId":    tokenID,
	})
}
