package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// supplierRoutes bridges the supplier registry surface to supplier_* RPC.
type supplierRoutes struct {
	client *Client
}

func newSupplierRoutes(client *Client) *supplierRoutes {
	return &supplierRoutes{client: client}
}

func (sr *supplierRoutes) mountOpen(r chi.Router) {
	r.Get("/{supplierID}", sr.get)
	r.Get("/", sr.listByOwner)
}

func (sr *supplierRoutes) mountProtected(r chi.Router) {
	r.Post("/", sr.register)
	r.Put("/{supplierID}", sr.update)
}

type registerSupplierRequest struct {
	Caller      string `json:"caller,omitempty"`
	Name        string `json:"name"`
	MetadataURI string `json:"metadataUri,omitempty"`
	Owner       string `json:"owner"`
}

func (sr *supplierRoutes) register(w http.ResponseWriter, r *http.Request) {
	var body registerSupplierRequest
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
	forward(w, r, sr.client, "supplier_register", body)
}

type updateSupplierRequest struct {
	Caller string `json:"caller,omitempty"`
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
}

func (sr *supplierRoutes) update(w http.ResponseWriter, r *http.Request) {
	supplierID, err := parseUintParam(r, "supplierID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var body updateSupplierRequest
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
	body.ID = supplierID
	forward(w, r, sr.client, "supplier_update", body)
}

func (sr *supplierRoutes) get(w http.ResponseWriter, r *http.Request) {
	supplierID, err := parseUintParam(r, "supplierID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	forward(w, r, sr.client, "supplier_get", map[string]uint64{"id": supplierID})
}

func (sr *supplierRoutes) listByOwner(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		writeBadRequest(w, errors.New("owner query parameter is required"))
		return
	}
	forward(w, r, sr.client, "supplier_listByOwner", map[string]string{"owner": owner})
}
