package routes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// tokenRoutes bridges room and utility ledger queries and transfers to the
// token_* RPC methods. The utility query flag selects the stay-credit ledger
// instead of the room ledger.
type tokenRoutes struct {
	client *Client
}

func newTokenRoutes(client *Client) *tokenRoutes {
	return &tokenRoutes{client: client}
}

func (tr *tokenRoutes) mountOpen(r chi.Router) {
	r.Get("/{supplierID}/balance", tr.balanceOf)
	r.Get("/{supplierID}/uri", tr.uri)
	r.Get("/{supplierID}/transferable", tr.transferable)
}

func (tr *tokenRoutes) mountProtected(r chi.Router) {
	r.Post("/{supplierID}/transfer", tr.transfer)
	r.Post("/{supplierID}/batch-transfer", tr.batchTransfer)
	r.Post("/{supplierID}/approvals", tr.setApprovalForAll)
}

type tokenQuery struct {
	SupplierID uint64 `json:"supplierId"`
	Utility    bool   `json:"utility,omitempty"`
	Account    string `json:"account,omitempty"`
	TokenID    uint64 `json:"tokenId"`
}

func (tr *tokenRoutes) balanceOf(w http.ResponseWriter, r *http.Request) {
	query, err := tokenQueryFromRequest(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if query.Account == "" {
		writeBadRequest(w, errors.New("account query parameter is required"))
		return
	}
	forward(w, r, tr.client, "token_balanceOf", query)
}

func (tr *tokenRoutes) uri(w http.ResponseWriter, r *http.Request) {
	query, err := tokenQueryFromRequest(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	forward(w, r, tr.client, "token_uri", query)
}

func (tr *tokenRoutes) transferable(w http.ResponseWriter, r *http.Request) {
	query, err := tokenQueryFromRequest(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	forward(w, r, tr.client, "token_transferable", query)
}

func tokenQueryFromRequest(r *http.Request) (tokenQuery, error) {
	supplierID, err := parseUintParam(r, "supplierID")
	if err != nil {
		return tokenQuery{}, err
	}
	tokenID, err := parseUintQuery(r, "tokenId")
	if err != nil {
		return tokenQuery{}, err
	}
	utility := false
	if raw := strings.TrimSpace(r.URL.Query().Get("utility")); raw != "" {
		utility, err = strconv.ParseBool(raw)
		if err != nil {
			return tokenQuery{}, errors.New("invalid utility query parameter")
		}
	}
	return tokenQuery{
		SupplierID: supplierID,
		Utility:    utility,
		Account:    strings.TrimSpace(r.URL.Query().Get("account")),
		TokenID:    tokenID,
	}, nil
}

type transferRequest struct {
	Caller     string `json:"caller,omitempty"`
	SupplierID uint64 `json:"supplierId"`
	From       string `json:"from"`
	To         string `json:"to"`
	TokenID    uint64 `json:"tokenId"`
	Amount     string `json:"amount"`
}

func (tr *tokenRoutes) transfer(w http.ResponseWriter, r *http.Request) {
	supplierID, err := parseUintParam(r, "supplierID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var body transferRequest
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
	body.SupplierID = supplierID
	forward(w, r, tr.client, "token_transfer", body)
}

type batchTransferRequest struct {
	Caller     string   `json:"caller,omitempty"`
	SupplierID uint64   `json:"supplierId"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	TokenIDs   []uint64 `json:"tokenIds"`
	Amounts    []string `json:"amounts"`
}

func (tr *tokenRoutes) batchTransfer(w http.ResponseWriter, r *http.Request) {
	supplierID, err := parseUintParam(r, "supplierID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var body batchTransferRequest
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
	body.SupplierID = supplierID
	forward(w, r, tr.client, "token_batchTransfer", body)
}

type approvalRequest struct {
	Caller     string `json:"caller,omitempty"`
	SupplierID uint64 `json:"supplierId"`
	Operator   string `json:"operator"`
	Approved   bool   `json:"approved"`
}

func (tr *tokenRoutes) setApprovalForAll(w http.ResponseWriter, r *http.Request) {
	supplierID, err := parseUintParam(r, "supplierID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var body approvalRequest
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
	body.SupplierID = supplierID
	forward(w, r, tr.client, "token_setApprovalForAll", body)
}
