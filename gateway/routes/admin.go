package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// adminRoutes bridges protocol parameter changes to the admin_* RPC
// methods. Every route requires the admin scope.
type adminRoutes struct {
	client *Client
}

func newAdminRoutes(client *Client) *adminRoutes {
	return &adminRoutes{client: client}
}

func (ar *adminRoutes) mountProtected(r chi.Router) {
	r.Post("/commission", ar.setCommission)
	r.Post("/treasury", ar.setTreasury)
	r.Post("/protocol-wallet", ar.setProtocolWallet)
	r.Post("/deployers", ar.setDeployers)
	r.Post("/transfer-lock", ar.setTransferLock)
}

type commissionRequest struct {
	Caller  string `json:"caller,omitempty"`
	Percent uint32 `json:"percent"`
}

func (ar *adminRoutes) setCommission(w http.ResponseWriter, r *http.Request) {
	var body commissionRequest
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
	forward(w, r, ar.client, "admin_setCommission", body)
}

type adminAddressRequest struct {
	Caller  string `json:"caller,omitempty"`
	Address string `json:"address"`
}

func (ar *adminRoutes) setTreasury(w http.ResponseWriter, r *http.Request) {
	ar.forwardAddress(w, r, "admin_setTreasury")
}

func (ar *adminRoutes) setProtocolWallet(w http.ResponseWriter, r *http.Request) {
	ar.forwardAddress(w, r, "admin_setProtocolWallet")
}

func (ar *adminRoutes) forwardAddress(w http.ResponseWriter, r *http.Request, method string) {
	var body adminAddressRequest
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
	forward(w, r, ar.client, method, body)
}

type deployersRequest struct {
	Caller          string `json:"caller,omitempty"`
	LedgerDeployer  string `json:"ledgerDeployer"`
	UtilityDeployer string `json:"utilityDeployer"`
}

func (ar *adminRoutes) setDeployers(w http.ResponseWriter, r *http.Request) {
	var body deployersRequest
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
	forward(w, r, ar.client, "admin_setDeployers", body)
}

type transferLockRequest struct {
	Caller     string `json:"caller,omitempty"`
	SupplierID uint64 `json:"supplierId"`
	TokenID    uint64 `json:"tokenId"`
	Hours      uint64 `json:"hours"`
}

func (ar *adminRoutes) setTransferLock(w http.ResponseWriter, r *http.Request) {
	var body transferLockRequest
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
	forward(w, r, ar.client, "admin_setTransferLock", body)
}
