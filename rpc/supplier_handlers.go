package rpc

import (
	"errors"
	"net/http"

	nativecommon "staychain/native/common"
	"staychain/native/supplier"
)

type supplierRegisterParams struct {
	Caller      string `json:"caller"`
	Name        string `json:"name"`
	MetadataURI string `json:"metadataUri,omitempty"`
	Owner       string `json:"owner"`
}

type supplierUpdateParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
}

type supplierIDParams struct {
	ID uint64 `json:"id"`
}

type supplierOwnerParams struct {
	Owner string `json:"owner"`
}

type supplierJSON struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	MetadataURI   string `json:"metadataUri,omitempty"`
	Owner         string `json:"owner"`
	Active        bool   `json:"active"`
	Ledger        string `json:"ledger"`
	UtilityLedger string `json:"utilityLedger"`
	CreatedAt     uint64 `json:"createdAt"`
}

func supplierToJSON(record *supplier.Supplier) supplierJSON {
	return supplierJSON{
		ID:            record.ID,
		Name:          record.Name,
		MetadataURI:   record.MetadataURI,
		Owner:         formatAddress(record.Owner),
		Active:        record.Active,
		Ledger:        formatAddress(record.Ledger),
		UtilityLedger: formatAddress(record.UtilityLedger),
		CreatedAt:     record.CreatedAt,
	}
}

func supplierErrorStatus(err error) (int, int) {
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable, codeModulePaused
	case errors.Is(err, supplier.ErrUnauthorized):
		return http.StatusForbidden, codeUnauthorized
	case errors.Is(err, supplier.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, supplier.ErrInvalidName),
		errors.Is(err, supplier.ErrInvalidOwner):
		return http.StatusBadRequest, codeInvalidParams
	case errors.Is(err, supplier.ErrNilDeployer):
		return http.StatusServiceUnavailable, codeServerError
	}
	return http.StatusInternalServerError, codeServerError
}

func writeSupplierError(w http.ResponseWriter, id interface{}, err error) {
	status, code := supplierErrorStatus(err)
	writeError(w, status, id, code, err.Error(), nil)
}

func (s *Server) handleSupplierRegister(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params supplierRegisterParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.RegisterSupplier(caller, params.Name, params.MetadataURI, owner)
	if err != nil {
		writeSupplierError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, supplierToJSON(record))
}

func (s *Server) handleSupplierUpdate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params supplierUpdateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.UpdateSupplierDetails(caller, params.ID, params.Name); err != nil {
		writeSupplierError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"updated": true})
}

func (s *Server) handleSupplierGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params supplierIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, ok, err := s.node.GetSupplier(params.ID)
	if err != nil {
		writeSupplierError(w, req.ID, err)
		return
	}
	if !ok {
		writeSupplierError(w, req.ID, supplier.ErrNotFound)
		return
	}
	writeResult(w, req.ID, supplierToJSON(record))
}

func (s *Server) handleSupplierListByOwner(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params supplierOwnerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	ids, err := s.node.SupplierIDsByOwner(owner)
	if err != nil {
		writeSupplierError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"supplierIds": ids})
}
