package rpc

import (
	"net/http"
)

type adminCommissionParams struct {
	Caller  string `json:"caller"`
	Percent uint32 `json:"percent"`
}

type adminAddressParams struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

type adminDeployersParams struct {
	Caller          string `json:"caller"`
	LedgerDeployer  string `json:"ledgerDeployer"`
	UtilityDeployer string `json:"utilityDeployer"`
}

type adminLockParams struct {
	Caller     string `json:"caller"`
	SupplierID uint64 `json:"supplierId"`
	TokenID    uint64 `json:"tokenId"`
	Hours      uint64 `json:"hours"`
}

func (s *Server) handleAdminSetCommission(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminCommissionParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.SetCommission(caller, params.Percent); err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]uint32{"commissionPercent": params.Percent})
}

func (s *Server) handleAdminSetTreasury(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleAdminSetAddress(w, req, s.node.SetTreasury)
}

func (s *Server) handleAdminSetProtocolWallet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleAdminSetAddress(w, req, s.node.SetProtocolWallet)
}

func (s *Server) handleAdminSetAddress(w http.ResponseWriter, req *RPCRequest, apply func([20]byte, [20]byte) error) {
	var params adminAddressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := apply(caller, addr); err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]string{"address": params.Address})
}

func (s *Server) handleAdminSetDeployers(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminDeployersParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	ledger, err := parseBech32Address(params.LedgerDeployer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	utility, err := parseBech32Address(params.UtilityDeployer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.SetDeployers(caller, ledger, utility); err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]bool{"updated": true})
}

func (s *Server) handleAdminSetTransferLock(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminLockParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.SetTransferLock(caller, params.SupplierID, params.TokenID, params.Hours); err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"hours": params.Hours})
}
