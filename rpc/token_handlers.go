package rpc

import (
	"errors"
	"math/big"
	"net/http"

	nativecommon "staychain/native/common"
	"staychain/native/supplier"
	"staychain/native/token"
)

type tokenQueryParams struct {
	SupplierID uint64 `json:"supplierId"`
	Utility    bool   `json:"utility,omitempty"`
	Account    string `json:"account,omitempty"`
	TokenID    uint64 `json:"tokenId"`
}

type tokenTransferParams struct {
	Caller     string `json:"caller"`
	SupplierID uint64 `json:"supplierId"`
	From       string `json:"from"`
	To         string `json:"to"`
	TokenID    uint64 `json:"tokenId"`
	Amount     string `json:"amount"`
}

type tokenBatchTransferParams struct {
	Caller     string   `json:"caller"`
	SupplierID uint64   `json:"supplierId"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	TokenIDs   []uint64 `json:"tokenIds"`
	Amounts    []string `json:"amounts"`
}

type tokenApprovalParams struct {
	Caller     string `json:"caller"`
	SupplierID uint64 `json:"supplierId"`
	Operator   string `json:"operator"`
	Approved   bool   `json:"approved"`
}

func tokenErrorStatus(err error) (int, int) {
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable, codeModulePaused
	case errors.Is(err, token.ErrUnauthorized):
		return http.StatusForbidden, codeUnauthorized
	case errors.Is(err, supplier.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, token.ErrNotTransferable),
		errors.Is(err, token.ErrTransfersDisabled),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrPairMissing):
		return http.StatusConflict, codeConflict
	case errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, token.ErrBatchTooLarge),
		errors.Is(err, token.ErrLengthMismatch):
		return http.StatusBadRequest, codeInvalidParams
	}
	return http.StatusInternalServerError, codeServerError
}

func writeTokenError(w http.ResponseWriter, id interface{}, err error) {
	status, code := tokenErrorStatus(err)
	writeError(w, status, id, code, err.Error(), nil)
}

func (s *Server) handleTokenBalanceOf(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params tokenQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	account, err := parseBech32Address(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.node.TokenBalanceOf(params.SupplierID, params.Utility, account, params.TokenID)
	if err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balance": balance.String()})
}

func (s *Server) handleTokenURI(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params tokenQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	uri, err := s.node.TokenURI(params.SupplierID, params.Utility, params.TokenID)
	if err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"uri": uri})
}

func (s *Server) handleTokenTransferable(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params tokenQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	transferable, err := s.node.TokenTransferable(params.SupplierID, params.TokenID)
	if err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"transferable": transferable})
}

func (s *Server) handleTokenTransfer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params tokenTransferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseBech32Address(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseBech32Address(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.TokenTransfer(caller, params.SupplierID, from, to, params.TokenID, amount); err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"transferred": true})
}

func (s *Server) handleTokenBatchTransfer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params tokenBatchTransferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseBech32Address(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseBech32Address(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amounts := make([]*big.Int, len(params.Amounts))
	for i, raw := range params.Amounts {
		amount, err := parsePositiveBigInt(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
		amounts[i] = amount
	}
	if err := s.node.TokenBatchTransfer(caller, params.SupplierID, from, to, params.TokenIDs, amounts); err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"transferred": true})
}

func (s *Server) handleTokenSetApprovalForAll(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params tokenApprovalParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	operator, err := parseBech32Address(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.TokenSetApprovalForAll(caller, params.SupplierID, operator, params.Approved); err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"approved": params.Approved})
}
