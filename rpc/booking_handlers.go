package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"staychain/native/booking"
	nativecommon "staychain/native/common"
)

type bookingBookParams struct {
	Caller     string   `json:"caller"`
	SupplierID uint64   `json:"supplierId"`
	Count      uint32   `json:"count,omitempty"`
	Totals     []string `json:"totals"`
	BaseRates  []string `json:"baseRates"`
	CheckIn    uint64   `json:"checkIn"`
	CheckOut   uint64   `json:"checkOut"`
}

type bookingBatchParams struct {
	Caller     string   `json:"caller"`
	SupplierID uint64   `json:"supplierId"`
	BookingIDs []uint64 `json:"bookingIds"`
}

type bookingConfirmParams struct {
	Caller       string   `json:"caller"`
	SupplierID   uint64   `json:"supplierId"`
	BookingIDs   []uint64 `json:"bookingIds"`
	URIs         []string `json:"uris"`
	Transferable bool     `json:"transferable"`
}

type bookingCancelParams struct {
	Caller     string `json:"caller"`
	SupplierID uint64 `json:"supplierId"`
	BookingID  uint64 `json:"bookingId"`
	Penalty    string `json:"penalty"`
	Refund     string `json:"refund"`
	Charges    string `json:"charges"`
}

type bookingRefundParams struct {
	Caller     string   `json:"caller"`
	SupplierID uint64   `json:"supplierId"`
	BookingIDs []uint64 `json:"bookingIds"`
	Owner      string   `json:"owner"`
}

type bookingToggleParams struct {
	Caller       string `json:"caller"`
	BookingID    uint64 `json:"bookingId"`
	Transferable bool   `json:"transferable"`
}

type bookingIDParams struct {
	ID uint64 `json:"id"`
}

type bookingOwnerParams struct {
	Owner string `json:"owner"`
}

type bookingLockParams struct {
	SupplierID uint64 `json:"supplierId"`
	TokenID    uint64 `json:"tokenId"`
}

type bookingJSON struct {
	ID         uint64 `json:"id"`
	SupplierID uint64 `json:"supplierId"`
	Owner      string `json:"owner"`
	Status     string `json:"status"`
	TokenID    uint64 `json:"tokenId,omitempty"`
	CheckIn    uint64 `json:"checkIn"`
	CheckOut   uint64 `json:"checkOut"`
	Total      string `json:"total"`
	BaseRate   string `json:"baseRate"`
	CreatedAt  uint64 `json:"createdAt"`
}

func bookingToJSON(b *booking.Booking) bookingJSON {
	total := "0"
	if b.Total != nil {
		total = b.Total.String()
	}
	baseRate := "0"
	if b.BaseRate != nil {
		baseRate = b.BaseRate.String()
	}
	return bookingJSON{
		ID:         b.ID,
		SupplierID: b.SupplierID,
		Owner:      formatAddress(b.Owner),
		Status:     b.Status.String(),
		TokenID:    b.TokenID,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		Total:      total,
		BaseRate:   baseRate,
		CreatedAt:  b.CreatedAt,
	}
}

// bookingErrorStatus maps engine errors to an HTTP status and RPC code.
func bookingErrorStatus(err error) (int, int) {
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable, codeModulePaused
	case errors.Is(err, nativecommon.ErrQuotaRequestsExceeded),
		errors.Is(err, nativecommon.ErrQuotaRoomsExceeded):
		return http.StatusTooManyRequests, codeRateLimited
	case errors.Is(err, booking.ErrUnauthorized):
		return http.StatusForbidden, codeUnauthorized
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, booking.ErrSupplierNotFound),
		errors.Is(err, booking.ErrTokenNotMinted):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, booking.ErrPaymentFailed),
		errors.Is(err, booking.ErrInvalidStatus),
		errors.Is(err, booking.ErrSupplierInactive),
		errors.Is(err, booking.ErrSupplierMismatch),
		errors.Is(err, booking.ErrOwnerMismatch),
		errors.Is(err, booking.ErrTransferLocked),
		errors.Is(err, booking.ErrDuplicateID):
		return http.StatusConflict, codeConflict
	case errors.Is(err, booking.ErrInvalidAmount),
		errors.Is(err, booking.ErrInvalidWindow),
		errors.Is(err, booking.ErrEmptyBatch),
		errors.Is(err, booking.ErrBatchTooLarge),
		errors.Is(err, booking.ErrLengthMismatch),
		errors.Is(err, booking.ErrInvalidCommission),
		errors.Is(err, booking.ErrZeroAddress):
		return http.StatusBadRequest, codeInvalidParams
	}
	return http.StatusInternalServerError, codeServerError
}

func writeBookingError(w http.ResponseWriter, id interface{}, err error, data interface{}) {
	status, code := bookingErrorStatus(err)
	writeError(w, status, id, code, err.Error(), data)
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func (s *Server) handleBookingBook(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bookingBookParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	totals := make([]*big.Int, len(params.Totals))
	for i, raw := range params.Totals {
		total, err := parsePositiveBigInt(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
		totals[i] = total
	}
	baseRates := make([]*big.Int, len(params.BaseRates))
	for i, raw := range params.BaseRates {
		rate, err := parseNonNegativeBigInt(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
		baseRates[i] = rate
	}
	count := params.Count
	if count == 0 {
		count = uint32(len(totals))
	}

	ids, err := s.node.BookRooms(caller, params.SupplierID, count, totals, baseRates, params.CheckIn, params.CheckOut)
	if err != nil {
		// A failed principal leg still persists the bookings; surface the ids
		// alongside the error so callers can settle out of band.
		var data interface{}
		if len(ids) > 0 {
			data = map[string]interface{}{"bookingIds": ids}
		}
		writeBookingError(w, req.ID, err, data)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"bookingIds": ids})
}

func (s *Server) handleBookingConfirm(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bookingConfirmParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.ConfirmRooms(caller, params.SupplierID, params.BookingIDs, params.URIs, params.Transferable); err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]bool{"confirmed": true})
}

func (s *Server) handleBookingCheckout(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bookingBatchParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.CheckoutRooms(caller, params.SupplierID, params.BookingIDs); err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]bool{"checkedOut": true})
}

func (s *Server) handleBookingCancel(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bookingCancelParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	penalty, err := parseNonNegativeBigInt(params.Penalty)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	refund, err := parseNonNegativeBigInt(params.Refund)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	charges, err := parseNonNegativeBigInt(params.Charges)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.CancelRoom(caller, params.SupplierID, params.BookingID, penalty, refund, charges); err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]bool{"cancelled": true})
}

func (s *Server) handleBookingRefund(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bookingRefundParams
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
	if err := s.node.RefundBookings(caller, params.SupplierID, params.BookingIDs, owner); err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]bool{"refunded": true})
}

func (s *Server) handleBookingToggleToken(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bookingToggleParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.SetTokenTransferability(caller, params.BookingID, params.Transferable); err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]bool{"transferable": params.Transferable})
}

func (s *Server) handleBookingGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bookingIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.GetBooking(params.ID)
	if err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, bookingToJSON(record))
}

func (s *Server) handleBookingListByOwner(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bookingOwnerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	ids, err := s.node.BookingIDsByOwner(owner)
	if err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"bookingIds": ids})
}

func (s *Server) handleBookingTransferLock(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params bookingLockParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	lock, err := s.node.TransferLock(params.SupplierID, params.TokenID)
	if err != nil {
		writeBookingError(w, req.ID, err, nil)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"lockSeconds": lock})
}
