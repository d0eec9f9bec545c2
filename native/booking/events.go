package booking

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"staychain/core/types"
)

const (
	EventTypeCreated         = "booking.created"
	EventTypeRoomsBooked     = "booking.rooms_booked"
	EventTypeConfirmed       = "booking.confirmed"
	EventTypeRoomsConfirmed  = "booking.rooms_confirmed"
	EventTypeCheckedOut      = "booking.checked_out"
	EventTypeRoomsCheckedOut = "booking.rooms_checked_out"
	EventTypeCancelled       = "booking.cancelled"
	EventTypeRefunded        = "booking.refunded"
	EventTypeRefundIssued    = "booking.refund_issued"
	EventTypePaymentFailed   = "booking.payment_failed"
	EventTypeTokenToggled    = "booking.token_toggled"
	EventTypeCommissionSet   = "config.commission_updated"
	EventTypeTreasurySet     = "config.treasury_updated"
	EventTypeProtocolSet     = "config.protocol_wallet_updated"
	EventTypeDeployersSet    = "config.deployers_updated"
	EventTypeTransferLockSet = "config.transfer_lock_updated"
)

type bookingEvent struct {
	evt *types.Event
}

func (e bookingEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e bookingEvent) Event() *types.Event { return e.evt }

func newCreatedEvent(b *Booking) *types.Event {
	return &types.Event{
		Type: EventTypeCreated,
		Attributes: map[string]string{
			"id":       strconv.FormatUint(b.ID, 10),
			"supplier": strconv.FormatUint(b.SupplierID, 10),
			"owner":    hexAddr(b.Owner),
			"total":    formatAmount(b.Total),
			"baseRate": formatAmount(b.BaseRate),
			"checkIn":  strconv.FormatUint(b.CheckIn, 10),
			"checkOut": strconv.FormatUint(b.CheckOut, 10),
		},
	}
}

func newRoomsBookedEvent(supplierID uint64, owner [20]byte, ids []uint64, total, commission *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRoomsBooked,
		Attributes: map[string]string{
			"supplier":   strconv.FormatUint(supplierID, 10),
			"owner":      hexAddr(owner),
			"ids":        joinIDs(ids),
			"total":      formatAmount(total),
			"commission": formatAmount(commission),
		},
	}
}

func newConfirmedEvent(b *Booking, transferable bool) *types.Event {
	return &types.Event{
		Type: EventTypeConfirmed,
		Attributes: map[string]string{
			"id":           strconv.FormatUint(b.ID, 10),
			"supplier":     strconv.FormatUint(b.SupplierID, 10),
			"tokenId":      strconv.FormatUint(b.TokenID, 10),
			"transferable": strconv.FormatBool(transferable),
		},
	}
}

func newRoomsConfirmedEvent(supplierID uint64, ids []uint64) *types.Event {
	return &types.Event{
		Type: EventTypeRoomsConfirmed,
		Attributes: map[string]string{
			"supplier": strconv.FormatUint(supplierID, 10),
			"ids":      joinIDs(ids),
		},
	}
}

func newCheckedOutEvent(b *Booking, tokenID uint64) *types.Event {
	return &types.Event{
		Type: EventTypeCheckedOut,
		Attributes: map[string]string{
			"id":       strconv.FormatUint(b.ID, 10),
			"supplier": strconv.FormatUint(b.SupplierID, 10),
			"tokenId":  strconv.FormatUint(tokenID, 10),
		},
	}
}

func newRoomsCheckedOutEvent(supplierID uint64, ids []uint64) *types.Event {
	return &types.Event{
		Type: EventTypeRoomsCheckedOut,
		Attributes: map[string]string{
			"supplier": strconv.FormatUint(supplierID, 10),
			"ids":      joinIDs(ids),
		},
	}
}

func newCancelledEvent(b *Booking, tokenID uint64) *types.Event {
	return &types.Event{
		Type: EventTypeCancelled,
		Attributes: map[string]string{
			"id":       strconv.FormatUint(b.ID, 10),
			"supplier": strconv.FormatUint(b.SupplierID, 10),
			"tokenId":  strconv.FormatUint(tokenID, 10),
		},
	}
}

func newRefundedEvent(supplierID uint64, owner [20]byte, ids []uint64, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRefunded,
		Attributes: map[string]string{
			"supplier": strconv.FormatUint(supplierID, 10),
			"owner":    hexAddr(owner),
			"ids":      joinIDs(ids),
			"amount":   formatAmount(amount),
		},
	}
}

func newRefundIssuedEvent(leg string, recipient [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRefundIssued,
		Attributes: map[string]string{
			"leg":       leg,
			"recipient": hexAddr(recipient),
			"amount":    formatAmount(amount),
		},
	}
}

func newPaymentFailedEvent(leg string, supplierID uint64, payer [20]byte, amount *big.Int, reversed bool) *types.Event {
	return &types.Event{
		Type: EventTypePaymentFailed,
		Attributes: map[string]string{
			"leg":      leg,
			"supplier": strconv.FormatUint(supplierID, 10),
			"payer":    hexAddr(payer),
			"amount":   formatAmount(amount),
			"reversed": strconv.FormatBool(reversed),
		},
	}
}

func newTokenToggledEvent(b *Booking, status bool) *types.Event {
	return &types.Event{
		Type: EventTypeTokenToggled,
		Attributes: map[string]string{
			"id":           strconv.FormatUint(b.ID, 10),
			"supplier":     strconv.FormatUint(b.SupplierID, 10),
			"tokenId":      strconv.FormatUint(b.TokenID, 10),
			"transferable": strconv.FormatBool(status),
		},
	}
}

func newCommissionSetEvent(pct uint32) *types.Event {
	return &types.Event{
		Type: EventTypeCommissionSet,
		Attributes: map[string]string{
			"percent": strconv.FormatUint(uint64(pct), 10),
		},
	}
}

func newAddressSetEvent(eventType, field string, addr [20]byte) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			field: hexAddr(addr),
		},
	}
}

func newDeployersSetEvent(ledger, utility [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeDeployersSet,
		Attributes: map[string]string{
			"ledger":  hexAddr(ledger),
			"utility": hexAddr(utility),
		},
	}
}

func newTransferLockSetEvent(supplierID, tokenID, seconds uint64) *types.Event {
	return &types.Event{
		Type: EventTypeTransferLockSet,
		Attributes: map[string]string{
			"supplier": strconv.FormatUint(supplierID, 10),
			"tokenId":  strconv.FormatUint(tokenID, 10),
			"seconds":  strconv.FormatUint(seconds, 10),
		},
	}
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}
