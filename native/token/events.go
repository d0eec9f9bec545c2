package token

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"staychain/core/types"
)

const (
	EventTypeMinted      = "token.minted"
	EventTypeBurned      = "token.burned"
	EventTypeTransferred = "token.transferred"
	EventTypeURIUpdated  = "token.uri_updated"
	EventTypeToggled     = "token.transferability_toggled"
	EventTypeApprovalSet = "token.approval_set"
	eventTypeRoleGranted = "token.role_granted"
	eventTypeRoleRevoked = "token.role_revoked"
)

type tokenEvent struct {
	evt *types.Event
}

func (e tokenEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e tokenEvent) Event() *types.Event { return e.evt }

func baseAttrs(instance [20]byte, id uint64) map[string]string {
	return map[string]string{
		"ledger": hex.EncodeToString(instance[:]),
		"id":     strconv.FormatUint(id, 10),
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newMintEvent(instance [20]byte, id uint64, account [20]byte, amount *big.Int, uri string, transferable bool) *types.Event {
	attrs := baseAttrs(instance, id)
	attrs["account"] = hex.EncodeToString(account[:])
	attrs["amount"] = formatAmount(amount)
	attrs["uri"] = uri
	attrs["transferable"] = strconv.FormatBool(transferable)
	return &types.Event{Type: EventTypeMinted, Attributes: attrs}
}

func newBurnEvent(instance [20]byte, id uint64, account [20]byte, amount *big.Int, utilityIssued bool) *types.Event {
	attrs := baseAttrs(instance, id)
	attrs["account"] = hex.EncodeToString(account[:])
	attrs["amount"] = formatAmount(amount)
	attrs["utilityIssued"] = strconv.FormatBool(utilityIssued)
	return &types.Event{Type: EventTypeBurned, Attributes: attrs}
}

func newTransferEvent(instance [20]byte, id uint64, from, to [20]byte, amount *big.Int) *types.Event {
	attrs := baseAttrs(instance, id)
	attrs["from"] = hex.EncodeToString(from[:])
	attrs["to"] = hex.EncodeToString(to[:])
	attrs["amount"] = formatAmount(amount)
	return &types.Event{Type: EventTypeTransferred, Attributes: attrs}
}

func newURIEvent(instance [20]byte, id uint64, uri string) *types.Event {
	attrs := baseAttrs(instance, id)
	attrs["uri"] = uri
	return &types.Event{Type: EventTypeURIUpdated, Attributes: attrs}
}

func newToggleEvent(instance [20]byte, id uint64, status bool) *types.Event {
	attrs := baseAttrs(instance, id)
	attrs["status"] = strconv.FormatBool(status)
	return &types.Event{Type: EventTypeToggled, Attributes: attrs}
}

func newApprovalEvent(instance [20]byte, owner, operator [20]byte, approved bool) *types.Event {
	return &types.Event{Type: EventTypeApprovalSet, Attributes: map[string]string{
		"ledger":   hex.EncodeToString(instance[:]),
		"owner":    hex.EncodeToString(owner[:]),
		"operator": hex.EncodeToString(operator[:]),
		"approved": strconv.FormatBool(approved),
	}}
}

func newRoleEvent(eventType string, instance [20]byte, role string, addr [20]byte) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"ledger":  hex.EncodeToString(instance[:]),
		"role":    role,
		"address": hex.EncodeToString(addr[:]),
	}}
}
