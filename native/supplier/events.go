package supplier

import (
	"encoding/hex"
	"strconv"

	"staychain/core/types"
)

const (
	EventTypeRegistered    = "supplier.registered"
	EventTypeUpdated       = "supplier.updated"
	EventTypeActiveChanged = "supplier.active_changed"
)

type supplierEvent struct {
	evt *types.Event
}

func (e supplierEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e supplierEvent) Event() *types.Event { return e.evt }

func newRegisteredEvent(s *Supplier) *types.Event {
	return &types.Event{Type: EventTypeRegistered, Attributes: map[string]string{
		"id":            strconv.FormatUint(s.ID, 10),
		"name":          s.Name,
		"owner":         hex.EncodeToString(s.Owner[:]),
		"ledger":        hex.EncodeToString(s.Ledger[:]),
		"utilityLedger": hex.EncodeToString(s.UtilityLedger[:]),
		"metadataUri":   s.MetadataURI,
	}}
}

func newUpdatedEvent(s *Supplier) *types.Event {
	return &types.Event{Type: EventTypeUpdated, Attributes: map[string]string{
		"id":   strconv.FormatUint(s.ID, 10),
		"name": s.Name,
	}}
}

func newActiveChangedEvent(s *Supplier) *types.Event {
	return &types.Event{Type: EventTypeActiveChanged, Attributes: map[string]string{
		"id":     strconv.FormatUint(s.ID, 10),
		"active": strconv.FormatBool(s.Active),
	}}
}
