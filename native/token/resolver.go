package token

import (
	"staychain/core/events"
	nativecommon "staychain/native/common"
)

// Resolver constructs ledger views for recorded instance addresses. Callers
// reach a supplier's ledgers through the addresses stored on its record, not
// through raw references.
type Resolver struct {
	st      State
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewResolver creates a resolver over the provided state.
func NewResolver(st State) *Resolver {
	return &Resolver{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the emitter handed to resolved ledgers.
func (r *Resolver) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetPauses configures the pause view handed to resolved ledgers.
func (r *Resolver) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// Room returns the room-night ledger bound to the instance address.
func (r *Resolver) Room(instance [20]byte) *Ledger {
	ledger := NewLedger(r.st, instance)
	ledger.SetEmitter(r.emitter)
	ledger.SetPauses(r.pauses)
	return ledger
}

// Utility returns the utility ledger bound to the instance address.
func (r *Resolver) Utility(instance [20]byte) *UtilityLedger {
	ledger := NewUtilityLedger(r.st, instance)
	ledger.SetEmitter(r.emitter)
	ledger.SetPauses(r.pauses)
	return ledger
}
