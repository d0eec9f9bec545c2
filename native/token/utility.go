package token

import (
	"fmt"
	"math/big"

	"staychain/core/events"
	"staychain/core/state"
	"staychain/core/types"
	nativecommon "staychain/native/common"
)

// UtilityLedger is the restricted post-checkout variant of the room ledger.
// It shares the mint/URI surface but every transfer is permanently rejected:
// utility tokens are proof-of-stay records, not tradable assets.
type UtilityLedger struct {
	st       State
	instance [20]byte
	emitter  events.Emitter
	pauses   nativecommon.PauseView
}

// NewUtilityLedger binds a utility ledger view to the given instance address.
func NewUtilityLedger(st State, instance [20]byte) *UtilityLedger {
	return &UtilityLedger{st: st, instance: instance, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (u *UtilityLedger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		u.emitter = events.NoopEmitter{}
		return
	}
	u.emitter = emitter
}

func (u *UtilityLedger) SetPauses(p nativecommon.PauseView) {
	if u == nil {
		return
	}
	u.pauses = p
}

// Instance returns the ledger's instance address.
func (u *UtilityLedger) Instance() [20]byte { return u.instance }

// HasRole reports whether the address holds the role on this instance.
func (u *UtilityLedger) HasRole(role string, addr [20]byte) bool {
	return u.st.HasScopedRole(u.instance, role, addr[:])
}

// GrantRole assigns a role on this instance. Only holders of ROLE_OWNER may
// mutate the role table.
func (u *UtilityLedger) GrantRole(caller [20]byte, role string, addr [20]byte) error {
	if err := nativecommon.Guard(u.pauses, moduleName); err != nil {
		return err
	}
	if err := validRoleTag(role); err != nil {
		return err
	}
	if !u.st.HasScopedRole(u.instance, RoleOwner, caller[:]) {
		return ErrUnauthorized
	}
	if err := u.st.SetScopedRole(u.instance, role, addr[:]); err != nil {
		return err
	}
	u.emit(newRoleEvent(eventTypeRoleGranted, u.instance, role, addr))
	return nil
}

// RevokeRole removes a role on this instance. Only holders of ROLE_OWNER may
// mutate the role table.
func (u *UtilityLedger) RevokeRole(caller [20]byte, role string, addr [20]byte) error {
	if err := nativecommon.Guard(u.pauses, moduleName); err != nil {
		return err
	}
	if err := validRoleTag(role); err != nil {
		return err
	}
	if !u.st.HasScopedRole(u.instance, RoleOwner, caller[:]) {
		return ErrUnauthorized
	}
	if err := u.st.RemoveScopedRole(u.instance, role, addr[:]); err != nil {
		return err
	}
	u.emit(newRoleEvent(eventTypeRoleRevoked, u.instance, role, addr))
	return nil
}

// Mint credits amount of the token id to the account. Callable by factory
// holders and by the paired room ledger, which forwards mints during
// checkout.
func (u *UtilityLedger) Mint(caller [20]byte, id uint64, account [20]byte, amount *big.Int, uri string, transferable bool) error {
	if err := nativecommon.Guard(u.pauses, moduleName); err != nil {
		return err
	}
	if !u.st.HasScopedRole(u.instance, RoleFactory, caller[:]) &&
		!u.st.HasScopedRole(u.instance, RoleSupplier, caller[:]) {
		return ErrUnauthorized
	}
	if id == 0 {
		return fmt.Errorf("token: token id must not be zero")
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := creditBalance(u.st, u.instance, id, account, amount); err != nil {
		return err
	}
	if err := u.st.KVPut(state.TokenURIKey(u.instance, id), uri); err != nil {
		return err
	}
	// Utility tokens are never transferable regardless of the requested flag.
	if err := u.st.KVPut(state.TokenTransferableKey(u.instance, id), false); err != nil {
		return err
	}
	u.emit(newMintEvent(u.instance, id, account, amount, uri, false))
	return nil
}

// SetURI replaces the metadata URI of the token id. Factory capability
// required.
func (u *UtilityLedger) SetURI(caller [20]byte, id uint64, uri string) error {
	if err := nativecommon.Guard(u.pauses, moduleName); err != nil {
		return err
	}
	if !u.st.HasScopedRole(u.instance, RoleFactory, caller[:]) {
		return ErrUnauthorized
	}
	if err := u.st.KVPut(state.TokenURIKey(u.instance, id), uri); err != nil {
		return err
	}
	u.emit(newURIEvent(u.instance, id, uri))
	return nil
}

// Transfer always rejects: utility tokens are permanent records.
func (u *UtilityLedger) Transfer(caller [20]byte, from, to [20]byte, id uint64, amount *big.Int) error {
	return ErrTransfersDisabled
}

// BatchTransfer always rejects: utility tokens are permanent records.
func (u *UtilityLedger) BatchTransfer(caller [20]byte, from, to [20]byte, ids []uint64, amounts []*big.Int) error {
	return ErrTransfersDisabled
}

// BalanceOf returns the account's balance of the token id.
func (u *UtilityLedger) BalanceOf(account [20]byte, id uint64) (*big.Int, error) {
	return loadBalance(u.st, u.instance, id, account)
}

// URI returns the metadata URI of the token id, empty when unset.
func (u *UtilityLedger) URI(id uint64) (string, error) {
	return loadURI(u.st, u.instance, id)
}

func (u *UtilityLedger) emit(evt *types.Event) {
	if u == nil || u.emitter == nil || evt == nil {
		return
	}
	u.emitter.Emit(tokenEvent{evt: evt})
}
