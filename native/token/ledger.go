package token

import (
	"fmt"
	"math/big"

	"staychain/core/events"
	"staychain/core/state"
	"staychain/core/types"
	nativecommon "staychain/native/common"
)

// Ledger is a semi-fungible room-night token store scoped to one supplier.
// Balances, metadata URIs, transferability flags and the instance role table
// all live in state under the instance address namespace.
type Ledger struct {
	st       State
	instance [20]byte
	emitter  events.Emitter
	pauses   nativecommon.PauseView
}

// NewLedger binds a ledger view to the given instance address.
func NewLedger(st State, instance [20]byte) *Ledger {
	return &Ledger{st: st, instance: instance, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) SetPauses(p nativecommon.PauseView) {
	if l == nil {
		return
	}
	l.pauses = p
}

// Instance returns the ledger's instance address.
func (l *Ledger) Instance() [20]byte { return l.instance }

// HasRole reports whether the address holds the role on this instance.
func (l *Ledger) HasRole(role string, addr [20]byte) bool {
	return l.st.HasScopedRole(l.instance, role, addr[:])
}

// GrantRole assigns a role on this instance. Only holders of ROLE_OWNER may
// mutate the role table.
func (l *Ledger) GrantRole(caller [20]byte, role string, addr [20]byte) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if err := validRoleTag(role); err != nil {
		return err
	}
	if !l.st.HasScopedRole(l.instance, RoleOwner, caller[:]) {
		return ErrUnauthorized
	}
	if err := l.st.SetScopedRole(l.instance, role, addr[:]); err != nil {
		return err
	}
	l.emit(newRoleEvent(eventTypeRoleGranted, l.instance, role, addr))
	return nil
}

// RevokeRole removes a role on this instance. Only holders of ROLE_OWNER may
// mutate the role table.
func (l *Ledger) RevokeRole(caller [20]byte, role string, addr [20]byte) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if err := validRoleTag(role); err != nil {
		return err
	}
	if !l.st.HasScopedRole(l.instance, RoleOwner, caller[:]) {
		return ErrUnauthorized
	}
	if err := l.st.RemoveScopedRole(l.instance, role, addr[:]); err != nil {
		return err
	}
	l.emit(newRoleEvent(eventTypeRoleRevoked, l.instance, role, addr))
	return nil
}

// Mint credits amount of the token id to the account, stores its metadata URI
// and sets the transferability flag. Factory capability required.
func (l *Ledger) Mint(caller [20]byte, id uint64, account [20]byte, amount *big.Int, uri string, transferable bool) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if !l.st.HasScopedRole(l.instance, RoleFactory, caller[:]) {
		return ErrUnauthorized
	}
	if id == 0 {
		return fmt.Errorf("token: token id must not be zero")
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := creditBalance(l.st, l.instance, id, account, amount); err != nil {
		return err
	}
	if err := l.st.KVPut(state.TokenURIKey(l.instance, id), uri); err != nil {
		return err
	}
	if err := l.st.KVPut(state.TokenTransferableKey(l.instance, id), transferable); err != nil {
		return err
	}
	l.emit(newMintEvent(l.instance, id, account, amount, uri, transferable))
	return nil
}

// Burn debits amount of the token id from the account and clears its stored
// URI. When issueUtility is set the captured URI is forwarded as a mint on the
// paired utility ledger, marking the stay as used. Factory capability
// required.
func (l *Ledger) Burn(caller [20]byte, account [20]byte, id uint64, amount *big.Int, issueUtility bool) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if !l.st.HasScopedRole(l.instance, RoleFactory, caller[:]) {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	uri, err := loadURI(l.st, l.instance, id)
	if err != nil {
		return err
	}
	if err := l.st.KVDelete(state.TokenURIKey(l.instance, id)); err != nil {
		return err
	}
	if err := debitBalance(l.st, l.instance, id, account, amount); err != nil {
		return err
	}
	if issueUtility {
		pair, ok, err := l.PairedUtility()
		if err != nil {
			return err
		}
		if !ok {
			return ErrPairMissing
		}
		utility := NewUtilityLedger(l.st, pair)
		utility.SetEmitter(l.emitter)
		utility.SetPauses(l.pauses)
		if err := utility.Mint(l.instance, id, account, amount, uri, false); err != nil {
			return err
		}
	}
	l.emit(newBurnEvent(l.instance, id, account, amount, issueUtility))
	return nil
}

// SetURI replaces the metadata URI of the token id. Factory capability
// required.
func (l *Ledger) SetURI(caller [20]byte, id uint64, uri string) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if !l.st.HasScopedRole(l.instance, RoleFactory, caller[:]) {
		return ErrUnauthorized
	}
	if err := l.st.KVPut(state.TokenURIKey(l.instance, id), uri); err != nil {
		return err
	}
	l.emit(newURIEvent(l.instance, id, uri))
	return nil
}

// SetTransferable flips the transferability flag of the token id. Factory
// capability required.
func (l *Ledger) SetTransferable(caller [20]byte, id uint64, status bool) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if !l.st.HasScopedRole(l.instance, RoleFactory, caller[:]) {
		return ErrUnauthorized
	}
	if err := l.st.KVPut(state.TokenTransferableKey(l.instance, id), status); err != nil {
		return err
	}
	l.emit(newToggleEvent(l.instance, id, status))
	return nil
}

// SetApprovalForAll lets a holder grant or revoke an operator for all of their
// tokens on this instance.
func (l *Ledger) SetApprovalForAll(caller [20]byte, operator [20]byte, approved bool) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if operator == ([20]byte{}) {
		return fmt.Errorf("token: operator must not be the zero address")
	}
	if err := l.st.KVPut(state.TokenApprovalKey(l.instance, caller[:], operator[:]), approved); err != nil {
		return err
	}
	l.emit(newApprovalEvent(l.instance, caller, operator, approved))
	return nil
}

// IsApprovedForAll reports whether operator may move owner's tokens.
func (l *Ledger) IsApprovedForAll(owner, operator [20]byte) bool {
	var approved bool
	ok, err := l.st.KVGet(state.TokenApprovalKey(l.instance, owner[:], operator[:]), &approved)
	if err != nil || !ok {
		return false
	}
	return approved
}

// Transfer moves amount of the token id between accounts. The caller must be
// the sender or an approved operator, and the token's transferability flag
// must be on.
func (l *Ledger) Transfer(caller [20]byte, from, to [20]byte, id uint64, amount *big.Int) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if err := l.checkTransfer(caller, from, to, id, amount); err != nil {
		return err
	}
	return l.applyTransfer(from, to, id, amount)
}

// BatchTransfer moves several token ids between the same pair of accounts.
// The whole batch is validated before any balance moves.
func (l *Ledger) BatchTransfer(caller [20]byte, from, to [20]byte, ids []uint64, amounts []*big.Int) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if len(ids) != len(amounts) {
		return ErrLengthMismatch
	}
	if len(ids) >= 11 {
		return ErrBatchTooLarge
	}
	for i, id := range ids {
		if err := l.checkTransfer(caller, from, to, id, amounts[i]); err != nil {
			return err
		}
	}
	for i, id := range ids {
		if err := l.applyTransfer(from, to, id, amounts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) checkTransfer(caller [20]byte, from, to [20]byte, id uint64, amount *big.Int) error {
	if to == ([20]byte{}) {
		return fmt.Errorf("token: transfer to the zero address")
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if caller != from && !l.IsApprovedForAll(from, caller) {
		return ErrUnauthorized
	}
	transferable, err := l.Transferable(id)
	if err != nil {
		return err
	}
	if !transferable {
		return ErrNotTransferable
	}
	balance, err := l.BalanceOf(from, id)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (l *Ledger) applyTransfer(from, to [20]byte, id uint64, amount *big.Int) error {
	if err := debitBalance(l.st, l.instance, id, from, amount); err != nil {
		return err
	}
	if err := creditBalance(l.st, l.instance, id, to, amount); err != nil {
		return err
	}
	l.emit(newTransferEvent(l.instance, id, from, to, amount))
	return nil
}

// BalanceOf returns the account's balance of the token id.
func (l *Ledger) BalanceOf(account [20]byte, id uint64) (*big.Int, error) {
	return loadBalance(l.st, l.instance, id, account)
}

// URI returns the metadata URI of the token id, empty when unset.
func (l *Ledger) URI(id uint64) (string, error) {
	return loadURI(l.st, l.instance, id)
}

// Transferable reports the transferability flag of the token id.
func (l *Ledger) Transferable(id uint64) (bool, error) {
	var status bool
	if _, err := l.st.KVGet(state.TokenTransferableKey(l.instance, id), &status); err != nil {
		return false, err
	}
	return status, nil
}

// PairedUtility returns the utility ledger instance recorded for this ledger
// at provisioning time.
func (l *Ledger) PairedUtility() ([20]byte, bool, error) {
	var raw []byte
	ok, err := l.st.KVGet(state.TokenPairKey(l.instance), &raw)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	if len(raw) != 20 {
		return [20]byte{}, false, fmt.Errorf("token: malformed pair record")
	}
	var pair [20]byte
	copy(pair[:], raw)
	return pair, true, nil
}

func (l *Ledger) emit(evt *types.Event) {
	if l == nil || l.emitter == nil || evt == nil {
		return
	}
	l.emitter.Emit(tokenEvent{evt: evt})
}

func validRoleTag(role string) error {
	switch role {
	case RoleOwner, RoleFactory, RoleSupplier:
		return nil
	}
	return fmt.Errorf("token: unknown role %q", role)
}

func loadBalance(st State, instance [20]byte, id uint64, account [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := st.KVGet(state.TokenBalanceKey(instance, id, account[:]), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

func creditBalance(st State, instance [20]byte, id uint64, account [20]byte, amount *big.Int) error {
	balance, err := loadBalance(st, instance, id, account)
	if err != nil {
		return err
	}
	return st.KVPut(state.TokenBalanceKey(instance, id, account[:]), new(big.Int).Add(balance, amount))
}

func debitBalance(st State, instance [20]byte, id uint64, account [20]byte, amount *big.Int) error {
	balance, err := loadBalance(st, instance, id, account)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return st.KVPut(state.TokenBalanceKey(instance, id, account[:]), new(big.Int).Sub(balance, amount))
}

func loadURI(st State, instance [20]byte, id uint64) (string, error) {
	var uri string
	if _, err := st.KVGet(state.TokenURIKey(instance, id), &uri); err != nil {
		return "", err
	}
	return uri, nil
}
