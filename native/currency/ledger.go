package currency

import (
	"errors"
	"fmt"
	"math/big"

	"staychain/core/types"
)

// State is the account surface the settlement ledger operates on.
type State interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

var (
	// ErrInvalidAmount rejects nil or negative amounts.
	ErrInvalidAmount = errors.New("currency: invalid amount")
	// ErrInsufficientFunds rejects debits exceeding the account balance.
	ErrInsufficientFunds = errors.New("currency: insufficient funds")
)

// Ledger is the default in-process settlement ledger. It implements the
// transferFrom surface the orchestrator expects from the external value
// ledger: synchronous, boolean result, reversible by issuing the inverse
// call.
type Ledger struct {
	st State
}

// NewLedger creates a settlement ledger over the provided account state.
func NewLedger(st State) *Ledger {
	return &Ledger{st: st}
}

// TransferFrom moves amount between accounts. A zero amount is a successful
// no-op. Any failure, including insufficient funds, reports false; the
// surface deliberately carries no error detail.
func (l *Ledger) TransferFrom(from, to [20]byte, amount *big.Int) bool {
	if l == nil || l.st == nil {
		return false
	}
	if amount == nil || amount.Sign() < 0 {
		return false
	}
	if amount.Sign() == 0 || from == to {
		return true
	}
	sender, err := l.st.GetAccount(from[:])
	if err != nil {
		return false
	}
	if sender.Balance.Cmp(amount) < 0 {
		return false
	}
	recipient, err := l.st.GetAccount(to[:])
	if err != nil {
		return false
	}
	sender.Balance = new(big.Int).Sub(sender.Balance, amount)
	recipient.Balance = new(big.Int).Add(recipient.Balance, amount)
	if err := l.st.PutAccount(from[:], sender); err != nil {
		return false
	}
	if err := l.st.PutAccount(to[:], recipient); err != nil {
		return false
	}
	return true
}

// BalanceOf returns the settlement balance of the address.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	account, err := l.st.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return account.Balance, nil
}

// Mint credits amount to the address. Used by genesis allocation and tests.
func (l *Ledger) Mint(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	account, err := l.st.GetAccount(addr[:])
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return l.st.PutAccount(addr[:], account)
}

// Treasury executes refund legs by debiting the configured treasury account.
// The orchestrator treats each leg as fire-and-forget: a returned error is
// surfaced but never rolls back booking state.
type Treasury struct {
	st     State
	source [20]byte
}

// NewTreasury creates a treasury executor debiting the source address.
func NewTreasury(st State, source [20]byte) *Treasury {
	return &Treasury{st: st, source: source}
}

// Refund pays amount from the treasury account to the recipient.
func (t *Treasury) Refund(amount *big.Int, recipient [20]byte) error {
	if t == nil || t.st == nil {
		return errors.New("currency: treasury not configured")
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	source, err := t.st.GetAccount(t.source[:])
	if err != nil {
		return err
	}
	if source.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: treasury balance %s below refund %s", ErrInsufficientFunds, source.Balance, amount)
	}
	target, err := t.st.GetAccount(recipient[:])
	if err != nil {
		return err
	}
	source.Balance = new(big.Int).Sub(source.Balance, amount)
	target.Balance = new(big.Int).Add(target.Balance, amount)
	if err := t.st.PutAccount(t.source[:], source); err != nil {
		return err
	}
	return t.st.PutAccount(recipient[:], target)
}
