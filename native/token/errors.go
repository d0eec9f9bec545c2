package token

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the role required
	// for a capability-gated operation.
	ErrUnauthorized = errors.New("token: caller lacks required role")
	// ErrInvalidAmount rejects nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("token: invalid amount")
	// ErrInsufficientBalance rejects debits exceeding the stored balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrNotTransferable rejects transfers of tokens whose transferability
	// flag is off.
	ErrNotTransferable = errors.New("token: token is not transferable")
	// ErrTransfersDisabled rejects every transfer on a utility ledger.
	ErrTransfersDisabled = errors.New("token: transfers permanently disabled")
	// ErrBatchTooLarge rejects batches above the ten item ceiling.
	ErrBatchTooLarge = errors.New("token: batch exceeds 10 items")
	// ErrLengthMismatch rejects batches whose id and amount slices differ.
	ErrLengthMismatch = errors.New("token: ids and amounts length mismatch")
	// ErrPairMissing is returned when a ledger has no paired utility ledger
	// recorded but utility issuance was requested.
	ErrPairMissing = errors.New("token: paired utility ledger not provisioned")
)
