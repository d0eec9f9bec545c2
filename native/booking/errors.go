package booking

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the capability an
	// operation requires.
	ErrUnauthorized = errors.New("booking: caller lacks required capability")
	// ErrNotFound is returned when no booking exists under the given id.
	ErrNotFound = errors.New("booking: booking not found")
	// ErrSupplierNotFound is returned when the referenced supplier is not
	// registered.
	ErrSupplierNotFound = errors.New("booking: supplier not found")
	// ErrSupplierInactive is returned when the referenced supplier is
	// registered but disabled.
	ErrSupplierInactive = errors.New("booking: supplier inactive")
	// ErrSupplierMismatch is returned when a booking exists but does not
	// belong to the supplier named by the call.
	ErrSupplierMismatch = errors.New("booking: booking does not belong to supplier")
	// ErrOwnerMismatch is returned when a refund batch names a booking held
	// by someone other than the refund recipient.
	ErrOwnerMismatch = errors.New("booking: booking owner mismatch")
	// ErrInvalidStatus is returned when a booking is not in the lifecycle
	// state the operation requires.
	ErrInvalidStatus = errors.New("booking: invalid lifecycle state")
	// ErrInvalidAmount rejects nil or negative monetary inputs.
	ErrInvalidAmount = errors.New("booking: invalid amount")
	// ErrInvalidWindow rejects stay windows that are empty, inverted, or
	// start in the past.
	ErrInvalidWindow = errors.New("booking: invalid stay window")
	// ErrEmptyBatch rejects batch operations with no entries.
	ErrEmptyBatch = errors.New("booking: empty batch")
	// ErrBatchTooLarge rejects batches of more than ten entries.
	ErrBatchTooLarge = errors.New("booking: batch exceeds 10 items")
	// ErrLengthMismatch rejects batches whose parallel arrays disagree in
	// length.
	ErrLengthMismatch = errors.New("booking: array lengths mismatch")
	// ErrDuplicateID rejects batches naming the same booking twice.
	ErrDuplicateID = errors.New("booking: duplicate booking id in batch")
	// ErrPaymentFailed is returned when a currency transfer leg is refused
	// by the ledger.
	ErrPaymentFailed = errors.New("booking: payment transfer failed")
	// ErrTokenNotMinted is returned when a token-level operation targets a
	// booking without an active token.
	ErrTokenNotMinted = errors.New("booking: no token minted for booking")
	// ErrTransferLocked is returned when transferability changes are
	// requested inside the pre-check-in lock window.
	ErrTransferLocked = errors.New("booking: transfer lock window active")
	// ErrInvalidCommission rejects commission percentages above 100.
	ErrInvalidCommission = errors.New("booking: commission percent exceeds 100")
	// ErrZeroAddress rejects configuration updates pointing at the zero
	// address.
	ErrZeroAddress = errors.New("booking: zero address")
	// ErrNoLedger is returned when no token ledger can be resolved for a
	// supplier instance.
	ErrNoLedger = errors.New("booking: token ledger unavailable")
)
