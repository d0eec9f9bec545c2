package booking

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"staychain/core/events"
	"staychain/core/state"
	"staychain/core/types"
	nativecommon "staychain/native/common"
	"staychain/native/supplier"
)

const moduleName = "booking"

// RoleAdmin may drive supplier-side lifecycle operations and update
// protocol configuration.
const RoleAdmin = "ROLE_BOOKING_ADMIN"

const maxBatchItems = 10

const secondsPerHour = 3600

// engineState is the slice of the state manager the orchestrator depends on.
type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte) ([][]byte, error)
	HasRole(role string, addr []byte) bool
	CommissionPercent() (uint32, error)
	SetCommissionPercent(pct uint32) error
	TreasuryAddress() ([20]byte, error)
	SetTreasuryAddress(addr [20]byte) error
	ProtocolWalletAddress() ([20]byte, error)
	SetProtocolWalletAddress(addr [20]byte) error
	DeployerAddresses() (ledger [20]byte, utility [20]byte, err error)
	SetDeployerAddresses(ledger, utility [20]byte) error
}

// SupplierDirectory resolves supplier records for validation and ledger
// instance lookup. *supplier.Registry satisfies it.
type SupplierDirectory interface {
	Get(id uint64) (*supplier.Supplier, bool, error)
}

// RoomLedger is the surface the orchestrator drives on a supplier's room
// token ledger. Instances are resolved per call through the supplier
// record's ledger address, so every supplier settles against its own pair.
type RoomLedger interface {
	Mint(caller [20]byte, id uint64, account [20]byte, amount *big.Int, uri string, transferable bool) error
	Burn(caller [20]byte, account [20]byte, id uint64, amount *big.Int, issueUtility bool) error
	SetTransferable(caller [20]byte, id uint64, status bool) error
}

// LedgerResolver maps a ledger instance address to its RoomLedger.
type LedgerResolver func(instance [20]byte) RoomLedger

// CurrencyLedger moves booking funds between accounts. TransferFrom reports
// whether the transfer settled; a false return leaves both balances
// untouched.
type CurrencyLedger interface {
	TransferFrom(from, to [20]byte, amount *big.Int) bool
}

// Treasury pays refunds out of the treasury account.
type Treasury interface {
	Refund(amount *big.Int, recipient [20]byte) error
}

// Engine orchestrates the booking lifecycle: reservation and payment
// collection, confirmation minting, checkout settlement, cancellation, and
// pre-confirmation refunds. The node serializes all mutating calls.
type Engine struct {
	state     engineState
	suppliers SupplierDirectory
	ledgers   LedgerResolver
	currency  CurrencyLedger
	treasury  Treasury
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	quota     nativecommon.Quota
	nowFn     func() int64
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

func (e *Engine) SetState(st engineState) { e.state = st }

func (e *Engine) SetSuppliers(dir SupplierDirectory) { e.suppliers = dir }

func (e *Engine) SetLedgerResolver(resolve LedgerResolver) { e.ledgers = resolve }

func (e *Engine) SetCurrency(ledger CurrencyLedger) { e.currency = ledger }

func (e *Engine) SetTreasuryExecutor(t Treasury) { e.treasury = t }

// SetEmitter configures the sink for lifecycle events. Passing nil restores
// the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetQuota bounds per-address booking pressure. A zero EpochSeconds disables
// quota tracking.
func (e *Engine) SetQuota(q nativecommon.Quota) { e.quota = q }

func (e *Engine) SetNowFunc(now func() int64) {
	if now != nil {
		e.nowFn = now
	}
}

func (e *Engine) now() int64 {
	if e.nowFn != nil {
		return e.nowFn()
	}
	return time.Now().Unix()
}

var moduleAddress = deriveModuleAddress()

// ModuleAddress is the deterministic address the orchestrator acts under on
// supplier token ledgers. Supplier registration grants it the factory role
// on every provisioned ledger pair.
func ModuleAddress() [20]byte { return moduleAddress }

func deriveModuleAddress() [20]byte {
	var addr [20]byte
	sum := ethcrypto.Keccak256([]byte("staychain/native/booking"))
	copy(addr[:], sum[12:])
	return addr
}

// BookRooms reserves count rooms with a supplier and collects payment in two
// legs. The commission settles into the protocol wallet before any booking
// state is written; a refused commission aborts the call with no state
// change. The principal settles into the treasury after the bookings are
// persisted; a refused principal pushes the collected commission back to the
// caller without checking the result, keeps the bookings in the booked
// state, and reports ErrPaymentFailed alongside the created ids.
func (e *Engine) BookRooms(caller [20]byte, supplierID uint64, count uint32, totals, baseRates []*big.Int, checkIn, checkOut uint64) ([]uint64, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.state == nil || e.currency == nil {
		return nil, fmt.Errorf("booking: engine not configured")
	}
	sup, err := e.activeSupplier(supplierID)
	if err != nil {
		return nil, err
	}
	if err := checkBatch(int(count)); err != nil {
		return nil, err
	}
	if len(totals) != int(count) || len(baseRates) != int(count) {
		return nil, ErrLengthMismatch
	}
	now := e.now()
	if checkIn >= checkOut || checkIn <= uint64(now) {
		return nil, ErrInvalidWindow
	}
	for i := range totals {
		if totals[i] == nil || totals[i].Sign() <= 0 {
			return nil, fmt.Errorf("%w: total at index %d", ErrInvalidAmount, i)
		}
		if baseRates[i] == nil || baseRates[i].Sign() < 0 {
			return nil, fmt.Errorf("%w: base rate at index %d", ErrInvalidAmount, i)
		}
	}
	if err := e.consumeQuota(caller, now, uint64(count)); err != nil {
		return nil, err
	}
	pct, err := e.state.CommissionPercent()
	if err != nil {
		return nil, err
	}
	protocolWallet, err := e.state.ProtocolWalletAddress()
	if err != nil {
		return nil, err
	}
	treasuryAddr, err := e.state.TreasuryAddress()
	if err != nil {
		return nil, err
	}
	principal := big.NewInt(0)
	commission := big.NewInt(0)
	for i := range totals {
		principal.Add(principal, totals[i])
		commission.Add(commission, commissionOn(baseRates[i], pct))
	}

	if !e.currency.TransferFrom(caller, protocolWallet, commission) {
		e.emit(newPaymentFailedEvent("commission", supplierID, caller, commission, false))
		return nil, fmt.Errorf("%w: commission leg", ErrPaymentFailed)
	}

	ids := make([]uint64, 0, count)
	createdAt := uint64(now)
	for i := range totals {
		id, err := e.nextBookingID()
		if err != nil {
			return nil, err
		}
		record := &Booking{
			ID:         id,
			SupplierID: sup.ID,
			Owner:      caller,
			Status:     StatusBooked,
			CheckIn:    checkIn,
			CheckOut:   checkOut,
			Total:      totals[i],
			BaseRate:   baseRates[i],
			CreatedAt:  createdAt,
		}
		if err := e.storeBooking(record); err != nil {
			return nil, err
		}
		var idBytes [8]byte
		binary.BigEndian.PutUint64(idBytes[:], id)
		if err := e.state.KVAppend(state.BookingOwnerKey(caller[:]), idBytes[:]); err != nil {
			return nil, err
		}
		e.emit(newCreatedEvent(record))
		ids = append(ids, id)
	}
	e.emit(newRoomsBookedEvent(sup.ID, caller, ids, principal, commission))

	if !e.currency.TransferFrom(caller, treasuryAddr, principal) {
		e.currency.TransferFrom(protocolWallet, caller, commission)
		e.emit(newPaymentFailedEvent("principal", supplierID, caller, principal, true))
		return ids, fmt.Errorf("%w: principal leg", ErrPaymentFailed)
	}
	return ids, nil
}

// ConfirmRooms finalizes booked rooms for the calling owner and mints one
// room token per booking on the supplier's ledger. The whole batch is
// validated before the first mutation.
func (e *Engine) ConfirmRooms(caller [20]byte, supplierID uint64, ids []uint64, uris []string, transferable bool) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.state == nil {
		return fmt.Errorf("booking: engine not configured")
	}
	sup, err := e.activeSupplier(supplierID)
	if err != nil {
		return err
	}
	if err := checkBatch(len(ids)); err != nil {
		return err
	}
	if len(uris) != len(ids) {
		return ErrLengthMismatch
	}
	ledger, err := e.ledgerFor(sup)
	if err != nil {
		return err
	}
	records, err := e.collectBatch(sup.ID, ids, StatusBooked)
	if err != nil {
		return err
	}
	for _, b := range records {
		if b.Owner != caller {
			return fmt.Errorf("%w: booking %d", ErrUnauthorized, b.ID)
		}
	}

	for i, b := range records {
		b.Status = StatusConfirmed
		b.TokenID = b.ID
		if err := e.storeBooking(b); err != nil {
			return err
		}
		if err := ledger.Mint(moduleAddress, b.TokenID, b.Owner, big.NewInt(1), uris[i], transferable); err != nil {
			return err
		}
		e.emit(newConfirmedEvent(b, transferable))
	}
	e.emit(newRoomsConfirmedEvent(sup.ID, ids))
	return nil
}

// Checkout expires confirmed bookings after the stay completes. Each room
// token is burned with utility issuance, leaving the guest a non-transferable
// proof of stay. Works regardless of the supplier's active flag.
func (e *Engine) Checkout(caller [20]byte, supplierID uint64, ids []uint64) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.state == nil {
		return fmt.Errorf("booking: engine not configured")
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	sup, err := e.supplierFor(supplierID)
	if err != nil {
		return err
	}
	if err := checkBatch(len(ids)); err != nil {
		return err
	}
	ledger, err := e.ledgerFor(sup)
	if err != nil {
		return err
	}
	records, err := e.collectBatch(sup.ID, ids, StatusConfirmed)
	if err != nil {
		return err
	}

	for _, b := range records {
		tokenID := b.TokenID
		b.Status = StatusExpired
		if err := e.storeBooking(b); err != nil {
			return err
		}
		if err := ledger.Burn(moduleAddress, b.Owner, tokenID, big.NewInt(1), true); err != nil {
			return err
		}
		e.emit(newCheckedOutEvent(b, tokenID))
	}
	e.emit(newRoomsCheckedOutEvent(sup.ID, ids))
	return nil
}

// CancelRoom cancels a confirmed booking, burns its room token without
// utility issuance, and issues three independent treasury payouts: the
// penalty to the supplier owner, the refund to the booking owner, and the
// charges to the protocol wallet. A failed payout never rolls back the
// cancellation; failures from all legs are joined into the returned error.
func (e *Engine) CancelRoom(caller [20]byte, supplierID, id uint64, penalty, refund, charges *big.Int) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.state == nil || e.treasury == nil {
		return fmt.Errorf("booking: engine not configured")
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	sup, err := e.supplierFor(supplierID)
	if err != nil {
		return err
	}
	penalty, err = normalizeAmount(penalty)
	if err != nil {
		return fmt.Errorf("%w: penalty", err)
	}
	refund, err = normalizeAmount(refund)
	if err != nil {
		return fmt.Errorf("%w: refund", err)
	}
	charges, err = normalizeAmount(charges)
	if err != nil {
		return fmt.Errorf("%w: charges", err)
	}
	protocolWallet, err := e.state.ProtocolWalletAddress()
	if err != nil {
		return err
	}
	b, err := e.loadBooking(id)
	if err != nil {
		return err
	}
	if b.SupplierID != sup.ID {
		return fmt.Errorf("%w: booking %d", ErrSupplierMismatch, id)
	}
	if b.Status != StatusConfirmed {
		return fmt.Errorf("%w: booking %d is %s", ErrInvalidStatus, id, b.Status)
	}
	ledger, err := e.ledgerFor(sup)
	if err != nil {
		return err
	}

	tokenID := b.TokenID
	b.Status = StatusCancelled
	b.TokenID = 0
	if err := e.storeBooking(b); err != nil {
		return err
	}
	var failures []error
	if err := ledger.Burn(moduleAddress, b.Owner, tokenID, big.NewInt(1), false); err != nil {
		failures = append(failures, fmt.Errorf("token burn: %w", err))
	}
	e.emit(newCancelledEvent(b, tokenID))

	legs := []struct {
		name      string
		amount    *big.Int
		recipient [20]byte
	}{
		{"penalty", penalty, sup.Owner},
		{"refund", refund, b.Owner},
		{"charges", charges, protocolWallet},
	}
	for _, leg := range legs {
		if leg.amount.Sign() == 0 {
			continue
		}
		if err := e.treasury.Refund(leg.amount, leg.recipient); err != nil {
			failures = append(failures, fmt.Errorf("%s leg: %w", leg.name, err))
			continue
		}
		e.emit(newRefundIssuedEvent(leg.name, leg.recipient, leg.amount))
	}
	return errors.Join(failures...)
}

// RefundBookings cancels booked, not yet confirmed rooms held by owner and
// pays a single treasury refund covering each room's total plus its
// commission at the current rate. The bookings stay cancelled even when the
// payout fails.
func (e *Engine) RefundBookings(caller [20]byte, supplierID uint64, ids []uint64, owner [20]byte) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.state == nil || e.treasury == nil {
		return fmt.Errorf("booking: engine not configured")
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	sup, err := e.supplierFor(supplierID)
	if err != nil {
		return err
	}
	if err := checkBatch(len(ids)); err != nil {
		return err
	}
	pct, err := e.state.CommissionPercent()
	if err != nil {
		return err
	}
	records, err := e.collectBatch(sup.ID, ids, StatusBooked)
	if err != nil {
		return err
	}
	amount := big.NewInt(0)
	for _, b := range records {
		if b.Owner != owner {
			return fmt.Errorf("%w: booking %d", ErrOwnerMismatch, b.ID)
		}
		amount.Add(amount, b.Total)
		amount.Add(amount, commissionOn(b.BaseRate, pct))
	}

	for _, b := range records {
		b.Status = StatusCancelled
		if err := e.storeBooking(b); err != nil {
			return err
		}
		e.emit(newCancelledEvent(b, 0))
	}
	if err := e.treasury.Refund(amount, owner); err != nil {
		return fmt.Errorf("refund leg: %w", err)
	}
	e.emit(newRefundedEvent(sup.ID, owner, ids, amount))
	return nil
}

// SetTokenTransferability flips the transfer flag on a booking's active room
// token. The caller must be an admin or the booking owner, and the change
// must land strictly before the booking's check-in minus its transfer lock.
func (e *Engine) SetTokenTransferability(caller [20]byte, bookingID uint64, status bool) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.state == nil {
		return fmt.Errorf("booking: engine not configured")
	}
	b, err := e.loadBooking(bookingID)
	if err != nil {
		return err
	}
	if !e.state.HasRole(RoleAdmin, caller[:]) && caller != b.Owner {
		return ErrUnauthorized
	}
	if b.TokenID == 0 {
		return fmt.Errorf("%w: booking %d", ErrTokenNotMinted, bookingID)
	}
	if b.Status != StatusConfirmed {
		return fmt.Errorf("%w: booking %d is %s", ErrInvalidStatus, bookingID, b.Status)
	}
	sup, err := e.supplierFor(b.SupplierID)
	if err != nil {
		return err
	}
	lock, err := e.TransferLock(sup.ID, b.TokenID)
	if err != nil {
		return err
	}
	if e.now() >= int64(b.CheckIn)-int64(lock) {
		return fmt.Errorf("%w: booking %d", ErrTransferLocked, bookingID)
	}
	ledger, err := e.ledgerFor(sup)
	if err != nil {
		return err
	}
	if err := ledger.SetTransferable(moduleAddress, b.TokenID, status); err != nil {
		return err
	}
	e.emit(newTokenToggledEvent(b, status))
	return nil
}

// SetCommission updates the protocol commission percentage. Values above 100
// are rejected.
func (e *Engine) SetCommission(caller [20]byte, pct uint32) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.state == nil {
		return fmt.Errorf("booking: engine not configured")
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if pct > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidCommission, pct)
	}
	if err := e.state.SetCommissionPercent(pct); err != nil {
		return err
	}
	e.emit(newCommissionSetEvent(pct))
	return nil
}

// SetTreasury points principal collection and refunds at a new treasury
// account.
func (e *Engine) SetTreasury(caller [20]byte, addr [20]byte) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.state == nil {
		return fmt.Errorf("booking: engine not configured")
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if addr == ([20]byte{}) {
		return fmt.Errorf("%w: treasury", ErrZeroAddress)
	}
	if err := e.state.SetTreasuryAddress(addr); err != nil {
		return err
	}
	e.emit(newAddressSetEvent(EventTypeTreasurySet, "treasury", addr))
	return nil
}

// SetProtocolWallet points commission collection at a new protocol wallet.
func (e *Engine) SetProtocolWallet(caller [20]byte, addr [20]byte) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.state == nil {
		return fmt.Errorf("booking: engine not configured")
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if addr == ([20]byte{}) {
		return fmt.Errorf("%w: protocol wallet", ErrZeroAddress)
	}
	if err := e.state.SetProtocolWalletAddress(addr); err != nil {
		return err
	}
	e.emit(newAddressSetEvent(EventTypeProtocolSet, "protocolWallet", addr))
	return nil
}

// SetDeployers swaps the identities used to derive ledger pair addresses for
// suppliers registered from this point on. Existing pairs keep their
// addresses.
func (e *Engine) SetDeployers(caller [20]byte, ledger, utility [20]byte) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.state == nil {
		return fmt.Errorf("booking: engine not configured")
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if ledger == ([20]byte{}) || utility == ([20]byte{}) {
		return fmt.Errorf("%w: deployer", ErrZeroAddress)
	}
	if err := e.state.SetDeployerAddresses(ledger, utility); err != nil {
		return err
	}
	e.emit(newDeployersSetEvent(ledger, utility))
	return nil
}

// SetTransferLock sets the pre-check-in window, in hours, during which a
// token's transferability may no longer be changed.
func (e *Engine) SetTransferLock(caller [20]byte, supplierID, tokenID, hours uint64) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.state == nil {
		return fmt.Errorf("booking: engine not configured")
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	sup, err := e.supplierFor(supplierID)
	if err != nil {
		return err
	}
	if tokenID == 0 {
		return fmt.Errorf("booking: token id must not be zero")
	}
	if hours > math.MaxUint64/secondsPerHour {
		return fmt.Errorf("booking: transfer lock overflows")
	}
	seconds := hours * secondsPerHour
	if err := e.state.KVPut(state.TransferLockKey(sup.ID, tokenID), seconds); err != nil {
		return err
	}
	e.emit(newTransferLockSetEvent(sup.ID, tokenID, seconds))
	return nil
}

// TransferLock returns the configured lock window in seconds, zero when none
// is set.
func (e *Engine) TransferLock(supplierID, tokenID uint64) (uint64, error) {
	if e.state == nil {
		return 0, fmt.Errorf("booking: engine not configured")
	}
	var seconds uint64
	if _, err := e.state.KVGet(state.TransferLockKey(supplierID, tokenID), &seconds); err != nil {
		return 0, err
	}
	return seconds, nil
}

// Get returns the booking stored under id.
func (e *Engine) Get(id uint64) (*Booking, error) {
	return e.loadBooking(id)
}

// IDsByOwner lists the booking ids ever created for the owner address.
func (e *Engine) IDsByOwner(owner [20]byte) ([]uint64, error) {
	if e.state == nil {
		return nil, fmt.Errorf("booking: engine not configured")
	}
	raw, err := e.state.KVGetList(state.BookingOwnerKey(owner[:]))
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 8 {
			continue
		}
		ids = append(ids, binary.BigEndian.Uint64(entry))
	}
	return ids, nil
}

// collectBatch loads every id, requiring each booking to belong to the
// supplier, sit in the wanted status, and appear at most once. Nothing is
// mutated until the whole batch passes.
func (e *Engine) collectBatch(supplierID uint64, ids []uint64, wanted Status) ([]*Booking, error) {
	records := make([]*Booking, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
		b, err := e.loadBooking(id)
		if err != nil {
			return nil, err
		}
		if b.SupplierID != supplierID {
			return nil, fmt.Errorf("%w: booking %d", ErrSupplierMismatch, id)
		}
		if b.Status != wanted {
			return nil, fmt.Errorf("%w: booking %d is %s", ErrInvalidStatus, id, b.Status)
		}
		records = append(records, b)
	}
	return records, nil
}

func (e *Engine) consumeQuota(caller [20]byte, now int64, rooms uint64) error {
	if e.quota.EpochSeconds == 0 {
		return nil
	}
	var usage nativecommon.QuotaNow
	if _, err := e.state.KVGet(quotaKey(caller), &usage); err != nil {
		return err
	}
	epochID := uint64(now) / uint64(e.quota.EpochSeconds)
	updated, err := nativecommon.CheckQuota(e.quota, epochID, usage, 1, rooms)
	if err != nil {
		return err
	}
	return e.state.KVPut(quotaKey(caller), updated)
}

func (e *Engine) loadBooking(id uint64) (*Booking, error) {
	if e.state == nil {
		return nil, fmt.Errorf("booking: engine not configured")
	}
	var stored Booking
	ok, err := e.state.KVGet(state.BookingKey(id), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return &stored, nil
}

func (e *Engine) storeBooking(b *Booking) error {
	sanitized, err := SanitizeBooking(b)
	if err != nil {
		return err
	}
	return e.state.KVPut(state.BookingKey(sanitized.ID), sanitized)
}

func (e *Engine) nextBookingID() (uint64, error) {
	key := state.BookingCounterKey()
	var counter uint64
	if _, err := e.state.KVGet(key, &counter); err != nil {
		return 0, err
	}
	counter++
	if err := e.state.KVPut(key, counter); err != nil {
		return 0, err
	}
	return counter, nil
}

func (e *Engine) supplierFor(id uint64) (*supplier.Supplier, error) {
	if e.suppliers == nil {
		return nil, fmt.Errorf("booking: supplier directory not configured")
	}
	sup, ok, err := e.suppliers.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok || sup == nil {
		return nil, fmt.Errorf("%w: %d", ErrSupplierNotFound, id)
	}
	return sup, nil
}

func (e *Engine) activeSupplier(id uint64) (*supplier.Supplier, error) {
	sup, err := e.supplierFor(id)
	if err != nil {
		return nil, err
	}
	if !sup.Active {
		return nil, fmt.Errorf("%w: %d", ErrSupplierInactive, id)
	}
	return sup, nil
}

func (e *Engine) ledgerFor(sup *supplier.Supplier) (RoomLedger, error) {
	if e.ledgers == nil {
		return nil, ErrNoLedger
	}
	ledger := e.ledgers(sup.Ledger)
	if ledger == nil {
		return nil, fmt.Errorf("%w: supplier %d", ErrNoLedger, sup.ID)
	}
	return ledger, nil
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if !e.state.HasRole(RoleAdmin, caller[:]) {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) emit(evt *types.Event) {
	if evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(bookingEvent{evt: evt})
}

// commissionOn computes the protocol fee for one room: the base rate times
// the commission percentage, truncated toward zero.
func commissionOn(baseRate *big.Int, pct uint32) *big.Int {
	if baseRate == nil || baseRate.Sign() <= 0 || pct == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(baseRate, new(big.Int).SetUint64(uint64(pct)))
	return fee.Quo(fee, big.NewInt(100))
}

func normalizeAmount(v *big.Int) (*big.Int, error) {
	if v == nil {
		return big.NewInt(0), nil
	}
	if v.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return new(big.Int).Set(v), nil
}

func checkBatch(n int) error {
	if n == 0 {
		return ErrEmptyBatch
	}
	if n > maxBatchItems {
		return fmt.Errorf("%w: %d", ErrBatchTooLarge, n)
	}
	return nil
}

func quotaKey(addr [20]byte) []byte {
	buf := make([]byte, 0, 14+len(addr))
	buf = append(buf, []byte("booking/quota/")...)
	buf = append(buf, addr[:]...)
	return buf
}
