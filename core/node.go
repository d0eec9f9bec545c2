package core

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"staychain/core/events"
	"staychain/core/genesis"
	"staychain/core/state"
	"staychain/core/types"
	"staychain/native/booking"
	nativecommon "staychain/native/common"
	"staychain/native/currency"
	"staychain/native/supplier"
	"staychain/native/token"
	"staychain/observability"
	"staychain/storage"
)

// Node is the serialization point for the whole protocol surface. Every
// public operation takes the state mutex, builds the module engines over the
// shared state manager, runs to completion, and releases. Emitted events are
// appended to the sequenced state feed and fanned out to live subscribers.
type Node struct {
	db      storage.Database
	manager *state.Manager
	log     *slog.Logger

	stateMu sync.Mutex

	quota  nativecommon.Quota
	paused map[string]bool
	nowFn  func() int64

	subMu   sync.Mutex
	subs    map[uint64]chan types.SequencedEvent
	nextSub uint64
}

func NewNode(db storage.Database) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database must not be nil")
	}
	return &Node{
		db:      db,
		manager: state.NewManager(db),
		log:     slog.Default(),
		paused:  make(map[string]bool),
		nowFn:   func() int64 { return time.Now().Unix() },
		subs:    make(map[uint64]chan types.SequencedEvent),
	}, nil
}

func (n *Node) SetLogger(log *slog.Logger) {
	if log != nil {
		n.log = log
	}
}

// SetQuota bounds per-address booking pressure for subsequent operations.
func (n *Node) SetQuota(q nativecommon.Quota) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.quota = q
}

// SetPaused toggles the pause flag for a module name.
func (n *Node) SetPaused(module string, paused bool) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.paused[module] = paused
}

// IsPaused reports whether a module is paused. The engines consult it while
// the state mutex is held.
func (n *Node) IsPaused(module string) bool {
	return n.paused[module]
}

func (n *Node) SetNowFunc(now func() int64) {
	if now == nil {
		return
	}
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.nowFn = now
}

// ApplyGenesis applies the spec at path unless the state already carries
// one. Call it once at boot, before serving operations.
func (n *Node) ApplyGenesis(path string) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	done, err := genesis.Applied(n.manager)
	if err != nil {
		return err
	}
	if done {
		n.log.Info("genesis already applied, skipping")
		return nil
	}
	spec, err := genesis.LoadGenesisSpec(path)
	if err != nil {
		return err
	}
	if err := genesis.Apply(spec, n.manager); err != nil {
		return err
	}
	n.log.Info("genesis applied",
		"time", spec.GenesisTimestamp(),
		"suppliers", len(spec.Suppliers),
		"allocs", len(spec.Alloc))
	return nil
}

// feedEmitter appends every module event to the sequenced feed and publishes
// it to subscribers. It runs inside operations, under the state mutex.
type feedEmitter struct {
	n *Node
}

func (f feedEmitter) Emit(evt events.Event) {
	carrier, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	raw := carrier.Event()
	if raw == nil {
		return
	}
	ts := uint64(f.n.nowFn())
	seq, err := f.n.manager.FeedAppend(raw, ts)
	if err != nil {
		f.n.log.Error("append event feed", "type", raw.Type, "err", err)
		return
	}
	observability.Events().RecordEvent(raw.Type, seq)
	if raw.Type == booking.EventTypePaymentFailed {
		observability.Events().RecordPaymentFailure(raw.Attributes["leg"])
	}
	f.n.publish(types.SequencedEvent{Sequence: seq, Timestamp: ts, Event: *raw})
}

func (n *Node) emitter() events.Emitter { return feedEmitter{n: n} }

func (n *Node) publish(evt types.SequencedEvent) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- evt:
		default:
			// Slow subscribers miss live events and catch up through the
			// feed cursor.
		}
	}
}

// SubscribeEvents registers a live event subscriber. The returned cancel
// function unregisters the subscriber and closes the channel.
func (n *Node) SubscribeEvents(buffer int) (<-chan types.SequencedEvent, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	n.subMu.Lock()
	defer n.subMu.Unlock()
	id := n.nextSub
	n.nextSub++
	ch := make(chan types.SequencedEvent, buffer)
	n.subs[id] = ch
	cancel := func() {
		n.subMu.Lock()
		defer n.subMu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Engine constructors below expect the state mutex to be held.

func (n *Node) tokenResolver() *token.Resolver {
	resolver := token.NewResolver(n.manager)
	resolver.SetEmitter(n.emitter())
	resolver.SetPauses(n)
	return resolver
}

func (n *Node) supplierRegistry() (*supplier.Registry, error) {
	registry := supplier.NewRegistry(n.manager)
	registry.SetEmitter(n.emitter())
	registry.SetPauses(n)
	registry.SetFactory(booking.ModuleAddress())
	registry.SetNowFunc(n.nowFn)
	ledgerDep, utilityDep, err := n.manager.DeployerAddresses()
	if err != nil {
		return nil, err
	}
	registry.SetDeployer(supplier.NewInstanceDeployer(ledgerDep, utilityDep))
	return registry, nil
}

func (n *Node) bookingEngine() (*booking.Engine, error) {
	registry, err := n.supplierRegistry()
	if err != nil {
		return nil, err
	}
	resolver := n.tokenResolver()
	treasuryAddr, err := n.manager.TreasuryAddress()
	if err != nil {
		return nil, err
	}
	engine := booking.NewEngine()
	engine.SetState(n.manager)
	engine.SetSuppliers(registry)
	engine.SetLedgerResolver(func(instance [20]byte) booking.RoomLedger {
		return resolver.Room(instance)
	})
	engine.SetCurrency(currency.NewLedger(n.manager))
	engine.SetTreasuryExecutor(currency.NewTreasury(n.manager, treasuryAddr))
	engine.SetEmitter(n.emitter())
	engine.SetPauses(n)
	engine.SetQuota(n.quota)
	engine.SetNowFunc(n.nowFn)
	return engine, nil
}

func (n *Node) BookRooms(caller [20]byte, supplierID uint64, count uint32, totals, baseRates []*big.Int, checkIn, checkOut uint64) ([]uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return nil, err
	}
	return engine.BookRooms(caller, supplierID, count, totals, baseRates, checkIn, checkOut)
}

func (n *Node) ConfirmRooms(caller [20]byte, supplierID uint64, ids []uint64, uris []string, transferable bool) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return err
	}
	return engine.ConfirmRooms(caller, supplierID, ids, uris, transferable)
}

func (n *Node) CheckoutRooms(caller [20]byte, supplierID uint64, ids []uint64) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return err
	}
	return engine.Checkout(caller, supplierID, ids)
}

func (n *Node) CancelRoom(caller [20]byte, supplierID, id uint64, penalty, refund, charges *big.Int) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return err
	}
	return engine.CancelRoom(caller, supplierID, id, penalty, refund, charges)
}

func (n *Node) RefundBookings(caller [20]byte, supplierID uint64, ids []uint64, owner [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return err
	}
	return engine.RefundBookings(caller, supplierID, ids, owner)
}

func (n *Node) SetTokenTransferability(caller [20]byte, bookingID uint64, status bool) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return err
	}
	return engine.SetTokenTransferability(caller, bookingID, status)
}

func (n *Node) GetBooking(id uint64) (*booking.Booking, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return nil, err
	}
	return engine.Get(id)
}

func (n *Node) BookingIDsByOwner(owner [20]byte) ([]uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return nil, err
	}
	return engine.IDsByOwner(owner)
}

func (n *Node) SetCommission(caller [20]byte, pct uint32) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return err
	}
	return engine.SetCommission(caller, pct)
}

func (n *Node) SetTreasury(caller [20]byte, addr [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return err
	}
	return engine.SetTreasury(caller, addr)
}

func (n *Node) SetProtocolWallet(caller [20]byte, addr [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return err
	}
	return engine.SetProtocolWallet(caller, addr)
}

func (n *Node) SetDeployers(caller [20]byte, ledger, utility [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return err
	}
	return engine.SetDeployers(caller, ledger, utility)
}

func (n *Node) SetTransferLock(caller [20]byte, supplierID, tokenID, hours uint64) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return err
	}
	return engine.SetTransferLock(caller, supplierID, tokenID, hours)
}

func (n *Node) TransferLock(supplierID, tokenID uint64) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	engine, err := n.bookingEngine()
	if err != nil {
		return 0, err
	}
	return engine.TransferLock(supplierID, tokenID)
}
