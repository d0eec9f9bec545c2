package supplier

import (
	"encoding/binary"
	"strings"

	"golang.org/x/text/unicode/norm"

	"staychain/core/events"
	"staychain/core/state"
	"staychain/core/types"
	nativecommon "staychain/native/common"
	"staychain/native/token"
)

const (
	roleBookingAdmin = "ROLE_BOOKING_ADMIN"
	moduleName       = "supplier"
)

type registryState interface {
	HasRole(role string, addr []byte) bool
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte) ([][]byte, error)
	SetScopedRole(scope [20]byte, role string, addr []byte) error
}

// Registry manages supplier records and the provisioning of their ledger
// pairs.
type Registry struct {
	st       registryState
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	deployer Deployer
	factory  [20]byte
	nowFn    func() int64
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(st registryState) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// SetDeployer configures the ledger provisioning backend.
func (r *Registry) SetDeployer(d Deployer) { r.deployer = d }

// SetFactory configures the orchestrator identity granted the factory
// capability on every provisioned ledger.
func (r *Registry) SetFactory(addr [20]byte) { r.factory = addr }

// SetNowFunc overrides the time source. Primarily intended for tests.
func (r *Registry) SetNowFunc(now func() int64) { r.nowFn = now }

func (r *Registry) now() uint64 {
	if r == nil || r.nowFn == nil {
		return 0
	}
	ts := r.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// NormalizeName trims and NFC-normalizes a supplier name.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Register allocates the next supplier id, provisions its ledger pair, wires
// the instance role tables and records the supplier as active. Booking admin
// capability required.
func (r *Registry) Register(caller [20]byte, name, metadataURI string, owner [20]byte) (uint64, error) {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return 0, err
	}
	if !r.st.HasRole(roleBookingAdmin, caller[:]) {
		return 0, ErrUnauthorized
	}
	normalized := NormalizeName(name)
	if normalized == "" {
		return 0, ErrInvalidName
	}
	if owner == ([20]byte{}) {
		return 0, ErrInvalidOwner
	}
	if r.deployer == nil {
		return 0, ErrNilDeployer
	}

	id, err := r.nextSupplierID()
	if err != nil {
		return 0, err
	}
	ledgerAddr, err := r.deployer.DeployLedger(id, owner)
	if err != nil {
		return 0, err
	}
	utilityAddr, err := r.deployer.DeployUtilityLedger(id, owner)
	if err != nil {
		return 0, err
	}

	// Capability wiring: the owner administers both role tables, the
	// orchestrator holds the factory capability, and the room ledger holds
	// the supplier role on its utility pair so it can forward mints.
	if err := r.st.SetScopedRole(ledgerAddr, token.RoleOwner, owner[:]); err != nil {
		return 0, err
	}
	if err := r.st.SetScopedRole(ledgerAddr, token.RoleFactory, r.factory[:]); err != nil {
		return 0, err
	}
	if err := r.st.SetScopedRole(utilityAddr, token.RoleOwner, owner[:]); err != nil {
		return 0, err
	}
	if err := r.st.SetScopedRole(utilityAddr, token.RoleFactory, r.factory[:]); err != nil {
		return 0, err
	}
	if err := r.st.SetScopedRole(utilityAddr, token.RoleSupplier, ledgerAddr[:]); err != nil {
		return 0, err
	}
	if err := r.st.KVPut(state.TokenPairKey(ledgerAddr), utilityAddr[:]); err != nil {
		return 0, err
	}

	record := &Supplier{
		ID:            id,
		Name:          normalized,
		MetadataURI:   strings.TrimSpace(metadataURI),
		Owner:         owner,
		Active:        true,
		Ledger:        ledgerAddr,
		UtilityLedger: utilityAddr,
		CreatedAt:     r.now(),
	}
	if err := r.st.KVPut(state.SupplierKey(id), record); err != nil {
		return 0, err
	}
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], id)
	if err := r.st.KVAppend(ownerIndexKey(owner), idBytes[:]); err != nil {
		return 0, err
	}
	r.emit(newRegisteredEvent(record))
	return id, nil
}

// UpdateDetails replaces the supplier's display name. Booking admin
// capability required; the ledger binding never changes.
func (r *Registry) UpdateDetails(caller [20]byte, id uint64, name string) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if !r.st.HasRole(roleBookingAdmin, caller[:]) {
		return ErrUnauthorized
	}
	normalized := NormalizeName(name)
	if normalized == "" {
		return ErrInvalidName
	}
	record, ok, err := r.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	record.Name = normalized
	if err := r.st.KVPut(state.SupplierKey(id), record); err != nil {
		return err
	}
	r.emit(newUpdatedEvent(record))
	return nil
}

// SetActive flips the supplier's active flag. Reserved surface: exposed on
// the registry but not bound to an RPC operation.
func (r *Registry) SetActive(caller [20]byte, id uint64, active bool) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if !r.st.HasRole(roleBookingAdmin, caller[:]) {
		return ErrUnauthorized
	}
	record, ok, err := r.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if record.Active == active {
		return nil
	}
	record.Active = active
	if err := r.st.KVPut(state.SupplierKey(id), record); err != nil {
		return err
	}
	r.emit(newActiveChangedEvent(record))
	return nil
}

// Get loads a supplier record by id.
func (r *Registry) Get(id uint64) (*Supplier, bool, error) {
	record := new(Supplier)
	ok, err := r.st.KVGet(state.SupplierKey(id), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

// IDsByOwner returns the supplier ids registered under the owner address.
func (r *Registry) IDsByOwner(owner [20]byte) ([]uint64, error) {
	raw, err := r.st.KVGetList(ownerIndexKey(owner))
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

func (r *Registry) nextSupplierID() (uint64, error) {
	key := state.SupplierCounterKey()
	var counter uint64
	if _, err := r.st.KVGet(key, &counter); err != nil {
		return 0, err
	}
	counter++
	if err := r.st.KVPut(key, counter); err != nil {
		return 0, err
	}
	return counter, nil
}

func ownerIndexKey(owner [20]byte) []byte {
	buf := make([]byte, 0, 15+len(owner))
	buf = append(buf, []byte("supplier/owner/")...)
	buf = append(buf, owner[:]...)
	return buf
}

func (r *Registry) emit(evt *types.Event) {
	if r == nil || r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(supplierEvent{evt: evt})
}
