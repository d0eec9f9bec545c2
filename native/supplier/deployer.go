package supplier

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Deployer provisions the per-supplier ledger pair during registration and
// returns the instance addresses the supplier record will carry.
type Deployer interface {
	DeployLedger(supplierID uint64, owner [20]byte) ([20]byte, error)
	DeployUtilityLedger(supplierID uint64, owner [20]byte) ([20]byte, error)
}

const (
	ledgerTag  = "supplier-ledger"
	utilityTag = "supplier-utility"
)

// InstanceDeployer derives deterministic instance addresses from the
// provisioning identities configured in params. Changing an identity changes
// the address space of future registrations without touching existing
// bindings.
type InstanceDeployer struct {
	ledgerIdentity  [20]byte
	utilityIdentity [20]byte
}

// NewInstanceDeployer creates a deployer bound to the two provisioning
// identities.
func NewInstanceDeployer(ledgerIdentity, utilityIdentity [20]byte) *InstanceDeployer {
	return &InstanceDeployer{ledgerIdentity: ledgerIdentity, utilityIdentity: utilityIdentity}
}

// DeployLedger derives the room-night ledger instance address for the
// supplier id.
func (d *InstanceDeployer) DeployLedger(supplierID uint64, owner [20]byte) ([20]byte, error) {
	return deriveInstance(d.ledgerIdentity, ledgerTag, supplierID), nil
}

// DeployUtilityLedger derives the utility ledger instance address for the
// supplier id.
func (d *InstanceDeployer) DeployUtilityLedger(supplierID uint64, owner [20]byte) ([20]byte, error) {
	return deriveInstance(d.utilityIdentity, utilityTag, supplierID), nil
}

func deriveInstance(identity [20]byte, tag string, supplierID uint64) [20]byte {
	buf := make([]byte, 0, len(identity)+len(tag)+8)
	buf = append(buf, identity[:]...)
	buf = append(buf, tag...)
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], supplierID)
	buf = append(buf, raw[:]...)
	hash := ethcrypto.Keccak256(buf)
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}
