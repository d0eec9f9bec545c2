package genesis

import (
	"fmt"

	"staychain/core/state"
	"staychain/native/booking"
	"staychain/native/currency"
	"staychain/native/supplier"
)

var appliedKey = []byte("genesis/applied")

// Applied reports whether a genesis spec has been applied to this state.
func Applied(manager *state.Manager) (bool, error) {
	var stamp uint64
	return manager.KVGet(appliedKey, &stamp)
}

// Apply writes the spec into an empty state: parameters first, then role
// grants, currency allocations, and seeded suppliers. Seeding suppliers
// requires at least one booking admin in the role grants, since registration
// is admin-gated. A second apply on the same state is rejected.
func Apply(spec *GenesisSpec, manager *state.Manager) error {
	if spec == nil {
		return fmt.Errorf("genesis: spec must not be nil")
	}
	if manager == nil {
		return fmt.Errorf("genesis: state manager must not be nil")
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	done, err := Applied(manager)
	if err != nil {
		return err
	}
	if done {
		return fmt.Errorf("genesis: already applied")
	}

	params := spec.Params
	if err := manager.SetCommissionPercent(params.CommissionPercent); err != nil {
		return fmt.Errorf("genesis: commission: %w", err)
	}
	if err := manager.SetTreasuryAddress(params.treasury); err != nil {
		return fmt.Errorf("genesis: treasury: %w", err)
	}
	if err := manager.SetProtocolWalletAddress(params.protocolWallet); err != nil {
		return fmt.Errorf("genesis: protocol wallet: %w", err)
	}
	if err := manager.SetDeployerAddresses(params.ledgerDeployer, params.utilityDeployer); err != nil {
		return fmt.Errorf("genesis: deployers: %w", err)
	}

	var admin [20]byte
	haveAdmin := false
	for _, entry := range spec.roles {
		for _, member := range entry.members {
			if err := manager.SetRole(entry.role, member[:]); err != nil {
				return fmt.Errorf("genesis: role %s: %w", entry.role, err)
			}
			if entry.role == booking.RoleAdmin && !haveAdmin {
				admin = member
				haveAdmin = true
			}
		}
	}

	cash := currency.NewLedger(manager)
	for _, entry := range spec.alloc {
		if err := cash.Mint(entry.addr, entry.amount); err != nil {
			return fmt.Errorf("genesis: alloc %s: %w", entry.encoded, err)
		}
	}

	if len(spec.suppliers) > 0 {
		if !haveAdmin {
			return fmt.Errorf("genesis: seeding suppliers requires a %s grant", booking.RoleAdmin)
		}
		registry := supplier.NewRegistry(manager)
		registry.SetDeployer(supplier.NewInstanceDeployer(params.ledgerDeployer, params.utilityDeployer))
		registry.SetFactory(booking.ModuleAddress())
		ts := spec.GenesisTimestamp().Unix()
		registry.SetNowFunc(func() int64 { return ts })
		for i, entry := range spec.suppliers {
			if _, err := registry.Register(admin, entry.name, entry.metadataURI, entry.owner); err != nil {
				return fmt.Errorf("genesis: supplier[%d] %q: %w", i, entry.name, err)
			}
		}
	}

	stamp := uint64(spec.GenesisTimestamp().Unix())
	if err := manager.KVPut(appliedKey, stamp); err != nil {
		return fmt.Errorf("genesis: marker: %w", err)
	}
	return nil
}
