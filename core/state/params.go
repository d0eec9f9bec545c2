package state

import "fmt"

const (
	paramCommission     = "commission-pct"
	paramTreasury       = "treasury"
	paramProtocolWallet = "protocol-wallet"
	paramLedgerDeployer = "ledger-deployer"
	paramUtilityDeploy  = "utility-deployer"
)

// CommissionPercent returns the configured commission percentage. Zero when
// unset.
func (m *Manager) CommissionPercent() (uint32, error) {
	var pct uint32
	if _, err := m.KVGet(paramsKey(paramCommission), &pct); err != nil {
		return 0, err
	}
	return pct, nil
}

// SetCommissionPercent stores the commission percentage.
func (m *Manager) SetCommissionPercent(pct uint32) error {
	return m.KVPut(paramsKey(paramCommission), pct)
}

func (m *Manager) addressParam(name string) ([20]byte, error) {
	var raw []byte
	ok, err := m.KVGet(paramsKey(name), &raw)
	if err != nil {
		return [20]byte{}, err
	}
	var addr [20]byte
	if !ok {
		return addr, nil
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("state: malformed %s param", name)
	}
	copy(addr[:], raw)
	return addr, nil
}

func (m *Manager) setAddressParam(name string, addr [20]byte) error {
	return m.KVPut(paramsKey(name), addr[:])
}

// TreasuryAddress returns the treasury account address. Zero address when
// unset.
func (m *Manager) TreasuryAddress() ([20]byte, error) {
	return m.addressParam(paramTreasury)
}

// SetTreasuryAddress stores the treasury account address.
func (m *Manager) SetTreasuryAddress(addr [20]byte) error {
	return m.setAddressParam(paramTreasury, addr)
}

// ProtocolWalletAddress returns the protocol commission wallet address.
func (m *Manager) ProtocolWalletAddress() ([20]byte, error) {
	return m.addressParam(paramProtocolWallet)
}

// SetProtocolWalletAddress stores the protocol commission wallet address.
func (m *Manager) SetProtocolWalletAddress(addr [20]byte) error {
	return m.setAddressParam(paramProtocolWallet, addr)
}

// DeployerAddresses returns the provisioning identities used to derive ledger
// and utility ledger instance addresses.
func (m *Manager) DeployerAddresses() (ledger [20]byte, utility [20]byte, err error) {
	if ledger, err = m.addressParam(paramLedgerDeployer); err != nil {
		return
	}
	utility, err = m.addressParam(paramUtilityDeploy)
	return
}

// SetDeployerAddresses stores the provisioning identities.
func (m *Manager) SetDeployerAddresses(ledger, utility [20]byte) error {
	if err := m.setAddressParam(paramLedgerDeployer, ledger); err != nil {
		return err
	}
	return m.setAddressParam(paramUtilityDeploy, utility)
}
