package core

import (
	"math/big"

	"staychain/native/supplier"
)

// supplierRecord resolves a supplier id to its stored record. The state
// mutex must be held.
func (n *Node) supplierRecord(id uint64) (*supplier.Supplier, error) {
	record, ok, err := supplier.NewRegistry(n.manager).Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, supplier.ErrNotFound
	}
	return record, nil
}

// TokenBalanceOf reads a balance from the supplier's room ledger, or from
// its utility ledger when utility is set.
func (n *Node) TokenBalanceOf(supplierID uint64, utility bool, account [20]byte, id uint64) (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	record, err := n.supplierRecord(supplierID)
	if err != nil {
		return nil, err
	}
	resolver := n.tokenResolver()
	if utility {
		return resolver.Utility(record.UtilityLedger).BalanceOf(account, id)
	}
	return resolver.Room(record.Ledger).BalanceOf(account, id)
}

func (n *Node) TokenURI(supplierID uint64, utility bool, id uint64) (string, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	record, err := n.supplierRecord(supplierID)
	if err != nil {
		return "", err
	}
	resolver := n.tokenResolver()
	if utility {
		return resolver.Utility(record.UtilityLedger).URI(id)
	}
	return resolver.Room(record.Ledger).URI(id)
}

func (n *Node) TokenTransferable(supplierID, id uint64) (bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	record, err := n.supplierRecord(supplierID)
	if err != nil {
		return false, err
	}
	return n.tokenResolver().Room(record.Ledger).Transferable(id)
}

func (n *Node) TokenTransfer(caller [20]byte, supplierID uint64, from, to [20]byte, id uint64, amount *big.Int) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	record, err := n.supplierRecord(supplierID)
	if err != nil {
		return err
	}
	return n.tokenResolver().Room(record.Ledger).Transfer(caller, from, to, id, amount)
}

func (n *Node) TokenBatchTransfer(caller [20]byte, supplierID uint64, from, to [20]byte, ids []uint64, amounts []*big.Int) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	record, err := n.supplierRecord(supplierID)
	if err != nil {
		return err
	}
	return n.tokenResolver().Room(record.Ledger).BatchTransfer(caller, from, to, ids, amounts)
}

func (n *Node) TokenSetApprovalForAll(caller [20]byte, supplierID uint64, operator [20]byte, approved bool) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	record, err := n.supplierRecord(supplierID)
	if err != nil {
		return err
	}
	return n.tokenResolver().Room(record.Ledger).SetApprovalForAll(caller, operator, approved)
}
