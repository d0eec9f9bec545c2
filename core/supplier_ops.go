package core

import "staychain/native/supplier"

// RegisterSupplier provisions a new supplier and returns the stored record.
func (n *Node) RegisterSupplier(caller [20]byte, name, metadataURI string, owner [20]byte) (*supplier.Supplier, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	registry, err := n.supplierRegistry()
	if err != nil {
		return nil, err
	}
	id, err := registry.Register(caller, name, metadataURI, owner)
	if err != nil {
		return nil, err
	}
	record, ok, err := registry.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, supplier.ErrNotFound
	}
	return record, nil
}

func (n *Node) UpdateSupplierDetails(caller [20]byte, id uint64, name string) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	registry, err := n.supplierRegistry()
	if err != nil {
		return err
	}
	return registry.UpdateDetails(caller, id, name)
}

func (n *Node) GetSupplier(id uint64) (*supplier.Supplier, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	registry := supplier.NewRegistry(n.manager)
	return registry.Get(id)
}

func (n *Node) SupplierIDsByOwner(owner [20]byte) ([]uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	registry := supplier.NewRegistry(n.manager)
	return registry.IDsByOwner(owner)
}
