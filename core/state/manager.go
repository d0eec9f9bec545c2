package state

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"staychain/core/types"
	"staychain/storage"
)

// Manager provides typed read and write access to the node's persisted state.
// Values are RLP encoded and keys are keccak256 hashed before hitting the
// underlying key-value store.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr)
	return ethcrypto.Keccak256(buf)
}

func roleKey(role string) []byte {
	buf := make([]byte, len(rolePrefix)+len(role))
	copy(buf, rolePrefix)
	copy(buf[len(rolePrefix):], role)
	return ethcrypto.Keccak256(buf)
}

func scopedRoleKey(scope [20]byte, role string) []byte {
	buf := make([]byte, 0, len(rolePrefix)+41+len(role))
	buf = append(buf, rolePrefix...)
	buf = appendHex(buf, scope[:])
	buf = append(buf, '/')
	buf = append(buf, role...)
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// GetAccount loads the settlement account stored for the address. Missing
// accounts yield a fresh zero-balance account.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	data, err := m.db.Get(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return types.NewAccount(), nil
	}
	var stored struct {
		Nonce   uint64
		Balance *big.Int
	}
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, err
	}
	account := &types.Account{Nonce: stored.Nonce, Balance: stored.Balance}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return account, nil
}

// PutAccount persists the settlement account for the address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	if balance.Sign() < 0 {
		return fmt.Errorf("state: negative balance not allowed")
	}
	stored := struct {
		Nonce   uint64
		Balance *big.Int
	}{Nonce: account.Nonce, Balance: balance}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return m.db.Put(accountKey(addr), encoded)
}

func (m *Manager) readMembers(key []byte) ([][]byte, error) {
	data, err := m.db.Get(key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return [][]byte{}, nil
	}
	var members [][]byte
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (m *Manager) writeMembers(key []byte, members [][]byte) error {
	encoded, err := rlp.EncodeToBytes(members)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

func addMember(members [][]byte, addr []byte) [][]byte {
	for _, existing := range members {
		if bytes.Equal(existing, addr) {
			return members
		}
	}
	members = append(members, append([]byte(nil), addr...))
	sort.Slice(members, func(i, j int) bool {
		return hex.EncodeToString(members[i]) < hex.EncodeToString(members[j])
	})
	return members
}

func removeMember(members [][]byte, addr []byte) [][]byte {
	filtered := members[:0]
	for _, existing := range members {
		if !bytes.Equal(existing, addr) {
			filtered = append(filtered, existing)
		}
	}
	return filtered
}

// SetRole associates an address with the specified global role. Duplicate
// assignments are ignored while the stored list remains sorted for
// determinism.
func (m *Manager) SetRole(role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("state: role must not be empty")
	}
	if len(addr) == 0 {
		return fmt.Errorf("state: address must not be empty")
	}
	key := roleKey(trimmed)
	members, err := m.readMembers(key)
	if err != nil {
		return err
	}
	return m.writeMembers(key, addMember(members, addr))
}

// RemoveRole disassociates an address from the specified global role.
func (m *Manager) RemoveRole(role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("state: role must not be empty")
	}
	key := roleKey(trimmed)
	members, err := m.readMembers(key)
	if err != nil {
		return err
	}
	return m.writeMembers(key, removeMember(members, addr))
}

// RoleMembers returns all addresses assigned to the provided global role.
func (m *Manager) RoleMembers(role string) ([][]byte, error) {
	return m.readMembers(roleKey(strings.TrimSpace(role)))
}

// HasRole reports whether the provided address holds the specified global
// role. Errors while reading the underlying state result in a false return,
// matching the best-effort semantics required by the callers.
func (m *Manager) HasRole(role string, addr []byte) bool {
	if len(addr) == 0 {
		return false
	}
	members, err := m.readMembers(roleKey(strings.TrimSpace(role)))
	if err != nil {
		return false
	}
	for _, member := range members {
		if bytes.Equal(member, addr) {
			return true
		}
	}
	return false
}

// SetScopedRole associates an address with a role inside the namespace of a
// single component instance (role tables are per instance, not ambient).
func (m *Manager) SetScopedRole(scope [20]byte, role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("state: role must not be empty")
	}
	if len(addr) == 0 {
		return fmt.Errorf("state: address must not be empty")
	}
	key := scopedRoleKey(scope, trimmed)
	members, err := m.readMembers(key)
	if err != nil {
		return err
	}
	return m.writeMembers(key, addMember(members, addr))
}

// RemoveScopedRole disassociates an address from an instance-scoped role.
func (m *Manager) RemoveScopedRole(scope [20]byte, role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("state: role must not be empty")
	}
	key := scopedRoleKey(scope, trimmed)
	members, err := m.readMembers(key)
	if err != nil {
		return err
	}
	return m.writeMembers(key, removeMember(members, addr))
}

// HasScopedRole reports whether the address holds the role inside the
// instance namespace. Read errors yield false.
func (m *Manager) HasScopedRole(scope [20]byte, role string, addr []byte) bool {
	if len(addr) == 0 {
		return false
	}
	members, err := m.readMembers(scopedRoleKey(scope, strings.TrimSpace(role)))
	if err != nil {
		return false
	}
	for _, member := range members {
		if bytes.Equal(member, addr) {
			return true
		}
	}
	return false
}

// ScopedRoleMembers returns all addresses holding the role inside the
// instance namespace.
func (m *Manager) ScopedRoleMembers(scope [20]byte, role string) ([][]byte, error) {
	return m.readMembers(scopedRoleKey(scope, strings.TrimSpace(role)))
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before hitting the database.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under the supplied key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.db.Delete(kvKey(key))
}

// KVAppend appends the provided value to the RLP-encoded byte slice list
// stored under the supplied key. Duplicate values are ignored to keep the
// index deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	data, err := m.db.Get(hashed)
	if err != nil {
		return err
	}
	var list [][]byte
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &list); err != nil {
			return err
		}
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	return m.db.Put(hashed, encoded)
}

// KVGetList retrieves the RLP-encoded byte slice list stored under the
// supplied key. A missing key yields an empty list.
func (m *Manager) KVGetList(key []byte) ([][]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(kvKey(key))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return [][]byte{}, nil
	}
	var list [][]byte
	if err := rlp.DecodeBytes(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}
