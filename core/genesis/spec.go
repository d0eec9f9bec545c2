package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"time"

	"staychain/crypto"
)

// GenesisSpec describes the initial protocol state: orchestrator parameters,
// role grants, currency allocations, and optionally pre-registered suppliers.
type GenesisSpec struct {
	GenesisTime string              `json:"genesisTime"`
	Params      ParamsSpec          `json:"params"`
	Alloc       map[string]string   `json:"alloc,omitempty"`
	Roles       map[string][]string `json:"roles,omitempty"`
	Suppliers   []SupplierSpec      `json:"suppliers,omitempty"`

	genesisTimestamp time.Time
	alloc            []allocEntry
	roles            []roleEntry
	suppliers        []supplierEntry
}

// ParamsSpec carries the persisted orchestrator configuration.
type ParamsSpec struct {
	CommissionPercent uint32 `json:"commissionPercent"`
	Treasury          string `json:"treasury"`
	ProtocolWallet    string `json:"protocolWallet"`
	LedgerDeployer    string `json:"ledgerDeployer"`
	UtilityDeployer   string `json:"utilityDeployer"`

	treasury        [20]byte
	protocolWallet  [20]byte
	ledgerDeployer  [20]byte
	utilityDeployer [20]byte
}

// SupplierSpec seeds one supplier registration at genesis.
type SupplierSpec struct {
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	MetadataURI string `json:"metadataUri,omitempty"`
}

type allocEntry struct {
	addr    [20]byte
	encoded string
	amount  *big.Int
}

type roleEntry struct {
	role    string
	members [][20]byte
}

type supplierEntry struct {
	name        string
	metadataURI string
	owner       [20]byte
}

// LoadGenesisSpec reads, decodes, and validates the spec at path. Unknown
// fields are rejected.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// Validate checks the whole spec and caches the parsed forms used by Apply.
// Iteration orders are made deterministic here.
func (s *GenesisSpec) Validate() error {
	parsed, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsed

	if err := s.Params.validate(); err != nil {
		return fmt.Errorf("params: %w", err)
	}

	s.alloc = s.alloc[:0]
	for encoded, value := range s.Alloc {
		addr, err := parseAccount(encoded)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", encoded, err)
		}
		amount, err := parseAmountString(value)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", encoded, err)
		}
		s.alloc = append(s.alloc, allocEntry{addr: addr, encoded: encoded, amount: amount})
	}
	sort.Slice(s.alloc, func(i, j int) bool { return s.alloc[i].encoded < s.alloc[j].encoded })

	s.roles = s.roles[:0]
	for role, members := range s.Roles {
		tag := strings.TrimSpace(role)
		if tag == "" {
			return fmt.Errorf("roles: empty role tag")
		}
		entry := roleEntry{role: tag}
		seen := make(map[[20]byte]struct{}, len(members))
		for i, member := range members {
			addr, err := parseAccount(member)
			if err != nil {
				return fmt.Errorf("roles[%q][%d]: %w", role, i, err)
			}
			if _, dup := seen[addr]; dup {
				return fmt.Errorf("roles[%q][%d]: duplicate member %s", role, i, member)
			}
			seen[addr] = struct{}{}
			entry.members = append(entry.members, addr)
		}
		s.roles = append(s.roles, entry)
	}
	sort.Slice(s.roles, func(i, j int) bool { return s.roles[i].role < s.roles[j].role })

	s.suppliers = s.suppliers[:0]
	for i, sup := range s.Suppliers {
		name := strings.TrimSpace(sup.Name)
		if name == "" {
			return fmt.Errorf("suppliers[%d]: name must be provided", i)
		}
		owner, err := parseAccount(sup.Owner)
		if err != nil {
			return fmt.Errorf("suppliers[%d]: owner: %w", i, err)
		}
		s.suppliers = append(s.suppliers, supplierEntry{
			name:        name,
			metadataURI: strings.TrimSpace(sup.MetadataURI),
			owner:       owner,
		})
	}
	return nil
}

func (p *ParamsSpec) validate() error {
	if p.CommissionPercent > 100 {
		return fmt.Errorf("commissionPercent must be <= 100, got %d", p.CommissionPercent)
	}
	var err error
	if p.treasury, err = parseAccount(p.Treasury); err != nil {
		return fmt.Errorf("treasury: %w", err)
	}
	if p.protocolWallet, err = parseAccount(p.ProtocolWallet); err != nil {
		return fmt.Errorf("protocolWallet: %w", err)
	}
	if p.ledgerDeployer, err = parseAccount(p.LedgerDeployer); err != nil {
		return fmt.Errorf("ledgerDeployer: %w", err)
	}
	if p.utilityDeployer, err = parseAccount(p.UtilityDeployer); err != nil {
		return fmt.Errorf("utilityDeployer: %w", err)
	}
	return nil
}

func parseAccount(encoded string) ([20]byte, error) {
	trimmed := strings.TrimSpace(encoded)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("address must be provided")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must be provided")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("genesisTime must be RFC3339: %w", err)
	}
	return parsed.UTC(), nil
}
