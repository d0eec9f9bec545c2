package supplier

import "errors"

// Supplier binds a registered supplier identity to its two token ledger
// instances and an owner address. The id to ledger binding is immutable once
// registered.
type Supplier struct {
	ID            uint64
	Name          string
	MetadataURI   string
	Owner         [20]byte
	Active        bool
	Ledger        [20]byte
	UtilityLedger [20]byte
	CreatedAt     uint64
}

// Clone returns a copy of the supplier record.
func (s *Supplier) Clone() *Supplier {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

var (
	// ErrUnauthorized is returned when the caller lacks the booking admin
	// role.
	ErrUnauthorized = errors.New("supplier: caller is not a booking admin")
	// ErrNotFound is returned when no supplier record exists for the id.
	ErrNotFound = errors.New("supplier: supplier not found")
	// ErrInvalidName rejects empty supplier names.
	ErrInvalidName = errors.New("supplier: name required")
	// ErrInvalidOwner rejects the zero owner address.
	ErrInvalidOwner = errors.New("supplier: owner required")
	// ErrNilDeployer is returned when registration runs without a
	// provisioning deployer configured.
	ErrNilDeployer = errors.New("supplier: deployer not configured")
)
