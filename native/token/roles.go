package token

const (
	// RoleOwner administers the instance's role table.
	RoleOwner = "ROLE_OWNER"
	// RoleFactory may mint, burn and mutate token metadata. Granted to the
	// booking orchestrator's module identity at provisioning time.
	RoleFactory = "ROLE_FACTORY"
	// RoleSupplier marks the paired room ledger on a utility ledger,
	// allowing it to forward mints during checkout.
	RoleSupplier = "ROLE_SUPPLIER"
)

const moduleName = "token"

// State is the persistence surface both ledger variants operate on. The
// concrete implementation namespaces every record by instance address.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	HasScopedRole(scope [20]byte, role string, addr []byte) bool
	SetScopedRole(scope [20]byte, role string, addr []byte) error
	RemoveScopedRole(scope [20]byte, role string, addr []byte) error
	ScopedRoleMembers(scope [20]byte, role string) ([][]byte, error)
}
