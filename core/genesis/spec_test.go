package genesis

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"staychain/core/state"
	"staychain/crypto"
	"staychain/native/booking"
	"staychain/native/currency"
	"staychain/native/supplier"
	"staychain/storage"
)

func genesisAddr(fill byte) string {
	var raw [20]byte
	for i := range raw {
		raw[i] = fill
	}
	return crypto.AddressFromArray(raw).String()
}

func writeSpecFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return path
}

func specBody(commission uint32) string {
	return fmt.Sprintf(`{
  "genesisTime": "2024-01-01T00:00:00Z",
  "params": {
    "commissionPercent": %d,
    "treasury": %q,
    "protocolWallet": %q,
    "ledgerDeployer": %q,
    "utilityDeployer": %q
  },
  "alloc": {
    %q: "1000000",
    %q: "250"
  },
  "roles": {
    "ROLE_BOOKING_ADMIN": [%q]
  },
  "suppliers": [
    {"name": "  Harbor View Hotel ", "owner": %q, "metadataUri": "ipfs://supplier/harbor"}
  ]
}`, commission,
		genesisAddr(0xD4), genesisAddr(0xE5), genesisAddr(0x11), genesisAddr(0x12),
		genesisAddr(0xB2), genesisAddr(0xD4),
		genesisAddr(0xA1),
		genesisAddr(0xC3))
}

func TestLoadGenesisSpecRejectsUnknownFields(t *testing.T) {
	path := writeSpecFile(t, `{"genesisTime": "2024-01-01T00:00:00Z", "bogus": true}`)
	if _, err := LoadGenesisSpec(path); err == nil {
		t.Fatalf("expected unknown field rejection")
	}
}

func TestValidateRejectsBadSpecs(t *testing.T) {
	if _, err := LoadGenesisSpec(writeSpecFile(t, specBody(101))); err == nil || !strings.Contains(err.Error(), "commissionPercent") {
		t.Fatalf("excessive commission: %v", err)
	}

	body := strings.Replace(specBody(5), genesisAddr(0xD4), "nhb1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq5751us", 1)
	if _, err := LoadGenesisSpec(writeSpecFile(t, body)); err == nil {
		t.Fatalf("expected foreign prefix rejection")
	}

	body = strings.Replace(specBody(5), `"250"`, `"-250"`, 1)
	if _, err := LoadGenesisSpec(writeSpecFile(t, body)); err == nil {
		t.Fatalf("expected negative alloc rejection")
	}
}

func TestApplySeedsState(t *testing.T) {
	spec, err := LoadGenesisSpec(writeSpecFile(t, specBody(5)))
	if err != nil {
		t.Fatalf("load spec: %v", err)
	}
	manager := state.NewManager(storage.NewMemDB())
	if err := Apply(spec, manager); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if pct, err := manager.CommissionPercent(); err != nil || pct != 5 {
		t.Fatalf("commission = %d err=%v", pct, err)
	}
	treasury, err := crypto.DecodeAddress(genesisAddr(0xD4))
	if err != nil {
		t.Fatalf("decode treasury: %v", err)
	}
	if addr, err := manager.TreasuryAddress(); err != nil || addr != treasury.Array() {
		t.Fatalf("treasury = %x err=%v", addr, err)
	}

	admin, _ := crypto.DecodeAddress(genesisAddr(0xA1))
	if !manager.HasRole(booking.RoleAdmin, admin.Bytes()) {
		t.Fatalf("admin role missing")
	}

	guest, _ := crypto.DecodeAddress(genesisAddr(0xB2))
	cash := currency.NewLedger(manager)
	if bal, err := cash.BalanceOf(guest.Array()); err != nil || bal.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("guest balance = %s err=%v", bal, err)
	}

	registry := supplier.NewRegistry(manager)
	sup, ok, err := registry.Get(1)
	if err != nil || !ok {
		t.Fatalf("seeded supplier missing: ok=%v err=%v", ok, err)
	}
	if sup.Name != "Harbor View Hotel" || !sup.Active {
		t.Fatalf("supplier = %+v", sup)
	}
	if sup.Ledger == ([20]byte{}) || sup.UtilityLedger == ([20]byte{}) {
		t.Fatalf("ledger pair not provisioned")
	}
	if sup.CreatedAt != uint64(spec.GenesisTimestamp().Unix()) {
		t.Fatalf("supplier created at %d", sup.CreatedAt)
	}

	if done, err := Applied(manager); err != nil || !done {
		t.Fatalf("marker missing: done=%v err=%v", done, err)
	}
	if err := Apply(spec, manager); err == nil {
		t.Fatalf("expected second apply rejection")
	}
}
