package state

import (
	"bytes"
	"math/big"
	"testing"

	"staychain/core/types"
	"staychain/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestAccountRoundTrip(t *testing.T) {
	m := newTestManager(t)
	addr := testAddr(0x01)

	account, err := m.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get missing account: %v", err)
	}
	if account.Balance.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", account.Balance)
	}

	account.Balance = big.NewInt(1_000)
	account.Nonce = 7
	if err := m.PutAccount(addr[:], account); err != nil {
		t.Fatalf("put account: %v", err)
	}

	loaded, err := m.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Nonce != 7 || loaded.Balance.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("unexpected account %+v", loaded)
	}
}

func TestPutAccountRejectsNegativeBalance(t *testing.T) {
	m := newTestManager(t)
	addr := testAddr(0x02)
	if err := m.PutAccount(addr[:], &types.Account{Balance: big.NewInt(-1)}); err == nil {
		t.Fatal("expected negative balance rejection")
	}
}

func TestGlobalRoles(t *testing.T) {
	m := newTestManager(t)
	admin := testAddr(0x03)
	other := testAddr(0x04)

	if m.HasRole("ROLE_BOOKING_ADMIN", admin[:]) {
		t.Fatal("role present before assignment")
	}
	if err := m.SetRole("ROLE_BOOKING_ADMIN", admin[:]); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if err := m.SetRole("ROLE_BOOKING_ADMIN", admin[:]); err != nil {
		t.Fatalf("duplicate set role: %v", err)
	}
	if !m.HasRole("ROLE_BOOKING_ADMIN", admin[:]) {
		t.Fatal("role missing after assignment")
	}
	if m.HasRole("ROLE_BOOKING_ADMIN", other[:]) {
		t.Fatal("unexpected role membership")
	}

	members, err := m.RoleMembers("ROLE_BOOKING_ADMIN")
	if err != nil {
		t.Fatalf("role members: %v", err)
	}
	if len(members) != 1 || !bytes.Equal(members[0], admin[:]) {
		t.Fatalf("unexpected members %v", members)
	}

	if err := m.RemoveRole("ROLE_BOOKING_ADMIN", admin[:]); err != nil {
		t.Fatalf("remove role: %v", err)
	}
	if m.HasRole("ROLE_BOOKING_ADMIN", admin[:]) {
		t.Fatal("role present after removal")
	}
}

func TestScopedRolesAreIsolatedPerInstance(t *testing.T) {
	m := newTestManager(t)
	instanceA := testAddr(0xA0)
	instanceB := testAddr(0xB0)
	holder := testAddr(0x05)

	if err := m.SetScopedRole(instanceA, "ROLE_FACTORY", holder[:]); err != nil {
		t.Fatalf("set scoped role: %v", err)
	}
	if !m.HasScopedRole(instanceA, "ROLE_FACTORY", holder[:]) {
		t.Fatal("scoped role missing")
	}
	if m.HasScopedRole(instanceB, "ROLE_FACTORY", holder[:]) {
		t.Fatal("scoped role leaked across instances")
	}

	if err := m.RemoveScopedRole(instanceA, "ROLE_FACTORY", holder[:]); err != nil {
		t.Fatalf("remove scoped role: %v", err)
	}
	if m.HasScopedRole(instanceA, "ROLE_FACTORY", holder[:]) {
		t.Fatal("scoped role present after removal")
	}
}

func TestKVHelpers(t *testing.T) {
	m := newTestManager(t)

	var out uint64
	ok, err := m.KVGet([]byte("missing"), &out)
	if err != nil {
		t.Fatalf("kv get missing: %v", err)
	}
	if ok {
		t.Fatal("missing key reported present")
	}

	if err := m.KVPut([]byte("counter"), uint64(42)); err != nil {
		t.Fatalf("kv put: %v", err)
	}
	ok, err = m.KVGet([]byte("counter"), &out)
	if err != nil || !ok {
		t.Fatalf("kv get: ok=%v err=%v", ok, err)
	}
	if out != 42 {
		t.Fatalf("expected 42, got %d", out)
	}

	if err := m.KVDelete([]byte("counter")); err != nil {
		t.Fatalf("kv delete: %v", err)
	}
	ok, err = m.KVGet([]byte("counter"), &out)
	if err != nil {
		t.Fatalf("kv get after delete: %v", err)
	}
	if ok {
		t.Fatal("key present after delete")
	}

	if err := m.KVAppend([]byte("index"), []byte{0x01}); err != nil {
		t.Fatalf("kv append: %v", err)
	}
	if err := m.KVAppend([]byte("index"), []byte{0x01}); err != nil {
		t.Fatalf("kv append duplicate: %v", err)
	}
	if err := m.KVAppend([]byte("index"), []byte{0x02}); err != nil {
		t.Fatalf("kv append second: %v", err)
	}
	list, err := m.KVGetList([]byte("index"))
	if err != nil {
		t.Fatalf("kv get list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
}

func TestParamsRoundTrip(t *testing.T) {
	m := newTestManager(t)

	pct, err := m.CommissionPercent()
	if err != nil {
		t.Fatalf("commission default: %v", err)
	}
	if pct != 0 {
		t.Fatalf("expected zero default commission, got %d", pct)
	}
	if err := m.SetCommissionPercent(5); err != nil {
		t.Fatalf("set commission: %v", err)
	}
	pct, err = m.CommissionPercent()
	if err != nil || pct != 5 {
		t.Fatalf("commission: pct=%d err=%v", pct, err)
	}

	treasury := testAddr(0x06)
	if err := m.SetTreasuryAddress(treasury); err != nil {
		t.Fatalf("set treasury: %v", err)
	}
	loaded, err := m.TreasuryAddress()
	if err != nil || loaded != treasury {
		t.Fatalf("treasury: %x err=%v", loaded, err)
	}

	ledgerDep := testAddr(0x07)
	utilityDep := testAddr(0x08)
	if err := m.SetDeployerAddresses(ledgerDep, utilityDep); err != nil {
		t.Fatalf("set deployers: %v", err)
	}
	gotLedger, gotUtility, err := m.DeployerAddresses()
	if err != nil || gotLedger != ledgerDep || gotUtility != utilityDep {
		t.Fatalf("deployers: %x %x err=%v", gotLedger, gotUtility, err)
	}
}

func TestFeedSequencing(t *testing.T) {
	m := newTestManager(t)

	head, err := m.FeedHead()
	if err != nil || head != 0 {
		t.Fatalf("empty feed head: %d err=%v", head, err)
	}

	first, err := m.FeedAppend(&types.Event{Type: "booking.created", Attributes: map[string]string{"id": "1"}}, 100)
	if err != nil {
		t.Fatalf("append first: %v", err)
	}
	second, err := m.FeedAppend(&types.Event{Type: "booking.created", Attributes: map[string]string{"id": "2"}}, 101)
	if err != nil {
		t.Fatalf("append second: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("unexpected sequences %d %d", first, second)
	}

	events, err := m.FeedRange(1, 10)
	if err != nil {
		t.Fatalf("feed range: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Sequence != 1 || events[1].Sequence != 2 {
		t.Fatalf("out of order feed %v", events)
	}
	if events[1].Event.Attributes["id"] != "2" {
		t.Fatalf("attribute lost: %v", events[1].Event)
	}

	tail, err := m.FeedRange(2, 10)
	if err != nil {
		t.Fatalf("feed tail: %v", err)
	}
	if len(tail) != 1 || tail[0].Sequence != 2 {
		t.Fatalf("unexpected tail %v", tail)
	}
}
