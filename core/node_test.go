package core

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"staychain/crypto"
	"staychain/native/booking"
	nativecommon "staychain/native/common"
	"staychain/native/supplier"
	"staychain/native/token"
	"staychain/storage"
)

func nodeTestAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func bech(addr [20]byte) string {
	return crypto.AddressFromArray(addr).String()
}

type nodeFixture struct {
	node     *Node
	now      int64
	admin    [20]byte
	guest    [20]byte
	hotelier [20]byte
	checkIn  uint64
	checkOut uint64
}

func newNodeFixture(t *testing.T) *nodeFixture {
	t.Helper()
	fx := &nodeFixture{
		now:      1_700_000_000,
		admin:    nodeTestAddr(0xA1),
		guest:    nodeTestAddr(0xB2),
		hotelier: nodeTestAddr(0xC3),
	}
	fx.checkIn = uint64(fx.now) + 86_400
	fx.checkOut = fx.checkIn + 172_800

	spec := fmt.Sprintf(`{
  "genesisTime": "2024-01-01T00:00:00Z",
  "params": {
    "commissionPercent": 5,
    "treasury": %q,
    "protocolWallet": %q,
    "ledgerDeployer": %q,
    "utilityDeployer": %q
  },
  "alloc": {
    %q: "1000000",
    %q: "50000"
  },
  "roles": {
    "ROLE_BOOKING_ADMIN": [%q]
  },
  "suppliers": [
    {"name": "Seaside Resort", "owner": %q, "metadataURI": "ipfs://seaside"}
  ]
}`,
		bech(nodeTestAddr(0xD4)), bech(nodeTestAddr(0xE5)),
		bech(nodeTestAddr(0x11)), bech(nodeTestAddr(0x12)),
		bech(fx.guest), bech(nodeTestAddr(0xD4)),
		bech(fx.admin), bech(fx.hotelier))
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(spec), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}

	node, err := NewNode(storage.NewMemDB())
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	node.SetNowFunc(func() int64 { return fx.now })
	if err := node.ApplyGenesis(path); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}
	// The second apply is a no-op against initialized state.
	if err := node.ApplyGenesis(path); err != nil {
		t.Fatalf("reapply genesis: %v", err)
	}
	fx.node = node
	return fx
}

func (fx *nodeFixture) book(t *testing.T, totals, rates []int64) []uint64 {
	t.Helper()
	bigTotals := make([]*big.Int, len(totals))
	bigRates := make([]*big.Int, len(rates))
	for i := range totals {
		bigTotals[i] = big.NewInt(totals[i])
		bigRates[i] = big.NewInt(rates[i])
	}
	ids, err := fx.node.BookRooms(fx.guest, 1, uint32(len(totals)), bigTotals, bigRates, fx.checkIn, fx.checkOut)
	if err != nil {
		t.Fatalf("book rooms: %v", err)
	}
	return ids
}

func (fx *nodeFixture) confirm(t *testing.T, ids []uint64, transferable bool) {
	t.Helper()
	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = fmt.Sprintf("ipfs://room/%d", id)
	}
	if err := fx.node.ConfirmRooms(fx.hotelier, 1, ids, uris, transferable); err != nil {
		t.Fatalf("confirm rooms: %v", err)
	}
}

func TestNodeLifecycle(t *testing.T) {
	fx := newNodeFixture(t)

	record, ok, err := fx.node.GetSupplier(1)
	if err != nil || !ok {
		t.Fatalf("get supplier: ok=%v err=%v", ok, err)
	}
	if record.Name != "Seaside Resort" || record.Owner != fx.hotelier {
		t.Fatalf("unexpected supplier record: %+v", record)
	}

	ids := fx.book(t, []int64{500, 700}, []int64{100, 200})
	if len(ids) != 2 {
		t.Fatalf("expected 2 bookings, got %v", ids)
	}
	// 1200 principal plus 15 commission.
	balance, err := fx.node.GetBalance(fx.guest)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Int64() != 1_000_000-1_215 {
		t.Fatalf("guest balance = %v", balance)
	}

	fx.confirm(t, ids, true)
	roomBal, err := fx.node.TokenBalanceOf(1, false, fx.guest, ids[0])
	if err != nil {
		t.Fatalf("room balance: %v", err)
	}
	if roomBal.Int64() != 1 {
		t.Fatalf("room token balance = %v", roomBal)
	}
	uri, err := fx.node.TokenURI(1, false, ids[0])
	if err != nil || uri != "ipfs://room/1" {
		t.Fatalf("uri = %q err=%v", uri, err)
	}

	if err := fx.node.CheckoutRooms(fx.hotelier, 1, ids); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	roomBal, err = fx.node.TokenBalanceOf(1, false, fx.guest, ids[0])
	if err != nil || roomBal.Sign() != 0 {
		t.Fatalf("room token should be burned, got %v err=%v", roomBal, err)
	}
	utilBal, err := fx.node.TokenBalanceOf(1, true, fx.guest, ids[0])
	if err != nil || utilBal.Int64() != 1 {
		t.Fatalf("utility token balance = %v err=%v", utilBal, err)
	}

	stored, err := fx.node.GetBooking(ids[0])
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if stored.Status != booking.StatusExpired {
		t.Fatalf("status = %v", stored.Status)
	}
	owned, err := fx.node.BookingIDsByOwner(fx.guest)
	if err != nil || len(owned) != 2 {
		t.Fatalf("owned = %v err=%v", owned, err)
	}
}

func TestNodeEventFeedSequencing(t *testing.T) {
	fx := newNodeFixture(t)

	ids := fx.book(t, []int64{500}, []int64{100})
	fx.confirm(t, ids, false)

	head, err := fx.node.EventsHead()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head == 0 {
		t.Fatal("feed is empty")
	}
	events, err := fx.node.Events(1, int(head))
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if uint64(len(events)) != head {
		t.Fatalf("got %d events, head %d", len(events), head)
	}
	for i, evt := range events {
		if evt.Sequence != uint64(i)+1 {
			t.Fatalf("sequence gap at %d: %d", i, evt.Sequence)
		}
		if evt.Timestamp == 0 {
			t.Fatalf("event %d missing timestamp", evt.Sequence)
		}
	}

	seen := make(map[string]bool)
	for _, evt := range events {
		seen[evt.Event.Type] = true
	}
	for _, want := range []string{
		supplier.EventTypeRegistered,
		booking.EventTypeCreated,
		booking.EventTypeRoomsBooked,
		booking.EventTypeConfirmed,
		token.EventTypeMinted,
	} {
		if !seen[want] {
			t.Fatalf("feed missing %q", want)
		}
	}
}

func TestNodeSubscribeEvents(t *testing.T) {
	fx := newNodeFixture(t)

	ch, cancel := fx.node.SubscribeEvents(16)
	ids := fx.book(t, []int64{500}, []int64{100})
	if len(ids) != 1 {
		t.Fatalf("ids = %v", ids)
	}

	var got []string
	timeout := time.After(time.Second)
collect:
	for {
		select {
		case evt := <-ch:
			got = append(got, evt.Event.Type)
			if evt.Event.Type == booking.EventTypeRoomsBooked {
				break collect
			}
		case <-timeout:
			t.Fatalf("timed out, events so far %v", got)
		}
	}
	if got[0] != booking.EventTypeCreated {
		t.Fatalf("first live event = %q", got[0])
	}

	cancel()
	if _, open := <-ch; open {
		t.Fatal("channel still open after cancel")
	}
}

func TestNodeTokenTransfer(t *testing.T) {
	fx := newNodeFixture(t)
	other := nodeTestAddr(0x77)

	ids := fx.book(t, []int64{500}, []int64{100})
	fx.confirm(t, ids, true)

	if err := fx.node.TokenTransfer(fx.guest, 1, fx.guest, other, ids[0], big.NewInt(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	balance, err := fx.node.TokenBalanceOf(1, false, other, ids[0])
	if err != nil || balance.Int64() != 1 {
		t.Fatalf("recipient balance = %v err=%v", balance, err)
	}

	// Non-transferable tokens stay put.
	ids2 := fx.book(t, []int64{500}, []int64{100})
	fx.confirm(t, ids2, false)
	err = fx.node.TokenTransfer(fx.guest, 1, fx.guest, other, ids2[0], big.NewInt(1))
	if !errors.Is(err, token.ErrNotTransferable) {
		t.Fatalf("expected ErrNotTransferable, got %v", err)
	}

	// Operators act for owners after approval.
	operator := nodeTestAddr(0x88)
	if err := fx.node.TokenSetApprovalForAll(other, 1, operator, true); err != nil {
		t.Fatalf("set approval: %v", err)
	}
	if err := fx.node.TokenTransfer(operator, 1, other, fx.guest, ids[0], big.NewInt(1)); err != nil {
		t.Fatalf("operator transfer: %v", err)
	}
}

func TestNodePauseAndQuota(t *testing.T) {
	fx := newNodeFixture(t)

	fx.node.SetPaused("booking", true)
	_, err := fx.node.BookRooms(fx.guest, 1, 1, []*big.Int{big.NewInt(500)}, []*big.Int{big.NewInt(100)}, fx.checkIn, fx.checkOut)
	if !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	fx.node.SetPaused("booking", false)

	fx.node.SetQuota(nativecommon.Quota{MaxRequestsPerEpoch: 1, EpochSeconds: 60})
	if _, err := fx.node.BookRooms(fx.guest, 1, 1, []*big.Int{big.NewInt(500)}, []*big.Int{big.NewInt(100)}, fx.checkIn, fx.checkOut); err != nil {
		t.Fatalf("first booking within quota: %v", err)
	}
	_, err = fx.node.BookRooms(fx.guest, 1, 1, []*big.Int{big.NewInt(500)}, []*big.Int{big.NewInt(100)}, fx.checkIn, fx.checkOut)
	if !errors.Is(err, nativecommon.ErrQuotaRequestsExceeded) {
		t.Fatalf("expected ErrQuotaRequestsExceeded, got %v", err)
	}
}

func TestNodeRequiresGenesisForOperations(t *testing.T) {
	node, err := NewNode(storage.NewMemDB())
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	// Without genesis, supplier 1 does not exist.
	_, err = node.BookRooms(nodeTestAddr(0x01), 1, 1, []*big.Int{big.NewInt(500)}, []*big.Int{big.NewInt(100)}, 2, 3)
	if !errors.Is(err, booking.ErrSupplierNotFound) {
		t.Fatalf("expected ErrSupplierNotFound, got %v", err)
	}
}
