package currency

import (
	"errors"
	"math/big"
	"testing"

	"staychain/core/state"
	"staychain/storage"
)

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestTransferFromMovesFunds(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	ledger := NewLedger(manager)
	payer := newTestAddress(0x01)
	payee := newTestAddress(0x02)

	if err := ledger.Mint(payer, big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !ledger.TransferFrom(payer, payee, big.NewInt(200)) {
		t.Fatal("transfer reported failure")
	}

	payerBal, _ := ledger.BalanceOf(payer)
	payeeBal, _ := ledger.BalanceOf(payee)
	if payerBal.Cmp(big.NewInt(300)) != 0 || payeeBal.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("balances %s / %s", payerBal, payeeBal)
	}
}

func TestTransferFromFailureModes(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	ledger := NewLedger(manager)
	payer := newTestAddress(0x01)
	payee := newTestAddress(0x02)

	if ledger.TransferFrom(payer, payee, big.NewInt(1)) {
		t.Fatal("transfer from empty account succeeded")
	}
	if ledger.TransferFrom(payer, payee, nil) {
		t.Fatal("nil amount succeeded")
	}
	if ledger.TransferFrom(payer, payee, big.NewInt(-5)) {
		t.Fatal("negative amount succeeded")
	}
	if !ledger.TransferFrom(payer, payee, big.NewInt(0)) {
		t.Fatal("zero amount must be a successful no-op")
	}
	if !ledger.TransferFrom(payer, payer, big.NewInt(10)) {
		t.Fatal("self transfer must be a successful no-op")
	}
}

func TestTransferFromIsReversible(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	ledger := NewLedger(manager)
	payer := newTestAddress(0x01)
	payee := newTestAddress(0x02)

	if err := ledger.Mint(payer, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !ledger.TransferFrom(payer, payee, big.NewInt(100)) {
		t.Fatal("forward transfer failed")
	}
	if !ledger.TransferFrom(payee, payer, big.NewInt(100)) {
		t.Fatal("inverse transfer failed")
	}
	payerBal, _ := ledger.BalanceOf(payer)
	if payerBal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("inverse did not restore balance: %s", payerBal)
	}
}

func TestTreasuryRefund(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	ledger := NewLedger(manager)
	source := newTestAddress(0xEE)
	guest := newTestAddress(0x03)

	if err := ledger.Mint(source, big.NewInt(1_000)); err != nil {
		t.Fatalf("mint treasury: %v", err)
	}
	treasury := NewTreasury(manager, source)
	if err := treasury.Refund(big.NewInt(400), guest); err != nil {
		t.Fatalf("refund: %v", err)
	}

	guestBal, _ := ledger.BalanceOf(guest)
	sourceBal, _ := ledger.BalanceOf(source)
	if guestBal.Cmp(big.NewInt(400)) != 0 || sourceBal.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("balances after refund %s / %s", guestBal, sourceBal)
	}

	if err := treasury.Refund(big.NewInt(601), guest); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := treasury.Refund(big.NewInt(0), guest); err != nil {
		t.Fatalf("zero refund must be a no-op: %v", err)
	}
}
