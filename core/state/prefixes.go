package state

import (
	"encoding/binary"
	"encoding/hex"
)

var (
	accountPrefix    = []byte("account/")
	rolePrefix       = []byte("role/")
	paramsPrefix     = []byte("params/")
	bookingPrefix    = []byte("booking/record/")
	bookingOwnerPfx  = []byte("booking/owner/")
	bookingSeqKey    = []byte("booking/seq")
	supplierPrefix   = []byte("supplier/record/")
	supplierSeqKey   = []byte("supplier/seq")
	tokenBalancePfx  = []byte("token/balance/")
	tokenURIPfx      = []byte("token/uri/")
	tokenFlagPfx     = []byte("token/transferable/")
	tokenApprovalPfx = []byte("token/approval/")
	tokenPairPfx     = []byte("token/pair/")
	transferLockPfx  = []byte("lock/")
	feedEventPfx     = []byte("feed/event/")
	feedHeadKey      = []byte("feed/head")
)

func appendUint64(buf []byte, v uint64) []byte {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], v)
	return append(buf, raw[:]...)
}

func appendHex(buf, raw []byte) []byte {
	dst := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(dst, raw)
	return append(buf, dst...)
}

// BookingKey returns the storage key for a booking record.
func BookingKey(id uint64) []byte {
	return appendUint64(append([]byte(nil), bookingPrefix...), id)
}

// BookingOwnerKey returns the key of the per-owner booking id index.
func BookingOwnerKey(owner []byte) []byte {
	return appendHex(append([]byte(nil), bookingOwnerPfx...), owner)
}

// BookingCounterKey returns the key of the global booking id counter.
func BookingCounterKey() []byte { return append([]byte(nil), bookingSeqKey...) }

// SupplierKey returns the storage key for a supplier record.
func SupplierKey(id uint64) []byte {
	return appendUint64(append([]byte(nil), supplierPrefix...), id)
}

// SupplierCounterKey returns the key of the supplier id counter.
func SupplierCounterKey() []byte { return append([]byte(nil), supplierSeqKey...) }

// TokenBalanceKey returns the balance key for a holder of a token id on the
// ledger instance identified by addr.
func TokenBalanceKey(instance [20]byte, id uint64, holder []byte) []byte {
	buf := appendHex(append([]byte(nil), tokenBalancePfx...), instance[:])
	buf = append(buf, '/')
	buf = appendUint64(buf, id)
	buf = append(buf, '/')
	return appendHex(buf, holder)
}

// TokenURIKey returns the metadata URI key for a token id on a ledger instance.
func TokenURIKey(instance [20]byte, id uint64) []byte {
	buf := appendHex(append([]byte(nil), tokenURIPfx...), instance[:])
	buf = append(buf, '/')
	return appendUint64(buf, id)
}

// TokenTransferableKey returns the transferability flag key for a token id.
func TokenTransferableKey(instance [20]byte, id uint64) []byte {
	buf := appendHex(append([]byte(nil), tokenFlagPfx...), instance[:])
	buf = append(buf, '/')
	return appendUint64(buf, id)
}

// TokenApprovalKey returns the operator approval key for an owner on a ledger
// instance.
func TokenApprovalKey(instance [20]byte, owner, operator []byte) []byte {
	buf := appendHex(append([]byte(nil), tokenApprovalPfx...), instance[:])
	buf = append(buf, '/')
	buf = appendHex(buf, owner)
	buf = append(buf, '/')
	return appendHex(buf, operator)
}

// TokenPairKey returns the key binding a ledger instance to its paired utility
// instance.
func TokenPairKey(instance [20]byte) []byte {
	return appendHex(append([]byte(nil), tokenPairPfx...), instance[:])
}

// TransferLockKey returns the key of the (supplier, token) transfer lock.
func TransferLockKey(supplierID, tokenID uint64) []byte {
	buf := appendUint64(append([]byte(nil), transferLockPfx...), supplierID)
	buf = append(buf, '/')
	return appendUint64(buf, tokenID)
}

func feedEventKey(seq uint64) []byte {
	return appendUint64(append([]byte(nil), feedEventPfx...), seq)
}

func paramsKey(name string) []byte {
	return append(append([]byte(nil), paramsPrefix...), name...)
}
