package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaRoomsExceeded    = errors.New("quota rooms exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the current quota usage counters for an address.
type QuotaNow struct {
	ReqCount  uint32
	RoomsUsed uint64
	EpochID   uint64
}

// Quota defines the limits enforced for booking interactions per address.
type Quota struct {
	MaxRequestsPerEpoch uint32
	MaxRoomsPerEpoch    uint64
	EpochSeconds        uint32
}

// CheckQuota verifies whether the additional request and room usage fit within
// the configured quota. The returned QuotaNow reflects the updated counters
// when the quota is not exceeded.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32, addRooms uint64) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerEpoch > 0 && next.ReqCount > q.MaxRequestsPerEpoch {
		return prev, ErrQuotaRequestsExceeded
	}

	if addRooms > 0 {
		if next.RoomsUsed > math.MaxUint64-addRooms {
			return prev, ErrQuotaCounterOverflow
		}
		next.RoomsUsed += addRooms
	}
	if q.MaxRoomsPerEpoch > 0 && next.RoomsUsed > q.MaxRoomsPerEpoch {
		return prev, ErrQuotaRoomsExceeded
	}

	return next, nil
}
