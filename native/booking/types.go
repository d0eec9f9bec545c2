package booking

import (
	"fmt"
	"math/big"
)

// Status represents the lifecycle state of a booking. The zero value marks
// the implicit pre-creation state; records are only ever persisted in one of
// the four named states.
type Status uint8

const (
	StatusUnspecified Status = iota
	StatusBooked
	StatusConfirmed
	StatusExpired
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusBooked:
		return "booked"
	case StatusConfirmed:
		return "confirmed"
	case StatusExpired:
		return "expired"
	case StatusCancelled:
		return "cancelled"
	}
	return "unspecified"
}

// Valid reports whether the status is one of the persisted lifecycle states.
func (s Status) Valid() bool {
	return s >= StatusBooked && s <= StatusCancelled
}

// Booking is a single room-night reservation. Records are created in the
// booked state and never deleted; terminal states retain full history.
// TokenID is non-zero exactly while the status is confirmed or expired.
type Booking struct {
	ID         uint64
	SupplierID uint64
	Owner      [20]byte
	Status     Status
	TokenID    uint64
	CheckIn    uint64
	CheckOut   uint64
	Total      *big.Int
	BaseRate   *big.Int
	CreatedAt  uint64
}

// Clone returns a deep copy of the booking.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Total = cloneBigInt(b.Total)
	clone.BaseRate = cloneBigInt(b.BaseRate)
	return &clone
}

// SanitizeBooking normalizes a booking record before persistence, rejecting
// structurally invalid ones.
func SanitizeBooking(b *Booking) (*Booking, error) {
	if b == nil {
		return nil, fmt.Errorf("booking: nil record")
	}
	if b.ID == 0 {
		return nil, fmt.Errorf("booking: id must not be zero")
	}
	if !b.Status.Valid() {
		return nil, fmt.Errorf("booking: status %d out of range", b.Status)
	}
	sanitized := b.Clone()
	if sanitized.Total.Sign() < 0 || sanitized.BaseRate.Sign() < 0 {
		return nil, fmt.Errorf("booking: negative amount")
	}
	return sanitized, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
