package escrow

import (
	"fmt"
	"math/big"
)

// EscrowStatus represents the lifecycle states of a custodial hold. Released
// and Refunded are terminal; there is no terminal expiry state, a Locked
// escrow past its deadline can only leave custody through an owner refund.
type EscrowStatus uint8

const (
	EscrowLocked EscrowStatus = iota + 1
	EscrowReleased
	EscrowRefunded
)

// HoldPeriod is the fixed custody window in ticks applied to every escrow.
const HoldPeriod uint64 = 1008

// Escrow captures a single custodial hold between a buyer and a seller. The
// amount sits in the vault account for the lifetime of the Locked state.
type Escrow struct {
	ID        uint64       `json:"id"`
	Buyer     [20]byte     `json:"buyer"`
	Seller    [20]byte     `json:"seller"`
	Amount    *big.Int     `json:"amount"`
	Status    EscrowStatus `json:"status"`
	CreatedAt uint64       `json:"created_at"`
	ExpiresAt uint64       `json:"expires_at"`
}

// Clone returns a deep copy of the escrow record.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// Valid reports whether the status value is within the supported range.
func (s EscrowStatus) Valid() bool {
	switch s {
	case EscrowLocked, EscrowReleased, EscrowRefunded:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for logging and event emission.
func (s EscrowStatus) String() string {
	switch s {
	case EscrowLocked:
		return "locked"
	case EscrowReleased:
		return "released"
	case EscrowRefunded:
		return "refunded"
	default:
		return "unspecified"
	}
}

// SanitizeEscrow validates the supplied record and returns a cloned instance
// with a non-nil amount. The original value is not mutated.
func SanitizeEscrow(e *Escrow) (*Escrow, error) {
	if e == nil {
		return nil, fmt.Errorf("nil escrow")
	}
	clone := e.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("escrow amount must be positive")
	}
	if clone.Buyer == clone.Seller {
		return nil, fmt.Errorf("escrow buyer and seller must differ")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("invalid escrow status: %d", clone.Status)
	}
	return clone, nil
}
