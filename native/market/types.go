package market

import (
	"fmt"
	"math/big"
)

// ListingStatus represents the lifecycle states of a marketplace listing.
// Sold and Cancelled are terminal.
type ListingStatus uint8

const (
	ListingActive ListingStatus = iota + 1
	ListingSold
	ListingCancelled
)

const (
	// MaxListingDuration bounds the listing lifetime in ticks.
	MaxListingDuration uint64 = 52_560
	// MaxNameLen bounds the listing name length in bytes.
	MaxNameLen = 64
	// MaxDescriptionLen bounds the listing description length in bytes.
	MaxDescriptionLen = 256
)

// Listing captures a single advertised good. Name and duration are immutable
// after creation; only price and description may change while Active.
type Listing struct {
	ID          uint64        `json:"id"`
	Seller      [20]byte      `json:"seller"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       *big.Int      `json:"price"`
	Status      ListingStatus `json:"status"`
	CreatedAt   uint64        `json:"created_at"`
	ExpiresAt   uint64        `json:"expires_at"`
}

// Clone returns a deep copy of the listing so callers can mutate the copy
// without affecting the stored instance.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// Valid reports whether the status value is within the supported range.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingActive, ListingSold, ListingCancelled:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for logging and event emission.
func (s ListingStatus) String() string {
	switch s {
	case ListingActive:
		return "active"
	case ListingSold:
		return "sold"
	case ListingCancelled:
		return "cancelled"
	default:
		return "unspecified"
	}
}

// SanitizeListing validates the supplied listing record and returns a cloned
// instance with a non-nil price. The original value is not mutated.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("nil listing")
	}
	clone := l.Clone()
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("listing price must be positive")
	}
	if len(clone.Name) == 0 || len(clone.Name) > MaxNameLen {
		return nil, fmt.Errorf("listing name length out of range")
	}
	if len(clone.Description) == 0 || len(clone.Description) > MaxDescriptionLen {
		return nil, fmt.Errorf("listing description length out of range")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("invalid listing status: %d", clone.Status)
	}
	return clone, nil
}
