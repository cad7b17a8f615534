package arbitration

import "fmt"

// DisputeStatus represents the lifecycle states of a dispute. Resolved is
// terminal; a dispute that never reaches quorum inside its voting window
// simply stays Open.
type DisputeStatus uint8

const (
	DisputeOpen DisputeStatus = iota + 1
	DisputeResolved
)

// Resolution enumerates the recorded dispute outcomes.
type Resolution string

const (
	// ResolutionNone marks a dispute that has not been resolved.
	ResolutionNone Resolution = ""
	// ResolutionForInitiator records a strict majority in favour of the
	// party that raised the dispute.
	ResolutionForInitiator Resolution = "for_initiator"
	// ResolutionForCounterparty records the default outcome, including
	// exact ties.
	ResolutionForCounterparty Resolution = "for_counterparty"
)

const (
	// VotingPeriod is the number of ticks after creation during which votes
	// are accepted and a resolution may be finalised.
	VotingPeriod uint64 = 144
	// MinVotesRequired is the quorum of total ballots needed before a
	// dispute may be resolved.
	MinVotesRequired uint32 = 3
	// MaxReasonLen bounds the dispute reason length in bytes.
	MaxReasonLen = 256
)

// Dispute captures a conflict raised over a custodial hold. The escrow
// reference is by identifier convention only; the board never dereferences it.
type Dispute struct {
	ID           uint64        `json:"id"`
	EscrowID     uint64        `json:"escrow_id"`
	Initiator    [20]byte      `json:"initiator"`
	Counterparty [20]byte      `json:"counterparty"`
	Reason       string        `json:"reason"`
	Status       DisputeStatus `json:"status"`
	CreatedAt    uint64        `json:"created_at"`
	VotesFor     uint32        `json:"votes_for"`
	VotesAgainst uint32        `json:"votes_against"`
	Resolution   Resolution    `json:"resolution"`
}

// Clone returns a copy of the dispute record.
func (d *Dispute) Clone() *Dispute {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

// Valid reports whether the status value is within the supported range.
func (s DisputeStatus) Valid() bool {
	switch s {
	case DisputeOpen, DisputeResolved:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for logging and event emission.
func (s DisputeStatus) String() string {
	switch s {
	case DisputeOpen:
		return "open"
	case DisputeResolved:
		return "resolved"
	default:
		return "unspecified"
	}
}

// Valid reports whether the resolution is one of the recorded outcomes.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionNone, ResolutionForInitiator, ResolutionForCounterparty:
		return true
	default:
		return false
	}
}

// SanitizeDispute validates the supplied record and returns a clone. The
// original value is not mutated.
func SanitizeDispute(d *Dispute) (*Dispute, error) {
	if d == nil {
		return nil, fmt.Errorf("nil dispute")
	}
	clone := d.Clone()
	if clone.EscrowID == 0 {
		return nil, fmt.Errorf("dispute escrow id must be positive")
	}
	if len(clone.Reason) == 0 || len(clone.Reason) > MaxReasonLen {
		return nil, fmt.Errorf("dispute reason length out of range")
	}
	if clone.Initiator == clone.Counterparty {
		return nil, fmt.Errorf("dispute parties must differ")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("invalid dispute status: %d", clone.Status)
	}
	if !clone.Resolution.Valid() {
		return nil, fmt.Errorf("invalid dispute resolution: %q", clone.Resolution)
	}
	if clone.Status == DisputeResolved && clone.Resolution == ResolutionNone {
		return nil, fmt.Errorf("resolved dispute requires an outcome")
	}
	return clone, nil
}
