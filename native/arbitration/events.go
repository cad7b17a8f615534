package arbitration

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"agora/core/types"
)

const (
	EventTypeDisputeRaised     = "arbitration.dispute.raised"
	EventTypeVoteCast          = "arbitration.dispute.vote"
	EventTypeDisputeResolved   = "arbitration.dispute.resolved"
	EventTypeArbitratorAdded   = "arbitration.member.added"
	EventTypeArbitratorRemoved = "arbitration.member.removed"
	EventTypeRewardUpdated     = "arbitration.reward.updated"
)

// NewDisputeRaisedEvent returns the canonical payload for a newly opened
// dispute.
func NewDisputeRaisedEvent(d *Dispute) *types.Event {
	return newDisputeEvent(EventTypeDisputeRaised, d, nil)
}

// NewVoteCastEvent returns the payload emitted when an arbitrator ballot is
// recorded, including the updated tallies.
func NewVoteCastEvent(d *Dispute, voter [20]byte, support bool) *types.Event {
	evt := newDisputeEvent(EventTypeVoteCast, d, nil)
	evt.Attributes["voter"] = hex.EncodeToString(voter[:])
	evt.Attributes["support"] = strconv.FormatBool(support)
	return evt
}

// NewDisputeResolvedEvent returns the payload emitted when the dispute is
// finalised.
func NewDisputeResolvedEvent(d *Dispute) *types.Event {
	return newDisputeEvent(EventTypeDisputeResolved, d, nil)
}

// NewArbitratorAddedEvent returns the payload for a roster admission.
func NewArbitratorAddedEvent(p [20]byte) *types.Event {
	return memberEvent(EventTypeArbitratorAdded, p)
}

// NewArbitratorRemovedEvent returns the payload for a roster removal.
func NewArbitratorRemovedEvent(p [20]byte) *types.Event {
	return memberEvent(EventTypeArbitratorRemoved, p)
}

// NewRewardUpdatedEvent returns the payload for a reward parameter change.
func NewRewardUpdatedEvent(amount *big.Int) *types.Event {
	attrs := map[string]string{"reward": "0"}
	if amount != nil {
		attrs["reward"] = amount.String()
	}
	return &types.Event{Type: EventTypeRewardUpdated, Attributes: attrs}
}

func memberEvent(eventType string, p [20]byte) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"arbitrator": hex.EncodeToString(p[:]),
		},
	}
}

func newDisputeEvent(eventType string, d *Dispute, extra map[string]string) *types.Event {
	attrs := make(map[string]string)
	if d == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeDispute(d)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(sanitized.ID, 10)
	attrs["escrowId"] = strconv.FormatUint(sanitized.EscrowID, 10)
	attrs["initiator"] = hex.EncodeToString(sanitized.Initiator[:])
	attrs["counterparty"] = hex.EncodeToString(sanitized.Counterparty[:])
	attrs["status"] = sanitized.Status.String()
	attrs["votesFor"] = strconv.FormatUint(uint64(sanitized.VotesFor), 10)
	attrs["votesAgainst"] = strconv.FormatUint(uint64(sanitized.VotesAgainst), 10)
	attrs["createdAt"] = strconv.FormatUint(sanitized.CreatedAt, 10)
	if sanitized.Resolution != ResolutionNone {
		attrs["resolution"] = string(sanitized.Resolution)
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
