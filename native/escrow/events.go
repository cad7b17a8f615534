package escrow

import (
	"encoding/hex"
	"strconv"

	"agora/core/types"
)

const (
	EventTypeEscrowCreated  = "escrow.created"
	EventTypeEscrowReleased = "escrow.released"
	EventTypeEscrowRefunded = "escrow.refunded"
)

// NewEscrowCreatedEvent returns the canonical payload for a newly locked
// escrow.
func NewEscrowCreatedEvent(e *Escrow) *types.Event {
	return newEscrowEvent(EventTypeEscrowCreated, e)
}

// NewEscrowReleasedEvent returns the payload emitted when custody settles in
// favour of the seller.
func NewEscrowReleasedEvent(e *Escrow) *types.Event {
	return newEscrowEvent(EventTypeEscrowReleased, e)
}

// NewEscrowRefundedEvent returns the payload emitted when custody returns to
// the buyer.
func NewEscrowRefundedEvent(e *Escrow) *types.Event {
	return newEscrowEvent(EventTypeEscrowRefunded, e)
}

func newEscrowEvent(eventType string, e *Escrow) *types.Event {
	attrs := make(map[string]string)
	if e == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeEscrow(e)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(sanitized.ID, 10)
	attrs["buyer"] = hex.EncodeToString(sanitized.Buyer[:])
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["amount"] = sanitized.Amount.String()
	attrs["status"] = sanitized.Status.String()
	attrs["createdAt"] = strconv.FormatUint(sanitized.CreatedAt, 10)
	attrs["expiresAt"] = strconv.FormatUint(sanitized.ExpiresAt, 10)
	return &types.Event{Type: eventType, Attributes: attrs}
}
