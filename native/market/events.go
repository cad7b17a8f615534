package market

import (
	"encoding/hex"
	"strconv"

	"agora/core/types"
)

const (
	EventTypeListingCreated   = "market.listing.created"
	EventTypeListingUpdated   = "market.listing.updated"
	EventTypeListingCancelled = "market.listing.cancelled"
	EventTypeListingPurchased = "market.listing.purchased"
)

// NewListingCreatedEvent returns the canonical payload for a new listing.
func NewListingCreatedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingCreated, l, nil)
}

// NewListingUpdatedEvent returns the payload emitted when price or description
// change on an active listing.
func NewListingUpdatedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingUpdated, l, nil)
}

// NewListingCancelledEvent returns the payload emitted when a listing is
// cancelled by its seller.
func NewListingCancelledEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingCancelled, l, nil)
}

// NewListingPurchasedEvent returns the payload emitted on settlement,
// including the buyer.
func NewListingPurchasedEvent(l *Listing, buyer [20]byte) *types.Event {
	return newListingEvent(EventTypeListingPurchased, l, &buyer)
}

func newListingEvent(eventType string, l *Listing, buyer *[20]byte) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeListing(l)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(sanitized.ID, 10)
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["name"] = sanitized.Name
	attrs["price"] = sanitized.Price.String()
	attrs["status"] = sanitized.Status.String()
	attrs["createdAt"] = strconv.FormatUint(sanitized.CreatedAt, 10)
	attrs["expiresAt"] = strconv.FormatUint(sanitized.ExpiresAt, 10)
	if buyer != nil {
		attrs["buyer"] = hex.EncodeToString(buyer[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
