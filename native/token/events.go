package token

import (
	"encoding/hex"
	"math/big"

	"agora/core/types"
)

const (
	EventTypeMint     = "token.mint"
	EventTypeBurn     = "token.burn"
	EventTypeTransfer = "token.transfer"
)

// NewMintEvent returns the payload emitted when supply is issued.
func NewMintEvent(to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeMint,
		Attributes: map[string]string{
			"to":     hex.EncodeToString(to[:]),
			"amount": formatAmount(amount),
		},
	}
}

// NewBurnEvent returns the payload emitted when supply is destroyed.
func NewBurnEvent(from [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeBurn,
		Attributes: map[string]string{
			"from":   hex.EncodeToString(from[:]),
			"amount": formatAmount(amount),
		},
	}
}

// NewTransferEvent returns the payload emitted on a holder-to-holder move.
func NewTransferEvent(from, to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"from":   hex.EncodeToString(from[:]),
			"to":     hex.EncodeToString(to[:]),
			"amount": formatAmount(amount),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
