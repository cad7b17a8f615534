package market

import "fmt"

// Error carries one of the numeric listing error codes. The code values are
// part of the client wire contract and must not be renumbered.
type Error struct {
	Code    uint16
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("market: %s", e.Message)
}

var (
	ErrNotAuthorized       = &Error{Code: 100, Message: "not authorized"}
	ErrNotFound            = &Error{Code: 101, Message: "listing not found"}
	ErrInvalidPrice        = &Error{Code: 102, Message: "price must be positive"}
	ErrInvalidSeller       = &Error{Code: 103, Message: "invalid seller"}
	ErrInsufficientBalance = &Error{Code: 104, Message: "insufficient balance"}
	ErrExpired             = &Error{Code: 105, Message: "listing expired"}
	ErrInvalidStatus       = &Error{Code: 106, Message: "listing not active"}
	ErrNotSeller           = &Error{Code: 107, Message: "caller is not the seller"}
	// ErrAlreadyPurchased is retained for client compatibility; purchases of a
	// sold listing surface ErrInvalidStatus instead.
	ErrAlreadyPurchased = &Error{Code: 108, Message: "listing already purchased"}
	ErrInvalidInput     = &Error{Code: 109, Message: "name or description out of range"}
	ErrInvalidDuration  = &Error{Code: 110, Message: "duration out of range"}
	ErrInvalidListingID = &Error{Code: 111, Message: "listing id out of range"}
)
