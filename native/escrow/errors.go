package escrow

import "fmt"

// Error carries one of the numeric escrow error codes. The code values are
// part of the client wire contract and must not be renumbered.
type Error struct {
	Code    uint16
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("escrow: %s", e.Message)
}

var (
	ErrNotAuthorized   = &Error{Code: 100, Message: "not authorized"}
	ErrNotFound        = &Error{Code: 101, Message: "escrow not found"}
	ErrAlreadyReleased = &Error{Code: 102, Message: "escrow not locked"}
	ErrTransferFailed  = &Error{Code: 103, Message: "value transfer failed"}
	ErrInvalidEscrowID = &Error{Code: 104, Message: "escrow id out of range"}
	ErrInvalidAmount   = &Error{Code: 105, Message: "amount must be positive"}
	ErrInvalidSeller   = &Error{Code: 106, Message: "invalid seller"}
	ErrExpired         = &Error{Code: 107, Message: "escrow expired"}
)
