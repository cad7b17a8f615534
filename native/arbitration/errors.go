package arbitration

import "fmt"

// Error carries one of the numeric dispute error codes. The code values are
// part of the client wire contract and must not be renumbered.
type Error struct {
	Code    uint16
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("arbitration: %s", e.Message)
}

var (
	ErrNotAuthorized     = &Error{Code: 100, Message: "not authorized"}
	ErrNotFound          = &Error{Code: 101, Message: "dispute not found"}
	ErrInvalidState      = &Error{Code: 102, Message: "dispute not open"}
	ErrNotArbitrator     = &Error{Code: 103, Message: "caller is not an arbitrator"}
	ErrAlreadyVoted      = &Error{Code: 104, Message: "arbitrator already voted"}
	ErrVotingClosed      = &Error{Code: 105, Message: "voting window closed"}
	ErrInsufficientVotes = &Error{Code: 106, Message: "quorum not reached"}
	// ErrInvalidVote is retained for client compatibility; ballots are typed
	// booleans and cannot be malformed.
	ErrInvalidVote      = &Error{Code: 107, Message: "invalid vote"}
	ErrNotInvolvedParty = &Error{Code: 108, Message: "initiator and counterparty must differ"}
	ErrInvalidEscrowID  = &Error{Code: 109, Message: "escrow id must be positive"}
	ErrInvalidReason    = &Error{Code: 110, Message: "reason length out of range"}
	ErrInvalidDisputeID = &Error{Code: 111, Message: "dispute id out of range"}
	ErrInvalidReward    = &Error{Code: 112, Message: "reward must not be negative"}
	ErrInvalidPrincipal = &Error{Code: 113, Message: "principal not eligible"}
)
