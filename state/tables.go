package state

import (
	"errors"
	"fmt"
	"math/big"

	"agora/native/arbitration"
	"agora/native/escrow"
	"agora/native/market"
)

// Sequence counter names, one per entity kind. Each is incremented exactly
// once per successful creation and never reused.
const (
	seqListing = "listing"
	seqEscrow  = "escrow"
	seqDispute = "dispute"
)

func listingKey(id uint64) []byte {
	return []byte(fmt.Sprintf("market/listing/%d", id))
}

func escrowKey(id uint64) []byte {
	return []byte(fmt.Sprintf("escrow/hold/%d", id))
}

func disputeKey(id uint64) []byte {
	return []byte(fmt.Sprintf("arbitration/dispute/%d", id))
}

func voteKey(disputeID uint64, voter [20]byte) []byte {
	return []byte(fmt.Sprintf("arbitration/vote/%d/%x", disputeID, voter))
}

func arbitratorKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("arbitration/member/%x", addr))
}

// --- listings ---

// ListingPut persists the listing record after sanitising it.
func (m *Manager) ListingPut(l *market.Listing) error {
	sanitized, err := market.SanitizeListing(l)
	if err != nil {
		return err
	}
	return m.KVPut(listingKey(sanitized.ID), sanitized)
}

// ListingGet loads the listing record for id.
func (m *Manager) ListingGet(id uint64) (*market.Listing, bool, error) {
	var listing market.Listing
	ok, err := m.KVGet(listingKey(id), &listing)
	if err != nil || !ok {
		return nil, false, err
	}
	return &listing, true, nil
}

// ListingNextID allocates the next listing identifier.
func (m *Manager) ListingNextID() (uint64, error) {
	return m.CounterNext(seqListing)
}

// ListingLastID reports the last allocated listing identifier.
func (m *Manager) ListingLastID() (uint64, error) {
	return m.CounterCurrent(seqListing)
}

// --- escrows ---

// EscrowPut persists the escrow record after sanitising it.
func (m *Manager) EscrowPut(e *escrow.Escrow) error {
	sanitized, err := escrow.SanitizeEscrow(e)
	if err != nil {
		return err
	}
	return m.KVPut(escrowKey(sanitized.ID), sanitized)
}

// EscrowGet loads the escrow record for id.
func (m *Manager) EscrowGet(id uint64) (*escrow.Escrow, bool, error) {
	var record escrow.Escrow
	ok, err := m.KVGet(escrowKey(id), &record)
	if err != nil || !ok {
		return nil, false, err
	}
	return &record, true, nil
}

// EscrowNextID allocates the next escrow identifier.
func (m *Manager) EscrowNextID() (uint64, error) {
	return m.CounterNext(seqEscrow)
}

// EscrowLastID reports the last allocated escrow identifier.
func (m *Manager) EscrowLastID() (uint64, error) {
	return m.CounterCurrent(seqEscrow)
}

// --- disputes, votes, arbitrators ---

// DisputePut persists the dispute record after sanitising it.
func (m *Manager) DisputePut(d *arbitration.Dispute) error {
	sanitized, err := arbitration.SanitizeDispute(d)
	if err != nil {
		return err
	}
	return m.KVPut(disputeKey(sanitized.ID), sanitized)
}

// DisputeGet loads the dispute record for id.
func (m *Manager) DisputeGet(id uint64) (*arbitration.Dispute, bool, error) {
	var dispute arbitration.Dispute
	ok, err := m.KVGet(disputeKey(id), &dispute)
	if err != nil || !ok {
		return nil, false, err
	}
	return &dispute, true, nil
}

// DisputeNextID allocates the next dispute identifier.
func (m *Manager) DisputeNextID() (uint64, error) {
	return m.CounterNext(seqDispute)
}

// DisputeLastID reports the last allocated dispute identifier.
func (m *Manager) DisputeLastID() (uint64, error) {
	return m.CounterCurrent(seqDispute)
}

type storedVote struct {
	Support bool `json:"support"`
}

// VotePut records a ballot. The existence of the record is the double-vote
// guard, so overwriting is treated as a programming error.
func (m *Manager) VotePut(disputeID uint64, voter [20]byte, support bool) error {
	exists, err := m.VoteHas(disputeID, voter)
	if err != nil {
		return err
	}
	if exists {
		return errors.New("state: vote already recorded")
	}
	return m.KVPut(voteKey(disputeID, voter), &storedVote{Support: support})
}

// VoteHas reports whether the arbitrator already voted on the dispute.
func (m *Manager) VoteHas(disputeID uint64, voter [20]byte) (bool, error) {
	var record storedVote
	return m.KVGet(voteKey(disputeID, voter), &record)
}

type storedMembership struct {
	Active bool `json:"active"`
}

// ArbitratorPut admits addr to the arbitrator set.
func (m *Manager) ArbitratorPut(addr [20]byte) error {
	return m.KVPut(arbitratorKey(addr), &storedMembership{Active: true})
}

// ArbitratorDelete removes addr from the arbitrator set. Membership records
// are tombstoned rather than deleted so the underlying store stays
// append-only.
func (m *Manager) ArbitratorDelete(addr [20]byte) error {
	return m.KVPut(arbitratorKey(addr), &storedMembership{Active: false})
}

// ArbitratorHas reports current arbitrator-set membership.
func (m *Manager) ArbitratorHas(addr [20]byte) (bool, error) {
	var record storedMembership
	ok, err := m.KVGet(arbitratorKey(addr), &record)
	if err != nil || !ok {
		return false, err
	}
	return record.Active, nil
}

// --- module token ledger ---

func tokenBalanceKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("token/balance/%x", addr))
}

type storedAmount struct {
	Value string `json:"value"`
}

// TokenBalanceGet loads the module-token balance for addr, zero by default.
func (m *Manager) TokenBalanceGet(addr [20]byte) (*big.Int, error) {
	var record storedAmount
	ok, err := m.KVGet(tokenBalanceKey(addr), &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	value, valid := new(big.Int).SetString(record.Value, 10)
	if !valid {
		return nil, fmt.Errorf("state: malformed token balance for %x", addr)
	}
	return value, nil
}

// TokenBalancePut stores the module-token balance for addr.
func (m *Manager) TokenBalancePut(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("state: token balance must not be negative")
	}
	return m.KVPut(tokenBalanceKey(addr), &storedAmount{Value: amount.String()})
}

// TokenSupplyGet loads the circulating module-token supply.
func (m *Manager) TokenSupplyGet() (*big.Int, error) {
	var record storedAmount
	ok, err := m.KVGet([]byte("token/supply"), &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	value, valid := new(big.Int).SetString(record.Value, 10)
	if !valid {
		return nil, errors.New("state: malformed token supply")
	}
	return value, nil
}

// TokenSupplyPut stores the circulating module-token supply.
func (m *Manager) TokenSupplyPut(supply *big.Int) error {
	if supply == nil || supply.Sign() < 0 {
		return errors.New("state: token supply must not be negative")
	}
	return m.KVPut([]byte("token/supply"), &storedAmount{Value: supply.String()})
}
