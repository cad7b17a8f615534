package arbitration

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
)

type mockState struct {
	disputes    map[uint64]*Dispute
	votes       map[string]bool
	arbitrators map[[20]byte]bool
	params      map[string][]byte
	lastID      uint64
	vault       [20]byte
}

func newMockState() *mockState {
	return &mockState{
		disputes:    make(map[uint64]*Dispute),
		votes:       make(map[string]bool),
		arbitrators: make(map[[20]byte]bool),
		params:      make(map[string][]byte),
		vault:       newTestAddress(0xEE),
	}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func voteID(disputeID uint64, voter [20]byte) string {
	return fmt.Sprintf("%d/%x", disputeID, voter)
}

func (m *mockState) DisputePut(d *Dispute) error {
	sanitized, err := SanitizeDispute(d)
	if err != nil {
		return err
	}
	m.disputes[sanitized.ID] = sanitized.Clone()
	return nil
}

func (m *mockState) DisputeGet(id uint64) (*Dispute, bool, error) {
	dispute, ok := m.disputes[id]
	if !ok {
		return nil, false, nil
	}
	return dispute.Clone(), true, nil
}

func (m *mockState) DisputeNextID() (uint64, error) {
	m.lastID++
	return m.lastID, nil
}

func (m *mockState) DisputeLastID() (uint64, error) {
	return m.lastID, nil
}

func (m *mockState) VotePut(disputeID uint64, voter [20]byte, support bool) error {
	key := voteID(disputeID, voter)
	if _, ok := m.votes[key]; ok {
		return fmt.Errorf("vote already recorded")
	}
	m.votes[key] = support
	return nil
}

func (m *mockState) VoteHas(disputeID uint64, voter [20]byte) (bool, error) {
	_, ok := m.votes[voteID(disputeID, voter)]
	return ok, nil
}

func (m *mockState) ArbitratorPut(addr [20]byte) error {
	m.arbitrators[addr] = true
	return nil
}

func (m *mockState) ArbitratorDelete(addr [20]byte) error {
	delete(m.arbitrators, addr)
	return nil
}

func (m *mockState) ArbitratorHas(addr [20]byte) (bool, error) {
	return m.arbitrators[addr], nil
}

func (m *mockState) ParamStoreSet(name string, value []byte) error {
	m.params[name] = append([]byte(nil), value...)
	return nil
}

func (m *mockState) ParamStoreGet(name string) ([]byte, bool, error) {
	value, ok := m.params[name]
	return value, ok, nil
}

func (m *mockState) VaultAddress() [20]byte { return m.vault }

var testOwner = newTestAddress(0xFF)

func newTestEngine(t *testing.T) (*Engine, *mockState, *uint64) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetOwner(testOwner)
	now := new(uint64)
	engine.SetNowFunc(func() uint64 { return *now })
	return engine, state, now
}

func seedArbitrators(t *testing.T, engine *Engine, fills ...byte) [][20]byte {
	t.Helper()
	members := make([][20]byte, 0, len(fills))
	for _, fill := range fills {
		addr := newTestAddress(fill)
		if err := engine.AddArbitrator(addr, testOwner); err != nil {
			t.Fatalf("add arbitrator %x: %v", fill, err)
		}
		members = append(members, addr)
	}
	return members
}

func TestArbitratorRoster(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	member := newTestAddress(0x10)

	if err := engine.AddArbitrator(member, member); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("non-owner add: got %v", err)
	}
	if err := engine.AddArbitrator(testOwner, testOwner); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("owner as arbitrator: got %v", err)
	}
	if err := engine.AddArbitrator(newTestAddress(0xEE), testOwner); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("vault as arbitrator: got %v", err)
	}
	if err := engine.AddArbitrator(member, testOwner); err != nil {
		t.Fatalf("add: %v", err)
	}
	// roster edits are idempotent
	if err := engine.AddArbitrator(member, testOwner); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if ok, _ := engine.IsArbitrator(member); !ok {
		t.Fatal("expected membership")
	}
	if err := engine.RemoveArbitrator(member, testOwner); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := engine.RemoveArbitrator(member, testOwner); err != nil {
		t.Fatalf("re-remove: %v", err)
	}
	if ok, _ := engine.IsArbitrator(member); ok {
		t.Fatal("expected removal")
	}
}

func TestRaiseDisputeValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	initiator := newTestAddress(0x01)
	counterparty := newTestAddress(0x02)

	if _, err := engine.RaiseDispute(0, counterparty, "item never shipped", initiator); !errors.Is(err, ErrInvalidEscrowID) {
		t.Fatalf("zero escrow id: got %v", err)
	}
	if _, err := engine.RaiseDispute(1, counterparty, "", initiator); !errors.Is(err, ErrInvalidReason) {
		t.Fatalf("empty reason: got %v", err)
	}
	if _, err := engine.RaiseDispute(1, counterparty, strings.Repeat("r", MaxReasonLen+1), initiator); !errors.Is(err, ErrInvalidReason) {
		t.Fatalf("long reason: got %v", err)
	}
	if _, err := engine.RaiseDispute(1, initiator, "item never shipped", initiator); !errors.Is(err, ErrNotInvolvedParty) {
		t.Fatalf("self dispute: got %v", err)
	}
	if last, _ := engine.LastDisputeID(); last != 0 {
		t.Fatalf("failed raises must not allocate ids, got %d", last)
	}
}

func TestRaiseDisputeDoesNotDereferenceEscrow(t *testing.T) {
	engine, state, now := newTestEngine(t)
	*now = 50
	initiator := newTestAddress(0x01)
	counterparty := newTestAddress(0x02)

	// escrow 999 does not exist anywhere; the board accepts the reference
	id, err := engine.RaiseDispute(999, counterparty, "no delivery", initiator)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	dispute := state.disputes[id]
	if dispute.EscrowID != 999 || dispute.Status != DisputeOpen {
		t.Fatalf("unexpected dispute: %+v", dispute)
	}
	if dispute.CreatedAt != 50 || dispute.VotesFor != 0 || dispute.VotesAgainst != 0 {
		t.Fatalf("unexpected initial tallies: %+v", dispute)
	}
}

func TestVoteChecks(t *testing.T) {
	engine, state, now := newTestEngine(t)
	members := seedArbitrators(t, engine, 0x10, 0x11)
	initiator := newTestAddress(0x01)

	id, err := engine.RaiseDispute(1, newTestAddress(0x02), "damaged goods", initiator)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	if err := engine.VoteOnDispute(id+1, true, members[0]); !errors.Is(err, ErrInvalidDisputeID) {
		t.Fatalf("out-of-range id: got %v", err)
	}
	if err := engine.VoteOnDispute(id, true, initiator); !errors.Is(err, ErrNotArbitrator) {
		t.Fatalf("non-arbitrator vote: got %v", err)
	}
	if err := engine.VoteOnDispute(id, true, members[0]); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := engine.VoteOnDispute(id, false, members[0]); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("double vote: got %v", err)
	}
	dispute := state.disputes[id]
	if dispute.VotesFor != 1 || dispute.VotesAgainst != 0 {
		t.Fatalf("double vote must not change tallies: %+v", dispute)
	}
	*now = VotingPeriod + 1
	if err := engine.VoteOnDispute(id, true, members[1]); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("late vote: got %v", err)
	}
	// a vote exactly at the window boundary still counts
	*now = VotingPeriod
	if err := engine.VoteOnDispute(id, true, members[1]); err != nil {
		t.Fatalf("boundary vote: %v", err)
	}
}

func TestResolveQuorumAndMajority(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	members := seedArbitrators(t, engine, 0x10, 0x11, 0x12)
	initiator := newTestAddress(0x01)

	id, err := engine.RaiseDispute(1, newTestAddress(0x02), "item never shipped", initiator)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	if err := engine.VoteOnDispute(id, true, members[0]); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := engine.VoteOnDispute(id, false, members[1]); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := engine.ResolveDispute(id); !errors.Is(err, ErrInsufficientVotes) {
		t.Fatalf("under quorum: got %v", err)
	}
	if err := engine.VoteOnDispute(id, true, members[2]); err != nil {
		t.Fatalf("vote: %v", err)
	}
	outcome, err := engine.ResolveDispute(id)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome != ResolutionForInitiator {
		t.Fatalf("expected for_initiator, got %q", outcome)
	}
	dispute, err := engine.GetDispute(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if dispute.Status != DisputeResolved || dispute.Resolution != ResolutionForInitiator {
		t.Fatalf("unexpected final dispute: %+v", dispute)
	}
	if _, err := engine.ResolveDispute(id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second resolve: got %v", err)
	}
	if err := engine.VoteOnDispute(id, true, members[0]); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("vote after resolve: got %v", err)
	}
}

func TestResolveTieFavoursCounterparty(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	members := seedArbitrators(t, engine, 0x10, 0x11, 0x12, 0x13)
	initiator := newTestAddress(0x01)

	id, err := engine.RaiseDispute(1, newTestAddress(0x02), "late delivery", initiator)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	for i, support := range []bool{true, true, false, false} {
		if err := engine.VoteOnDispute(id, support, members[i]); err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
	}
	outcome, err := engine.ResolveDispute(id)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome != ResolutionForCounterparty {
		t.Fatalf("tie must favour counterparty, got %q", outcome)
	}
}

func TestResolveMajorityAgainst(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	members := seedArbitrators(t, engine, 0x10, 0x11, 0x12)
	initiator := newTestAddress(0x01)

	id, err := engine.RaiseDispute(1, newTestAddress(0x02), "wrong item", initiator)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	for i, support := range []bool{false, false, true} {
		if err := engine.VoteOnDispute(id, support, members[i]); err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
	}
	outcome, err := engine.ResolveDispute(id)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome != ResolutionForCounterparty {
		t.Fatalf("expected for_counterparty, got %q", outcome)
	}
}

func TestResolveOutsideWindowStrandsDispute(t *testing.T) {
	engine, state, now := newTestEngine(t)
	members := seedArbitrators(t, engine, 0x10, 0x11, 0x12)
	initiator := newTestAddress(0x01)

	id, err := engine.RaiseDispute(1, newTestAddress(0x02), "not as described", initiator)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	for _, member := range members {
		if err := engine.VoteOnDispute(id, true, member); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	*now = VotingPeriod + 1
	if _, err := engine.ResolveDispute(id); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("late resolve: got %v", err)
	}
	if state.disputes[id].Status != DisputeOpen {
		t.Fatal("a quorate dispute past its window stays open")
	}
}

func TestArbitratorReward(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	reward, err := engine.ArbitratorReward()
	if err != nil || reward.Sign() != 0 {
		t.Fatalf("default reward: %v %v", reward, err)
	}
	if err := engine.SetArbitratorReward(big.NewInt(100), newTestAddress(0x01)); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("non-owner set: got %v", err)
	}
	if err := engine.SetArbitratorReward(big.NewInt(-1), testOwner); !errors.Is(err, ErrInvalidReward) {
		t.Fatalf("negative reward: got %v", err)
	}
	if err := engine.SetArbitratorReward(big.NewInt(250), testOwner); err != nil {
		t.Fatalf("set reward: %v", err)
	}
	reward, err = engine.ArbitratorReward()
	if err != nil || reward.Int64() != 250 {
		t.Fatalf("reward roundtrip: %v %v", reward, err)
	}
}
