package arbitration

import (
	"errors"
	"math/big"

	"agora/core/events"
	"agora/core/types"
	nativecommon "agora/native/common"
)

const (
	moduleName     = "arbitration"
	rewardParamKey = "arbitration/reward"
)

var errNilState = errors.New("arbitration engine: state not configured")

type engineState interface {
	DisputePut(*Dispute) error
	DisputeGet(id uint64) (*Dispute, bool, error)
	DisputeNextID() (uint64, error)
	DisputeLastID() (uint64, error)
	VotePut(disputeID uint64, voter [20]byte, support bool) error
	VoteHas(disputeID uint64, voter [20]byte) (bool, error)
	ArbitratorPut(addr [20]byte) error
	ArbitratorDelete(addr [20]byte) error
	ArbitratorHas(addr [20]byte) (bool, error)
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
	VaultAddress() [20]byte
}

type arbitrationEvent struct {
	evt *types.Event
}

func (e arbitrationEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e arbitrationEvent) Event() *types.Event { return e.evt }

// Engine owns the dispute lifecycle and the arbitrator roster. Disputes
// reference escrows by identifier only; resolution is a pure tally over the
// ballots recorded inside the voting window.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() uint64
	owner   [20]byte
	pauses  nativecommon.PauseView
}

// NewEngine creates an arbitration engine with a no-op emitter. The logical
// clock and the owner identity must be wired by the host.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return 0 },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOwner configures the system owner allowed to edit the arbitrator roster
// and the reward parameter.
func (e *Engine) SetOwner(owner [20]byte) { e.owner = owner }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc wires the logical tick source.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return 0 }
		return
	}
	e.nowFn = now
}

// SetPauses wires the owner-controlled pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(arbitrationEvent{evt: event})
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return 0
	}
	return e.nowFn()
}

// AddArbitrator admits a principal to the arbitrator roster. Owner only. The
// owner and the vault identity are never eligible. Adding an existing member
// is a no-op.
func (e *Engine) AddArbitrator(p, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrNotAuthorized
	}
	if p == e.owner || p == e.state.VaultAddress() {
		return ErrInvalidPrincipal
	}
	ok, err := e.state.ArbitratorHas(p)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := e.state.ArbitratorPut(p); err != nil {
		return err
	}
	e.emit(NewArbitratorAddedEvent(p))
	return nil
}

// RemoveArbitrator drops a principal from the roster. Owner only. Removing an
// absent member is a no-op.
func (e *Engine) RemoveArbitrator(p, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrNotAuthorized
	}
	if p == e.owner || p == e.state.VaultAddress() {
		return ErrInvalidPrincipal
	}
	ok, err := e.state.ArbitratorHas(p)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := e.state.ArbitratorDelete(p); err != nil {
		return err
	}
	e.emit(NewArbitratorRemovedEvent(p))
	return nil
}

// RaiseDispute opens a dispute over the referenced escrow. The escrow id is
// not dereferenced: a dispute may target a settled or nonexistent hold.
func (e *Engine) RaiseDispute(escrowID uint64, counterparty [20]byte, reason string, initiator [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if escrowID == 0 {
		return 0, ErrInvalidEscrowID
	}
	if len(reason) == 0 || len(reason) > MaxReasonLen {
		return 0, ErrInvalidReason
	}
	if initiator == counterparty {
		return 0, ErrNotInvolvedParty
	}
	id, err := e.state.DisputeNextID()
	if err != nil {
		return 0, err
	}
	dispute := &Dispute{
		ID:           id,
		EscrowID:     escrowID,
		Initiator:    initiator,
		Counterparty: counterparty,
		Reason:       reason,
		Status:       DisputeOpen,
		CreatedAt:    e.now(),
	}
	if err := e.state.DisputePut(dispute); err != nil {
		return 0, err
	}
	e.emit(NewDisputeRaisedEvent(dispute))
	return id, nil
}

func (e *Engine) load(id uint64) (*Dispute, error) {
	last, err := e.state.DisputeLastID()
	if err != nil {
		return nil, err
	}
	if id == 0 || id > last {
		return nil, ErrInvalidDisputeID
	}
	dispute, ok, err := e.state.DisputeGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return dispute, nil
}

// VoteOnDispute records one ballot for the calling arbitrator. Each
// (dispute, arbitrator) pair may vote at most once, and only while the
// dispute is Open and inside the voting window.
func (e *Engine) VoteOnDispute(disputeID uint64, support bool, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	dispute, err := e.load(disputeID)
	if err != nil {
		return err
	}
	if dispute.Status != DisputeOpen {
		return ErrInvalidState
	}
	ok, err := e.state.ArbitratorHas(caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotArbitrator
	}
	if e.now()-dispute.CreatedAt > VotingPeriod {
		return ErrVotingClosed
	}
	voted, err := e.state.VoteHas(disputeID, caller)
	if err != nil {
		return err
	}
	if voted {
		return ErrAlreadyVoted
	}
	if err := e.state.VotePut(disputeID, caller, support); err != nil {
		return err
	}
	if support {
		dispute.VotesFor++
	} else {
		dispute.VotesAgainst++
	}
	if err := e.state.DisputePut(dispute); err != nil {
		return err
	}
	e.emit(NewVoteCastEvent(dispute, caller, support))
	return nil
}

// ResolveDispute finalises an Open dispute by majority. Callable by anyone
// once quorum is reached, but only inside the same window that accepts votes;
// a quorate dispute left unresolved past the window stays Open. Exact ties
// fall to the counterparty.
func (e *Engine) ResolveDispute(disputeID uint64) (Resolution, error) {
	if e == nil || e.state == nil {
		return ResolutionNone, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return ResolutionNone, err
	}
	dispute, err := e.load(disputeID)
	if err != nil {
		return ResolutionNone, err
	}
	if dispute.Status != DisputeOpen {
		return ResolutionNone, ErrInvalidState
	}
	if dispute.VotesFor+dispute.VotesAgainst < MinVotesRequired {
		return ResolutionNone, ErrInsufficientVotes
	}
	if e.now()-dispute.CreatedAt > VotingPeriod {
		return ResolutionNone, ErrVotingClosed
	}
	outcome := ResolutionForCounterparty
	if dispute.VotesFor > dispute.VotesAgainst {
		outcome = ResolutionForInitiator
	}
	dispute.Status = DisputeResolved
	dispute.Resolution = outcome
	if err := e.state.DisputePut(dispute); err != nil {
		return ResolutionNone, err
	}
	e.emit(NewDisputeResolvedEvent(dispute))
	return outcome, nil
}

// SetArbitratorReward updates the informational reward amount. Owner only.
// No payout logic consumes the value.
func (e *Engine) SetArbitratorReward(amount *big.Int, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrNotAuthorized
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidReward
	}
	if err := e.state.ParamStoreSet(rewardParamKey, []byte(amount.String())); err != nil {
		return err
	}
	e.emit(NewRewardUpdatedEvent(amount))
	return nil
}

// ArbitratorReward reports the configured reward amount, zero by default.
func (e *Engine) ArbitratorReward() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	raw, ok, err := e.state.ParamStoreGet(rewardParamKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	reward, valid := new(big.Int).SetString(string(raw), 10)
	if !valid {
		return nil, errors.New("arbitration engine: malformed reward parameter")
	}
	return reward, nil
}

// IsArbitrator reports roster membership for the given principal.
func (e *Engine) IsArbitrator(p [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.ArbitratorHas(p)
}

// GetDispute returns the dispute record; unknown identifiers are an error.
func (e *Engine) GetDispute(id uint64) (*Dispute, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.load(id)
}

// LastDisputeID reports the most recently allocated dispute identifier.
func (e *Engine) LastDisputeID() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.DisputeLastID()
}
