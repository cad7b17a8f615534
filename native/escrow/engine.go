package escrow

import (
	"errors"
	"math/big"

	"agora/core/events"
	"agora/core/types"
	nativecommon "agora/native/common"
)

const moduleName = "escrow"

var errNilState = errors.New("escrow engine: state not configured")

type engineState interface {
	EscrowPut(*Escrow) error
	EscrowGet(id uint64) (*Escrow, bool, error)
	EscrowNextID() (uint64, error)
	EscrowLastID() (uint64, error)
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	VaultAddress() [20]byte
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine owns custodial holds: funds move into the vault account on creation
// and leave it exactly once, to the seller on release or to the buyer on an
// owner refund. The vault balance equals the sum over Locked escrows at every
// commit point.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() uint64
	owner   [20]byte
	pauses  nativecommon.PauseView
}

// NewEngine creates an escrow engine with a no-op emitter. The logical clock
// and the owner identity must be wired by the host.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return 0 },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOwner configures the system owner allowed to release on behalf of buyers
// and to refund.
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
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return 0
	}
	return e.nowFn()
}

// transferNative atomically moves amount between accounts. The balance check
// precedes both writes, so a failed transfer leaves neither account modified.
func (e *Engine) transferNative(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = fromAcc.Normalize()
	toAcc = toAcc.Normalize()
	if fromAcc.Balance.Cmp(amount) < 0 {
		return ErrTransferFailed
	}
	// aliased transfer: writing both copies back would let the credit
	// overwrite the debit
	if from == to {
		return nil
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

// CreateEscrow locks amount from the buyer in the vault for the seller and
// returns the allocated identifier. A failed funding transfer aborts without
// creating a record.
func (e *Engine) CreateEscrow(buyer, seller [20]byte, amount *big.Int) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	vault := e.state.VaultAddress()
	if seller == buyer || seller == vault {
		return 0, ErrInvalidSeller
	}
	// the vault is custody only, never a counterparty
	if buyer == vault {
		return 0, ErrNotAuthorized
	}
	if err := e.transferNative(buyer, vault, amount); err != nil {
		return 0, err
	}
	now := e.now()
	id, err := e.state.EscrowNextID()
	if err != nil {
		return 0, err
	}
	esc := &Escrow{
		ID:        id,
		Buyer:     buyer,
		Seller:    seller,
		Amount:    new(big.Int).Set(amount),
		Status:    EscrowLocked,
		CreatedAt: now,
		ExpiresAt: now + HoldPeriod,
	}
	if err := e.state.EscrowPut(esc); err != nil {
		return 0, err
	}
	e.emit(NewEscrowCreatedEvent(esc))
	return id, nil
}

func (e *Engine) load(id uint64) (*Escrow, error) {
	last, err := e.state.EscrowLastID()
	if err != nil {
		return nil, err
	}
	if id == 0 || id > last {
		return nil, ErrInvalidEscrowID
	}
	esc, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return esc, nil
}

// ReleaseFunds pays the escrowed amount out to the seller. Only the buyer or
// the owner may release, only while Locked, and only inside the hold window.
// Past the window the escrow stays Locked until an owner refund.
func (e *Engine) ReleaseFunds(id uint64, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	esc, err := e.load(id)
	if err != nil {
		return err
	}
	if caller != esc.Buyer && caller != e.owner {
		return ErrNotAuthorized
	}
	if esc.Status != EscrowLocked {
		return ErrAlreadyReleased
	}
	if e.now() > esc.ExpiresAt {
		return ErrExpired
	}
	if err := e.transferNative(e.state.VaultAddress(), esc.Seller, esc.Amount); err != nil {
		return err
	}
	esc.Status = EscrowReleased
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewEscrowReleasedEvent(esc))
	return nil
}

// RefundBuyer returns the escrowed amount to the buyer. Owner only; permitted
// at any point while the escrow is Locked, including past the hold window.
func (e *Engine) RefundBuyer(id uint64, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrNotAuthorized
	}
	esc, err := e.load(id)
	if err != nil {
		return err
	}
	if esc.Status != EscrowLocked {
		return ErrAlreadyReleased
	}
	if err := e.transferNative(e.state.VaultAddress(), esc.Buyer, esc.Amount); err != nil {
		return err
	}
	esc.Status = EscrowRefunded
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewEscrowRefundedEvent(esc))
	return nil
}

// GetEscrow returns the escrow record. Unlike listings, lookups of unknown
// identifiers are an error.
func (e *Engine) GetEscrow(id uint64) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.load(id)
}

// LastEscrowID reports the most recently allocated escrow identifier.
func (e *Engine) LastEscrowID() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.EscrowLastID()
}
