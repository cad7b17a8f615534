package token

import (
	"errors"
	"math/big"

	"agora/core/events"
	"agora/core/types"
	nativecommon "agora/native/common"
)

const moduleName = "token"

var (
	errNilState = errors.New("token engine: state not configured")
	// ErrNotAuthorized marks mint attempts from accounts other than the owner.
	ErrNotAuthorized = errors.New("token: not authorized")
	// ErrInvalidAmount marks zero or negative amounts.
	ErrInvalidAmount = errors.New("token: amount must be positive")
	// ErrSupplyCapExceeded marks mints that would push supply past the cap.
	ErrSupplyCapExceeded = errors.New("token: supply cap exceeded")
	// ErrInsufficientBalance marks transfers and burns exceeding the balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
)

type engineState interface {
	TokenBalanceGet(addr [20]byte) (*big.Int, error)
	TokenBalancePut(addr [20]byte, amount *big.Int) error
	TokenSupplyGet() (*big.Int, error)
	TokenSupplyPut(supply *big.Int) error
}

type tokenEvent struct {
	evt *types.Event
}

func (e tokenEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e tokenEvent) Event() *types.Event { return e.evt }

// Engine implements the module's independent fungible-token ledger: owner
// mints under a fixed supply cap, holders burn and transfer, and the whole
// ledger can be switched off via the module pause. The token is bookkeeping
// only; it is never the settlement currency of the marketplace or the vault.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	owner     [20]byte
	supplyCap *big.Int
	pauses    nativecommon.PauseView
}

// NewEngine creates a token engine with the given supply cap. A nil cap means
// an uncapped supply.
func NewEngine(supplyCap *big.Int) *Engine {
	e := &Engine{emitter: events.NoopEmitter{}}
	if supplyCap != nil {
		e.supplyCap = new(big.Int).Set(supplyCap)
	}
	return e
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOwner configures the account allowed to mint.
func (e *Engine) SetOwner(owner [20]byte) { e.owner = owner }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the owner-controlled pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(tokenEvent{evt: event})
}

// Mint issues amount to the recipient. Owner only; the resulting supply must
// stay at or below the cap.
func (e *Engine) Mint(to [20]byte, amount *big.Int, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrNotAuthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	supply, err := e.state.TokenSupplyGet()
	if err != nil {
		return err
	}
	next := new(big.Int).Add(supply, amount)
	if e.supplyCap != nil && next.Cmp(e.supplyCap) > 0 {
		return ErrSupplyCapExceeded
	}
	balance, err := e.state.TokenBalanceGet(to)
	if err != nil {
		return err
	}
	if err := e.state.TokenBalancePut(to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	if err := e.state.TokenSupplyPut(next); err != nil {
		return err
	}
	e.emit(NewMintEvent(to, amount))
	return nil
}

// Burn destroys amount from the caller's balance and shrinks the supply.
func (e *Engine) Burn(amount *big.Int, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := e.state.TokenBalanceGet(caller)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := e.state.TokenSupplyGet()
	if err != nil {
		return err
	}
	if err := e.state.TokenBalancePut(caller, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	if err := e.state.TokenSupplyPut(new(big.Int).Sub(supply, amount)); err != nil {
		return err
	}
	e.emit(NewBurnEvent(caller, amount))
	return nil
}

// Transfer moves amount between holders. The balance check precedes both
// writes, so a failed transfer changes nothing.
func (e *Engine) Transfer(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBalance, err := e.state.TokenBalanceGet(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from == to {
		e.emit(NewTransferEvent(from, to, amount))
		return nil
	}
	toBalance, err := e.state.TokenBalanceGet(to)
	if err != nil {
		return err
	}
	if err := e.state.TokenBalancePut(from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	if err := e.state.TokenBalancePut(to, new(big.Int).Add(toBalance, amount)); err != nil {
		return err
	}
	e.emit(NewTransferEvent(from, to, amount))
	return nil
}

// BalanceOf reports the ledger balance for addr.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TokenBalanceGet(addr)
}

// Supply reports the circulating supply.
func (e *Engine) Supply() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TokenSupplyGet()
}
