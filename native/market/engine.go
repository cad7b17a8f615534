package market

import (
	"errors"
	"math/big"

	"agora/core/events"
	"agora/core/types"
	nativecommon "agora/native/common"
)

const moduleName = "market"

var (
	errNilState         = errors.New("market engine: state not configured")
	errInsufficientFund = errors.New("market engine: insufficient balance")
)

type engineState interface {
	ListingPut(*Listing) error
	ListingGet(id uint64) (*Listing, bool, error)
	ListingNextID() (uint64, error)
	ListingLastID() (uint64, error)
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine owns the listing lifecycle: create, update, cancel and direct
// peer-to-peer settlement of a purchase. All validation happens before any
// account or listing write so a failed call leaves state untouched.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() uint64
	pauses  nativecommon.PauseView
}

// NewEngine creates a market engine with a no-op emitter. The logical clock
// must be wired by the host via SetNowFunc before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return 0 },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc wires the logical tick source. The engine never samples the host
// clock; ticks always come from the injected function.
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
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return 0
	}
	return e.nowFn()
}

// transferNative atomically moves amount between accounts: the balance check
// precedes both writes, so a failure leaves neither account modified.
func (e *Engine) transferNative(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("market engine: transfer amount must be positive")
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
		return errInsufficientFund
	}
	// aliased transfer: the debit and credit cancel, and writing both copies
	// back would let the credit overwrite the debit
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

// CreateListing validates and persists a new listing for the seller, returning
// the allocated identifier.
func (e *Engine) CreateListing(seller [20]byte, name, description string, price *big.Int, duration uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if price == nil || price.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}
	if len(name) == 0 || len(name) > MaxNameLen {
		return 0, ErrInvalidInput
	}
	if len(description) == 0 || len(description) > MaxDescriptionLen {
		return 0, ErrInvalidInput
	}
	if duration == 0 || duration > MaxListingDuration {
		return 0, ErrInvalidDuration
	}
	now := e.now()
	id, err := e.state.ListingNextID()
	if err != nil {
		return 0, err
	}
	listing := &Listing{
		ID:          id,
		Seller:      seller,
		Name:        name,
		Description: description,
		Price:       new(big.Int).Set(price),
		Status:      ListingActive,
		CreatedAt:   now,
		ExpiresAt:   now + duration,
	}
	if err := e.state.ListingPut(listing); err != nil {
		return 0, err
	}
	e.emit(NewListingCreatedEvent(listing))
	return id, nil
}

// loadActive fetches a listing after the id-range, existence, seller and
// status checks shared by update and cancel.
func (e *Engine) loadActive(id uint64, caller [20]byte) (*Listing, error) {
	listing, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if listing.Seller != caller {
		return nil, ErrNotSeller
	}
	if listing.Status != ListingActive {
		return nil, ErrInvalidStatus
	}
	return listing, nil
}

func (e *Engine) load(id uint64) (*Listing, error) {
	last, err := e.state.ListingLastID()
	if err != nil {
		return nil, err
	}
	if id == 0 || id > last {
		return nil, ErrInvalidListingID
	}
	listing, ok, err := e.state.ListingGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return listing, nil
}

// UpdateListing changes the price and description of an Active listing. Only
// the seller may update; name and duration are immutable.
func (e *Engine) UpdateListing(id uint64, newPrice *big.Int, newDescription string, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	listing, err := e.loadActive(id, caller)
	if err != nil {
		return err
	}
	if newPrice == nil || newPrice.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if len(newDescription) == 0 || len(newDescription) > MaxDescriptionLen {
		return ErrInvalidInput
	}
	listing.Price = new(big.Int).Set(newPrice)
	listing.Description = newDescription
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewListingUpdatedEvent(listing))
	return nil
}

// CancelListing transitions an Active listing to Cancelled. Terminal.
func (e *Engine) CancelListing(id uint64, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	listing, err := e.loadActive(id, caller)
	if err != nil {
		return err
	}
	listing.Status = ListingCancelled
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewListingCancelledEvent(listing))
	return nil
}

// PurchaseListing settles an Active, unexpired listing peer-to-peer: the price
// moves from the caller to the seller and the listing becomes Sold. The seller
// purchasing their own listing is not rejected here.
func (e *Engine) PurchaseListing(id uint64, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	listing, err := e.load(id)
	if err != nil {
		return err
	}
	if listing.Status != ListingActive {
		return ErrInvalidStatus
	}
	if e.now() > listing.ExpiresAt {
		return ErrExpired
	}
	if err := e.transferNative(caller, listing.Seller, listing.Price); err != nil {
		if errors.Is(err, errInsufficientFund) {
			return ErrInsufficientBalance
		}
		return err
	}
	listing.Status = ListingSold
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewListingPurchasedEvent(listing, caller))
	return nil
}

// GetListing returns the listing record, or ok=false when the id has never
// been allocated. Lookups outside the allocated range are not an error.
func (e *Engine) GetListing(id uint64) (*Listing, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	last, err := e.state.ListingLastID()
	if err != nil {
		return nil, false, err
	}
	if id == 0 || id > last {
		return nil, false, nil
	}
	return e.state.ListingGet(id)
}

// LastListingID reports the most recently allocated listing identifier.
func (e *Engine) LastListingID() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.ListingLastID()
}
