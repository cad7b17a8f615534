package core

import (
	"errors"
	"math/big"
	"sync"

	"agora/core/events"
	"agora/native/arbitration"
	"agora/native/escrow"
	"agora/native/market"
	"agora/native/reputation"
	"agora/native/token"
	"agora/observability"
	"agora/state"
	"agora/storage"
)

// ErrNotAuthorized marks owner-only node administration calls from other
// principals.
var ErrNotAuthorized = errors.New("core: not authorized")

// Node bundles the native engines over one state manager and gives every
// exposed operation a single serialized transaction boundary: the call either
// commits all of its writes or none of them. Reads share the same lock so no
// caller observes a half-applied mutation.
type Node struct {
	mu    sync.Mutex
	state *state.Manager
	owner [20]byte
	clock func() uint64

	market      *market.Engine
	escrow      *escrow.Engine
	arbitration *arbitration.Engine
	token       *token.Engine
	reputation  *reputation.Ledger
}

// NewNode wires the engines to a state manager over db. The clock supplies
// the logical tick used for every expiry and window check; the node never
// reads the host clock. tokenCap bounds the module-token supply (nil for
// uncapped).
func NewNode(db storage.Database, owner [20]byte, clock func() uint64, tokenCap *big.Int) *Node {
	if clock == nil {
		clock = func() uint64 { return 0 }
	}
	manager := state.NewManager(db)
	n := &Node{
		state:       manager,
		owner:       owner,
		clock:       clock,
		market:      market.NewEngine(),
		escrow:      escrow.NewEngine(),
		arbitration: arbitration.NewEngine(),
		token:       token.NewEngine(tokenCap),
		reputation:  reputation.NewLedger(manager),
	}
	n.market.SetState(manager)
	n.market.SetNowFunc(clock)
	n.market.SetPauses(manager)
	n.escrow.SetState(manager)
	n.escrow.SetNowFunc(clock)
	n.escrow.SetOwner(owner)
	n.escrow.SetPauses(manager)
	n.arbitration.SetState(manager)
	n.arbitration.SetNowFunc(clock)
	n.arbitration.SetOwner(owner)
	n.arbitration.SetPauses(manager)
	n.token.SetState(manager)
	n.token.SetOwner(owner)
	n.token.SetPauses(manager)
	n.reputation.SetNowFunc(clock)
	return n
}

// SetEmitter attaches an event sink to every engine. Passing nil restores the
// default no-op emitters.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.market.SetEmitter(emitter)
	n.escrow.SetEmitter(emitter)
	n.arbitration.SetEmitter(emitter)
	n.token.SetEmitter(emitter)
}

// VaultAddress exposes the custodial identity holding escrowed funds.
func (n *Node) VaultAddress() [20]byte {
	return n.state.VaultAddress()
}

// Owner exposes the system owner identity.
func (n *Node) Owner() [20]byte {
	return n.owner
}

// run brackets a mutating operation with the journal: writes reach the
// database only if fn returns nil.
func (n *Node) run(module, operation string, fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.Begin()
	err := fn()
	if err != nil {
		n.state.Rollback()
	} else {
		err = n.state.Commit()
	}
	observability.Metrics().Record(module, operation, err)
	return err
}

// view serializes a read against in-flight mutations.
func (n *Node) view(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn()
}

// --- listings ---

// CreateListing advertises a good for the seller and returns the listing id.
func (n *Node) CreateListing(seller [20]byte, name, description string, price *big.Int, duration uint64) (uint64, error) {
	var id uint64
	err := n.run("market", "create_listing", func() error {
		var err error
		id, err = n.market.CreateListing(seller, name, description, price, duration)
		return err
	})
	return id, err
}

// UpdateListing changes the price and description of the caller's listing.
func (n *Node) UpdateListing(id uint64, newPrice *big.Int, newDescription string, caller [20]byte) error {
	return n.run("market", "update_listing", func() error {
		return n.market.UpdateListing(id, newPrice, newDescription, caller)
	})
}

// CancelListing cancels the caller's listing.
func (n *Node) CancelListing(id uint64, caller [20]byte) error {
	return n.run("market", "cancel_listing", func() error {
		return n.market.CancelListing(id, caller)
	})
}

// PurchaseListing settles the listing peer-to-peer for the caller.
func (n *Node) PurchaseListing(id uint64, caller [20]byte) error {
	return n.run("market", "purchase_listing", func() error {
		return n.market.PurchaseListing(id, caller)
	})
}

// GetListing fetches a listing; ok=false for ids never allocated.
func (n *Node) GetListing(id uint64) (*market.Listing, bool, error) {
	var (
		listing *market.Listing
		ok      bool
	)
	err := n.view(func() error {
		var err error
		listing, ok, err = n.market.GetListing(id)
		return err
	})
	return listing, ok, err
}

// LastListingID reports the most recently allocated listing id.
func (n *Node) LastListingID() (uint64, error) {
	var id uint64
	err := n.view(func() error {
		var err error
		id, err = n.market.LastListingID()
		return err
	})
	return id, err
}

// --- escrows ---

// CreateEscrow locks the amount from the buyer in custody for the seller.
func (n *Node) CreateEscrow(buyer, seller [20]byte, amount *big.Int) (uint64, error) {
	var id uint64
	err := n.run("escrow", "create_escrow", func() error {
		var err error
		id, err = n.escrow.CreateEscrow(buyer, seller, amount)
		return err
	})
	return id, err
}

// ReleaseFunds settles the escrow in favour of the seller.
func (n *Node) ReleaseFunds(id uint64, caller [20]byte) error {
	return n.run("escrow", "release_funds", func() error {
		return n.escrow.ReleaseFunds(id, caller)
	})
}

// RefundBuyer returns custody to the buyer. Owner only.
func (n *Node) RefundBuyer(id uint64, caller [20]byte) error {
	return n.run("escrow", "refund_buyer", func() error {
		return n.escrow.RefundBuyer(id, caller)
	})
}

// GetEscrow fetches an escrow record; unknown ids are an error.
func (n *Node) GetEscrow(id uint64) (*escrow.Escrow, error) {
	var record *escrow.Escrow
	err := n.view(func() error {
		var err error
		record, err = n.escrow.GetEscrow(id)
		return err
	})
	return record, err
}

// LastEscrowID reports the most recently allocated escrow id.
func (n *Node) LastEscrowID() (uint64, error) {
	var id uint64
	err := n.view(func() error {
		var err error
		id, err = n.escrow.LastEscrowID()
		return err
	})
	return id, err
}

// --- arbitration ---

// AddArbitrator admits a principal to the arbitrator roster. Owner only.
func (n *Node) AddArbitrator(p, caller [20]byte) error {
	return n.run("arbitration", "add_arbitrator", func() error {
		return n.arbitration.AddArbitrator(p, caller)
	})
}

// RemoveArbitrator drops a principal from the roster. Owner only.
func (n *Node) RemoveArbitrator(p, caller [20]byte) error {
	return n.run("arbitration", "remove_arbitrator", func() error {
		return n.arbitration.RemoveArbitrator(p, caller)
	})
}

// RaiseDispute opens a dispute over an escrow id and returns the dispute id.
func (n *Node) RaiseDispute(escrowID uint64, counterparty [20]byte, reason string, initiator [20]byte) (uint64, error) {
	var id uint64
	err := n.run("arbitration", "raise_dispute", func() error {
		var err error
		id, err = n.arbitration.RaiseDispute(escrowID, counterparty, reason, initiator)
		return err
	})
	return id, err
}

// VoteOnDispute records the calling arbitrator's ballot.
func (n *Node) VoteOnDispute(disputeID uint64, support bool, caller [20]byte) error {
	return n.run("arbitration", "vote_on_dispute", func() error {
		return n.arbitration.VoteOnDispute(disputeID, support, caller)
	})
}

// ResolveDispute finalises a quorate dispute by majority.
func (n *Node) ResolveDispute(disputeID uint64) (arbitration.Resolution, error) {
	var outcome arbitration.Resolution
	err := n.run("arbitration", "resolve_dispute", func() error {
		var err error
		outcome, err = n.arbitration.ResolveDispute(disputeID)
		return err
	})
	return outcome, err
}

// GetDispute fetches a dispute record; unknown ids are an error.
func (n *Node) GetDispute(id uint64) (*arbitration.Dispute, error) {
	var dispute *arbitration.Dispute
	err := n.view(func() error {
		var err error
		dispute, err = n.arbitration.GetDispute(id)
		return err
	})
	return dispute, err
}

// LastDisputeID reports the most recently allocated dispute id.
func (n *Node) LastDisputeID() (uint64, error) {
	var id uint64
	err := n.view(func() error {
		var err error
		id, err = n.arbitration.LastDisputeID()
		return err
	})
	return id, err
}

// SetArbitratorReward updates the informational reward amount. Owner only.
func (n *Node) SetArbitratorReward(amount *big.Int, caller [20]byte) error {
	return n.run("arbitration", "set_arbitrator_reward", func() error {
		return n.arbitration.SetArbitratorReward(amount, caller)
	})
}

// ArbitratorReward reports the configured reward amount.
func (n *Node) ArbitratorReward() (*big.Int, error) {
	var reward *big.Int
	err := n.view(func() error {
		var err error
		reward, err = n.arbitration.ArbitratorReward()
		return err
	})
	return reward, err
}

// IsArbitrator reports roster membership.
func (n *Node) IsArbitrator(p [20]byte) (bool, error) {
	var ok bool
	err := n.view(func() error {
		var err error
		ok, err = n.arbitration.IsArbitrator(p)
		return err
	})
	return ok, err
}

// --- module token ---

// MintToken issues module tokens to the recipient. Owner only.
func (n *Node) MintToken(to [20]byte, amount *big.Int, caller [20]byte) error {
	return n.run("token", "mint", func() error {
		return n.token.Mint(to, amount, caller)
	})
}

// BurnToken destroys module tokens held by the caller.
func (n *Node) BurnToken(amount *big.Int, caller [20]byte) error {
	return n.run("token", "burn", func() error {
		return n.token.Burn(amount, caller)
	})
}

// TransferToken moves module tokens between holders.
func (n *Node) TransferToken(from, to [20]byte, amount *big.Int) error {
	return n.run("token", "transfer", func() error {
		return n.token.Transfer(from, to, amount)
	})
}

// TokenBalanceOf reports the module-token balance for addr.
func (n *Node) TokenBalanceOf(addr [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.view(func() error {
		var err error
		balance, err = n.token.BalanceOf(addr)
		return err
	})
	return balance, err
}

// TokenSupply reports the circulating module-token supply.
func (n *Node) TokenSupply() (*big.Int, error) {
	var supply *big.Int
	err := n.view(func() error {
		var err error
		supply, err = n.token.Supply()
		return err
	})
	return supply, err
}

// --- reputation ---

// PutProfile creates or updates the caller's profile.
func (n *Node) PutProfile(addr [20]byte, displayName, bio string) (*reputation.Profile, error) {
	var profile *reputation.Profile
	err := n.run("reputation", "put_profile", func() error {
		var err error
		profile, err = n.reputation.PutProfile(addr, displayName, bio)
		return err
	})
	return profile, err
}

// GetProfile fetches the profile attached to addr.
func (n *Node) GetProfile(addr [20]byte) (*reputation.Profile, error) {
	var profile *reputation.Profile
	err := n.view(func() error {
		var err error
		profile, err = n.reputation.GetProfile(addr)
		return err
	})
	return profile, err
}

// AddRating folds a 1-5 score into the subject's aggregate.
func (n *Node) AddRating(subject [20]byte, score uint8) (*reputation.RatingSummary, error) {
	var summary *reputation.RatingSummary
	err := n.run("reputation", "add_rating", func() error {
		var err error
		summary, err = n.reputation.AddRating(subject, score)
		return err
	})
	return summary, err
}

// Rating reports the aggregate score for subject.
func (n *Node) Rating(subject [20]byte) (*reputation.RatingSummary, error) {
	var summary *reputation.RatingSummary
	err := n.view(func() error {
		var err error
		summary, err = n.reputation.Rating(subject)
		return err
	})
	return summary, err
}

// --- administration ---

// SetPaused toggles the pause switch for a native module. Owner only.
func (n *Node) SetPaused(module string, paused bool, caller [20]byte) error {
	return n.run(module, "set_paused", func() error {
		if caller != n.owner {
			return ErrNotAuthorized
		}
		return n.state.SetPaused(module, paused)
	})
}

// SeedAccount credits a native balance directly. Bootstrap only; not exposed
// through any client-facing surface.
func (n *Node) SeedAccount(addr [20]byte, amount *big.Int) error {
	return n.run("core", "seed_account", func() error {
		if amount == nil || amount.Sign() < 0 {
			return errors.New("core: seed amount must not be negative")
		}
		account, err := n.state.GetAccount(addr)
		if err != nil {
			return err
		}
		account.Balance = new(big.Int).Add(account.Balance, amount)
		return n.state.PutAccount(addr, account)
	})
}

// NativeBalance reports the settlement-currency balance of addr.
func (n *Node) NativeBalance(addr [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.view(func() error {
		account, err := n.state.GetAccount(addr)
		if err != nil {
			return err
		}
		balance = account.Normalize().Balance
		return nil
	})
	return balance, err
}
