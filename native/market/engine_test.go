package market

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"

	"agora/core/types"
)

type mockState struct {
	listings map[uint64]*Listing
	accounts map[[20]byte]*types.Account
	lastID   uint64
}

func newMockState() *mockState {
	return &mockState{
		listings: make(map[uint64]*Listing),
		accounts: make(map[[20]byte]*types.Account),
	}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func (m *mockState) ListingPut(l *Listing) error {
	sanitized, err := SanitizeListing(l)
	if err != nil {
		return err
	}
	m.listings[sanitized.ID] = sanitized.Clone()
	return nil
}

func (m *mockState) ListingGet(id uint64) (*Listing, bool, error) {
	listing, ok := m.listings[id]
	if !ok {
		return nil, false, nil
	}
	return listing.Clone(), true, nil
}

func (m *mockState) ListingNextID() (uint64, error) {
	m.lastID++
	return m.lastID, nil
}

func (m *mockState) ListingLastID() (uint64, error) {
	return m.lastID, nil
}

func (m *mockState) GetAccount(addr [20]byte) (*types.Account, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return (&types.Account{}).Normalize(), nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr [20]byte, acc *types.Account) error {
	m.accounts[addr] = acc.Clone()
	return nil
}

func (m *mockState) fund(addr [20]byte, amount int64) {
	m.accounts[addr] = &types.Account{Balance: big.NewInt(amount)}
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	acc, ok := m.accounts[addr]
	if !ok {
		return big.NewInt(0)
	}
	return acc.Normalize().Balance
}

func newTestEngine(t *testing.T) (*Engine, *mockState, *uint64) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	now := new(uint64)
	engine.SetNowFunc(func() uint64 { return *now })
	return engine, state, now
}

type pausedView struct{ module string }

func (p pausedView) IsPaused(module string) bool { return module == p.module }

func TestCreateListingValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	seller := newTestAddress(0x01)

	cases := []struct {
		name     string
		price    *big.Int
		listing  string
		desc     string
		duration uint64
		want     *Error
	}{
		{"zero price", big.NewInt(0), "Widget", "A widget", 100, ErrInvalidPrice},
		{"negative price", big.NewInt(-5), "Widget", "A widget", 100, ErrInvalidPrice},
		{"nil price", nil, "Widget", "A widget", 100, ErrInvalidPrice},
		{"empty name", big.NewInt(10), "", "A widget", 100, ErrInvalidInput},
		{"long name", big.NewInt(10), strings.Repeat("n", MaxNameLen+1), "A widget", 100, ErrInvalidInput},
		{"empty description", big.NewInt(10), "Widget", "", 100, ErrInvalidInput},
		{"long description", big.NewInt(10), "Widget", strings.Repeat("d", MaxDescriptionLen+1), 100, ErrInvalidInput},
		{"zero duration", big.NewInt(10), "Widget", "A widget", 0, ErrInvalidDuration},
		{"excessive duration", big.NewInt(10), "Widget", "A widget", MaxListingDuration + 1, ErrInvalidDuration},
	}
	for _, tc := range cases {
		if _, err := engine.CreateListing(seller, tc.listing, tc.desc, tc.price, tc.duration); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
	if last, _ := engine.LastListingID(); last != 0 {
		t.Fatalf("failed creations must not allocate ids, got %d", last)
	}
}

func TestCreateListingAssignsMonotonicIDs(t *testing.T) {
	engine, state, now := newTestEngine(t)
	*now = 10
	seller := newTestAddress(0x01)

	first, err := engine.CreateListing(seller, "Widget", "A widget", big.NewInt(100), 144)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := engine.CreateListing(seller, "Gadget", "A gadget", big.NewInt(200), 144)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first, second)
	}
	listing := state.listings[first]
	if listing.Status != ListingActive {
		t.Fatalf("expected active listing, got %v", listing.Status)
	}
	if listing.CreatedAt != 10 || listing.ExpiresAt != 154 {
		t.Fatalf("unexpected timestamps: created %d expires %d", listing.CreatedAt, listing.ExpiresAt)
	}
}

func TestUpdateListingChecks(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	seller := newTestAddress(0x01)
	stranger := newTestAddress(0x02)

	id, err := engine.CreateListing(seller, "Widget", "A widget", big.NewInt(100), 144)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := engine.UpdateListing(id+1, big.NewInt(50), "cheap", seller); !errors.Is(err, ErrInvalidListingID) {
		t.Fatalf("out-of-range id: got %v", err)
	}
	if err := engine.UpdateListing(id, big.NewInt(50), "cheap", stranger); !errors.Is(err, ErrNotSeller) {
		t.Fatalf("non-seller: got %v", err)
	}
	if got := state.listings[id]; got.Price.Int64() != 100 || got.Description != "A widget" {
		t.Fatalf("rejected update must leave listing unchanged: %+v", got)
	}
	if err := engine.UpdateListing(id, big.NewInt(0), "cheap", seller); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("zero price: got %v", err)
	}
	if err := engine.UpdateListing(id, big.NewInt(50), "", seller); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty description: got %v", err)
	}
	if err := engine.UpdateListing(id, big.NewInt(50), "cheap now", seller); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated := state.listings[id]
	if updated.Price.Int64() != 50 || updated.Description != "cheap now" {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.Name != "Widget" {
		t.Fatalf("name must be immutable, got %q", updated.Name)
	}
}

func TestCancelListingTerminal(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	seller := newTestAddress(0x01)
	stranger := newTestAddress(0x02)

	id, err := engine.CreateListing(seller, "Widget", "A widget", big.NewInt(100), 144)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := engine.CancelListing(id, stranger); !errors.Is(err, ErrNotSeller) {
		t.Fatalf("non-seller cancel: got %v", err)
	}
	if err := engine.CancelListing(id, seller); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := engine.CancelListing(id, seller); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("second cancel: got %v", err)
	}
	if err := engine.UpdateListing(id, big.NewInt(50), "cheap", seller); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("update after cancel: got %v", err)
	}
}

func TestPurchaseListingSettlement(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	state.fund(buyer, 2_000_000)

	id, err := engine.CreateListing(seller, "Widget", "A widget", big.NewInt(1_000_000), 144)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := engine.PurchaseListing(id, buyer); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	listing, ok, err := engine.GetListing(id)
	if err != nil || !ok {
		t.Fatalf("get after purchase: ok=%v err=%v", ok, err)
	}
	if listing.Status != ListingSold {
		t.Fatalf("expected sold, got %v", listing.Status)
	}
	if got := state.balance(buyer).Int64(); got != 1_000_000 {
		t.Fatalf("buyer balance: got %d", got)
	}
	if got := state.balance(seller).Int64(); got != 1_000_000 {
		t.Fatalf("seller balance: got %d", got)
	}
	if err := engine.PurchaseListing(id, buyer); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("second purchase: got %v", err)
	}
}

func TestPurchaseListingInsufficientBalance(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	state.fund(buyer, 40)

	id, err := engine.CreateListing(seller, "Widget", "A widget", big.NewInt(100), 144)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := engine.PurchaseListing(id, buyer); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if got := state.balance(buyer).Int64(); got != 40 {
		t.Fatalf("failed purchase must not move funds, buyer has %d", got)
	}
	if listing := state.listings[id]; listing.Status != ListingActive {
		t.Fatalf("failed purchase must leave listing active, got %v", listing.Status)
	}
}

func TestPurchaseListingExpired(t *testing.T) {
	engine, state, now := newTestEngine(t)
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	state.fund(buyer, 1_000)

	id, err := engine.CreateListing(seller, "Widget", "A widget", big.NewInt(100), 5)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	*now = 6
	if err := engine.PurchaseListing(id, buyer); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if listing := state.listings[id]; listing.Status != ListingActive {
		t.Fatalf("expired purchase must not change status, got %v", listing.Status)
	}
	// exactly at the boundary the purchase still settles
	*now = 5
	if err := engine.PurchaseListing(id, buyer); err != nil {
		t.Fatalf("boundary purchase: %v", err)
	}
}

func TestSelfPurchasePermitted(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	seller := newTestAddress(0x01)
	state.fund(seller, 500)

	id, err := engine.CreateListing(seller, "Widget", "A widget", big.NewInt(100), 144)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := engine.PurchaseListing(id, seller); err != nil {
		t.Fatalf("self purchase: %v", err)
	}
	if got := state.balance(seller).Int64(); got != 500 {
		t.Fatalf("self purchase must be balance neutral, got %d", got)
	}
	if state.listings[id].Status != ListingSold {
		t.Fatalf("self purchase must settle the listing, got %v", state.listings[id].Status)
	}

	// the balance check still applies to an aliased settlement
	poor := newTestAddress(0x02)
	state.fund(poor, 50)
	id, err = engine.CreateListing(poor, "Widget", "A widget", big.NewInt(100), 144)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := engine.PurchaseListing(id, poor); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("underfunded self purchase: got %v", err)
	}
	if got := state.balance(poor).Int64(); got != 50 {
		t.Fatalf("failed self purchase must not move funds, got %d", got)
	}
}

func TestGetListingSilentAbsent(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, ok, err := engine.GetListing(0); ok || err != nil {
		t.Fatalf("id 0: ok=%v err=%v", ok, err)
	}
	if _, ok, err := engine.GetListing(7); ok || err != nil {
		t.Fatalf("unallocated id: ok=%v err=%v", ok, err)
	}
}

func TestMarketPaused(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	engine.SetPauses(pausedView{module: moduleName})
	if _, err := engine.CreateListing(newTestAddress(0x01), "Widget", "A widget", big.NewInt(10), 10); err == nil {
		t.Fatal("expected pause guard to reject create")
	}
}
