package reputation

import (
	"errors"
	"fmt"
)

// storage abstracts the subset of state manager functionality required by the
// reputation ledger.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	// ErrProfileNotFound marks lookups of principals without a profile.
	ErrProfileNotFound = errors.New("reputation: profile not found")
	// ErrInvalidProfile marks malformed profile payloads.
	ErrInvalidProfile = errors.New("reputation: invalid profile")
	// ErrInvalidScore marks ratings outside the 1-5 range.
	ErrInvalidScore = errors.New("reputation: score out of range")
)

func profileKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("reputation/profile/%x", addr))
}

func ratingKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("reputation/rating/%x", addr))
}

// Ledger persists user profiles and per-principal rating aggregates. It sits
// outside the trust core: nothing here feeds back into listing, escrow or
// dispute transitions.
type Ledger struct {
	store storage
	nowFn func() uint64
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store storage) *Ledger {
	return &Ledger{
		store: store,
		nowFn: func() uint64 { return 0 },
	}
}

// SetNowFunc wires the logical tick source used for profile timestamps.
func (l *Ledger) SetNowFunc(now func() uint64) {
	if l == nil {
		return
	}
	if now == nil {
		l.nowFn = func() uint64 { return 0 }
		return
	}
	l.nowFn = now
}

func (l *Ledger) now() uint64 {
	if l == nil || l.nowFn == nil {
		return 0
	}
	return l.nowFn()
}

// PutProfile creates or updates the profile for addr.
func (l *Ledger) PutProfile(addr [20]byte, displayName, bio string) (*Profile, error) {
	if l == nil || l.store == nil {
		return nil, errors.New("reputation: storage unavailable")
	}
	profile := &Profile{
		Address:     addr,
		DisplayName: displayName,
		Bio:         bio,
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	now := l.now()
	var existing Profile
	ok, err := l.store.KVGet(profileKey(addr), &existing)
	if err != nil {
		return nil, err
	}
	if ok {
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if err := l.store.KVPut(profileKey(addr), profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetProfile fetches the profile for addr.
func (l *Ledger) GetProfile(addr [20]byte) (*Profile, error) {
	if l == nil || l.store == nil {
		return nil, errors.New("reputation: storage unavailable")
	}
	var profile Profile
	ok, err := l.store.KVGet(profileKey(addr), &profile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &profile, nil
}

// AddRating folds a 1-5 score into the subject's aggregate.
func (l *Ledger) AddRating(subject [20]byte, score uint8) (*RatingSummary, error) {
	if l == nil || l.store == nil {
		return nil, errors.New("reputation: storage unavailable")
	}
	if score < 1 || score > 5 {
		return nil, ErrInvalidScore
	}
	var summary RatingSummary
	if _, err := l.store.KVGet(ratingKey(subject), &summary); err != nil {
		return nil, err
	}
	summary.Count++
	summary.Sum += uint64(score)
	if err := l.store.KVPut(ratingKey(subject), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Rating reports the aggregate for subject; a zero summary when unrated.
func (l *Ledger) Rating(subject [20]byte) (*RatingSummary, error) {
	if l == nil || l.store == nil {
		return nil, errors.New("reputation: storage unavailable")
	}
	var summary RatingSummary
	if _, err := l.store.KVGet(ratingKey(subject), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
