package reputation

import "fmt"

const (
	// MaxDisplayNameLen bounds the profile display name in bytes.
	MaxDisplayNameLen = 64
	// MaxBioLen bounds the profile bio in bytes.
	MaxBioLen = 256
)

// Profile is the user-facing record attached to a principal.
type Profile struct {
	Address     [20]byte `json:"address"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	CreatedAt   uint64   `json:"created_at"`
	UpdatedAt   uint64   `json:"updated_at"`
}

// Validate ensures the profile payload is well formed.
func (p *Profile) Validate() error {
	if p == nil {
		return ErrInvalidProfile
	}
	if len(p.DisplayName) == 0 || len(p.DisplayName) > MaxDisplayNameLen {
		return fmt.Errorf("%w: display name length out of range", ErrInvalidProfile)
	}
	if len(p.Bio) > MaxBioLen {
		return fmt.Errorf("%w: bio length out of range", ErrInvalidProfile)
	}
	return nil
}

// RatingSummary aggregates the 1-5 scores received by a principal.
type RatingSummary struct {
	Count uint64 `json:"count"`
	Sum   uint64 `json:"sum"`
}

// Average returns the mean score scaled by 100 (e.g. 450 for 4.5), zero when
// unrated.
func (r *RatingSummary) Average() uint64 {
	if r == nil || r.Count == 0 {
		return 0
	}
	return r.Sum * 100 / r.Count
}
