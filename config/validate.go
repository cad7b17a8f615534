package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for internal consistency. It is separate
// from Load so embedded callers can validate hand-built configs.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil config")
	}
	owner, err := ParseAddress(c.Genesis.Owner)
	if err != nil {
		return fmt.Errorf("config: genesis owner: %w", err)
	}
	seen := make(map[[20]byte]struct{}, len(c.Genesis.Arbitrators))
	for _, raw := range c.Genesis.Arbitrators {
		addr, err := ParseAddress(raw)
		if err != nil {
			return fmt.Errorf("config: genesis arbitrator: %w", err)
		}
		if addr == owner {
			return fmt.Errorf("config: genesis owner cannot be an arbitrator")
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("config: duplicate arbitrator %s", strings.TrimSpace(raw))
		}
		seen[addr] = struct{}{}
	}
	for i, alloc := range c.Genesis.Accounts {
		if _, err := ParseAddress(alloc.Address); err != nil {
			return fmt.Errorf("config: genesis account %d: %w", i, err)
		}
		if _, err := ParseAmount(alloc.Balance); err != nil {
			return fmt.Errorf("config: genesis account %d: %w", i, err)
		}
	}
	if c.TokenSupplyCap != "" {
		if _, err := ParseAmount(c.TokenSupplyCap); err != nil {
			return fmt.Errorf("config: token supply cap: %w", err)
		}
	}
	if _, err := ParseAmount(c.ArbitratorReward); err != nil {
		return fmt.Errorf("config: arbitrator reward: %w", err)
	}
	return nil
}
