package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// AccountAlloc seeds a native balance at bootstrap.
type AccountAlloc struct {
	Address string `toml:"Address"`
	Balance string `toml:"Balance"`
}

// Genesis describes the initial state written on first start.
type Genesis struct {
	Owner       string         `toml:"Owner"`
	Arbitrators []string       `toml:"Arbitrators"`
	Accounts    []AccountAlloc `toml:"Accounts"`
}

// Config carries the runtime parameters for an agora node.
type Config struct {
	DataDir          string  `toml:"DataDir"`
	TokenSupplyCap   string  `toml:"TokenSupplyCap"`
	ArbitratorReward string  `toml:"ArbitratorReward"`
	Genesis          Genesis `toml:"Genesis"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file %s not found", path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./agora-data"
	}
	if strings.TrimSpace(cfg.ArbitratorReward) == "" {
		cfg.ArbitratorReward = "0"
	}
	return cfg, nil
}

// ParseAddress decodes a 20-byte hex principal.
func ParseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: want %d bytes, got %d", s, len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

// ParseAmount decodes a non-negative decimal amount.
func ParseAmount(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", s)
	}
	return value, nil
}
