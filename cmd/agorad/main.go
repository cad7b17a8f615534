package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"sync/atomic"

	"agora/config"
	"agora/core"
	"agora/core/events"
	"agora/storage"
)

// tickSource is the logical clock handed to the node. Bootstrap runs entirely
// at tick zero; a serving deployment advances it once per settled block.
type tickSource struct {
	height atomic.Uint64
}

func (t *tickSource) Now() uint64 { return t.height.Load() }

func main() {
	configPath := flag.String("config", "./config.toml", "Path to the TOML config file")
	memory := flag.Bool("memory", false, "Use an in-memory database instead of LevelDB")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(*configPath, *memory, logger); err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, memory bool, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var db storage.Database
	if memory {
		db = storage.NewMemDB()
	} else {
		path := filepath.Join(cfg.DataDir, "state")
		db, err = storage.NewLevelDB(path)
		if err != nil {
			return fmt.Errorf("open state database: %w", err)
		}
	}
	defer db.Close()

	owner, err := config.ParseAddress(cfg.Genesis.Owner)
	if err != nil {
		return err
	}
	var supplyCap *big.Int
	if cfg.TokenSupplyCap != "" {
		supplyCap, err = config.ParseAmount(cfg.TokenSupplyCap)
		if err != nil {
			return err
		}
	}

	clock := &tickSource{}
	node := core.NewNode(db, owner, clock.Now, supplyCap)
	audit := events.NewRecorder()
	node.SetEmitter(audit)

	for _, alloc := range cfg.Genesis.Accounts {
		addr, err := config.ParseAddress(alloc.Address)
		if err != nil {
			return err
		}
		amount, err := config.ParseAmount(alloc.Balance)
		if err != nil {
			return err
		}
		if err := node.SeedAccount(addr, amount); err != nil {
			return fmt.Errorf("seed account %s: %w", alloc.Address, err)
		}
		logger.Info("seeded account", "address", alloc.Address, "balance", amount.String())
	}

	for _, raw := range cfg.Genesis.Arbitrators {
		addr, err := config.ParseAddress(raw)
		if err != nil {
			return err
		}
		if err := node.AddArbitrator(addr, owner); err != nil {
			return fmt.Errorf("admit arbitrator %s: %w", raw, err)
		}
		logger.Info("admitted arbitrator", "address", raw)
	}

	reward, err := config.ParseAmount(cfg.ArbitratorReward)
	if err != nil {
		return err
	}
	if reward.Sign() > 0 {
		if err := node.SetArbitratorReward(reward, owner); err != nil {
			return fmt.Errorf("set arbitrator reward: %w", err)
		}
	}

	logger.Info("bootstrap complete",
		"owner", cfg.Genesis.Owner,
		"vault", fmt.Sprintf("%x", node.VaultAddress()),
		"arbitrators", len(cfg.Genesis.Arbitrators),
		"events", len(audit.Events()),
	)
	return nil
}
