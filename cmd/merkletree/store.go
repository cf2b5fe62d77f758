package main

import (
	"fmt"

	"github.com/Layr-Labs/merkletree-go/pkg/config"
	"github.com/Layr-Labs/merkletree-go/pkg/logger"
	"github.com/Layr-Labs/merkletree-go/pkg/persistence"
	"github.com/Layr-Labs/merkletree-go/pkg/persistence/badger"
	"github.com/Layr-Labs/merkletree-go/pkg/persistence/memory"
	"github.com/Layr-Labs/merkletree-go/pkg/persistence/redis"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// parseToolConfig reads the global flags into a validated config
func parseToolConfig(c *cli.Context) (*config.MerkleToolConfig, error) {
	cfg := &config.MerkleToolConfig{
		PersistenceType: config.PersistenceType(c.String("persistence")),
		DataPath:        c.String("data-path"),
		Redis: config.RedisConfig{
			Address:   c.String("redis-address"),
			Password:  c.String("redis-password"),
			DB:        c.Int("redis-db"),
			KeyPrefix: c.String("redis-key-prefix"),
		},
		Verbose: c.Bool("verbose"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

// openStore opens the configured persistence backend and checks it is healthy
func openStore(cfg *config.MerkleToolConfig, l *zap.Logger) (persistence.ITreePersistence, error) {
	var (
		store persistence.ITreePersistence
		err   error
	)

	switch cfg.PersistenceType {
	case config.PersistenceTypeMemory:
		l.Sugar().Warnw("Using in-memory persistence, stored snapshots are lost on exit")
		store = memory.NewMemoryPersistence()
	case config.PersistenceTypeBadger:
		store, err = badger.NewBadgerPersistence(cfg.DataPath, l)
	case config.PersistenceTypeRedis:
		store, err = redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, l)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.PersistenceType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s persistence: %w", cfg.PersistenceType, err)
	}

	if err := store.HealthCheck(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("persistence health check failed: %w", err)
	}
	return store, nil
}

// withStore runs fn with a logger and an open store, closing both afterwards
func withStore(c *cli.Context, fn func(l *zap.Logger, store persistence.ITreePersistence) error) error {
	cfg, err := parseToolConfig(c)
	if err != nil {
		return err
	}

	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	store, err := openStore(cfg, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Sugar().Warnw("Failed to close persistence", "error", err)
		}
	}()

	return fn(l, store)
}
