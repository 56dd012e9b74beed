package storage

import (
	"context"
	"fmt"

	"songshelf/internal/config"

	"github.com/sirupsen/logrus"
)

// Open builds the KV backend selected in cfg.
func Open(ctx context.Context, cfg config.StorageConfig, logger *logrus.Logger) (KV, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryKV(), nil
	case config.BackendFile:
		return NewFileKV(cfg.Path)
	case config.BackendSQLite:
		return NewSQLiteKV(cfg.Path, logger)
	case config.BackendRedis:
		return DialRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
