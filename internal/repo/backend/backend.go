// Package backend opens the document store named by the configuration.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/config"
	"github.com/hamed0406/uptimewatch/internal/repo"
	"github.com/hamed0406/uptimewatch/internal/repo/file"
	"github.com/hamed0406/uptimewatch/internal/repo/memory"
	"github.com/hamed0406/uptimewatch/internal/repo/natskv"
	"github.com/hamed0406/uptimewatch/internal/repo/postgres"
)

func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.DocumentStore, error) {
	switch cfg.StoreBackend {
	case config.BackendFile, "":
		s, err := file.New(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendPostgres:
		s, err := postgres.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case config.BackendNATS:
		s, err := natskv.New(cfg.NATSURL, cfg.NATSBucket)
		if err != nil {
			return nil, fmt.Errorf("open nats store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
