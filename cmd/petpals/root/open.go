package root

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/petpals/internal/clock"
	"github.com/dukerupert/petpals/internal/config"
	"github.com/dukerupert/petpals/internal/database"
	"github.com/dukerupert/petpals/internal/docstore"
	"github.com/dukerupert/petpals/internal/logging"
	"github.com/dukerupert/petpals/internal/store"
	"github.com/dukerupert/petpals/internal/syncer"
)

// deps is everything a command needs to reach one user's documents.
type deps struct {
	cfg    config.Config
	logger *slog.Logger
	local  store.KV
	layer  *syncer.Layer
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logging.Setup(cfg.Log.Level, cfg.Log.Format), nil
}

// open wires the local cache, the configured remote store and the sync layer
// between them. cleanup waits for in-flight remote writes before closing.
func open(ctx context.Context) (*deps, func(), error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Open(cfg.Local.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open local store: %w", err)
	}

	var local store.KV = store.NewKVStore(db)
	if cfg.Local.CacheSize > 0 {
		cached, err := store.NewCachedKV(local, cfg.Local.CacheSize)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		local = cached
	}

	remote, closeRemote, err := openRemote(ctx, cfg.Remote)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("stores opened", "local", cfg.Local.Path, "remote", cfg.Remote.Backend)

	layer := syncer.New(local, remote, clock.System(), logger, cfg.Remote.Timeout.Duration)
	cleanup := func() {
		layer.Wait()
		if err := closeRemote(); err != nil {
			logger.Warn("close remote store", "error", err)
		}
		db.Close()
	}
	return &deps{cfg: cfg, logger: logger, local: local, layer: layer}, cleanup, nil
}

func openRemote(ctx context.Context, cfg config.RemoteConfig) (docstore.Store, func() error, error) {
	nop := func() error { return nil }

	switch cfg.Backend {
	case "memory":
		return docstore.NewMemoryStore(), nop, nil
	case "sqlite":
		db, err := database.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open remote sqlite: %w", err)
		}
		return docstore.NewSQLiteStore(db), db.Close, nil
	case "postgres":
		s, err := docstore.NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "mongo":
		s, err := docstore.NewMongoStore(ctx, cfg.URI, cfg.Database, cfg.Collection)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
}
