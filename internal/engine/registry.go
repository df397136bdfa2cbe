package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukerupert/petpals/internal/clock"
	"github.com/dukerupert/petpals/internal/syncer"
)

// Registry hands out one Engine per user. The first time a user is seen in
// this process, documents that only exist in the local cache are pushed to
// the remote store.
type Registry struct {
	sync     *syncer.Layer
	clock    clock.Clock
	cfg      Config
	notifier Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	eng     *Engine
	migrate sync.Once
}

func NewRegistry(layer *syncer.Layer, clk clock.Clock, cfg Config, notifier Notifier, logger *slog.Logger) *Registry {
	return &Registry{
		sync:     layer,
		clock:    clk,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// For returns the user's engine, starting a session for them if needed.
// Callers for the same user wait for its migration; other users do not.
func (r *Registry) For(ctx context.Context, userID string) *Engine {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	if !ok {
		s = &session{eng: New(userID, r.sync, r.clock, r.cfg, r.notifier, r.logger)}
		r.sessions[userID] = s
	}
	r.mu.Unlock()

	s.migrate.Do(func() {
		n, err := r.sync.MigrateLocalOnlyToRemote(ctx, UserKey(userID))
		if err != nil {
			r.logger.Warn("local-only migration incomplete", "user_id", userID, "migrated", n, "error", err)
		}
	})
	return s.eng
}

// Sessions returns how many users have an engine in this process.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
