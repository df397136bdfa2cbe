package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/petpals/internal/clock"
	"github.com/dukerupert/petpals/internal/docstore"
	"github.com/dukerupert/petpals/internal/store"
)

// ErrRemoteUnavailable marks a failed remote call. Commands never return it;
// it only shows up in logs and from MigrateLocalOnlyToRemote.
var ErrRemoteUnavailable = errors.New("remote store unavailable")

const (
	DefaultTimeout = 5 * time.Second

	pendingPrefix  = "_pending/"
	migrateWorkers = 4
)

// Layer keeps documents in the local cache and propagates changes to the
// remote store. Local writes are synchronous; remote writes run in the
// background, in order per key.
type Layer struct {
	local   store.KV
	remote  docstore.Store
	clock   clock.Clock
	logger  *slog.Logger
	timeout time.Duration

	mu        sync.Mutex
	lastStamp int64
	tails     map[string]chan struct{}

	flushMu  sync.Mutex
	inflight sync.WaitGroup
}

func New(local store.KV, remote docstore.Store, clk clock.Clock, logger *slog.Logger, timeout time.Duration) *Layer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Layer{
		local:   local,
		remote:  remote,
		clock:   clk,
		logger:  logger.With("component", "syncer"),
		timeout: timeout,
		tails:   make(map[string]chan struct{}),
	}
}

// stamp returns a strictly increasing updatedAt in milliseconds. Caller
// holds l.mu.
func (l *Layer) stamp() int64 {
	now := clock.Millis(l.clock.Now())
	if now <= l.lastStamp {
		now = l.lastStamp + 1
	}
	l.lastStamp = now
	return now
}

// Local returns the cached document for key without touching the remote.
func (l *Layer) Local(key string) (*docstore.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocal(key)
}

func (l *Layer) loadLocal(key string) (*docstore.Document, error) {
	body, ok, err := l.local.Get(key)
	if err != nil {
		return nil, fmt.Errorf("load local %q: %w", key, err)
	}
	if !ok {
		return docstore.NewDocument(key), nil
	}
	return docstore.UnmarshalDocument(key, body)
}

func (l *Layer) saveLocal(doc *docstore.Document) error {
	body, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("encode local %q: %w", doc.Key, err)
	}
	if err := l.local.Set(doc.Key, body); err != nil {
		return fmt.Errorf("save local %q: %w", doc.Key, err)
	}
	return nil
}

// Write applies patch to the local copy and returns the result. The remote
// write happens later; its failure is logged and queued, never returned.
func (l *Layer) Write(ctx context.Context, key string, patch *docstore.Patch) (*docstore.Document, error) {
	l.mu.Lock()
	doc, err := l.loadLocal(key)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	patch.UpdatedAt = l.stamp()
	if err := patch.ApplyTo(doc); err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("apply patch to %q: %w", key, err)
	}
	doc.Version++
	if err := l.saveLocal(doc); err != nil {
		l.mu.Unlock()
		return nil, err
	}

	prev := l.tails[key]
	done := make(chan struct{})
	l.tails[key] = done
	l.inflight.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.inflight.Done()
		defer l.release(key, done)
		if prev != nil {
			<-prev
		}
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		l.propagate(pctx, key, patch)
	}()

	return doc.Clone(), nil
}

func (l *Layer) release(key string, done chan struct{}) {
	l.mu.Lock()
	if l.tails[key] == done {
		delete(l.tails, key)
	}
	l.mu.Unlock()
	close(done)
}

// propagate pushes one patch. Anything already queued for the key goes
// first so the remote sees writes in order.
func (l *Layer) propagate(ctx context.Context, key string, patch *docstore.Patch) {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	if remaining := l.flushPendingLocked(ctx, key); remaining > 0 {
		l.enqueue(key, patch)
		return
	}

	err := l.remote.SetMerge(ctx, key, patch)
	switch {
	case err == nil:
	case errors.Is(err, docstore.ErrGuard):
		l.logger.Warn("remote rejected write", "key", key, "error", err)
		l.rollback(ctx, key, patch)
	default:
		l.logger.Warn("remote write failed, queued for retry", "key", key,
			"error", fmt.Errorf("%w: %w", ErrRemoteUnavailable, err))
		l.enqueue(key, patch)
	}
}

// rollback takes a refused patch back out of the local cache so nothing it
// granted locally outlives the rejection.
func (l *Layer) rollback(ctx context.Context, key string, patch *docstore.Patch) {
	remote, err := l.remote.Get(ctx, key)
	if err != nil {
		remote = nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	doc, err := l.loadLocal(key)
	if err != nil {
		l.logger.Error("roll back rejected write", "key", key, "error", err)
		return
	}
	patch.Revert(doc, remote)
	if err := l.saveLocal(doc); err != nil {
		l.logger.Error("roll back rejected write", "key", key, "error", err)
	}
}

// PendingKey is the local cache key holding the write queue of key.
func PendingKey(key string) string { return pendingPrefix + key }

func (l *Layer) pending(key string) ([]*docstore.Patch, error) {
	body, ok, err := l.local.Get(PendingKey(key))
	if err != nil || !ok {
		return nil, err
	}
	var patches []*docstore.Patch
	if err := json.Unmarshal(body, &patches); err != nil {
		return nil, fmt.Errorf("decode pending %q: %w", key, err)
	}
	return patches, nil
}

func (l *Layer) setPending(key string, patches []*docstore.Patch) error {
	if len(patches) == 0 {
		return l.local.Delete(PendingKey(key))
	}
	body, err := json.Marshal(patches)
	if err != nil {
		return fmt.Errorf("encode pending %q: %w", key, err)
	}
	return l.local.Set(PendingKey(key), body)
}

func (l *Layer) enqueue(key string, patch *docstore.Patch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	patches, err := l.pending(key)
	if err != nil {
		l.logger.Error("read pending queue", "key", key, "error", err)
	}
	if err := l.setPending(key, append(patches, patch)); err != nil {
		l.logger.Error("write pending queue", "key", key, "error", err)
	}
}

// Pending reports how many writes for key are waiting to reach the remote.
func (l *Layer) Pending(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	patches, _ := l.pending(key)
	return len(patches)
}

// PendingKeys lists every key with writes waiting to reach the remote.
func (l *Layer) PendingKeys() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, err := l.local.Keys(pendingPrefix)
	if err != nil {
		return nil, fmt.Errorf("list pending keys: %w", err)
	}
	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = strings.TrimPrefix(k, pendingPrefix)
	}
	return keys, nil
}

// FlushPending retries every queued write. It returns how many writes are
// still queued afterwards.
func (l *Layer) FlushPending(ctx context.Context) (int, error) {
	keys, err := l.PendingKeys()
	if err != nil {
		return 0, err
	}
	remaining := 0
	for _, key := range keys {
		if ctx.Err() != nil {
			return remaining, ctx.Err()
		}
		l.waitKey(ctx, key)

		tctx, cancel := context.WithTimeout(ctx, l.timeout)
		l.flushMu.Lock()
		remaining += l.flushPendingLocked(tctx, key)
		l.flushMu.Unlock()
		cancel()
	}
	return remaining, nil
}

// flushPendingLocked retries queued patches in order and stops at the first
// remote failure. It returns how many are still queued. Caller holds
// l.flushMu.
func (l *Layer) flushPendingLocked(ctx context.Context, key string) int {
	l.mu.Lock()
	patches, err := l.pending(key)
	l.mu.Unlock()
	if err != nil {
		l.logger.Error("read pending queue", "key", key, "error", err)
		return 0
	}
	if len(patches) == 0 {
		return 0
	}

	sent := 0
	for _, p := range patches {
		err := l.remote.SetMerge(ctx, key, p)
		if err != nil && !errors.Is(err, docstore.ErrGuard) {
			l.logger.Warn("retry of queued write failed", "key", key, "queued", len(patches)-sent,
				"error", fmt.Errorf("%w: %w", ErrRemoteUnavailable, err))
			break
		}
		if err != nil {
			l.logger.Warn("remote rejected queued write", "key", key, "error", err)
			l.rollback(ctx, key, p)
		}
		sent++
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// Writes may have been queued while the lock was released.
	current, _ := l.pending(key)
	if sent > len(current) {
		sent = len(current)
	}
	rest := current[sent:]
	if err := l.setPending(key, rest); err != nil {
		l.logger.Error("write pending queue", "key", key, "error", err)
	}
	if sent > 0 {
		l.logger.Debug("flushed queued writes", "key", key, "sent", sent, "remaining", len(rest))
	}
	return len(rest)
}

// waitKey blocks until background writes already started for key finish.
func (l *Layer) waitKey(ctx context.Context, key string) {
	l.mu.Lock()
	tail := l.tails[key]
	l.mu.Unlock()
	if tail == nil {
		return
	}
	select {
	case <-tail:
	case <-ctx.Done():
	}
}

// Read fetches the remote copy of key, merges it into the local cache with
// the remote winning for fields it carries, and returns the merged document.
// When the remote is unreachable or has no such document the local copy is
// returned as it is.
func (l *Layer) Read(ctx context.Context, key string) (*docstore.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	l.waitKey(ctx, key)

	l.flushMu.Lock()
	l.flushPendingLocked(ctx, key)
	remote, err := l.remote.Get(ctx, key)
	l.flushMu.Unlock()

	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			l.logger.Warn("remote read failed, using local copy", "key", key,
				"error", fmt.Errorf("%w: %w", ErrRemoteUnavailable, err))
		}
		return l.Local(key)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.loadLocal(key)
	if err != nil {
		return nil, err
	}
	doc.MergeRemote(remote)

	patches, err := l.pending(key)
	if err != nil {
		l.logger.Error("read pending queue", "key", key, "error", err)
	}
	for _, p := range patches {
		if err := reapply(doc, remote, p); err != nil {
			l.logger.Warn("queued write no longer applies", "key", key, "error", err)
		}
	}

	if err := l.saveLocal(doc); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// reapply puts a still-queued patch back on top of a freshly merged
// document. Increments of fields the remote does not carry are already in
// the local value and are skipped.
func reapply(doc, remote *docstore.Document, p *docstore.Patch) error {
	q := &docstore.Patch{UpdatedAt: p.UpdatedAt, Set: p.Set, Min: p.Min}
	for name, delta := range p.Inc {
		if _, ok := remote.Fields[name]; ok {
			q.Increment(name, delta)
		}
	}
	return q.ApplyTo(doc)
}

var errRemoteExists = errors.New("remote document exists")

// MigrateLocalOnlyToRemote pushes root and every local document beneath it
// (root + "/...") that has no remote counterpart. Existing remote documents are never overwritten.
// It returns how many documents were pushed.
func (l *Layer) MigrateLocalOnlyToRemote(ctx context.Context, root string) (int, error) {
	keys, err := l.local.Keys(root)
	if err != nil {
		return 0, fmt.Errorf("list local keys: %w", err)
	}

	var pushed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(migrateWorkers)

	for _, key := range keys {
		if key != root && !strings.HasPrefix(key, root+"/") {
			continue
		}
		g.Go(func() error {
			local, err := l.Local(key)
			if err != nil {
				return err
			}
			tctx, cancel := context.WithTimeout(gctx, l.timeout)
			defer cancel()

			err = l.remote.RunTransaction(tctx, key, func(doc *docstore.Document) error {
				if doc.Exists() {
					return errRemoteExists
				}
				doc.Fields = local.Fields
				doc.Stamps = local.Stamps
				doc.UpdatedAt = local.UpdatedAt
				return nil
			})
			switch {
			case errors.Is(err, errRemoteExists):
				return nil
			case err != nil:
				return fmt.Errorf("migrate %q: %w: %w", key, ErrRemoteUnavailable, err)
			}

			// The whole local document went up, queued patches included.
			l.mu.Lock()
			if err := l.setPending(key, nil); err != nil {
				l.logger.Error("clear pending queue", "key", key, "error", err)
			}
			l.mu.Unlock()
			pushed.Add(1)
			return nil
		})
	}

	err = g.Wait()
	n := int(pushed.Load())
	if n > 0 {
		l.logger.Info("migrated local-only documents", "root", root, "count", n)
	}
	return n, err
}

// Wait blocks until all background remote writes have finished.
func (l *Layer) Wait() {
	l.inflight.Wait()
}
