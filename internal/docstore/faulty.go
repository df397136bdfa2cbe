package docstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInjected is what FaultyStore returns while failing.
var ErrInjected = errors.New("injected remote failure")

// FaultyStore wraps a Store and fails every call while switched off. It
// stands in for a remote that has gone away.
type FaultyStore struct {
	Store
	failing atomic.Bool
	calls   atomic.Int64

	mu   sync.Mutex
	held chan struct{}
}

func NewFaultyStore(inner Store) *FaultyStore {
	return &FaultyStore{Store: inner}
}

func (f *FaultyStore) SetFailing(v bool) { f.failing.Store(v) }

// Calls counts every call made, failed or not.
func (f *FaultyStore) Calls() int64 { return f.calls.Load() }

// Hold makes every call block until Release or until its context ends, like
// a remote that accepts connections and never answers.
func (f *FaultyStore) Hold() {
	f.mu.Lock()
	if f.held == nil {
		f.held = make(chan struct{})
	}
	f.mu.Unlock()
}

func (f *FaultyStore) Release() {
	f.mu.Lock()
	if f.held != nil {
		close(f.held)
		f.held = nil
	}
	f.mu.Unlock()
}

func (f *FaultyStore) fail(ctx context.Context) error {
	f.calls.Add(1)
	f.mu.Lock()
	held := f.held
	f.mu.Unlock()
	if held != nil {
		select {
		case <-held:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.failing.Load() {
		return ErrInjected
	}
	return nil
}

func (f *FaultyStore) Get(ctx context.Context, key string) (*Document, error) {
	if err := f.fail(ctx); err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, key)
}

func (f *FaultyStore) SetMerge(ctx context.Context, key string, patch *Patch) error {
	if err := f.fail(ctx); err != nil {
		return err
	}
	return f.Store.SetMerge(ctx, key, patch)
}

func (f *FaultyStore) RunTransaction(ctx context.Context, key string, fn func(doc *Document) error) error {
	if err := f.fail(ctx); err != nil {
		return err
	}
	return f.Store.RunTransaction(ctx, key, fn)
}
