package docstore

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in process memory. It serves tests and
// single-process deployments that want no remote at all.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) SetMerge(ctx context.Context, key string, patch *Patch) error {
	return s.RunTransaction(ctx, key, patch.ApplyTo)
}

func (s *MemoryStore) RunTransaction(ctx context.Context, key string, fn func(doc *Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := NewDocument(key)
	if cur, ok := s.docs[key]; ok {
		doc = cur.Clone()
	}
	if err := fn(doc); err != nil {
		return err
	}
	doc.Version++
	s.docs[key] = doc
	return nil
}
