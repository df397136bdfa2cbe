// Package snapshot exports one user's cached documents to an encrypted
// bundle and restores them into another local cache.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dukerupert/petpals/internal/docstore"
	"github.com/dukerupert/petpals/internal/store"
	"github.com/dukerupert/petpals/internal/syncer"
)

const formatVersion = 1

type Kind string

const (
	KindDocument Kind = "document"
	KindPending  Kind = "pending"
)

type Entry struct {
	Key  string          `json:"key"`
	Kind Kind            `json:"kind"`
	Body json.RawMessage `json:"body"`
}

type Bundle struct {
	Format    int     `json:"format"`
	Root      string  `json:"root"`
	CreatedAt int64   `json:"createdAt"`
	Entries   []Entry `json:"entries"`
}

// Result counts what Import did.
type Result struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}

func under(key, root string) bool {
	return key == root || strings.HasPrefix(key, root+"/")
}

// Export collects root, every document below it and their write queues.
func Export(kv store.KV, root string, now time.Time) (*Bundle, error) {
	b := &Bundle{Format: formatVersion, Root: root, CreatedAt: now.UnixMilli()}

	collect := func(prefix string, kind Kind, keyOf func(string) string) error {
		keys, err := kv.Keys(prefix)
		if err != nil {
			return fmt.Errorf("list %s keys: %w", kind, err)
		}
		for _, stored := range keys {
			key := keyOf(stored)
			if !under(key, root) {
				continue
			}
			body, ok, err := kv.Get(stored)
			if err != nil {
				return fmt.Errorf("read %q: %w", stored, err)
			}
			if !ok {
				continue
			}
			b.Entries = append(b.Entries, Entry{Key: key, Kind: kind, Body: body})
		}
		return nil
	}

	if err := collect(root, KindDocument, func(k string) string { return k }); err != nil {
		return nil, err
	}
	pendingRoot := syncer.PendingKey(root)
	err := collect(pendingRoot, KindPending, func(k string) string {
		return root + strings.TrimPrefix(k, pendingRoot)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Import writes the bundle into kv. A document is restored only when the
// cache has no copy with the same or a higher version; a write queue only
// when the cache has none for that key.
func Import(kv store.KV, b *Bundle) (Result, error) {
	var res Result
	for _, e := range b.Entries {
		if !under(e.Key, b.Root) {
			return res, fmt.Errorf("entry %q outside %q", e.Key, b.Root)
		}

		var restore bool
		var err error
		switch e.Kind {
		case KindDocument:
			restore, err = newerDocument(kv, e)
		case KindPending:
			_, exists, gerr := kv.Get(syncer.PendingKey(e.Key))
			restore, err = !exists, gerr
		default:
			return res, fmt.Errorf("entry %q: unknown kind %q", e.Key, e.Kind)
		}
		if err != nil {
			return res, err
		}
		if !restore {
			res.Skipped++
			continue
		}

		dst := e.Key
		if e.Kind == KindPending {
			dst = syncer.PendingKey(e.Key)
		}
		if err := kv.Set(dst, e.Body); err != nil {
			return res, fmt.Errorf("restore %q: %w", dst, err)
		}
		res.Restored++
	}
	return res, nil
}

func newerDocument(kv store.KV, e Entry) (bool, error) {
	incoming, err := docstore.UnmarshalDocument(e.Key, e.Body)
	if err != nil {
		return false, err
	}
	body, ok, err := kv.Get(e.Key)
	if err != nil {
		return false, fmt.Errorf("read %q: %w", e.Key, err)
	}
	if !ok {
		return true, nil
	}
	local, err := docstore.UnmarshalDocument(e.Key, body)
	if err != nil {
		return false, err
	}
	return incoming.Version > local.Version, nil
}

// Write seals the bundle with passphrase.
func Write(w io.Writer, b *Bundle, passphrase string) error {
	body, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return seal(w, body, passphrase)
}

func Read(r io.Reader, passphrase string) (*Bundle, error) {
	body, err := open(r, passphrase)
	if err != nil {
		return nil, err
	}
	var b Bundle
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.Format != formatVersion {
		return nil, fmt.Errorf("unsupported export format %d", b.Format)
	}
	return &b, nil
}
