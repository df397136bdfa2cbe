package store

import (
	lru "github.com/hashicorp/golang-lru"
)

const DefaultCacheSize = 1024

// KV is the synchronous key/value contract the local cache offers.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// CachedKV keeps recently used values in memory in front of a slower KV.
// Writes go through to the backing store before the cache is updated.
type CachedKV struct {
	backing KV
	cache   *lru.Cache
}

func NewCachedKV(backing KV, size int) (*CachedKV, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedKV{backing: backing, cache: cache}, nil
}

func (c *CachedKV) Get(key string) ([]byte, bool, error) {
	if v, ok := c.cache.Get(key); ok {
		return clone(v.([]byte)), true, nil
	}
	value, ok, err := c.backing.Get(key)
	if err != nil || !ok {
		return value, ok, err
	}
	c.cache.Add(key, clone(value))
	return value, true, nil
}

func (c *CachedKV) Set(key string, value []byte) error {
	if err := c.backing.Set(key, value); err != nil {
		c.cache.Remove(key)
		return err
	}
	c.cache.Add(key, clone(value))
	return nil
}

func (c *CachedKV) Delete(key string) error {
	c.cache.Remove(key)
	return c.backing.Delete(key)
}

func (c *CachedKV) Keys(prefix string) ([]string, error) {
	return c.backing.Keys(prefix)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

var (
	_ KV = (*KVStore)(nil)
	_ KV = (*CachedKV)(nil)
)
