package store

import (
	"testing"

	"github.com/dukerupert/petpals/internal/database"
)

func setupKVTestDB(t *testing.T) *KVStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewKVStore(db)
}

func TestKVSetGet(t *testing.T) {
	kv := setupKVTestDB(t)

	if _, ok, err := kv.Get("missing"); err != nil || ok {
		t.Fatalf("get missing: ok=%v err=%v", ok, err)
	}

	if err := kv.Set("users/u1", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := kv.Get("users/u1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("value = %s", got)
	}

	if err := kv.Set("users/u1", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, _ = kv.Get("users/u1")
	if string(got) != `{"a":2}` {
		t.Errorf("value after overwrite = %s", got)
	}
}

func TestKVDelete(t *testing.T) {
	kv := setupKVTestDB(t)
	kv.Set("k", []byte("v"))

	if err := kv.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := kv.Get("k"); ok {
		t.Error("expected key to be gone")
	}
}

func TestKVKeysByPrefix(t *testing.T) {
	kv := setupKVTestDB(t)
	kv.Set("users/u1", []byte("1"))
	kv.Set("users/u1/pets/b", []byte("2"))
	kv.Set("users/u1/pets/a", []byte("3"))
	kv.Set("users/u2", []byte("4"))

	keys, err := kv.Keys("users/u1")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	want := []string{"users/u1", "users/u1/pets/a", "users/u1/pets/b"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestCachedKV(t *testing.T) {
	kv := setupKVTestDB(t)
	c, err := NewCachedKV(kv, 2)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	if err := c.Set("a", []byte("1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := kv.Get("a")
	if err != nil || !ok || string(got) != "1" {
		t.Fatalf("write did not reach backing store: %s %v %v", got, ok, err)
	}

	// Values survive eviction because the backing store has them.
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))
	got, ok, err = c.Get("a")
	if err != nil || !ok || string(got) != "1" {
		t.Errorf("get evicted = %s %v %v", got, ok, err)
	}

	// Callers mutating a returned slice must not corrupt the cache.
	got[0] = 'x'
	again, _, _ := c.Get("a")
	if string(again) != "1" {
		t.Errorf("cached value mutated: %s", again)
	}

	if err := c.Delete("a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get("a"); ok {
		t.Error("expected a to be deleted")
	}
}
