package snapshot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/petpals/internal/clock"
	"github.com/dukerupert/petpals/internal/database"
	"github.com/dukerupert/petpals/internal/docstore"
	"github.com/dukerupert/petpals/internal/store"
	"github.com/dukerupert/petpals/internal/syncer"
)

var now = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func setupKV(t *testing.T) *store.KVStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewKVStore(db)
}

// seed writes u1's documents through a sync layer whose remote is down, so
// the queue of the user document is populated too.
func seed(t *testing.T, kv store.KV) {
	t.Helper()
	remote := docstore.NewFaultyStore(docstore.NewMemoryStore())
	remote.SetFailing(true)
	layer := syncer.New(kv, remote, clock.NewManual(now), slog.Default(), time.Second)
	ctx := context.Background()

	layer.Write(ctx, "users/u1", docstore.NewPatch().SetField("userId", "u1").Increment("spendableBalance", 40))
	layer.Write(ctx, "users/u1/pets/p1", docstore.NewPatch().SetField("displayName", "Mochi"))
	layer.Write(ctx, "users/u10", docstore.NewPatch().SetField("userId", "u10"))
	layer.Wait()
}

func TestExportCollectsUserDocuments(t *testing.T) {
	kv := setupKV(t)
	seed(t, kv)

	b, err := Export(kv, "users/u1", now)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var docs, pending int
	for _, e := range b.Entries {
		if e.Key == "users/u10" {
			t.Errorf("export leaked another user's document")
		}
		switch e.Kind {
		case KindDocument:
			docs++
		case KindPending:
			pending++
		}
	}
	if docs != 2 || pending != 2 {
		t.Errorf("docs = %d, pending = %d; want 2, 2", docs, pending)
	}
}

func TestSealedRoundTrip(t *testing.T) {
	src := setupKV(t)
	seed(t, src)
	b, err := Export(src, "users/u1", now)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, b, "correct horse"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("Mochi")) {
		t.Fatal("export is not encrypted")
	}

	got, err := Read(bytes.NewReader(buf.Bytes()), "correct horse")
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	dst := setupKV(t)
	res, err := Import(dst, got)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Restored != len(b.Entries) || res.Skipped != 0 {
		t.Errorf("result = %+v, want %d restored", res, len(b.Entries))
	}

	body, ok, err := dst.Get("users/u1/pets/p1")
	if err != nil || !ok {
		t.Fatalf("restored pet missing: ok=%v err=%v", ok, err)
	}
	doc, err := docstore.UnmarshalDocument("users/u1/pets/p1", body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(doc.Fields["displayName"], []byte(`"Mochi"`)) {
		t.Errorf("displayName = %s", doc.Fields["displayName"])
	}
	if _, ok, _ := dst.Get(syncer.PendingKey("users/u1")); !ok {
		t.Error("write queue was not restored")
	}
}

func TestReadRejectsWrongPassphrase(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, &Bundle{Format: formatVersion, Root: "users/u1"}, "right"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(bytes.NewReader(buf.Bytes()), "wrong"); !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("err = %v, want ErrBadPassphrase", err)
	}
}

func TestReadRejectsForeignData(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("SQLite format 3\x00 and more bytes here")), "x"); !errors.Is(err, ErrNotSnapshot) {
		t.Errorf("err = %v, want ErrNotSnapshot", err)
	}
}

func TestImportKeepsNewerLocalCopy(t *testing.T) {
	kv := setupKV(t)
	seed(t, kv)
	b, err := Export(kv, "users/u1", now)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	res, err := Import(kv, b)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Restored != 0 || res.Skipped != len(b.Entries) {
		t.Errorf("result = %+v, want everything skipped", res)
	}
}

func TestImportRejectsEntriesOutsideRoot(t *testing.T) {
	kv := setupKV(t)
	b := &Bundle{
		Format: formatVersion,
		Root:   "users/u1",
		Entries: []Entry{
			{Key: "users/u2", Kind: KindDocument, Body: []byte(`{"version":1}`)},
		},
	}
	if _, err := Import(kv, b); err == nil {
		t.Error("expected error for entry outside root")
	}
	if _, ok, _ := kv.Get("users/u2"); ok {
		t.Error("foreign entry was written")
	}
}
