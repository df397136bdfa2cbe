package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStore keeps documents in the documents table created by the
// database package migrations.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Document, error) {
	var body string
	var version int64
	err := s.db.QueryRowContext(ctx, `SELECT body, version FROM documents WHERE key = ?`, key).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc, err := UnmarshalDocument(key, []byte(body))
	if err != nil {
		return nil, err
	}
	doc.Version = version
	return doc, nil
}

func (s *SQLiteStore) SetMerge(ctx context.Context, key string, patch *Patch) error {
	return s.RunTransaction(ctx, key, patch.ApplyTo)
}

func (s *SQLiteStore) RunTransaction(ctx context.Context, key string, fn func(doc *Document) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	doc := NewDocument(key)
	var body string
	var version int64
	err = tx.QueryRowContext(ctx, `SELECT body, version FROM documents WHERE key = ?`, key).Scan(&body, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("load document: %w", err)
	default:
		if doc, err = UnmarshalDocument(key, []byte(body)); err != nil {
			return err
		}
		doc.Version = version
	}

	if err := fn(doc); err != nil {
		return err
	}

	doc.Version++
	out, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (key, body, version, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, version = excluded.version, updated_at = excluded.updated_at`,
		key, string(out), doc.Version, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
