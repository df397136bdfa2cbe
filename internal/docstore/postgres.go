package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	version    BIGINT NOT NULL DEFAULT 0,
	updated_at BIGINT NOT NULL DEFAULT 0
)`

// PostgresStore keeps documents as JSONB rows. Transactions lock the row with
// SELECT ... FOR UPDATE.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Document, error) {
	var body []byte
	var version int64
	err := s.pool.QueryRow(ctx, `SELECT body, version FROM documents WHERE key = $1 AND version > 0`, key).Scan(&body, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc, err := UnmarshalDocument(key, body)
	if err != nil {
		return nil, err
	}
	doc.Version = version
	return doc, nil
}

func (s *PostgresStore) SetMerge(ctx context.Context, key string, patch *Patch) error {
	return s.RunTransaction(ctx, key, patch.ApplyTo)
}

func (s *PostgresStore) RunTransaction(ctx context.Context, key string, fn func(doc *Document) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Make sure a row exists so FOR UPDATE has something to lock when two
	// writers create the same document.
	_, err = tx.Exec(ctx,
		`INSERT INTO documents (key, body, version, updated_at) VALUES ($1, '{}'::jsonb, 0, 0) ON CONFLICT (key) DO NOTHING`,
		key,
	)
	if err != nil {
		return fmt.Errorf("reserve document: %w", err)
	}

	var body []byte
	var version int64
	err = tx.QueryRow(ctx, `SELECT body, version FROM documents WHERE key = $1 FOR UPDATE`, key).Scan(&body, &version)
	if err != nil {
		return fmt.Errorf("lock document: %w", err)
	}
	doc, err := UnmarshalDocument(key, body)
	if err != nil {
		return err
	}
	doc.Version = version

	if err := fn(doc); err != nil {
		return err
	}

	doc.Version++
	out, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE documents SET body = $2, version = $3, updated_at = $4 WHERE key = $1`,
		key, out, doc.Version, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
