// Package postgres provides a PostgreSQL-backed [store.Store].
//
// Buffers live in buffer_cache and conversation passwords in
// conversation_passwords; [Migrate] creates both.
//
//	s, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer s.Close()
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/stegovox/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is a [store.Store] over a single [pgxpool.Pool]. All methods are safe
// for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, pings the server and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Put implements [store.Cache].
func (s *Store) Put(ctx context.Context, key string, buf []byte) error {
	const q = `
		INSERT INTO buffer_cache (key, buffer, stored_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		    SET buffer = EXCLUDED.buffer, stored_at = EXCLUDED.stored_at`

	if buf == nil {
		buf = []byte{}
	}
	if _, err := s.pool.Exec(ctx, q, key, buf); err != nil {
		return fmt.Errorf("postgres store: put %q: %w", key, err)
	}
	return nil
}

// Get implements [store.Cache].
func (s *Store) Get(ctx context.Context, key string) (store.Entry, error) {
	const q = `SELECT buffer, stored_at FROM buffer_cache WHERE key = $1`

	var e store.Entry
	err := s.pool.QueryRow(ctx, q, key).Scan(&e.Buffer, &e.StoredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Entry{}, store.ErrNotFound
	}
	if err != nil {
		return store.Entry{}, fmt.Errorf("postgres store: get %q: %w", key, err)
	}
	return e, nil
}

// Delete implements [store.Cache].
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM buffer_cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres store: delete %q: %w", key, err)
	}
	return nil
}

// Purge implements [store.Store].
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM buffer_cache WHERE stored_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres store: purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SetPassword implements [store.PasswordStore].
func (s *Store) SetPassword(ctx context.Context, conversationID, password string) error {
	const q = `
		INSERT INTO conversation_passwords (conversation_id, password, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (conversation_id) DO UPDATE
		    SET password = EXCLUDED.password, updated_at = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, q, conversationID, password); err != nil {
		return fmt.Errorf("postgres store: set password: %w", err)
	}
	return nil
}

// Password implements [store.PasswordStore].
func (s *Store) Password(ctx context.Context, conversationID string) (string, error) {
	const q = `SELECT password FROM conversation_passwords WHERE conversation_id = $1`

	var p string
	err := s.pool.QueryRow(ctx, q, conversationID).Scan(&p)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres store: get password: %w", err)
	}
	return p, nil
}

// DeletePassword implements [store.PasswordStore].
func (s *Store) DeletePassword(ctx context.Context, conversationID string) error {
	const q = `DELETE FROM conversation_passwords WHERE conversation_id = $1`
	if _, err := s.pool.Exec(ctx, q, conversationID); err != nil {
		return fmt.Errorf("postgres store: delete password: %w", err)
	}
	return nil
}

// Ping implements [store.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}
