package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/stegovox/internal/store"
	"github.com/MrWong99/stegovox/internal/store/postgres"
)

// testDSN skips the test unless STEGOVOX_TEST_POSTGRES_DSN is set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("STEGOVOX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STEGOVOX_TEST_POSTGRES_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore returns a store over freshly created tables.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS buffer_cache",
		"DROP TABLE IF EXISTS conversation_passwords",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	pool.Close()

	s, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestStore_Cache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, store.KeyLastEncoded); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get missing: got %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, store.KeyLastEncoded, []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, store.KeyLastEncoded, []byte("second")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	e, err := s.Get(ctx, store.KeyLastEncoded)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(e.Buffer) != "second" {
		t.Errorf("buffer = %q, want second", e.Buffer)
	}
	if time.Since(e.StoredAt) > time.Minute {
		t.Errorf("StoredAt = %v, want recent", e.StoredAt)
	}

	if err := s.Put(ctx, store.DocKey("empty"), nil); err != nil {
		t.Fatalf("Put nil: %v", err)
	}
	if e, err := s.Get(ctx, store.DocKey("empty")); err != nil || len(e.Buffer) != 0 {
		t.Errorf("Get empty = %v, %v", e.Buffer, err)
	}

	if err := s.Delete(ctx, store.KeyLastEncoded); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, store.KeyLastEncoded); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete: got %v", err)
	}
}

func TestStore_Purge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.Put(ctx, "a", []byte("a"))
	_ = s.Put(ctx, "b", []byte("b"))

	n, err := s.Purge(ctx, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("Purge past cutoff = %d, %v; want 0", n, err)
	}
	n, err = s.Purge(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 2 {
		t.Fatalf("Purge future cutoff = %d, %v; want 2", n, err)
	}
}

func TestStore_Passwords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Password(ctx, "chan"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Password unset: got %v", err)
	}
	_ = s.SetPassword(ctx, "chan", "one")
	_ = s.SetPassword(ctx, "chan", "two")
	if p, err := s.Password(ctx, "chan"); err != nil || p != "two" {
		t.Errorf("Password = %q, %v; want two", p, err)
	}
	if err := s.DeletePassword(ctx, "chan"); err != nil {
		t.Fatalf("DeletePassword: %v", err)
	}
	if _, err := s.Password(ctx, "chan"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Password after delete: got %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
