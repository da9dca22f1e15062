package store

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/stegovox/internal/resilience"
)

// Guarded wraps a Store so that calls fail fast with [resilience.ErrOpen]
// while the backend keeps failing. Ping bypasses the breaker so readiness
// reports the backend's real state.
type Guarded struct {
	inner   Store
	breaker *resilience.Breaker
}

var _ Store = (*Guarded)(nil)

// NewGuarded wraps s with a breaker built from cfg. Missing keys and
// cancelled contexts do not count as backend failures.
func NewGuarded(s Store, cfg resilience.Config) *Guarded {
	cfg.IsFailure = IsBackendFailure
	return &Guarded{inner: s, breaker: resilience.New(cfg)}
}

// IsBackendFailure reports whether err indicates a broken backend rather
// than a missing entry or an abandoned request.
func IsBackendFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Breaker returns the breaker guarding the store.
func (g *Guarded) Breaker() *resilience.Breaker { return g.breaker }

func (g *Guarded) Put(ctx context.Context, key string, buf []byte) error {
	return g.breaker.Do(func() error { return g.inner.Put(ctx, key, buf) })
}

func (g *Guarded) Get(ctx context.Context, key string) (Entry, error) {
	var e Entry
	err := g.breaker.Do(func() error {
		var err error
		e, err = g.inner.Get(ctx, key)
		return err
	})
	return e, err
}

func (g *Guarded) Delete(ctx context.Context, key string) error {
	return g.breaker.Do(func() error { return g.inner.Delete(ctx, key) })
}

func (g *Guarded) SetPassword(ctx context.Context, conversationID, password string) error {
	return g.breaker.Do(func() error { return g.inner.SetPassword(ctx, conversationID, password) })
}

func (g *Guarded) Password(ctx context.Context, conversationID string) (string, error) {
	var pw string
	err := g.breaker.Do(func() error {
		var err error
		pw, err = g.inner.Password(ctx, conversationID)
		return err
	})
	return pw, err
}

func (g *Guarded) DeletePassword(ctx context.Context, conversationID string) error {
	return g.breaker.Do(func() error { return g.inner.DeletePassword(ctx, conversationID) })
}

func (g *Guarded) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := g.breaker.Do(func() error {
		var err error
		n, err = g.inner.Purge(ctx, cutoff)
		return err
	})
	return n, err
}

func (g *Guarded) Ping(ctx context.Context) error { return g.inner.Ping(ctx) }

func (g *Guarded) Close() { g.inner.Close() }
