// Package mock provides a recording test double for [store.Store].
//
// The mock keeps data in memory like [store.Memory] but also records each
// call and can be told to fail:
//
//	s := mock.New()
//	s.GetErr = errors.New("db down")
//	// inject s into the system under test …
//	if got := s.CallCount("Get"); got != 1 { … }
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/stegovox/internal/store"
)

var _ store.Store = (*Store)(nil)

// Call records the name and non-context arguments of one invocation.
type Call struct {
	Method string
	Args   []any
}

// Store is a configurable [store.Store]. Non-nil *Err fields are returned
// instead of touching the data.
type Store struct {
	mu    sync.Mutex
	calls []Call
	data  *store.Memory

	PutErr, GetErr, DeleteErr error

	SetPasswordErr, PasswordErr, DeletePasswordErr error

	PurgeErr, PingErr error
}

// New returns an empty mock store.
func New(opts ...store.MemoryOption) *Store {
	return &Store{data: store.NewMemory(0, opts...)}
}

func (s *Store) record(method string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: method, Args: args})
}

// Calls returns a copy of all recorded invocations.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many times method was invoked.
func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears recorded calls.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Put implements [store.Cache].
func (s *Store) Put(ctx context.Context, key string, buf []byte) error {
	s.record("Put", key, len(buf))
	if s.PutErr != nil {
		return s.PutErr
	}
	return s.data.Put(ctx, key, buf)
}

// Get implements [store.Cache].
func (s *Store) Get(ctx context.Context, key string) (store.Entry, error) {
	s.record("Get", key)
	if s.GetErr != nil {
		return store.Entry{}, s.GetErr
	}
	return s.data.Get(ctx, key)
}

// Delete implements [store.Cache].
func (s *Store) Delete(ctx context.Context, key string) error {
	s.record("Delete", key)
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	return s.data.Delete(ctx, key)
}

// SetPassword implements [store.PasswordStore]. The password is not recorded.
func (s *Store) SetPassword(ctx context.Context, conversationID, password string) error {
	s.record("SetPassword", conversationID)
	if s.SetPasswordErr != nil {
		return s.SetPasswordErr
	}
	return s.data.SetPassword(ctx, conversationID, password)
}

// Password implements [store.PasswordStore].
func (s *Store) Password(ctx context.Context, conversationID string) (string, error) {
	s.record("Password", conversationID)
	if s.PasswordErr != nil {
		return "", s.PasswordErr
	}
	return s.data.Password(ctx, conversationID)
}

// DeletePassword implements [store.PasswordStore].
func (s *Store) DeletePassword(ctx context.Context, conversationID string) error {
	s.record("DeletePassword", conversationID)
	if s.DeletePasswordErr != nil {
		return s.DeletePasswordErr
	}
	return s.data.DeletePassword(ctx, conversationID)
}

// Purge implements [store.Store].
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	s.record("Purge", cutoff)
	if s.PurgeErr != nil {
		return 0, s.PurgeErr
	}
	return s.data.Purge(ctx, cutoff)
}

// Ping implements [store.Store].
func (s *Store) Ping(context.Context) error {
	s.record("Ping")
	return s.PingErr
}

// Close implements [store.Store].
func (s *Store) Close() { s.record("Close") }
