// Package store defines the persistence used around the stego codec: a
// key/value cache of encoded audio buffers and a per-conversation password
// store.
//
// Two backends exist: [Memory] in this package and a PostgreSQL store in
// package postgres. Both are safe for concurrent use.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key or conversation has no entry.
var ErrNotFound = errors.New("store: not found")

// Cache keys used by the service layer.
const (
	KeyLastEncoded = "last-encoded"
	docKeyPrefix   = "doc:"
)

// DocKey returns the cache key of the buffer linked to a host document.
func DocKey(docID string) string {
	return docKeyPrefix + docID
}

// Entry is a cached buffer and the time it was stored.
type Entry struct {
	Buffer   []byte
	StoredAt time.Time
}

// Cache stores encoded buffers by key. Put overwrites and resets StoredAt.
// Get returns [ErrNotFound] for missing keys. Delete of a missing key is not
// an error.
type Cache interface {
	Put(ctx context.Context, key string, buf []byte) error
	Get(ctx context.Context, key string) (Entry, error)
	Delete(ctx context.Context, key string) error
}

// PasswordStore remembers the password used in a conversation so later
// decodes can omit it. Password returns [ErrNotFound] when none is set.
type PasswordStore interface {
	SetPassword(ctx context.Context, conversationID, password string) error
	Password(ctx context.Context, conversationID string) (string, error)
	DeletePassword(ctx context.Context, conversationID string) error
}

// Store is a backend providing both [Cache] and [PasswordStore].
type Store interface {
	Cache
	PasswordStore

	// Purge deletes cache entries stored before cutoff and returns how many
	// were removed. Passwords are not affected.
	Purge(ctx context.Context, cutoff time.Time) (int, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close()
}
