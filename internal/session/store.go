// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"errors"
)

// Store errors recognized with errors.Is across all backends.
var (
	// ErrNotFound is returned when no session exists for the given ID.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidTransition is returned when a status update would violate
	// the monotonic progression of session states.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store persists interview sessions. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put inserts or replaces the session record.
	Put(ctx context.Context, s *Session) error

	// Get returns the session with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Update loads the session, applies fn, and persists the result
	// atomically with respect to other Update calls on the same ID.
	// If fn returns an error nothing is written and the error is returned.
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)

	// List returns all sessions, newest first.
	List(ctx context.Context) ([]*Session, error)

	// Delete removes the session. Deleting a missing session returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}
