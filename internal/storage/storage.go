// Package storage owns the durable mapping from user ID to profile record.
package storage

import (
	"context"
	"errors"

	"github.com/dnxsqw/physiq-bot/internal/profile"
)

// ErrClosed is returned when an operation hits a store that was shut down.
var ErrClosed = errors.New("storage: store closed")

// Store is the profile registry contract. Upsert and Delete persist
// synchronously; a returned error means the mutation may not be durable.
type Store interface {
	// Load reads persisted records into memory. A missing snapshot is
	// not an error and initializes an empty store.
	Load(ctx context.Context) error
	// Get returns the record for the user, reporting presence explicitly.
	Get(ctx context.Context, userID string) (profile.Profile, bool, error)
	// Upsert replaces any existing record for the user wholesale.
	Upsert(ctx context.Context, p profile.Profile) error
	// Delete removes a record if present; absent is a no-op.
	Delete(ctx context.Context, userID string) error
	// All returns every record, order unspecified.
	All(ctx context.Context) ([]profile.Profile, error)
	Close() error
}
