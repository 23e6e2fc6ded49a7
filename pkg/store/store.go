// Package store provides storage for the social graph's users and connections.
package store

import (
	"context"
	"errors"
	"time"
)

// User is a member of the social graph.
type User struct {
	InternalID  int64     // Engine-assigned key, unique, never reused
	ExternalID  string    // Caller-supplied stable identifier, unique
	DisplayName string    // Mutable display metadata
	CreatedAt   time.Time // Timestamp of creation
}

// Connection is one undirected friendship edge. It is always stored in
// canonical order: LowID < HighID.
type Connection struct {
	LowID     int64
	HighID    int64
	CreatedAt time.Time
}

// CanonicalPair normalizes an unordered id pair to (min, max) so that an
// undirected edge has exactly one stored representation.
func CanonicalPair(a, b int64) (low, high int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// UserDirectory maps external identifiers to internal identities.
// It is the sole authority for that mapping.
type UserDirectory interface {
	// CreateUser registers a new user and assigns its internal id.
	// Returns ErrUserExists if the external id is already taken.
	CreateUser(ctx context.Context, externalID, displayName string) (*User, error)

	// LookupUser resolves an external id.
	// Returns ErrUserNotFound if no such user exists.
	LookupUser(ctx context.Context, externalID string) (*User, error)

	// LookupUsers resolves a batch of internal ids to users.
	// Unknown ids are silently skipped.
	LookupUsers(ctx context.Context, internalIDs []int64) ([]*User, error)

	// UserCount returns the total number of users.
	UserCount(ctx context.Context) (int64, error)
}

// ConnectionStore owns the undirected edge set.
type ConnectionStore interface {
	// Connect adds the edge between two internal ids, canonicalizing order.
	// Returns ErrSelfConnection if a == b and ErrConnectionExists if the
	// canonical pair is already stored.
	Connect(ctx context.Context, a, b int64) (*Connection, error)

	// Disconnect removes the edge between two internal ids.
	// Returns ErrConnectionNotFound if the canonical pair is not stored.
	Disconnect(ctx context.Context, a, b int64) error

	// Neighbors returns all ids adjacent to id. The id may sit in either
	// slot of a stored connection, so both are searched.
	Neighbors(ctx context.Context, id int64) ([]int64, error)

	// AllConnections returns the full edge set for traversal queries.
	AllConnections(ctx context.Context) ([]Connection, error)

	// ConnectionCount returns the total number of edges.
	ConnectionCount(ctx context.Context) (int64, error)
}

// ErrUserNotFound indicates that no user exists for the given external id.
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists indicates that the external id is already registered.
var ErrUserExists = errors.New("user already exists")

// ErrSelfConnection indicates an attempt to connect a user to itself.
var ErrSelfConnection = errors.New("cannot connect user to itself")

// ErrConnectionExists indicates that the canonical pair is already stored.
var ErrConnectionExists = errors.New("connection already exists")

// ErrConnectionNotFound indicates that no edge exists for the given pair.
var ErrConnectionNotFound = errors.New("connection not found")
