// Package session tracks authenticated connections to a server node. A
// session records which entity connected, from what device, and when it was
// last seen; bearer tokens reference sessions so revocation is a store
// delete, not a key rotation.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is one live connection context.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Entity    uuid.UUID `json:"entity"`
	Device    string    `json:"device"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists sessions. Implementations must treat a missing session as
// sentinel.ErrNotFound so callers can distinguish revoked from broken.
type Store interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, id uuid.UUID) (Session, error)
	// Touch advances LastSeen without rewriting the rest of the record.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByEntity returns the entity's live sessions, oldest first.
	ListByEntity(ctx context.Context, entity uuid.UUID) ([]Session, error)
}
