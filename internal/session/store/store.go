// Package store persists verification sessions. Three implementations share
// one contract: in-memory for tests/dev, Redis and PostgreSQL for production.
package store

import (
	"context"
	"time"

	"veritok/internal/session/models"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested session does not exist
// - Return sentinel.ErrInvalidState (wrapped) when a transition would regress the lifecycle
// - Return wrapped errors with context for infrastructure failures

// Store is the session persistence contract used by the webhook handler and
// the verification service. Save has insert-or-update semantics; consistency
// for a single record is assumed strong.
type Store interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error

	// ClaimForVerification performs the atomic pending -> verifying
	// conditional update. It returns the claimed session, or
	// sentinel.ErrInvalidState when the session is no longer pending
	// (a concurrent delivery already claimed it, or it completed).
	ClaimForVerification(ctx context.Context, id string) (*models.Session, error)

	// Complete attaches the result (which may be nil on failure) and marks
	// the session completed. The result is attached atomically with the
	// status change; a completed session's result is overwritten, never
	// accumulated.
	Complete(ctx context.Context, id string, result *models.VerificationResult) error

	// DeleteExpired removes sessions past their retention window as of now.
	// Stores with native TTL support (Redis) implement this as a no-op.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
