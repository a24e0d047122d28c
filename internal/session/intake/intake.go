// Package intake accepts validated attribute bundles from the inbound
// triggers (HTTP webhook, event consumer), upserts the pending session, and
// hands the verification job to the dispatcher.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"veritok/internal/sentinel"
	"veritok/internal/session/models"
	"veritok/internal/verify/dispatch"
	dErrors "veritok/pkg/domain-errors"
)

// Store is the slice of the session store intake needs.
type Store interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
}

// Enqueuer hands a verification job to the worker pool.
type Enqueuer interface {
	Enqueue(job dispatch.Job) error
}

// Service implements bundle intake.
type Service struct {
	store  Store
	queue  Enqueuer
	logger *slog.Logger
	ttl    time.Duration
}

// New constructs the intake service. ttl is the session retention window.
func New(store Store, queue Enqueuer, logger *slog.Logger, ttl time.Duration) (*Service, error) {
	if store == nil || queue == nil {
		return nil, fmt.Errorf("store and queue are required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{store: store, queue: queue, logger: logger, ttl: ttl}, nil
}

// Accept validates the bundle's required fields, ensures a pending session
// exists for the correlation id (generating one when absent), and enqueues
// the verification job. It returns the effective session id.
//
// The response to the delivering caller is sent before verification runs;
// everything after the enqueue is fire-and-forget.
func (s *Service) Accept(ctx context.Context, sessionID string, values map[string]string) (string, error) {
	if values[models.KeyTokenID] == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "`vct` must be specified")
	}
	if values[models.KeyShareLedgerAddress] == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "`ShareLedger_Address` must be specified")
	}
	if values[models.KeyOwnerAddress] == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "`Matic_Address` must be specified")
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	if _, err := s.store.FindByID(ctx, sessionID); err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
		}
		session := models.NewSession(sessionID, values, s.ttl)
		if err := s.store.Save(ctx, session); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "session create failed")
		}
	}

	if err := s.queue.Enqueue(dispatch.Job{SessionID: sessionID, RawAttributes: values}); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "verification queue is full")
	}

	s.logger.InfoContext(ctx, "verification queued", "session_id", sessionID, "attributes", len(values))
	return sessionID, nil
}
