package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"veritok/internal/session/models"
	"veritok/internal/sentinel"
)

// InMemoryStore stores sessions in memory for tests/dev.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewMemory constructs an empty in-memory session store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*models.Session)}
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[id]; ok {
		cp := *session
		return &cp, nil
	}
	return nil, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
}

func (s *InMemoryStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[session.ID]; ok {
		if !existing.Status.CanAdvanceTo(session.Status) {
			return fmt.Errorf("session %s: status %s cannot regress to %s: %w",
				session.ID, existing.Status, session.Status, sentinel.ErrInvalidState)
		}
	}
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *InMemoryStore) ClaimForVerification(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	if session.Status != models.StatusPending {
		return nil, fmt.Errorf("session %s is %s, not pending: %w", id, session.Status, sentinel.ErrInvalidState)
	}
	session.Status = models.StatusVerifying
	cp := *session
	return &cp, nil
}

func (s *InMemoryStore) Complete(_ context.Context, id string, result *models.VerificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	session.Status = models.StatusCompleted
	session.VerificationResult = result
	return nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}
