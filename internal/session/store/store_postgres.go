package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"veritok/internal/session/models"
	"veritok/internal/sentinel"
)

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, status, raw_attributes, verification_result, created_at, expires_at
		FROM sessions
		WHERE id = $1
	`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) Save(ctx context.Context, session *models.Session) error {
	raw, result, err := encodeSessionBlobs(session)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO sessions (id, status, raw_attributes, verification_result, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    raw_attributes = EXCLUDED.raw_attributes,
		    verification_result = EXCLUDED.verification_result
	`
	if _, err := s.db.ExecContext(ctx, query,
		session.ID,
		string(session.Status),
		raw,
		result,
		session.CreatedAt,
		session.ExpiresAt,
	); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ClaimForVerification relies on a conditional UPDATE so exactly one caller
// wins the pending -> verifying transition.
func (s *PostgresStore) ClaimForVerification(ctx context.Context, id string) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING id, status, raw_attributes, verification_result, created_at, expires_at
	`
	session, err := scanSession(s.db.QueryRowContext(ctx, query,
		string(models.StatusVerifying), id, string(models.StatusPending)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// missing or already claimed; disambiguate for the caller
			if _, findErr := s.FindByID(ctx, id); findErr != nil {
				return nil, findErr
			}
			return nil, fmt.Errorf("session %s is not pending: %w", id, sentinel.ErrInvalidState)
		}
		return nil, fmt.Errorf("claim session: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) Complete(ctx context.Context, id string, result *models.VerificationResult) error {
	var blob any
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode verification result: %w", err)
		}
		blob = data
	}
	query := `
		UPDATE sessions
		SET status = $1, verification_result = $2
		WHERE id = $3
	`
	res, err := s.db.ExecContext(ctx, query, string(models.StatusCompleted), blob, id)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(affected), nil
}

func encodeSessionBlobs(session *models.Session) (raw any, result any, err error) {
	if session.RawAttributes != nil {
		data, err := json.Marshal(session.RawAttributes)
		if err != nil {
			return nil, nil, fmt.Errorf("encode raw attributes: %w", err)
		}
		raw = data
	}
	if session.VerificationResult != nil {
		data, err := json.Marshal(session.VerificationResult)
		if err != nil {
			return nil, nil, fmt.Errorf("encode verification result: %w", err)
		}
		result = data
	}
	return raw, result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session    models.Session
		status     string
		rawBlob    []byte
		resultBlob []byte
	)
	if err := row.Scan(&session.ID, &status, &rawBlob, &resultBlob, &session.CreatedAt, &session.ExpiresAt); err != nil {
		return nil, err
	}
	session.Status = models.SessionStatus(status)
	if len(rawBlob) > 0 {
		if err := json.Unmarshal(rawBlob, &session.RawAttributes); err != nil {
			return nil, fmt.Errorf("decode raw attributes: %w", err)
		}
	}
	if len(resultBlob) > 0 {
		if err := json.Unmarshal(resultBlob, &session.VerificationResult); err != nil {
			return nil, fmt.Errorf("decode verification result: %w", err)
		}
	}
	return &session, nil
}
