package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritok/internal/sentinel"
	"veritok/internal/session/models"
	"veritok/internal/session/store"
	"veritok/internal/verify/dispatch"
	dErrors "veritok/pkg/domain-errors"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []dispatch.Job
	err  error
}

func (q *fakeQueue) Enqueue(job dispatch.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func validBundle() map[string]string {
	return map[string]string{
		models.KeyTokenID:            "cred-1",
		models.KeyOwnerAddress:       "0xabcd",
		models.KeyShareLedgerAddress: "0.0.1234",
		"name.2":                     `["Jane", "hash", []]`,
	}
}

func newTestService(t *testing.T, sessions Store, queue Enqueuer) *Service {
	t.Helper()
	svc, err := New(sessions, queue, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	require.NoError(t, err)
	return svc
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, &fakeQueue{}, slog.Default(), time.Hour)
	require.Error(t, err)

	_, err = New(store.NewMemory(), nil, slog.Default(), time.Hour)
	require.Error(t, err)
}

func TestAccept_CreatesSessionAndEnqueues(t *testing.T) {
	sessions := store.NewMemory()
	queue := &fakeQueue{}
	svc := newTestService(t, sessions, queue)

	id, err := svc.Accept(context.Background(), "sess-1", validBundle())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)

	created, err := sessions.FindByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, "cred-1", created.RawAttributes[models.KeyTokenID])

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "sess-1", queue.jobs[0].SessionID)
}

func TestAccept_GeneratesSessionID(t *testing.T) {
	svc := newTestService(t, store.NewMemory(), &fakeQueue{})

	id, err := svc.Accept(context.Background(), "", validBundle())
	require.NoError(t, err)
	_, parseErr := uuid.Parse(id)
	assert.NoError(t, parseErr)
}

func TestAccept_ReusesExistingSession(t *testing.T) {
	sessions := store.NewMemory()
	existing := models.NewSession("sess-1", validBundle(), time.Hour)
	existing.Status = models.StatusCompleted
	require.NoError(t, sessions.Save(context.Background(), existing))

	queue := &fakeQueue{}
	svc := newTestService(t, sessions, queue)

	// re-delivery for a completed session re-queues without touching the record
	id, err := svc.Accept(context.Background(), "sess-1", validBundle())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)

	found, err := sessions.FindByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, found.Status)
	assert.Len(t, queue.jobs, 1)
}

func TestAccept_RequiredBundleKeys(t *testing.T) {
	tests := []struct {
		name    string
		missing string
		message string
	}{
		{name: "token id", missing: models.KeyTokenID, message: "`vct` must be specified"},
		{name: "share ledger address", missing: models.KeyShareLedgerAddress, message: "`ShareLedger_Address` must be specified"},
		{name: "owner address", missing: models.KeyOwnerAddress, message: "`Matic_Address` must be specified"},
	}

	svc := newTestService(t, store.NewMemory(), &fakeQueue{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := validBundle()
			delete(bundle, tt.missing)

			_, err := svc.Accept(context.Background(), "sess-1", bundle)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestAccept_QueueFull(t *testing.T) {
	queue := &fakeQueue{err: fmt.Errorf("queue full: %w", sentinel.ErrUnavailable)}
	svc := newTestService(t, store.NewMemory(), queue)

	_, err := svc.Accept(context.Background(), "sess-1", validBundle())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestAccept_StoreFailure(t *testing.T) {
	svc := newTestService(t, failingStore{}, &fakeQueue{})

	_, err := svc.Accept(context.Background(), "sess-1", validBundle())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

type failingStore struct{}

func (failingStore) FindByID(context.Context, string) (*models.Session, error) {
	return nil, errors.New("store down")
}

func (failingStore) Save(context.Context, *models.Session) error {
	return errors.New("store down")
}
