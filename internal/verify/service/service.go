// Package service drives the per-session attribute verification state machine.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"veritok/internal/sentinel"
	"veritok/internal/session/models"
	"veritok/internal/verify/attr"
	"veritok/internal/verify/attrhash"
	"veritok/internal/verify/merkle"
	"veritok/internal/verify/metrics"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Ledger is the slice of the ledger client the verifier needs.
type Ledger interface {
	ResolveOwner(ctx context.Context, tokenID string) (string, error)
	FetchMerkleRoot(ctx context.Context, tokenID string) (string, error)
	FetchTrustLevel(ctx context.Context, tokenID, attrNameHash string) (uint8, error)
	VerifyProofOnChain(ctx context.Context, tokenID, attrValueHash string, proof []string) (bool, error)
}

// SessionStore is the slice of the session store the verifier needs.
type SessionStore interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ClaimForVerification(ctx context.Context, id string) (*models.Session, error)
	Complete(ctx context.Context, id string, result *models.VerificationResult) error
}

// Service verifies a session's disclosed attributes against the ledger.
type Service struct {
	store   SessionStore
	ledger  Ledger
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics attaches verification metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs the verification service.
func New(store SessionStore, ledger Ledger, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil || ledger == nil {
		return nil, fmt.Errorf("store and ledger are required")
	}
	svc := &Service{
		store:  store,
		ledger: ledger,
		logger: logger,
		tracer: otel.Tracer("veritok/verify"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// StartVerification runs the full verification for one session. It is
// fire-and-forget by contract: the webhook response has long been sent when
// this runs, so no error ever propagates to a caller. All failures are
// observable only through the session's terminal state and logs.
//
// A missing session is a silent no-op: the trigger lost a race or carries a
// stale id.
func (s *Service) StartVerification(ctx context.Context, sessionID string, rawAttributes map[string]string) {
	ctx, span := s.tracer.Start(ctx, "verify.StartVerification",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	session, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.DebugContext(ctx, "session gone before verification, skipping", "session_id", sessionID)
			return
		}
		s.logger.ErrorContext(ctx, "session lookup failed", "session_id", sessionID, "error", err)
		return
	}

	// Atomic pending -> verifying claim. Losing the claim is fine when the
	// session already advanced: a re-delivery after a crash must be able to
	// make progress, and re-running a completed session just overwrites its
	// result with the same inputs.
	if _, err := s.store.ClaimForVerification(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrInvalidState) {
		s.logger.ErrorContext(ctx, "session claim failed", "session_id", sessionID, "error", err)
		return
	}

	if s.metrics != nil {
		s.metrics.VerificationsStarted.Inc()
	}
	start := time.Now()

	result := models.NewVerificationResult()
	runErr := s.run(ctx, session, rawAttributes, result)

	outcome := "success"
	switch {
	case runErr != nil && result.OwnerAddress == "" && len(result.Attributes) == 0:
		// nothing was built; completed-without-result is the failure signal
		result = nil
		outcome = "failed"
	case runErr != nil:
		outcome = "partial"
	}
	if runErr != nil {
		s.logger.ErrorContext(ctx, "verification aborted", "session_id", sessionID, "error", runErr)
	}

	if err := s.store.Complete(ctx, sessionID, result); err != nil {
		s.logger.ErrorContext(ctx, "failed to complete session", "session_id", sessionID, "error", err)
		outcome = "failed"
	}

	if s.metrics != nil {
		s.metrics.VerificationsFinished.WithLabelValues(outcome).Inc()
		s.metrics.VerificationDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.InfoContext(ctx, "verification finished", "session_id", sessionID, "outcome", outcome)
}

// run executes steps 2-8 of the verification algorithm, accumulating into
// result as it goes so an abort still leaves partial findings behind.
func (s *Service) run(ctx context.Context, session *models.Session, raw map[string]string, result *models.VerificationResult) error {
	tokenID := raw[models.KeyTokenID]
	if tokenID == "" {
		return fmt.Errorf("bundle is missing the credential token id: %w", sentinel.ErrInvalidInput)
	}
	claimedOwner := raw[models.KeyOwnerAddress]

	owner, err := s.ledger.ResolveOwner(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}
	result.OwnerAddress = owner
	// ledger addresses are not case-sensitive
	result.OwnerMatched = strings.EqualFold(claimedOwner, owner)
	if s.metrics != nil {
		s.metrics.ObserveOwnerMatch(result.OwnerMatched)
	}

	// One root snapshot per session: every attribute is checked against the
	// same consistently-fetched root.
	rootHex, err := s.ledger.FetchMerkleRoot(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("fetch merkle root: %w", err)
	}
	root, err := hex.DecodeString(strings.TrimPrefix(rootHex, "0x"))
	if err != nil {
		return fmt.Errorf("decode merkle root %q: %w", rootHex, err)
	}

	for _, key := range disclosureKeys(raw) {
		name, err := attr.CanonicalName(key)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unrecognized attribute key",
				"session_id", session.ID, "key", key, "error", err)
			continue
		}

		disclosure, err := attr.ParseDisclosure(raw[key])
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}

		attrResult := &models.AttributeVerificationResult{}
		result.Attributes[name] = attrResult

		nameHash := attrhash.NameHash(name, disclosure.Value)
		valueHash := attrhash.ValueHash(name, disclosure.Value)

		// cheap consistency guard before the costlier ledger calls
		attrResult.AttributeHashMatched = disclosure.ClaimedValueHash == valueHash
		attrResult.MerkleOffchainMatched = s.verifyOffchain(ctx, session.ID, name, valueHash, disclosure.Proof, root)
		if s.metrics != nil {
			s.metrics.ObserveCheck("attribute_hash", attrResult.AttributeHashMatched)
			s.metrics.ObserveCheck("merkle_offchain", attrResult.MerkleOffchainMatched)
		}

		// The trust-level read and the on-chain proof check are independent
		// reads over the same inputs; issue them concurrently and join. This
		// bounds outstanding ledger calls to two per session no matter how
		// many attributes were disclosed.
		var (
			level    uint8
			verified bool
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			level, err = s.ledger.FetchTrustLevel(gctx, tokenID, nameHash)
			if err != nil {
				return fmt.Errorf("fetch trust level: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			verified, err = s.ledger.VerifyProofOnChain(gctx, tokenID, valueHash, disclosure.Proof)
			if err != nil {
				return fmt.Errorf("verify proof on chain: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}

		attrResult.VerificationLevel = models.VerificationLevel(level)
		attrResult.MerkleOnchainMatched = verified
		if s.metrics != nil {
			s.metrics.ObserveCheck("merkle_onchain", verified)
			s.metrics.TrustLevels.WithLabelValues(attrResult.VerificationLevel.String()).Inc()
		}
	}

	return nil
}

func (s *Service) verifyOffchain(ctx context.Context, sessionID, name, valueHash string, proofHex []string, root []byte) bool {
	leaf, err := hex.DecodeString(valueHash)
	if err != nil {
		// valueHash is produced by our own hasher; this cannot normally happen
		s.logger.ErrorContext(ctx, "invalid value hash", "session_id", sessionID, "attribute", name, "error", err)
		return false
	}
	proof := make([][]byte, 0, len(proofHex))
	for _, p := range proofHex {
		sibling, err := hex.DecodeString(strings.TrimPrefix(p, "0x"))
		if err != nil {
			s.logger.WarnContext(ctx, "malformed proof element",
				"session_id", sessionID, "attribute", name, "error", err)
			return false
		}
		proof = append(proof, sibling)
	}
	// sortPairs must stay true to match the pairing rule of the contract
	return merkle.Verify(leaf, proof, root, true)
}

// disclosureKeys returns the non-reserved bundle keys in deterministic order
// so partial results accumulate the same way across runs.
func disclosureKeys(raw map[string]string) []string {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		if models.IsReservedBundleKey(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
