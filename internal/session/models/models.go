// Package models defines the verification session record and its result types.
package models

import (
	"time"
)

// SessionStatus is the lifecycle state of a verification session.
// Status only advances forward (pending -> verifying -> completed) and
// never regresses; completed is terminal.
type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusVerifying SessionStatus = "verifying"
	StatusCompleted SessionStatus = "completed"
)

var statusRank = map[SessionStatus]int{
	StatusPending:   0,
	StatusVerifying: 1,
	StatusCompleted: 2,
}

// CanAdvanceTo reports whether moving from s to next respects the
// forward-only lifecycle. A no-op transition (same status) is allowed.
func (s SessionStatus) CanAdvanceTo(next SessionStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// VerificationLevel is the trust tier the ledger contract assigns to an attribute.
type VerificationLevel uint8

const (
	LevelUndefined VerificationLevel = iota
	LevelRevoked
	LevelChecked
	LevelVerified
)

// String returns the lowercase name of the level for logs and JSON consumers.
func (l VerificationLevel) String() string {
	switch l {
	case LevelRevoked:
		return "revoked"
	case LevelChecked:
		return "checked"
	case LevelVerified:
		return "verified"
	default:
		return "undefined"
	}
}

// AttributeVerificationResult holds the four per-attribute check outcomes.
// Mismatches are legitimate negative results, not errors.
type AttributeVerificationResult struct {
	VerificationLevel     VerificationLevel `json:"verificationLevel"`
	AttributeHashMatched  bool              `json:"attributeHashMatched"`
	MerkleOffchainMatched bool              `json:"merkleOffchainMatched"`
	MerkleOnchainMatched  bool              `json:"merkleOnchainMatched"`
}

// VerificationResult is produced exactly once per session and attached
// atomically when verification finishes.
type VerificationResult struct {
	OwnerAddress string                                  `json:"ownerAddress"`
	OwnerMatched bool                                    `json:"ownerMatched"`
	Attributes   map[string]*AttributeVerificationResult `json:"attributes"`
}

// NewVerificationResult returns an empty result ready to accumulate attributes.
func NewVerificationResult() *VerificationResult {
	return &VerificationResult{
		Attributes: make(map[string]*AttributeVerificationResult),
	}
}

// Session tracks one verification request from webhook delivery to terminal
// completion. RawAttributes is the original bundle snapshot; it is interpreted
// and discarded by the verification service, never re-persisted in parsed form.
type Session struct {
	ID                 string              `json:"id"`
	Status             SessionStatus       `json:"status"`
	RawAttributes      map[string]string   `json:"rawAttributes,omitempty"`
	VerificationResult *VerificationResult `json:"verificationResult,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	ExpiresAt          time.Time           `json:"expiresAt"`
}

// NewSession creates a pending session with the retention window applied.
func NewSession(id string, raw map[string]string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:            id,
		Status:        StatusPending,
		RawAttributes: raw,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
}

// IsExpired reports whether the session has passed its retention window.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
