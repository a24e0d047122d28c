// Package events adapts verification-request events from the message bus
// onto the same intake path the HTTP webhook uses.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"veritok/internal/platform/kafka"
)

// Intake accepts a validated bundle and queues its verification.
type Intake interface {
	Accept(ctx context.Context, sessionID string, values map[string]string) (string, error)
}

// VerificationRequested is the inbound event payload.
type VerificationRequested struct {
	QueryID   string            `json:"queryId"`
	SessionID string            `json:"sessionId"`
	Values    map[string]string `json:"values"`
}

// Handler consumes verification-request events.
type Handler struct {
	intake Intake
	logger *slog.Logger
}

// New constructs an event handler over the intake service.
func New(intake Intake, logger *slog.Logger) *Handler {
	return &Handler{intake: intake, logger: logger}
}

// Handle decodes and accepts one event. Malformed events are dropped rather
// than redelivered forever; intake failures are retried via redelivery.
func (h *Handler) Handle(ctx context.Context, msg *kafka.Message) error {
	var event VerificationRequested
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.WarnContext(ctx, "dropping malformed verification event",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	sessionID, err := h.intake.Accept(ctx, event.SessionID, event.Values)
	if err != nil {
		return fmt.Errorf("accept verification event: %w", err)
	}

	h.logger.InfoContext(ctx, "verification event accepted",
		"query_id", event.QueryID,
		"session_id", sessionID,
	)
	return nil
}
