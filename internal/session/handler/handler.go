// Package handler is the thin HTTP layer for session intake and polling.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veritok/internal/platform/middleware"
	"veritok/internal/sentinel"
	"veritok/internal/session/models"
	respond "veritok/internal/transport/http/json"
	"veritok/internal/transport/http/shared"
	dErrors "veritok/pkg/domain-errors"
	limits "veritok/pkg/platform/validation"
	"veritok/pkg/validation"
)

// Intake accepts a validated bundle and queues its verification.
type Intake interface {
	Accept(ctx context.Context, sessionID string, values map[string]string) (string, error)
}

// Finder reads sessions for the polling endpoint.
type Finder interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

// Handler handles session endpoints.
type Handler struct {
	logger *slog.Logger
	intake Intake
	finder Finder
}

// New creates a session Handler.
func New(intake Intake, finder Finder, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		intake: intake,
		finder: finder,
	}
}

// Register registers the session routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions/webhook", h.handleWebhook)
	r.Get("/sessions/{sessionId}", h.handleFind)
}

// handleWebhook accepts a disclosure delivery. The 200 response only means
// the bundle was accepted and queued; verification progress is observable by
// polling the session.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxBodySize)

	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode webhook request",
			"request_id", requestID,
			"error", err,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid webhook request",
			"request_id", requestID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	values, err := req.DecodeValues()
	if err != nil {
		h.logger.WarnContext(ctx, "invalid webhook values",
			"request_id", requestID,
			"query_id", req.QueryID,
			"error", err,
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error()))
		return
	}

	sessionID, err := h.intake.Accept(ctx, req.SessionID, values)
	if err != nil {
		h.logger.ErrorContext(ctx, "webhook intake failed",
			"request_id", requestID,
			"query_id", req.QueryID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "webhook accepted",
		"request_id", requestID,
		"query_id", req.QueryID,
		"session_id", sessionID,
	)
	respond.WriteJSON(w, http.StatusOK, WebhookResponse{SessionID: sessionID})
}

// handleFind returns the session, including the verification result once the
// session has completed. A completed session without a result signals
// verification failure.
func (h *Handler) handleFind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionId")

	session, err := h.finder.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "session not found"))
			return
		}
		h.logger.ErrorContext(ctx, "session lookup failed",
			"request_id", middleware.GetRequestID(ctx),
			"session_id", sessionID,
			"error", err,
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed"))
		return
	}

	respond.WriteJSON(w, http.StatusOK, session)
}
