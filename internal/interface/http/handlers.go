package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/crisnc100/FlexBreak-sub005/internal/application/command"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":    "FlexBreak Progression Engine API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":      "/health",
			"routines":    "/api/v1/routines",
			"claim":       "/api/v1/challenges/{id}/claim",
			"progress":    "/api/v1/progress",
			"recalculate": "/api/v1/progress/recalculate",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Queries.Health(r.Context(), s.deps.HealthDeps)
	if status.Status != "ok" {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// processRoutineRequest is the POST /api/v1/routines body. Duration accepts
// both a number and the string forms mobile clients send ("10", "10 min").
type processRoutineRequest struct {
	Area            string          `json:"area"`
	Duration        routine.Minutes `json:"duration"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	BoostMultiplier float64         `json:"boostMultiplier,omitempty"`
}

// handleProcessRoutine handles POST /api/v1/routines.
func (s *Server) handleProcessRoutine(w http.ResponseWriter, r *http.Request) {
	var req processRoutineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	cmd := command.ProcessRoutineCommand{
		Area:            req.Area,
		DurationMinutes: req.Duration.Int(),
		BoostMultiplier: req.BoostMultiplier,
	}
	if req.CompletedAt != nil {
		cmd.CompletedAt = *req.CompletedAt
	}

	result, err := s.deps.Facade.ProcessRoutine(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleClaimChallenge handles POST /api/v1/challenges/{id}/claim.
func (s *Server) handleClaimChallenge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := s.deps.Facade.ClaimChallenge(r.Context(), command.ClaimChallengeCommand{ChallengeID: id})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleRecalculate handles POST /api/v1/progress/recalculate.
func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Facade.RecalculateStatistics(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetProgress handles GET /api/v1/progress.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Queries.GetProgress(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP statuses. Claim failures carry
// the human reason the UI shows; everything unexpected collapses to 500
// without leaking internals.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrChallengeNotFound):
		writeJSONError(w, http.StatusNotFound, "challenge_not_found", challenge.FailureReason(shared.ErrChallengeNotFound))
	case errors.Is(err, shared.ErrAlreadyClaimed):
		writeJSONError(w, http.StatusConflict, "already_claimed", challenge.FailureReason(shared.ErrAlreadyClaimed))
	case errors.Is(err, shared.ErrNotCompleted):
		writeJSONError(w, http.StatusUnprocessableEntity, "not_completed", challenge.FailureReason(shared.ErrNotCompleted))
	case errors.Is(err, shared.ErrRedemptionWindowClosed):
		writeJSONError(w, http.StatusGone, "redemption_window_closed", challenge.FailureReason(shared.ErrRedemptionWindowClosed))
	case errors.Is(err, shared.ErrDailyLimitReached):
		writeJSONError(w, http.StatusTooManyRequests, "daily_limit_reached", challenge.FailureReason(shared.ErrDailyLimitReached))
	case errors.Is(err, shared.ErrEmptyValue), errors.Is(err, shared.ErrNegativeValue),
		errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, shared.ErrConcurrentModification):
		writeJSONError(w, http.StatusConflict, "conflict", "Progress was modified concurrently, retry the request")
	case errors.Is(err, shared.ErrStorageFailure):
		writeJSONError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage is temporarily unavailable")
	default:
		s.logger.Error("unhandled error", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
