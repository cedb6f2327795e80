package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/cadence/internal/api/shared"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/platform/logger"
	"github.com/phrazzld/cadence/internal/service/scheduling"
)

// maxDueLimit caps the page size of the due list.
const maxDueLimit = 500

// ReviewHandler serves the due list and review submissions.
type ReviewHandler struct {
	engine scheduling.Engine
	clock  func() time.Time
	logger *slog.Logger
}

// NewReviewHandler creates a ReviewHandler. A nil clock uses time.Now.
func NewReviewHandler(engine scheduling.Engine, clock func() time.Time, logger *slog.Logger) *ReviewHandler {
	if engine == nil {
		panic("engine cannot be nil for ReviewHandler")
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		engine: engine,
		clock:  clock,
		logger: logger.With(slog.String("component", "review_handler")),
	}
}

// ListDue handles GET /api/reviews/due.
func (h *ReviewHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := userIDOrError(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if limit > maxDueLimit {
		limit = maxDueLimit
	}

	due, err := h.engine.DueSchedulesPage(r.Context(), userID, h.clock(), limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list due reviews")
		return
	}

	resp := DueReviewsResponse{Schedules: make([]ScheduleResponse, 0, len(due)), Count: len(due)}
	for _, s := range due {
		resp.Schedules = append(resp.Schedules, scheduleToResponse(s))
	}

	log.Debug("listed due reviews", slog.Int("count", len(due)))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// SubmitReview handles POST /api/reviews/{id}.
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := userIDOrError(w, r)
	if !ok {
		return
	}
	scheduleID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req SubmitReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.engine.ApplyOutcome(r.Context(), scheduling.Submission{
		ScheduleID:       scheduleID,
		UserID:           userID,
		Outcome:          domain.ReviewOutcome(req.Outcome),
		TimeSpentSeconds: req.TimeSpentSeconds,
		Notes:            req.Notes,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit review")
		return
	}

	log.Debug("review submitted",
		slog.String("schedule_id", scheduleID.String()),
		slog.Bool("applied", result.Applied))
	shared.RespondWithJSON(w, r, http.StatusOK, ReviewResultResponse{
		Schedule: scheduleToResponse(result.Schedule),
		Record:   *result.Record,
		Applied:  result.Applied,
	})
}
