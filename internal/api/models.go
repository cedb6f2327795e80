package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
)

// SubmitReviewRequest is the body of POST /api/reviews/{id}.
// Outcome and time spent are checked by the scheduling engine.
type SubmitReviewRequest struct {
	Outcome          string `json:"outcome"            validate:"required"`
	TimeSpentSeconds *int   `json:"time_spent_seconds"`
	Notes            string `json:"notes"              validate:"max=2000"`
}

// ScheduleResponse is the client view of a schedule.
type ScheduleResponse struct {
	ID                     uuid.UUID `json:"id"`
	ItemID                 uuid.UUID `json:"item_id"`
	IntervalIndex          int       `json:"interval_index"`
	NextReviewAt           time.Time `json:"next_review_at"`
	InitialReviewCompleted bool      `json:"initial_review_completed"`
}

// DueReviewsResponse is the body of GET /api/reviews/due.
type DueReviewsResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
	Count     int                `json:"count"`
}

// ReviewResultResponse is the body of a successful review submission.
type ReviewResultResponse struct {
	Schedule ScheduleResponse     `json:"schedule"`
	Record   domain.HistoryRecord `json:"record"`
	// Applied is false when the schedule was not yet due and did not move.
	Applied bool `json:"applied"`
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Records []domain.HistoryRecord `json:"records"`
}

// ItemEventRequest is the body of POST /internal/items/events.
type ItemEventRequest struct {
	ID         string     `json:"id"          validate:"omitempty,uuid"`
	Type       string     `json:"type"        validate:"required,oneof=item.created item.deleted"`
	UserID     string     `json:"user_id"     validate:"omitempty,uuid"`
	ItemID     string     `json:"item_id"     validate:"required,uuid"`
	OccurredAt *time.Time `json:"occurred_at"`
}

func scheduleToResponse(s *domain.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:                     s.ID,
		ItemID:                 s.ItemID,
		IntervalIndex:          s.IntervalIndex,
		NextReviewAt:           s.NextReviewAt,
		InitialReviewCompleted: s.InitialReviewCompleted,
	}
}
