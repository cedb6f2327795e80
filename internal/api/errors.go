package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/cadence/internal/api/shared"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/events"
	"github.com/phrazzld/cadence/internal/service/scheduling"
	statsvc "github.com/phrazzld/cadence/internal/service/stats"
)

// errUnauthorized is used when a protected handler runs without a user in context.
var errUnauthorized = errors.New("unauthorized")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, scheduling.ErrScheduleNotOwned):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, events.ErrInvalidEvent),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, errUnauthorized):
		return "User ID not found or invalid"

	case errors.Is(err, scheduling.ErrScheduleNotOwned):
		return "You do not own this schedule"

	case errors.Is(err, scheduling.ErrScheduleNotFound),
		errors.Is(err, scheduling.ErrScheduleInactive):
		return "Schedule not found"

	case errors.Is(err, domain.ErrNotFound):
		return "Not found"

	case errors.Is(err, scheduling.ErrInvalidOutcome):
		return "Invalid review outcome"

	case errors.Is(err, scheduling.ErrNegativeTimeSpent):
		return "Time spent must not be negative"

	case errors.Is(err, scheduling.ErrInvalidPage):
		return "Limit and offset must not be negative"

	case errors.Is(err, scheduling.ErrInvalidHistoryFilter):
		return "Invalid history filter"

	case errors.Is(err, statsvc.ErrInvalidWindow):
		return "Invalid time window"

	case errors.Is(err, events.ErrInvalidEvent):
		return "Invalid item event"

	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)

	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrValidation):
		return "Invalid request"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a short message naming
// the first offending field.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "Validation error"
	}
	fe := validationErrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid id"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. A non-empty fallback
// replaces the generic message for 500 responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
