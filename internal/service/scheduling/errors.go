package scheduling

import (
	"errors"
	"fmt"

	"github.com/phrazzld/cadence/internal/domain"
)

// Common error types for the scheduling engine
var (
	// ErrScheduleNotFound indicates that the schedule does not exist.
	ErrScheduleNotFound = fmt.Errorf("%w: schedule", domain.ErrNotFound)

	// ErrScheduleInactive indicates that the schedule exists but its item was deleted.
	// It is reported as not found to callers.
	ErrScheduleInactive = fmt.Errorf("%w: schedule is inactive", domain.ErrNotFound)

	// ErrItemNotFound indicates that no schedule references the item.
	ErrItemNotFound = fmt.Errorf("%w: no schedule references item", domain.ErrNotFound)

	// ErrScheduleNotOwned indicates that the schedule belongs to another user.
	ErrScheduleNotOwned = errors.New("unauthorized access: schedule not owned by user")

	// ErrInvalidOutcome indicates an outcome outside remembered, partial and forgotten.
	ErrInvalidOutcome = domain.ErrInvalidReviewOutcome

	// ErrNegativeTimeSpent indicates a negative review duration.
	ErrNegativeTimeSpent = domain.ErrNegativeTimeSpent

	// ErrInvalidPage indicates a negative limit or offset.
	ErrInvalidPage = fmt.Errorf("%w: limit and offset must not be negative", domain.ErrInvalidInput)

	// ErrInvalidHistoryFilter indicates a history filter that can never match.
	ErrInvalidHistoryFilter = fmt.Errorf("%w: invalid history filter", domain.ErrInvalidInput)
)

// ServiceError wraps errors from the scheduling service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "apply_outcome", "create_schedule")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// isClientError reports whether err is one of the errors a caller can act on.
// Anything else is an infrastructure failure and gets wrapped in a ServiceError.
func isClientError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, ErrScheduleNotOwned)
}
