package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced schedule, item or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when an entity with the same natural key exists.
	// Schedule creation treats it as an idempotent success rather than a failure.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput is returned for caller supplied values that can never be valid,
	// such as a negative review duration or an unrecognized outcome.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownTier is returned when a tier name is not part of the interval policy.
	ErrUnknownTier = errors.New("unknown tier")
)
