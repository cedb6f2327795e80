package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Item lifecycle event types.
const (
	TypeItemCreated = "item.created"
	TypeItemDeleted = "item.deleted"
)

// ErrInvalidEvent is returned when an event fails validation.
var ErrInvalidEvent = errors.New("invalid event")

// ItemEvent announces that a reviewable item was created or deleted.
// UserID is required for item.created and ignored for item.deleted.
type ItemEvent struct {
	// ID uniquely identifies this delivery of the event.
	ID uuid.UUID `json:"id"`

	// Type is TypeItemCreated or TypeItemDeleted.
	Type string `json:"type"`

	// UserID owns the item.
	UserID uuid.UUID `json:"user_id"`

	// ItemID identifies the item in the content service.
	ItemID uuid.UUID `json:"item_id"`

	// OccurredAt is the time the event happened at its source.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewItemCreatedEvent creates an item.created event.
func NewItemCreatedEvent(userID, itemID uuid.UUID) *ItemEvent {
	return &ItemEvent{
		ID:         uuid.New(),
		Type:       TypeItemCreated,
		UserID:     userID,
		ItemID:     itemID,
		OccurredAt: time.Now().UTC(),
	}
}

// NewItemDeletedEvent creates an item.deleted event.
func NewItemDeletedEvent(itemID uuid.UUID) *ItemEvent {
	return &ItemEvent{
		ID:         uuid.New(),
		Type:       TypeItemDeleted,
		ItemID:     itemID,
		OccurredAt: time.Now().UTC(),
	}
}

// Validate checks that the event carries the fields its type needs.
func (e *ItemEvent) Validate() error {
	if e.ItemID == uuid.Nil {
		return fmt.Errorf("%w: item_id is required", ErrInvalidEvent)
	}
	switch e.Type {
	case TypeItemCreated:
		if e.UserID == uuid.Nil {
			return fmt.Errorf("%w: user_id is required for %s", ErrInvalidEvent, e.Type)
		}
	case TypeItemDeleted:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *ItemEvent) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *ItemEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *ItemEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows event sources to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *ItemEvent) error
}
