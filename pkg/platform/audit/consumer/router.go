// Package consumer materializes audit events from Kafka back into the
// queryable audit_events table and routes them to per-category handlers.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"turnstile/internal/platform/kafka/consumer"
	audit "turnstile/pkg/platform/audit"
)

// Materializer persists a consumed event under its original ID. Must be
// idempotent: the relay delivers at-least-once.
type Materializer interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// CategoryHandler reacts to events of one category (alerting, sampling).
type CategoryHandler func(ctx context.Context, event audit.Event)

// Router dispatches consumed audit messages.
type Router struct {
	materializer Materializer
	logger       *slog.Logger
	handlers     map[audit.EventCategory]CategoryHandler
}

// NewRouter constructs a Router. Category handlers are optional.
func NewRouter(materializer Materializer, logger *slog.Logger) *Router {
	return &Router{
		materializer: materializer,
		logger:       logger,
		handlers:     make(map[audit.EventCategory]CategoryHandler),
	}
}

// On registers a handler for one category, replacing any previous one.
func (r *Router) On(category audit.EventCategory, handler CategoryHandler) {
	r.handlers[category] = handler
}

// wirePayload mirrors the outbox payload written by the postgres store.
type wirePayload struct {
	ID        string `json:"ID"`
	Category  string `json:"Category"`
	Timestamp string `json:"Timestamp"`
	Subject   string `json:"Subject"`
	Action    string `json:"Action"`
	Outcome   string `json:"Outcome"`
	Reason    string `json:"Reason"`
	DeviceID  string `json:"DeviceID"`
	RequestID string `json:"RequestID"`
	ActorID   string `json:"ActorID"`
}

// Handle is the kafka consumer entry point. Malformed messages are logged
// and skipped: re-polling them forever would wedge the partition.
func (r *Router) Handle(ctx context.Context, msg consumer.Message) error {
	var payload wirePayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		r.logger.WarnContext(ctx, "skipping malformed audit message", "topic", msg.Topic, "error", err)
		return nil
	}

	eventID, err := uuid.Parse(payload.ID)
	if err != nil {
		r.logger.WarnContext(ctx, "skipping audit message with invalid id", "id", payload.ID)
		return nil
	}

	timestamp, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		r.logger.WarnContext(ctx, "skipping audit message with invalid timestamp", "id", payload.ID)
		return nil
	}

	event := audit.Event{
		Category:  audit.EventCategory(payload.Category),
		Timestamp: timestamp,
		Subject:   payload.Subject,
		Action:    payload.Action,
		Outcome:   payload.Outcome,
		Reason:    payload.Reason,
		DeviceID:  payload.DeviceID,
		RequestID: payload.RequestID,
		ActorID:   payload.ActorID,
	}

	if err := r.materializer.AppendWithID(ctx, eventID, event); err != nil {
		return fmt.Errorf("materialize audit event %s: %w", eventID, err)
	}

	if handler, ok := r.handlers[event.Category]; ok {
		handler(ctx, event)
	}
	return nil
}
