// Package relay ships audit events from the postgres outbox to Kafka.
// The outbox write commits with the domain transaction; the relay makes
// delivery eventually consistent without ever losing an acknowledged event.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"turnstile/pkg/platform/audit/store/postgres"
)

// Producer publishes one payload to the audit topic.
type Producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

// Relay polls the outbox and publishes pending entries in insertion order.
type Relay struct {
	store    *postgres.Store
	producer Producer
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// New constructs a Relay. interval bounds publish latency; batch bounds one
// poll's work.
func New(store *postgres.Store, producer Producer, logger *slog.Logger, interval time.Duration, batch int) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Relay{store: store, producer: producer, logger: logger, interval: interval, batch: batch}
}

// Run polls until the context is cancelled. Publish failures are logged and
// retried on the next tick; entries are marked published only after Kafka
// acknowledges them, so delivery is at-least-once.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

func (r *Relay) relayOnce(ctx context.Context) error {
	entries, err := r.store.PendingOutbox(ctx, r.batch)
	if err != nil {
		return err
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := r.producer.Produce(ctx, entry.ID[:], entry.Payload); err != nil {
			// Stop at the first failure to preserve insertion order.
			r.logger.WarnContext(ctx, "failed to publish outbox entry",
				"outbox_id", entry.ID,
				"event_type", entry.EventType,
				"error", err,
			)
			break
		}
		published = append(published, entry.ID)
	}

	if len(published) == 0 {
		return nil
	}
	return r.store.MarkPublished(ctx, published)
}
