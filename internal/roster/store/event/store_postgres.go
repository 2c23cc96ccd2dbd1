package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"turnstile/internal/roster/models"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/sentinel"
)

// PostgresEventStore persists events in the events table.
type PostgresEventStore struct {
	db    *sql.DB
	Clock func() time.Time
}

// PostgresOption configures a PostgresEventStore.
type PostgresOption func(*PostgresEventStore)

// WithClock injects a time source for tests.
func WithClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresEventStore) { s.Clock = clock }
}

// NewPostgres constructs a postgres-backed event store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresEventStore {
	s := &PostgresEventStore{db: db, Clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresEventStore) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, title, venue, starts_at, ends_at, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		event.Title,
		event.Venue,
		event.StartsAt,
		event.EndsAt,
		event.Capacity,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert event: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresEventStore) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	query := `
		SELECT id, title, venue, starts_at, ends_at, capacity, created_at
		FROM events
		WHERE id = $1
	`
	var (
		event     models.Event
		eventUUID uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(eventID)).Scan(
		&eventUUID,
		&event.Title,
		&event.Venue,
		&event.StartsAt,
		&event.EndsAt,
		&event.Capacity,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: query event: %v", sentinel.ErrUnavailable, err)
	}
	event.ID = id.EventID(eventUUID)
	return &event, nil
}

func (s *PostgresEventStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count events: %v", sentinel.ErrUnavailable, err)
	}
	return count, nil
}
