package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"turnstile/internal/registration/models"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/sentinel"
	txcontext "turnstile/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresRegistrationStore persists the ledger in the registrations table.
// The check-in CAS is a single conditional UPDATE, so the database row lock
// provides per-registration serialization; no application lock is held.
type PostgresRegistrationStore struct {
	db    *sql.DB
	Clock func() time.Time
}

// PostgresOption configures a PostgresRegistrationStore.
type PostgresOption func(*PostgresRegistrationStore)

// WithClock injects a time source for tests.
func WithClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresRegistrationStore) { s.Clock = clock }
}

// NewPostgres constructs a postgres-backed registration store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresRegistrationStore {
	s := &PostgresRegistrationStore{db: db, Clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresRegistrationStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create inserts a registration. The UNIQUE (student_id, event_id) constraint
// enforces pair uniqueness; a violation maps to ErrConflict rather than a
// racy pre-check.
func (s *PostgresRegistrationStore) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (id, student_id, event_id, secret, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(reg.ID),
		uuid.UUID(reg.StudentID),
		uuid.UUID(reg.EventID),
		reg.Secret,
		string(reg.Status),
		reg.CreatedAt,
		reg.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("registration already exists for pair: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("%w: insert registration: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

const selectRegistration = `
	SELECT id, student_id, event_id, secret, status,
		   created_at, updated_at, checked_in_at, checked_in_by
	FROM registrations
`

func (s *PostgresRegistrationStore) FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	row := s.querier(ctx).QueryRowContext(ctx, selectRegistration+` WHERE id = $1`, uuid.UUID(regID))
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: query registration: %v", sentinel.ErrUnavailable, err)
	}
	return reg, nil
}

// MarkCheckedIn performs the compare-and-set as one conditional UPDATE:
// the transition commits only if the row is still issued. A zero-row result
// is classified by re-reading the row, and the current record is returned
// alongside the error so callers can report the original check-in time.
func (s *PostgresRegistrationStore) MarkCheckedIn(ctx context.Context, regID id.RegistrationID, at time.Time, deviceID id.DeviceID) (*models.Registration, error) {
	query := `
		UPDATE registrations
		SET status = $2, checked_in_at = $3, checked_in_by = $4, updated_at = $3
		WHERE id = $1 AND status = $5
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(regID),
		string(models.StatusCheckedIn),
		at,
		uuid.UUID(deviceID),
		string(models.StatusIssued),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: mark checked in: %v", sentinel.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: mark checked in: %v", sentinel.ErrUnavailable, err)
	}

	reg, findErr := s.FindByID(ctx, regID)
	if findErr != nil {
		return nil, findErr
	}
	if affected == 1 {
		return reg, nil
	}

	switch reg.Status {
	case models.StatusCheckedIn:
		return reg, fmt.Errorf("registration already checked in: %w", sentinel.ErrAlreadyUsed)
	case models.StatusVoid:
		return reg, fmt.Errorf("registration voided: %w", sentinel.ErrInvalidState)
	default:
		// The row flipped back to issued between UPDATE and SELECT, which no
		// transition allows.
		return reg, fmt.Errorf("%w: unexpected registration state", sentinel.ErrInvalidState)
	}
}

// SetVoid transitions issued -> void with the same conditional-update
// discipline. Already-void is a no-op; checked-in fails with ErrAlreadyUsed.
func (s *PostgresRegistrationStore) SetVoid(ctx context.Context, regID id.RegistrationID, at time.Time) error {
	query := `
		UPDATE registrations
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(regID),
		string(models.StatusVoid),
		at,
		string(models.StatusIssued),
	)
	if err != nil {
		return fmt.Errorf("%w: void registration: %v", sentinel.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: void registration: %v", sentinel.ErrUnavailable, err)
	}
	if affected == 1 {
		return nil
	}

	reg, err := s.FindByID(ctx, regID)
	if err != nil {
		return err
	}
	if reg.Status == models.StatusCheckedIn {
		return fmt.Errorf("registration already checked in: %w", sentinel.ErrAlreadyUsed)
	}
	return nil
}

// ForceVoid voids regardless of status; the privileged override path.
func (s *PostgresRegistrationStore) ForceVoid(ctx context.Context, regID id.RegistrationID, at time.Time) error {
	query := `
		UPDATE registrations
		SET status = $2, updated_at = $3
		WHERE id = $1
	`
	res, err := s.querier(ctx).ExecContext(ctx, query, uuid.UUID(regID), string(models.StatusVoid), at)
	if err != nil {
		return fmt.Errorf("%w: force void registration: %v", sentinel.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: force void registration: %v", sentinel.ErrUnavailable, err)
	}
	if affected == 0 {
		return fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// ListByEvent returns registrations in issuance order. The ID tiebreak keeps
// repeated report builds byte-identical even for equal timestamps.
func (s *PostgresRegistrationStore) ListByEvent(ctx context.Context, eventID id.EventID) ([]*models.Registration, error) {
	rows, err := s.querier(ctx).QueryContext(ctx,
		selectRegistration+` WHERE event_id = $1 ORDER BY created_at, id`, uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("%w: list registrations: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()
	return scanRegistrations(rows)
}

// ListCheckedIn returns checked-in registrations, most recent first.
func (s *PostgresRegistrationStore) ListCheckedIn(ctx context.Context) ([]*models.Registration, error) {
	rows, err := s.querier(ctx).QueryContext(ctx,
		selectRegistration+` WHERE checked_in_at IS NOT NULL ORDER BY checked_in_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list checked in: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()
	return scanRegistrations(rows)
}

func (s *PostgresRegistrationStore) CountLiveByEvent(ctx context.Context, eventID id.EventID) (int, error) {
	var count int
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status <> $2`,
		uuid.UUID(eventID), string(models.StatusVoid),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count live registrations: %v", sentinel.ErrUnavailable, err)
	}
	return count, nil
}

func (s *PostgresRegistrationStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count registrations: %v", sentinel.ErrUnavailable, err)
	}
	return count, nil
}

func (s *PostgresRegistrationStore) CountCheckedIn(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE status = $1`, string(models.StatusCheckedIn),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count checked in: %v", sentinel.ErrUnavailable, err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg         models.Registration
		regID       uuid.UUID
		studentID   uuid.UUID
		eventID     uuid.UUID
		status      string
		checkedInAt sql.NullTime
		checkedInBy uuid.NullUUID
	)
	err := row.Scan(&regID, &studentID, &eventID, &reg.Secret, &status,
		&reg.CreatedAt, &reg.UpdatedAt, &checkedInAt, &checkedInBy)
	if err != nil {
		return nil, err
	}
	reg.ID = id.RegistrationID(regID)
	reg.StudentID = id.StudentID(studentID)
	reg.EventID = id.EventID(eventID)
	reg.Status = models.RegistrationStatus(status)
	if checkedInAt.Valid {
		t := checkedInAt.Time
		reg.CheckedInAt = &t
	}
	if checkedInBy.Valid {
		reg.CheckedInBy = id.DeviceID(checkedInBy.UUID)
	}
	return &reg, nil
}

func scanRegistrations(rows *sql.Rows) ([]*models.Registration, error) {
	var out []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan registration: %v", sentinel.ErrUnavailable, err)
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate registrations: %v", sentinel.ErrUnavailable, err)
	}
	return out, nil
}
