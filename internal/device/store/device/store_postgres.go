package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"turnstile/internal/device/models"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/sentinel"
)

// PostgresDeviceStore persists enrolled devices.
type PostgresDeviceStore struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a PostgresDeviceStore.
type PostgresOption func(*PostgresDeviceStore)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresDeviceStore) { s.clock = clock }
}

// NewPostgres constructs a postgres-backed device store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresDeviceStore {
	s := &PostgresDeviceStore{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresDeviceStore) Create(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO devices (id, name, display_name, fingerprint, secret_hash, revoked, current_jti, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(device.ID),
		device.Name,
		device.DisplayName,
		device.Fingerprint,
		device.SecretHash,
		device.Revoked,
		device.CurrentJTI,
		device.CreatedAt,
		device.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("device name already taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("%w: insert device: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

const selectDevice = `
	SELECT id, name, display_name, fingerprint, secret_hash, revoked, current_jti, created_at, updated_at
	FROM devices
`

func (s *PostgresDeviceStore) FindByID(ctx context.Context, deviceID id.DeviceID) (*models.Device, error) {
	row := s.db.QueryRowContext(ctx, selectDevice+` WHERE id = $1`, uuid.UUID(deviceID))
	return scanDevice(row)
}

func (s *PostgresDeviceStore) FindByIDs(ctx context.Context, ids []id.DeviceID) (map[id.DeviceID]*models.Device, error) {
	if len(ids) == 0 {
		return map[id.DeviceID]*models.Device{}, nil
	}
	uuids := make([]uuid.UUID, len(ids))
	for i, deviceID := range ids {
		uuids[i] = uuid.UUID(deviceID)
	}

	rows, err := s.db.QueryContext(ctx, selectDevice+` WHERE id = ANY($1)`, pq.Array(uuids))
	if err != nil {
		return nil, fmt.Errorf("%w: query devices: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	out := make(map[id.DeviceID]*models.Device, len(ids))
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out[device.ID] = device
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate devices: %v", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func (s *PostgresDeviceStore) SetCurrentJTI(ctx context.Context, deviceID id.DeviceID, jti string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE devices SET current_jti = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(deviceID), jti, s.clock().UTC())
	if err != nil {
		return fmt.Errorf("%w: update device jti: %v", sentinel.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update device jti: %v", sentinel.ErrUnavailable, err)
	}
	if affected == 0 {
		return fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresDeviceStore) Revoke(ctx context.Context, deviceID id.DeviceID) (string, error) {
	// CTE so the pre-revocation jti comes back from the same statement.
	var jti string
	err := s.db.QueryRowContext(ctx, `
		WITH current AS (
			SELECT id, current_jti FROM devices WHERE id = $1
		)
		UPDATE devices
		SET revoked = TRUE, current_jti = '', updated_at = $2
		FROM current
		WHERE devices.id = current.id
		RETURNING current.current_jti
	`, uuid.UUID(deviceID), s.clock().UTC()).Scan(&jti)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%w: revoke device: %v", sentinel.ErrUnavailable, err)
	}
	return jti, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var (
		device   models.Device
		deviceID uuid.UUID
	)
	err := row.Scan(
		&deviceID,
		&device.Name,
		&device.DisplayName,
		&device.Fingerprint,
		&device.SecretHash,
		&device.Revoked,
		&device.CurrentJTI,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan device: %v", sentinel.ErrUnavailable, err)
	}
	device.ID = id.DeviceID(deviceID)
	return &device, nil
}
