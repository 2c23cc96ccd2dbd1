package scanlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"turnstile/internal/checkin/models"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/sentinel"
	txcontext "turnstile/pkg/platform/tx"
)

// PostgresScanLogStore persists the append-only scan log. Appends join the
// caller's transaction when the context carries one, so an accepted scan's
// record commits atomically with the ledger transition.
type PostgresScanLogStore struct {
	db *sql.DB
}

// NewPostgres constructs a postgres-backed scan log.
func NewPostgres(db *sql.DB) *PostgresScanLogStore {
	return &PostgresScanLogStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresScanLogStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one record. Idempotent on record ID so a retried append
// cannot duplicate an audit entry.
func (s *PostgresScanLogStore) Append(ctx context.Context, record models.CheckInRecord) error {
	query := `
		INSERT INTO checkin_records (id, registration_id, outcome, reason, device_id, at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	var regID *uuid.UUID
	if !record.RegistrationID.IsZero() {
		u := uuid.UUID(record.RegistrationID)
		regID = &u
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		regID,
		record.Outcome.String(),
		record.Reason,
		uuid.UUID(record.DeviceID),
		record.At,
	)
	if err != nil {
		return fmt.Errorf("%w: append scan record: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

const selectRecords = `
	SELECT id, registration_id, outcome, reason, device_id, at
	FROM checkin_records
`

// ListByRegistration returns every attempt against a registration in
// append order.
func (s *PostgresScanLogStore) ListByRegistration(ctx context.Context, regID id.RegistrationID) ([]models.CheckInRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		selectRecords+` WHERE registration_id = $1 ORDER BY at, id`, uuid.UUID(regID))
	if err != nil {
		return nil, fmt.Errorf("%w: query scan records: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// LatestAcceptedByRegistrations batch-loads the most recent accepted record
// per registration.
func (s *PostgresScanLogStore) LatestAcceptedByRegistrations(ctx context.Context, regIDs []id.RegistrationID) (map[id.RegistrationID]models.CheckInRecord, error) {
	if len(regIDs) == 0 {
		return map[id.RegistrationID]models.CheckInRecord{}, nil
	}
	uuids := make([]uuid.UUID, len(regIDs))
	for i, regID := range regIDs {
		uuids[i] = uuid.UUID(regID)
	}

	query := `
		SELECT DISTINCT ON (registration_id)
			   id, registration_id, outcome, reason, device_id, at
		FROM checkin_records
		WHERE registration_id = ANY($1) AND outcome = $2
		ORDER BY registration_id, at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(uuids), id.OutcomeAccepted.String())
	if err != nil {
		return nil, fmt.Errorf("%w: query accepted records: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[id.RegistrationID]models.CheckInRecord, len(records))
	for _, r := range records {
		out[r.RegistrationID] = r
	}
	return out, nil
}

// ListRecentAccepted returns the latest accepted records, newest first.
func (s *PostgresScanLogStore) ListRecentAccepted(ctx context.Context, limit int) ([]models.CheckInRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		selectRecords+` WHERE outcome = $1 ORDER BY at DESC, id LIMIT $2`,
		id.OutcomeAccepted.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query recent accepted: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]models.CheckInRecord, error) {
	var out []models.CheckInRecord
	for rows.Next() {
		var (
			record   models.CheckInRecord
			recordID uuid.UUID
			regID    uuid.NullUUID
			outcome  string
			deviceID uuid.UUID
		)
		if err := rows.Scan(&recordID, &regID, &outcome, &record.Reason, &deviceID, &record.At); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", sentinel.ErrUnavailable, err)
		}
		record.ID = id.RecordID(recordID)
		if regID.Valid {
			record.RegistrationID = id.RegistrationID(regID.UUID)
		}
		record.Outcome = id.ScanOutcome(outcome)
		record.DeviceID = id.DeviceID(deviceID)
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %v", sentinel.ErrUnavailable, err)
	}
	return out, nil
}
