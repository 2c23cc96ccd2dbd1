package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"turnstile/internal/roster/models"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStudentStore persists students in the students table.
type PostgresStudentStore struct {
	db    *sql.DB
	Clock func() time.Time
}

// PostgresOption configures a PostgresStudentStore.
type PostgresOption func(*PostgresStudentStore)

// WithClock injects a time source for tests.
func WithClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresStudentStore) { s.Clock = clock }
}

// NewPostgres constructs a postgres-backed student store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStudentStore {
	s := &PostgresStudentStore{db: db, Clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStudentStore) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (id, name, student_no, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(student.ID),
		student.Name,
		student.StudentNo,
		student.Email,
		student.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("student number already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("%w: insert student: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStudentStore) FindByID(ctx context.Context, studentID id.StudentID) (*models.Student, error) {
	query := `
		SELECT id, name, student_no, email, created_at
		FROM students
		WHERE id = $1
	`
	student, err := scanStudent(s.db.QueryRowContext(ctx, query, uuid.UUID(studentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("student not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: query student: %v", sentinel.ErrUnavailable, err)
	}
	return student, nil
}

// FindByIDs batch-loads students for report building.
func (s *PostgresStudentStore) FindByIDs(ctx context.Context, ids []id.StudentID) (map[id.StudentID]*models.Student, error) {
	if len(ids) == 0 {
		return map[id.StudentID]*models.Student{}, nil
	}
	uuids := make([]uuid.UUID, len(ids))
	for i, studentID := range ids {
		uuids[i] = uuid.UUID(studentID)
	}

	query := `
		SELECT id, name, student_no, email, created_at
		FROM students
		WHERE id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(uuids))
	if err != nil {
		return nil, fmt.Errorf("%w: query students: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	out := make(map[id.StudentID]*models.Student, len(ids))
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan student: %v", sentinel.ErrUnavailable, err)
		}
		out[student.ID] = student
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate students: %v", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func (s *PostgresStudentStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count students: %v", sentinel.ErrUnavailable, err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var (
		student   models.Student
		studentID uuid.UUID
	)
	if err := row.Scan(&studentID, &student.Name, &student.StudentNo, &student.Email, &student.CreatedAt); err != nil {
		return nil, err
	}
	student.ID = id.StudentID(studentID)
	return &student, nil
}
