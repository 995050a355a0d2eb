package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the student or course row does not exist.
var ErrNotFound = errors.New("not found")

// Repository implements Store against Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// IsEnrolled reports whether an explicit enrollment row exists.
func (r *Repository) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2
		)
	`, studentID, courseID).Scan(&exists)
	return exists, err
}

// Enroll inserts an enrollment row. A concurrent duplicate is a no-op, which
// keeps the (student, course) uniqueness invariant without a pre-check race.
func (r *Repository) Enroll(ctx context.Context, studentID, courseID string, auto bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO enrollments (id, student_id, course_id, auto_enrolled, enrolled_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, course_id) DO NOTHING
	`, uuid.NewString(), studentID, courseID, auto, time.Now().UTC())
	return err
}

// StudentLevel returns the student's level attribute, empty when unset.
func (r *Repository) StudentLevel(ctx context.Context, studentID string) (string, error) {
	var level sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT level FROM users WHERE id = $1`, studentID).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return level.String, nil
}

// CourseCode returns the course's code.
func (r *Repository) CourseCode(ctx context.Context, courseID string) (string, error) {
	var code string
	err := r.db.QueryRowContext(ctx, `SELECT code FROM courses WHERE id = $1`, courseID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return code, err
}

// Unenroll removes the enrollment row for (student, course).
func (r *Repository) Unenroll(ctx context.Context, studentID, courseID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2
	`, studentID, courseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
