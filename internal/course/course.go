// Package course persists courses and lecturer assignments.
package course

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no course matches.
var ErrNotFound = errors.New("course not found")

// ErrDuplicateCode is returned when a course code is already taken.
var ErrDuplicateCode = errors.New("course code already exists")

// Course is one teachable unit.
type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Department  string    `json:"department,omitempty"`
	Semester    string    `json:"semester"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Lecturer is an assigned lecturer's identity for listings.
type Lecturer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repository persists courses in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const courseCols = `id, code, name, COALESCE(description, ''), COALESCE(department, ''), semester, created_at, updated_at`

func scanCourse(row interface{ Scan(...any) error }) (Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.Department, &c.Semester, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a new course.
func (r *Repository) Create(ctx context.Context, c Course) (Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Semester == "" {
		c.Semester = "FIRST"
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO courses (id, code, name, description, department, semester, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (code) DO NOTHING
	`, c.ID, c.Code, c.Name, nullable(c.Description), nullable(c.Department), c.Semester, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return Course{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Course{}, ErrDuplicateCode
	}
	return c, nil
}

// ByID returns one course.
func (r *Repository) ByID(ctx context.Context, id string) (Course, error) {
	c, err := scanCourse(r.db.QueryRowContext(ctx, `SELECT `+courseCols+` FROM courses WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, ErrNotFound
	}
	return c, err
}

// List returns all courses ordered by code.
func (r *Repository) List(ctx context.Context) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+courseCols+` FROM courses ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Update rewrites a course's fields.
func (r *Repository) Update(ctx context.Context, c Course) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE courses
		SET code = $2, name = $3, description = $4, department = $5, semester = $6, updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.Code, c.Name, nullable(c.Description), nullable(c.Department), c.Semester)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a course; sessions and enrollments cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLecturers replaces the course's lecturer assignments with the given set,
// in one transaction.
func (r *Repository) SetLecturers(ctx context.Context, courseID string, lecturerIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM course_lecturers WHERE course_id = $1`, courseID); err != nil {
		return err
	}
	for _, lecturerID := range lecturerIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO course_lecturers (id, course_id, lecturer_id, assigned_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (course_id, lecturer_id) DO NOTHING
		`, uuid.NewString(), courseID, lecturerID, time.Now().UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Lecturers returns the lecturers assigned to a course.
func (r *Repository) Lecturers(ctx context.Context, courseID string) ([]Lecturer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, COALESCE(u.name, ''), u.email
		FROM course_lecturers cl
		JOIN users u ON u.id = cl.lecturer_id
		WHERE cl.course_id = $1
		ORDER BY u.name
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Lecturer
	for rows.Next() {
		var l Lecturer
		if err := rows.Scan(&l.ID, &l.Name, &l.Email); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// ForLecturer returns the courses a lecturer is assigned to.
func (r *Repository) ForLecturer(ctx context.Context, lecturerID string) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixed("c")+`
		FROM courses c
		JOIN course_lecturers cl ON cl.course_id = c.id
		WHERE cl.lecturer_id = $1
		ORDER BY c.code
	`, lecturerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ForStudent returns the courses a student is enrolled in.
func (r *Repository) ForStudent(ctx context.Context, studentID string) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixed("c")+`
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.student_id = $1
		ORDER BY c.code
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]Course, error) {
	var res []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func prefixed(alias string) string {
	return alias + `.id, ` + alias + `.code, ` + alias + `.name, COALESCE(` + alias + `.description, ''), COALESCE(` + alias + `.department, ''), ` + alias + `.semester, ` + alias + `.created_at, ` + alias + `.updated_at`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
