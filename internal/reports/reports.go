// Package reports computes the admin dashboard aggregates. Every query is
// best-effort: on storage failure the caller renders zero-valued stats rather
// than failing the request.
package reports

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

// Overview is the admin report payload.
type Overview struct {
	Students                int `json:"students"`
	Lecturers               int `json:"lecturers"`
	Admins                  int `json:"admins"`
	Courses                 int `json:"courses"`
	CoursesWithoutLecturers int `json:"courses_without_lecturers"`
	CoursesWithoutStudents  int `json:"courses_without_students"`
	Enrollments             int `json:"enrollments"`
	ClassSessions           int `json:"class_sessions"`
	AttendanceRecords       int `json:"attendance_records"`
}

// Repository runs the report queries.
type Repository struct {
	db  *sql.DB
	log *zap.Logger
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB, log *zap.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// Build assembles the overview. Individual query failures are logged and
// leave their field at zero.
func (r *Repository) Build(ctx context.Context) Overview {
	var o Overview

	rows, err := r.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		r.log.Warn("user counts query failed", zap.Error(err))
	} else {
		for rows.Next() {
			var role string
			var count int
			if err := rows.Scan(&role, &count); err != nil {
				break
			}
			switch role {
			case "STUDENT":
				o.Students = count
			case "LECTURER":
				o.Lecturers = count
			case "ADMIN":
				o.Admins = count
			}
		}
		rows.Close()
	}

	o.Courses = r.count(ctx, `SELECT COUNT(*) FROM courses`)
	o.CoursesWithoutLecturers = r.count(ctx, `
		SELECT COUNT(*) FROM courses c
		WHERE NOT EXISTS (SELECT 1 FROM course_lecturers cl WHERE cl.course_id = c.id)`)
	o.CoursesWithoutStudents = r.count(ctx, `
		SELECT COUNT(*) FROM courses c
		WHERE NOT EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id)`)
	o.Enrollments = r.count(ctx, `SELECT COUNT(*) FROM enrollments`)
	o.ClassSessions = r.count(ctx, `SELECT COUNT(*) FROM class_sessions`)
	o.AttendanceRecords = r.count(ctx, `SELECT COUNT(*) FROM attendance`)

	return o
}

func (r *Repository) count(ctx context.Context, query string) int {
	var n int
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		r.log.Warn("report count failed", zap.String("query", query), zap.Error(err))
		return 0
	}
	return n
}
