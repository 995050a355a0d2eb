package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// LecturerAssigned reports whether the lecturer is assigned to the course.
func (r *Repository) LecturerAssigned(ctx context.Context, courseID, lecturerID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM course_lecturers WHERE course_id = $1 AND lecturer_id = $2
		)
	`, courseID, lecturerID).Scan(&exists)
	return exists, err
}

// CreateClassSession writes a new class session.
func (r *Repository) CreateClassSession(ctx context.Context, cs ClassSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO class_sessions (id, course_id, date, title, topic, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, cs.ID, cs.CourseID, cs.Date, nullable(cs.Title), nullable(cs.Topic), nullable(cs.Notes), cs.CreatedAt)
	return err
}

// CreateQrSession writes a new QR session.
func (r *Repository) CreateQrSession(ctx context.Context, qs QrSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO qr_sessions (id, course_id, lecturer_id, class_session_id, payload, location, duration_minutes, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, qs.ID, qs.CourseID, qs.LecturerID, qs.ClassSessionID, qs.Payload, nullable(qs.Location), qs.DurationMinutes, qs.ExpiresAt, qs.CreatedAt)
	return err
}

const qrSessionCols = `id, course_id, lecturer_id, class_session_id, payload, COALESCE(location, ''), duration_minutes, expires_at, created_at`

func scanQrSession(row interface{ Scan(...any) error }) (QrSession, error) {
	var qs QrSession
	err := row.Scan(&qs.ID, &qs.CourseID, &qs.LecturerID, &qs.ClassSessionID, &qs.Payload, &qs.Location, &qs.DurationMinutes, &qs.ExpiresAt, &qs.CreatedAt)
	return qs, err
}

// QrSessionOwned returns the QR session only when owned by the lecturer.
func (r *Repository) QrSessionOwned(ctx context.Context, id, lecturerID string) (QrSession, error) {
	qs, err := scanQrSession(r.db.QueryRowContext(ctx, `
		SELECT `+qrSessionCols+` FROM qr_sessions WHERE id = $1 AND lecturer_id = $2
	`, id, lecturerID))
	if errors.Is(err, sql.ErrNoRows) {
		return QrSession{}, ErrNotFound
	}
	return qs, err
}

// QrSessionByClassSession returns the newest QR session for a class session.
func (r *Repository) QrSessionByClassSession(ctx context.Context, classSessionID string) (QrSession, error) {
	qs, err := scanQrSession(r.db.QueryRowContext(ctx, `
		SELECT `+qrSessionCols+` FROM qr_sessions
		WHERE class_session_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, classSessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return QrSession{}, ErrNotFound
	}
	return qs, err
}

// ExpireQrSession moves the session's expiry to the given instant.
func (r *Repository) ExpireQrSession(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE qr_sessions SET expires_at = $2 WHERE id = $1`, id, at)
	return err
}

// InsertRecordIfAbsent inserts an attendance row unless one already exists for
// (user, class session). Returns whether a row was inserted. Concurrent
// redemptions resolve through the unique constraint, not a pre-check.
func (r *Repository) InsertRecordIfAbsent(ctx context.Context, rec Record) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, user_id, class_session_id, status, recorded_at, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, class_session_id) DO NOTHING
	`, rec.ID, rec.UserID, rec.ClassSessionID, rec.Status, rec.RecordedAt, nullable(rec.Notes))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpsertRecord sets the attendance row for (user, class session) to the given
// status, overwriting any prior value.
func (r *Repository) UpsertRecord(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, user_id, class_session_id, status, recorded_at, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, class_session_id) DO UPDATE SET
			status = EXCLUDED.status,
			recorded_at = EXCLUDED.recorded_at,
			notes = EXCLUDED.notes
	`, rec.ID, rec.UserID, rec.ClassSessionID, rec.Status, rec.RecordedAt, nullable(rec.Notes))
	return err
}

// SweepAbsentees inserts an ABSENT row for every enrolled student without an
// attendance record for the class session. Runs in one transaction so a
// partial sweep never commits; re-running after success inserts nothing.
func (r *Repository) SweepAbsentees(ctx context.Context, courseID, classSessionID string, at time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT e.student_id
		FROM enrollments e
		WHERE e.course_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM attendance a
			WHERE a.user_id = e.student_id AND a.class_session_id = $2
		  )
	`, courseID, classSessionID)
	if err != nil {
		return 0, err
	}
	var missing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		missing = append(missing, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	swept := 0
	for _, studentID := range missing {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (id, user_id, class_session_id, status, recorded_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (user_id, class_session_id) DO NOTHING
		`, uuid.NewString(), studentID, classSessionID, StatusAbsent, at)
		if err != nil {
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			swept++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return swept, nil
}

// QrSessionInfo is a QR session joined with its course for listings.
type QrSessionInfo struct {
	QrSession
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
}

// RecentQrSessions returns a lecturer's QR sessions, newest first.
func (r *Repository) RecentQrSessions(ctx context.Context, lecturerID string, limit int) ([]QrSessionInfo, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT q.id, q.course_id, q.lecturer_id, q.class_session_id, q.payload,
		       COALESCE(q.location, ''), q.duration_minutes, q.expires_at, q.created_at,
		       c.code, c.name
		FROM qr_sessions q
		JOIN courses c ON c.id = q.course_id
		WHERE q.lecturer_id = $1
		ORDER BY q.created_at DESC
		LIMIT $2
	`, lecturerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []QrSessionInfo
	for rows.Next() {
		var info QrSessionInfo
		if err := rows.Scan(&info.ID, &info.CourseID, &info.LecturerID, &info.ClassSessionID, &info.Payload,
			&info.Location, &info.DurationMinutes, &info.ExpiresAt, &info.CreatedAt,
			&info.CourseCode, &info.CourseName); err != nil {
			return nil, err
		}
		res = append(res, info)
	}
	return res, rows.Err()
}

// SessionRecords returns the attendance rows for one class session with
// student identity attached.
func (r *Repository) SessionRecords(ctx context.Context, classSessionID string) ([]SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.class_session_id, a.status, a.recorded_at, COALESCE(a.notes, ''),
		       u.name, u.email, COALESCE(u.matric_number, '')
		FROM attendance a
		JOIN users u ON u.id = a.user_id
		WHERE a.class_session_id = $1
		ORDER BY u.name
	`, classSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []SessionRecord
	for rows.Next() {
		var sr SessionRecord
		if err := rows.Scan(&sr.ID, &sr.UserID, &sr.ClassSessionID, &sr.Status, &sr.RecordedAt, &sr.Notes,
			&sr.StudentName, &sr.StudentEmail, &sr.MatricNumber); err != nil {
			return nil, err
		}
		res = append(res, sr)
	}
	return res, rows.Err()
}

// StudentRecord is an attendance row joined with its session and course.
type StudentRecord struct {
	Record
	SessionDate time.Time `json:"session_date"`
	CourseCode  string    `json:"course_code"`
	CourseName  string    `json:"course_name"`
}

// StudentRecords returns a student's attendance history, newest first.
func (r *Repository) StudentRecords(ctx context.Context, studentID string, limit, offset int) ([]StudentRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.class_session_id, a.status, a.recorded_at, COALESCE(a.notes, ''),
		       s.date, c.code, c.name
		FROM attendance a
		JOIN class_sessions s ON s.id = a.class_session_id
		JOIN courses c ON c.id = s.course_id
		WHERE a.user_id = $1
		ORDER BY a.recorded_at DESC
		LIMIT $2 OFFSET $3
	`, studentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []StudentRecord
	for rows.Next() {
		var sr StudentRecord
		if err := rows.Scan(&sr.ID, &sr.UserID, &sr.ClassSessionID, &sr.Status, &sr.RecordedAt, &sr.Notes,
			&sr.SessionDate, &sr.CourseCode, &sr.CourseName); err != nil {
			return nil, err
		}
		res = append(res, sr)
	}
	return res, rows.Err()
}

// CourseSummaries aggregates per-student counts for a course across all of
// its class sessions.
func (r *Repository) CourseSummaries(ctx context.Context, courseID string) ([]CourseSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, COALESCE(u.matric_number, ''),
		       COUNT(*) FILTER (WHERE a.status = 'PRESENT'),
		       COUNT(*) FILTER (WHERE a.status = 'ABSENT'),
		       COUNT(*) FILTER (WHERE a.status = 'LATE')
		FROM enrollments e
		JOIN users u ON u.id = e.student_id
		LEFT JOIN class_sessions s ON s.course_id = e.course_id
		LEFT JOIN attendance a ON a.class_session_id = s.id AND a.user_id = u.id
		WHERE e.course_id = $1
		GROUP BY u.id, u.name, u.matric_number
		ORDER BY u.name
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []CourseSummary
	for rows.Next() {
		var cs CourseSummary
		if err := rows.Scan(&cs.StudentID, &cs.StudentName, &cs.MatricNumber, &cs.Present, &cs.Absent, &cs.Late); err != nil {
			return nil, err
		}
		total := cs.Present + cs.Absent + cs.Late
		if total > 0 {
			cs.Rate = float64(cs.Present+cs.Late) / float64(total)
		}
		res = append(res, cs)
	}
	return res, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
