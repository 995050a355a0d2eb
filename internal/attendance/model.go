package attendance

import "time"

// Attendance status values.
const (
	StatusPresent = "PRESENT"
	StatusAbsent  = "ABSENT"
	StatusLate    = "LATE"
)

// ValidStatus reports whether s is a known attendance status.
func ValidStatus(s string) bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// ClassSession is one scheduled meeting of a course, the unit attendance is
// recorded against.
type ClassSession struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Date      time.Time `json:"date"`
	Title     string    `json:"title,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// QrSession is a time-boxed attendance-capture window opened by a lecturer.
type QrSession struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"course_id"`
	LecturerID      string    `json:"lecturer_id"`
	ClassSessionID  string    `json:"class_session_id"`
	Payload         string    `json:"payload"`
	Location        string    `json:"location,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	ExpiresAt       time.Time `json:"expires_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// Record is one attendance row.
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ClassSessionID string    `json:"class_session_id"`
	Status         string    `json:"status"`
	RecordedAt     time.Time `json:"recorded_at"`
	Notes          string    `json:"notes,omitempty"`
}

// SessionRecord is a row joined with the student's identity for review pages.
type SessionRecord struct {
	Record
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	MatricNumber string `json:"matric_number,omitempty"`
}

// CourseSummary aggregates one student's attendance within a course.
type CourseSummary struct {
	StudentID    string  `json:"student_id"`
	StudentName  string  `json:"student_name"`
	MatricNumber string  `json:"matric_number,omitempty"`
	Present      int     `json:"present"`
	Absent       int     `json:"absent"`
	Late         int     `json:"late"`
	Rate         float64 `json:"rate"`
}
