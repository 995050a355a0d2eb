package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rollcall/internal/enrollment"
	"rollcall/internal/qrsign"
)

// Store is the persistence surface the service needs. Implemented by
// Repository; tests substitute an in-memory version.
type Store interface {
	LecturerAssigned(ctx context.Context, courseID, lecturerID string) (bool, error)
	CreateClassSession(ctx context.Context, cs ClassSession) error
	CreateQrSession(ctx context.Context, qs QrSession) error
	QrSessionOwned(ctx context.Context, id, lecturerID string) (QrSession, error)
	QrSessionByClassSession(ctx context.Context, classSessionID string) (QrSession, error)
	ExpireQrSession(ctx context.Context, id string, at time.Time) error
	InsertRecordIfAbsent(ctx context.Context, rec Record) (bool, error)
	UpsertRecord(ctx context.Context, rec Record) error
	SweepAbsentees(ctx context.Context, courseID, classSessionID string, at time.Time) (int, error)
}

// Enroller resolves course membership during redemption.
type Enroller interface {
	Resolve(ctx context.Context, studentID, courseID string) (enrollment.Result, error)
}

// Service is the attendance session manager. All state lives in rows; the
// service is stateless between calls.
type Service struct {
	store  Store
	enroll Enroller
	signer *qrsign.Signer
	window time.Duration
	log    *zap.Logger
	now    func() time.Time
}

// NewService creates a Service. window is the age limit on a payload's
// embedded timestamp, enforced independently of the QR session row's expiry.
func NewService(store Store, enroll Enroller, signer *qrsign.Signer, window time.Duration, log *zap.Logger) *Service {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Service{
		store:  store,
		enroll: enroll,
		signer: signer,
		window: window,
		log:    log,
		now:    time.Now,
	}
}

// Open creates a class session and a QR session for it, returning the QR
// session with its signed payload for rendering.
func (s *Service) Open(ctx context.Context, courseID, lecturerID string, durationMinutes int, location string) (QrSession, error) {
	if courseID == "" || lecturerID == "" {
		return QrSession{}, fmt.Errorf("%w: course and lecturer required", ErrValidation)
	}
	if durationMinutes <= 0 {
		return QrSession{}, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	assigned, err := s.store.LecturerAssigned(ctx, courseID, lecturerID)
	if err != nil {
		return QrSession{}, fmt.Errorf("assignment lookup: %w", err)
	}
	if !assigned {
		return QrSession{}, ErrNotAssigned
	}

	now := s.now().UTC()
	cs := ClassSession{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Date:      now,
		CreatedAt: now,
	}
	if err := s.store.CreateClassSession(ctx, cs); err != nil {
		return QrSession{}, fmt.Errorf("create class session: %w", err)
	}

	qs := QrSession{
		ID:              uuid.NewString(),
		CourseID:        courseID,
		LecturerID:      lecturerID,
		ClassSessionID:  cs.ID,
		Payload:         s.signer.Encode(courseID, cs.ID, now),
		Location:        location,
		DurationMinutes: durationMinutes,
		ExpiresAt:       now.Add(time.Duration(durationMinutes) * time.Minute),
		CreatedAt:       now,
	}
	if err := s.store.CreateQrSession(ctx, qs); err != nil {
		return QrSession{}, fmt.Errorf("create qr session: %w", err)
	}

	qrSessionsOpened.Inc()
	s.log.Info("qr session opened",
		zap.String("qr_session_id", qs.ID),
		zap.String("course_id", courseID),
		zap.String("lecturer_id", lecturerID),
		zap.Time("expires_at", qs.ExpiresAt))
	return qs, nil
}

// RedeemResult describes the outcome of a successful redemption.
type RedeemResult struct {
	CourseID        string
	ClassSessionID  string
	AlreadyRecorded bool
	AutoEnrolled    bool
}

// Redeem validates a scanned payload and records the student PRESENT. Both
// expiry authorities must hold: the payload's embedded timestamp within the
// redemption window, and the QR session row's expires_at still in the future.
// Redeeming twice is an idempotent success, never a duplicate row.
func (s *Service) Redeem(ctx context.Context, rawPayload, studentID string) (RedeemResult, error) {
	p, err := qrsign.Decode(rawPayload)
	if err != nil {
		redemptions.WithLabelValues("parse_error").Inc()
		return RedeemResult{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if !s.signer.Verify(p.SignedPortion(), p.Signature) {
		redemptions.WithLabelValues("bad_signature").Inc()
		return RedeemResult{}, ErrInvalidSignature
	}

	now := s.now().UTC()
	if now.Sub(p.IssuedAt) > s.window {
		redemptions.WithLabelValues("expired").Inc()
		return RedeemResult{}, fmt.Errorf("%w: payload older than %s", ErrExpired, s.window)
	}

	qs, err := s.store.QrSessionByClassSession(ctx, p.ClassSessionID)
	if err != nil {
		redemptions.WithLabelValues("not_found").Inc()
		return RedeemResult{}, err
	}
	if now.After(qs.ExpiresAt) {
		redemptions.WithLabelValues("expired").Inc()
		return RedeemResult{}, fmt.Errorf("%w: session ended", ErrExpired)
	}

	membership, err := s.enroll.Resolve(ctx, studentID, p.CourseID)
	if err != nil {
		redemptions.WithLabelValues("error").Inc()
		return RedeemResult{}, err
	}
	if !membership.Enrolled {
		redemptions.WithLabelValues("not_enrolled").Inc()
		return RedeemResult{}, ErrNotEnrolled
	}

	rec := Record{
		ID:             uuid.NewString(),
		UserID:         studentID,
		ClassSessionID: p.ClassSessionID,
		Status:         StatusPresent,
		RecordedAt:     now,
		Notes:          "Recorded via QR code",
	}
	inserted, err := s.store.InsertRecordIfAbsent(ctx, rec)
	if err != nil {
		redemptions.WithLabelValues("error").Inc()
		return RedeemResult{}, fmt.Errorf("record attendance: %w", err)
	}

	result := RedeemResult{
		CourseID:        p.CourseID,
		ClassSessionID:  p.ClassSessionID,
		AlreadyRecorded: !inserted,
		AutoEnrolled:    membership.AutoEnrolled,
	}
	if inserted {
		redemptions.WithLabelValues("present").Inc()
	} else {
		redemptions.WithLabelValues("duplicate").Inc()
	}
	s.log.Info("redemption accepted",
		zap.String("student_id", studentID),
		zap.String("class_session_id", p.ClassSessionID),
		zap.Bool("already_recorded", result.AlreadyRecorded),
		zap.Bool("auto_enrolled", result.AutoEnrolled))
	return result, nil
}

// CloseResult reports what a Close call did.
type CloseResult struct {
	ClassSessionID string
	Swept          int
}

// Close ends a QR session and marks every enrolled student without a record
// ABSENT. Closing an already-expired session skips the expiry update; the
// sweep only inserts rows for students still missing one, so running Close
// again changes nothing.
func (s *Service) Close(ctx context.Context, qrSessionID, lecturerID string) (CloseResult, error) {
	qs, err := s.store.QrSessionOwned(ctx, qrSessionID, lecturerID)
	if err != nil {
		return CloseResult{}, err
	}

	now := s.now().UTC()
	if now.Before(qs.ExpiresAt) {
		if err := s.store.ExpireQrSession(ctx, qs.ID, now); err != nil {
			return CloseResult{}, fmt.Errorf("expire qr session: %w", err)
		}
	}

	swept, err := s.store.SweepAbsentees(ctx, qs.CourseID, qs.ClassSessionID, now)
	if err != nil {
		return CloseResult{}, fmt.Errorf("absentee sweep: %w", err)
	}
	absencesSwept.Add(float64(swept))

	s.log.Info("qr session closed",
		zap.String("qr_session_id", qs.ID),
		zap.String("class_session_id", qs.ClassSessionID),
		zap.Int("swept", swept))
	return CloseResult{ClassSessionID: qs.ClassSessionID, Swept: swept}, nil
}

// MarkManually upserts a student's record for a class session to the given
// status. Last write wins; there is no precondition on the prior value.
func (s *Service) MarkManually(ctx context.Context, classSessionID, studentID, status, lecturerID string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	rec := Record{
		ID:             uuid.NewString(),
		UserID:         studentID,
		ClassSessionID: classSessionID,
		Status:         status,
		RecordedAt:     s.now().UTC(),
		Notes:          "Manually set by lecturer",
	}
	if err := s.store.UpsertRecord(ctx, rec); err != nil {
		return fmt.Errorf("manual mark: %w", err)
	}
	s.log.Info("attendance overridden",
		zap.String("class_session_id", classSessionID),
		zap.String("student_id", studentID),
		zap.String("status", status),
		zap.String("lecturer_id", lecturerID))
	return nil
}
