package attendance

import "errors"

// Redemption and session-management failures. All are request-scoped and
// user-visible; none are fatal to the process.
var (
	ErrValidation       = errors.New("invalid input")
	ErrNotAssigned      = errors.New("lecturer not assigned to course")
	ErrNotEnrolled      = errors.New("student not enrolled in course")
	ErrParse            = errors.New("malformed QR payload")
	ErrInvalidSignature = errors.New("QR signature mismatch")
	ErrExpired          = errors.New("QR code expired")
	ErrNotFound         = errors.New("session not found")
)
