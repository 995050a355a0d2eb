// Package qrsign signs and verifies the short payload strings embedded in
// attendance QR codes. Signing is deterministic and keyed by a single shared
// secret, so a payload rendered by one request stays verifiable by any later
// request handling the scan.
package qrsign

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureLen is the hex length of a truncated payload digest.
const SignatureLen = 16

// Signer produces and checks payload signatures.
type Signer struct {
	secret string
}

// New creates a Signer keyed by the given secret.
func New(secret string) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the truncated hex digest of payload + secret.
func (s *Signer) Sign(payload string) string {
	sum := sha256.Sum256([]byte(payload + s.secret))
	return hex.EncodeToString(sum[:])[:SignatureLen]
}

// Verify recomputes the signature and compares it in constant time.
func (s *Signer) Verify(payload, sig string) bool {
	expected := s.Sign(payload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}

// Payload is the decoded form of a QR code string.
type Payload struct {
	CourseID       string
	ClassSessionID string
	IssuedAt       time.Time
	Signature      string
}

// Encode builds the wire string "courseID:classSessionID:issuedAtMillis:sig".
func (s *Signer) Encode(courseID, classSessionID string, issuedAt time.Time) string {
	data := fmt.Sprintf("%s:%s:%d", courseID, classSessionID, issuedAt.UnixMilli())
	return data + ":" + s.Sign(data)
}

// Decode splits a raw QR string into its four fields without verifying it.
func Decode(raw string) (Payload, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 4 {
		return Payload{}, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	millis, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Payload{}, fmt.Errorf("bad timestamp %q: %w", parts[2], err)
	}
	return Payload{
		CourseID:       parts[0],
		ClassSessionID: parts[1],
		IssuedAt:       time.UnixMilli(millis),
		Signature:      parts[3],
	}, nil
}

// SignedPortion is the part of the payload covered by the signature.
func (p Payload) SignedPortion() string {
	return fmt.Sprintf("%s:%s:%d", p.CourseID, p.ClassSessionID, p.IssuedAt.UnixMilli())
}
