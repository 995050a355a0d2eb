package qrsign

import (
	"strings"
	"testing"
	"time"
)

func TestSignDeterministic(t *testing.T) {
	a := New("secret")
	b := New("secret")

	sig := a.Sign("course:session:1700000000000")
	if got := b.Sign("course:session:1700000000000"); got != sig {
		t.Fatalf("same input produced different signatures: %q vs %q", sig, got)
	}
	if len(sig) != SignatureLen {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureLen)
	}
}

func TestVerify(t *testing.T) {
	s := New("secret")
	payload := "c1:s1:1700000000000"
	sig := s.Sign(payload)

	if !s.Verify(payload, sig) {
		t.Fatal("valid signature rejected")
	}
	if s.Verify(payload+"x", sig) {
		t.Fatal("modified payload accepted")
	}
	if New("other").Verify(payload, sig) {
		t.Fatal("signature verified under a different secret")
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	s := New("secret")
	payload := "c1:s1:1700000000000"
	sig := s.Sign(payload)

	// Flip every position one at a time; none may verify.
	for i := 0; i < len(sig); i++ {
		alt := byte('0')
		if sig[i] == '0' {
			alt = '1'
		}
		tampered := sig[:i] + string(alt) + sig[i+1:]
		if s.Verify(payload, tampered) {
			t.Fatalf("tampered signature accepted at position %d", i)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := New("secret")
	issued := time.UnixMilli(time.Now().UnixMilli())

	raw := s.Encode("course-1", "session-1", issued)
	if got := strings.Count(raw, ":"); got != 3 {
		t.Fatalf("encoded payload has %d separators, want 3", got)
	}

	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.CourseID != "course-1" || p.ClassSessionID != "session-1" {
		t.Fatalf("decoded fields = %q/%q", p.CourseID, p.ClassSessionID)
	}
	if !p.IssuedAt.Equal(issued) {
		t.Fatalf("issuedAt = %v, want %v", p.IssuedAt, issued)
	}
	if !s.Verify(p.SignedPortion(), p.Signature) {
		t.Fatal("round-tripped payload does not verify")
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []string{
		"",
		"a:b:c",
		"a:b:c:d:e",
		"a:b:notanumber:sig",
	}
	for _, raw := range cases {
		if _, err := Decode(raw); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", raw)
		}
	}
}
