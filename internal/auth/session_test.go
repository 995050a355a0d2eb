package auth

import (
	"testing"
	"time"
)

func TestSessionRoundTrip(t *testing.T) {
	token, exp, err := IssueSession("u1", RoleLecturer, "Ada", "ada@example.edu", "key", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if time.Until(exp) < 55*time.Minute {
		t.Fatalf("expiry too soon: %v", exp)
	}

	claims, err := ParseSession(token, "key")
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != RoleLecturer || claims.Email != "ada@example.edu" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestSessionWrongKey(t *testing.T) {
	token, _, err := IssueSession("u1", RoleStudent, "", "s@example.edu", "key", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if _, err := ParseSession(token, "other"); err == nil {
		t.Fatal("token parsed under the wrong key")
	}
}

func TestSessionExpired(t *testing.T) {
	token, _, err := IssueSession("u1", RoleStudent, "", "s@example.edu", "key", -time.Minute)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if _, err := ParseSession(token, "key"); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Fatal("wrong password accepted")
	}
}
