package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newGateRouter(t *testing.T, key string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", SessionAuth(key))
	g.GET("/lecturer", RequireRoles(RoleLecturer), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	g.GET("/staff", RequireRoles(RoleAdmin, RoleLecturer), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, path, cookie string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestGateNoSession(t *testing.T) {
	r := newGateRouter(t, "key")
	if code := doRequest(r, "/lecturer", ""); code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
}

func TestGateInvalidSession(t *testing.T) {
	r := newGateRouter(t, "key")
	token, _, err := IssueSession("u1", RoleLecturer, "", "l@example.edu", "otherkey", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if code := doRequest(r, "/lecturer", token); code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
}

func TestGateWrongRole(t *testing.T) {
	r := newGateRouter(t, "key")
	token, _, err := IssueSession("u1", RoleStudent, "", "s@example.edu", "key", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if code := doRequest(r, "/lecturer", token); code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", code)
	}
}

func TestGateAllows(t *testing.T) {
	r := newGateRouter(t, "key")

	lecturer, _, err := IssueSession("u1", RoleLecturer, "", "l@example.edu", "key", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if code := doRequest(r, "/lecturer", lecturer); code != http.StatusOK {
		t.Fatalf("lecturer on /lecturer: status = %d, want 200", code)
	}

	admin, _, err := IssueSession("u2", RoleAdmin, "", "a@example.edu", "key", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if code := doRequest(r, "/staff", admin); code != http.StatusOK {
		t.Fatalf("admin on /staff: status = %d, want 200", code)
	}
	if code := doRequest(r, "/lecturer", admin); code != http.StatusForbidden {
		t.Fatalf("admin on /lecturer: status = %d, want 403", code)
	}
}
