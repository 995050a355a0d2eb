package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const claimsKey = "session_claims"

// SessionAuth reads and validates the session cookie. Requests without a
// valid session are rejected with 401 before any handler runs.
func SessionAuth(signingKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(SessionCookie)
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		claims, err := ParseSession(cookie, signingKey)
		if err != nil {
			c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRoles gates a route group to the given roles. Runs after SessionAuth;
// an authenticated caller with the wrong role gets 403, never a silent pass.
func RequireRoles(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CallerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		if !Authorize(claims.Role, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// CallerFrom returns the session claims stored by SessionAuth.
func CallerFrom(c *gin.Context) (SessionClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return SessionClaims{}, false
	}
	claims, ok := v.(SessionClaims)
	return claims, ok
}
