package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rollcall/internal/auth"
	"rollcall/internal/users"
)

type registerRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	Role         string `json:"role"`
	Department   string `json:"department"`
	MatricNumber string `json:"matric_number"`
	Level        string `json:"level"`
}

// Register creates an account. Role defaults to STUDENT; matric number and
// level only apply to students.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := auth.Role(req.Role)
	if req.Role == "" {
		role = auth.RoleStudent
	}
	if !auth.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid role is required"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("password hash failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	u := users.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         role,
		Department:   req.Department,
	}
	if role == auth.RoleStudent {
		u.MatricNumber = req.MatricNumber
		u.Level = req.Level
	}

	created, err := h.users.Create(c.Request.Context(), u)
	if err != nil {
		fail(c, err)
		return
	}

	h.rec.Record(c.Request.Context(), created.ID, "USER_REGISTERED", "User", created.ID,
		"Registered as "+string(created.Role), c.ClientIP())
	c.JSON(http.StatusCreated, created)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

// Login verifies credentials and sets the session cookie. Remember-me
// stretches the cookie from one day to thirty.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.ByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "incorrect email or password"})
			return
		}
		fail(c, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.rec.Record(c.Request.Context(), "", "LOGIN_FAILED", "User", u.ID,
			"Wrong password for "+req.Email, c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "incorrect email or password"})
		return
	}

	ttl := h.cfg.SessionTTL
	if req.Remember {
		ttl = h.cfg.RememberTTL
	}
	token, _, err := auth.IssueSession(u.ID, u.Role, u.Name, u.Email, h.cfg.SessionSecret, ttl)
	if err != nil {
		h.log.Error("session issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	secure := h.cfg.Env == "production" || h.cfg.Env == "prod"
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, token, int(ttl.Seconds()), "/", "", secure, true)

	h.rec.Record(c.Request.Context(), u.ID, "USER_LOGIN", "User", u.ID,
		"User "+u.Email+" logged in", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	claims, _ := auth.CallerFrom(c)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)
	h.rec.Record(c.Request.Context(), claims.UserID, "USER_LOGOUT", "User", claims.UserID, "", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Profile returns the caller's full user record.
func (h *Handler) Profile(c *gin.Context) {
	claims, _ := auth.CallerFrom(c)
	u, err := h.users.ByID(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type profileUpdateRequest struct {
	Name       string `json:"name" binding:"required"`
	Department string `json:"department"`
}

// UpdateProfile lets the caller change their own display fields. Email, role
// and student attributes stay admin-controlled.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, _ := auth.CallerFrom(c)
	u, err := h.users.ByID(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	u.Name = req.Name
	u.Department = req.Department
	if err := h.users.Update(c.Request.Context(), u); err != nil {
		fail(c, err)
		return
	}

	h.rec.Record(c.Request.Context(), claims.UserID, "PROFILE_UPDATED", "User", claims.UserID, "", c.ClientIP())
	c.JSON(http.StatusOK, u)
}

type changePasswordRequest struct {
	Current string `json:"current" binding:"required"`
	New     string `json:"new" binding:"required,min=6"`
}

// ChangePassword verifies the current password before setting a new one.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, _ := auth.CallerFrom(c)
	u, err := h.users.ByID(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Current) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current password is incorrect"})
		return
	}

	hash, err := auth.HashPassword(req.New)
	if err != nil {
		h.log.Error("password hash failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := h.users.SetPassword(c.Request.Context(), u.ID, hash); err != nil {
		fail(c, err)
		return
	}

	h.rec.Record(c.Request.Context(), u.ID, "PASSWORD_CHANGED", "User", u.ID, "", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
