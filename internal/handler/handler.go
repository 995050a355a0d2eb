// Package handler wires the HTTP surface: auth, admin, lecturer and student
// routes, plus the live session watch socket.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rollcall/internal/attendance"
	"rollcall/internal/audit"
	"rollcall/internal/config"
	"rollcall/internal/course"
	"rollcall/internal/enrollment"
	"rollcall/internal/live"
	"rollcall/internal/reports"
	"rollcall/internal/store"
	"rollcall/internal/users"
)

// Handler carries the dependencies shared by all routes.
type Handler struct {
	cfg     config.App
	log     *zap.Logger
	db      *store.DB
	redis   *store.Redis
	users   *users.Repository
	courses *course.Repository
	att     *attendance.Service
	attRepo *attendance.Repository
	enroll  *enrollment.Repository
	reports *reports.Repository
	auditDB *audit.Repository
	rec     *audit.Recorder
	hub     *live.Hub
}

// New creates a Handler.
func New(
	cfg config.App,
	log *zap.Logger,
	db *store.DB,
	redis *store.Redis,
	userRepo *users.Repository,
	courseRepo *course.Repository,
	att *attendance.Service,
	attRepo *attendance.Repository,
	enrollRepo *enrollment.Repository,
	reportRepo *reports.Repository,
	auditRepo *audit.Repository,
	rec *audit.Recorder,
	hub *live.Hub,
) *Handler {
	return &Handler{
		cfg:     cfg,
		log:     log,
		db:      db,
		redis:   redis,
		users:   userRepo,
		courses: courseRepo,
		att:     att,
		attRepo: attRepo,
		enroll:  enrollRepo,
		reports: reportRepo,
		auditDB: auditRepo,
		rec:     rec,
		hub:     hub,
	}
}

// Healthz reports process and collaborator health.
func (h *Handler) Healthz(c *gin.Context) {
	redisHealthy := h.redis.Healthy(c.Request.Context())
	dbHealthy := h.db != nil && h.db.Client.PingContext(c.Request.Context()) == nil
	status := http.StatusOK
	if !redisHealthy || !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
}

// fail maps domain errors onto HTTP statuses with a user-facing message.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrParse):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid QR code format"})
	case errors.Is(err, attendance.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid QR code signature"})
	case errors.Is(err, attendance.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": "QR code has expired"})
	case errors.Is(err, attendance.ErrNotAssigned):
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not assigned to this course"})
	case errors.Is(err, attendance.ErrNotEnrolled):
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not enrolled in this course"})
	case errors.Is(err, attendance.ErrNotFound),
		errors.Is(err, users.ErrNotFound),
		errors.Is(err, course.ErrNotFound),
		errors.Is(err, enrollment.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, users.ErrDuplicateEmail),
		errors.Is(err, course.ErrDuplicateCode):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
