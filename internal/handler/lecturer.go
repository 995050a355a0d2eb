package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/auth"
)

// MyCourses lists the courses assigned to the calling lecturer.
func (h *Handler) MyCourses(c *gin.Context) {
	claims, _ := auth.CallerFrom(c)
	list, err := h.courses.ForLecturer(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": list})
}

type openSessionRequest struct {
	CourseID        string `json:"course_id" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
	Location        string `json:"location"`
}

// OpenSession opens a QR attendance window and returns the payload to render.
func (h *Handler) OpenSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, _ := auth.CallerFrom(c)
	qs, err := h.att.Open(c.Request.Context(), req.CourseID, claims.UserID, req.DurationMinutes, req.Location)
	if err != nil {
		fail(c, err)
		return
	}

	h.rec.Record(c.Request.Context(), claims.UserID, "QR_GENERATED", "QrSession", qs.ID,
		"QR session opened for course "+qs.CourseID, c.ClientIP())
	c.JSON(http.StatusCreated, qs)
}

// CloseSession ends a QR session and sweeps absentees.
func (h *Handler) CloseSession(c *gin.Context) {
	claims, _ := auth.CallerFrom(c)
	res, err := h.att.Close(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	h.rec.Record(c.Request.Context(), claims.UserID, "SESSION_CLOSED", "QrSession", c.Param("id"),
		"Session closed; absentees marked", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"class_session_id": res.ClassSessionID,
		"marked_absent":    res.Swept,
	})
}

// RecentSessions lists the lecturer's QR sessions, newest first.
func (h *Handler) RecentSessions(c *gin.Context) {
	claims, _ := auth.CallerFrom(c)
	list, err := h.attRepo.RecentQrSessions(c.Request.Context(), claims.UserID, intQuery(c, "limit", 10))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

// SessionRecords returns the attendance rows for one class session.
func (h *Handler) SessionRecords(c *gin.Context) {
	records, err := h.attRepo.SessionRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

type manualMarkRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// MarkManually overrides a student's record for a class session.
func (h *Handler) MarkManually(c *gin.Context) {
	var req manualMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, _ := auth.CallerFrom(c)
	classSessionID := c.Param("id")
	if err := h.att.MarkManually(c.Request.Context(), classSessionID, req.StudentID, req.Status, claims.UserID); err != nil {
		fail(c, err)
		return
	}

	h.rec.Record(c.Request.Context(), claims.UserID, "ATTENDANCE_OVERRIDDEN", "Attendance", classSessionID,
		"Set "+req.StudentID+" to "+req.Status, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CourseSummary aggregates per-student attendance for one course.
func (h *Handler) CourseSummary(c *gin.Context) {
	summaries, err := h.attRepo.CourseSummaries(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summaries})
}
