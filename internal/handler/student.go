package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/live"
)

type redeemRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// Redeem accepts a scanned QR payload and marks the caller present. A repeat
// scan succeeds without creating a second record.
func (h *Handler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, _ := auth.CallerFrom(c)
	res, err := h.att.Redeem(c.Request.Context(), req.Payload, claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	if !res.AlreadyRecorded {
		if qs, err := h.attRepo.QrSessionByClassSession(c.Request.Context(), res.ClassSessionID); err == nil {
			h.hub.Publish(live.CheckIn{
				QrSessionID:  qs.ID,
				StudentID:    claims.UserID,
				StudentName:  claims.Name,
				Status:       attendance.StatusPresent,
				AutoEnrolled: res.AutoEnrolled,
				At:           time.Now().UTC(),
			})
		}
		h.rec.Record(c.Request.Context(), claims.UserID, "ATTENDANCE_RECORDED", "Attendance", res.ClassSessionID,
			"Recorded via QR code", c.ClientIP())
	}

	message := "Attendance recorded successfully"
	if res.AlreadyRecorded {
		message = "Your attendance was already recorded"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":          message,
		"class_session_id": res.ClassSessionID,
		"already_recorded": res.AlreadyRecorded,
		"auto_enrolled":    res.AutoEnrolled,
	})
}

// MyRecords returns the caller's attendance history with an overall rate.
func (h *Handler) MyRecords(c *gin.Context) {
	claims, _ := auth.CallerFrom(c)
	records, err := h.attRepo.StudentRecords(c.Request.Context(), claims.UserID, intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		fail(c, err)
		return
	}

	present, total := 0, len(records)
	for _, r := range records {
		if r.Status == attendance.StatusPresent || r.Status == attendance.StatusLate {
			present++
		}
	}
	rate := 0.0
	if total > 0 {
		rate = float64(present) / float64(total)
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "rate": rate})
}

// EnrolledCourses lists the caller's courses.
func (h *Handler) EnrolledCourses(c *gin.Context) {
	claims, _ := auth.CallerFrom(c)
	list, err := h.courses.ForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": list})
}
