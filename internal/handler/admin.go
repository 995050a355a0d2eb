package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rollcall/internal/auth"
	"rollcall/internal/course"
	"rollcall/internal/users"
)

// ── users ──

// ListUsers returns users, optionally filtered by ?role=.
func (h *Handler) ListUsers(c *gin.Context) {
	role := auth.Role(c.Query("role"))
	if role != "" && !auth.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	list, err := h.users.List(c.Request.Context(), role, intQuery(c, "limit", 100), intQuery(c, "offset", 0))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

type adminUserRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password"`
	Role         string `json:"role" binding:"required"`
	Department   string `json:"department"`
	MatricNumber string `json:"matric_number"`
	Level        string `json:"level"`
}

// CreateUser adds a user with an admin-chosen role.
func (h *Handler) CreateUser(c *gin.Context) {
	var req adminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := auth.Role(req.Role)
	if !auth.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	if req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
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

	claims, _ := auth.CallerFrom(c)
	h.rec.Record(c.Request.Context(), claims.UserID, "USER_CREATED", "User", created.ID,
		"Created "+string(created.Role)+" user: "+created.Email, c.ClientIP())
	c.JSON(http.StatusCreated, created)
}

// UpdateUser rewrites a user's profile; a role change is audited separately.
func (h *Handler) UpdateUser(c *gin.Context) {
	var req adminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := auth.Role(req.Role)
	if !auth.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	id := c.Param("id")
	old, err := h.users.ByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	updated := old
	updated.Name = req.Name
	updated.Email = req.Email
	updated.Role = role
	updated.Department = req.Department
	updated.MatricNumber = ""
	updated.Level = ""
	if role == auth.RoleStudent {
		updated.MatricNumber = req.MatricNumber
		updated.Level = req.Level
	}
	if err := h.users.Update(c.Request.Context(), updated); err != nil {
		fail(c, err)
		return
	}

	claims, _ := auth.CallerFrom(c)
	action, details := "USER_UPDATED", "Updated user "+old.Email
	if old.Role != role {
		action = "USER_ROLE_CHANGED"
		details = "Changed role from " + string(old.Role) + " to " + string(role) + " for " + old.Email
	}
	h.rec.Record(c.Request.Context(), claims.UserID, action, "User", id, details, c.ClientIP())
	c.JSON(http.StatusOK, updated)
}

// DeleteUser removes a user and their owned rows.
func (h *Handler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	u, err := h.users.ByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	claims, _ := auth.CallerFrom(c)
	h.rec.Record(c.Request.Context(), claims.UserID, "USER_DELETED", "User", id,
		"Deleted "+string(u.Role)+" user: "+u.Email, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ── courses ──

// ListCourses returns all courses with their assigned lecturers.
func (h *Handler) ListCourses(c *gin.Context) {
	list, err := h.courses.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	type courseWithLecturers struct {
		course.Course
		Lecturers []course.Lecturer `json:"lecturers"`
	}
	out := make([]courseWithLecturers, 0, len(list))
	for _, crs := range list {
		lecturers, err := h.courses.Lecturers(c.Request.Context(), crs.ID)
		if err != nil {
			fail(c, err)
			return
		}
		out = append(out, courseWithLecturers{Course: crs, Lecturers: lecturers})
	}
	c.JSON(http.StatusOK, gin.H{"courses": out})
}

type courseRequest struct {
	Code        string   `json:"code" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Department  string   `json:"department"`
	Semester    string   `json:"semester"`
	LecturerIDs []string `json:"lecturer_ids"`
}

// CreateCourse adds a course and assigns its lecturers.
func (h *Handler) CreateCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.courses.Create(c.Request.Context(), course.Course{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Department:  req.Department,
		Semester:    req.Semester,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if len(req.LecturerIDs) > 0 {
		if err := h.courses.SetLecturers(c.Request.Context(), created.ID, req.LecturerIDs); err != nil {
			fail(c, err)
			return
		}
	}

	claims, _ := auth.CallerFrom(c)
	h.rec.Record(c.Request.Context(), claims.UserID, "COURSE_CREATED", "Course", created.ID,
		"Created course "+created.Code, c.ClientIP())
	c.JSON(http.StatusCreated, created)
}

// UpdateCourse rewrites a course and replaces its lecturer set.
func (h *Handler) UpdateCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	crs, err := h.courses.ByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	crs.Code = req.Code
	crs.Name = req.Name
	crs.Description = req.Description
	crs.Department = req.Department
	if req.Semester != "" {
		crs.Semester = req.Semester
	}
	if err := h.courses.Update(c.Request.Context(), crs); err != nil {
		fail(c, err)
		return
	}
	if err := h.courses.SetLecturers(c.Request.Context(), id, req.LecturerIDs); err != nil {
		fail(c, err)
		return
	}

	claims, _ := auth.CallerFrom(c)
	h.rec.Record(c.Request.Context(), claims.UserID, "COURSE_UPDATED", "Course", id,
		"Updated course "+crs.Code, c.ClientIP())
	c.JSON(http.StatusOK, crs)
}

// DeleteCourse removes a course; sessions and enrollments cascade.
func (h *Handler) DeleteCourse(c *gin.Context) {
	id := c.Param("id")
	crs, err := h.courses.ByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.courses.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	claims, _ := auth.CallerFrom(c)
	h.rec.Record(c.Request.Context(), claims.UserID, "COURSE_DELETED", "Course", id,
		"Deleted course "+crs.Code, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ── enrollments ──

type enrollRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

// EnrollStudent explicitly enrolls a student in a course.
func (h *Handler) EnrollStudent(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	courseID := c.Param("id")
	if _, err := h.courses.ByID(c.Request.Context(), courseID); err != nil {
		fail(c, err)
		return
	}
	u, err := h.users.ByID(c.Request.Context(), req.StudentID)
	if err != nil {
		fail(c, err)
		return
	}
	if u.Role != auth.RoleStudent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is not a student"})
		return
	}
	if err := h.enroll.Enroll(c.Request.Context(), req.StudentID, courseID, false); err != nil {
		fail(c, err)
		return
	}

	claims, _ := auth.CallerFrom(c)
	h.rec.Record(c.Request.Context(), claims.UserID, "STUDENT_ENROLLED", "Enrollment", courseID,
		"Enrolled "+u.Email, c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// UnenrollStudent removes a student's enrollment from a course.
func (h *Handler) UnenrollStudent(c *gin.Context) {
	courseID := c.Param("id")
	studentID := c.Param("studentId")
	if err := h.enroll.Unenroll(c.Request.Context(), studentID, courseID); err != nil {
		fail(c, err)
		return
	}

	claims, _ := auth.CallerFrom(c)
	h.rec.Record(c.Request.Context(), claims.UserID, "STUDENT_UNENROLLED", "Enrollment", courseID,
		"Unenrolled student "+studentID, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ── reports & audit ──

// Reports returns the admin overview. Storage failures degrade to zeroes.
func (h *Handler) Reports(c *gin.Context) {
	c.JSON(http.StatusOK, h.reports.Build(c.Request.Context()))
}

// AuditLog lists audit entries newest-first.
func (h *Handler) AuditLog(c *gin.Context) {
	entries, err := h.auditDB.List(c.Request.Context(), intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
