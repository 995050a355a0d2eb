package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/auth"
	"rollcall/internal/httpmiddleware"
)

// Router builds the gin engine with all middleware and routes attached.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(h.log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(h.cfg.RateLimitPerMin, h.cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	session := r.Group("/", auth.SessionAuth(h.cfg.SessionSecret))
	session.POST("/auth/logout", h.Logout)
	session.GET("/me", h.Profile)
	session.PUT("/me", h.UpdateProfile)
	session.PUT("/me/password", h.ChangePassword)

	admin := session.Group("/v1/admin", auth.RequireRoles(auth.RoleAdmin))
	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.PUT("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.GET("/courses", h.ListCourses)
	admin.POST("/courses", h.CreateCourse)
	admin.PUT("/courses/:id", h.UpdateCourse)
	admin.DELETE("/courses/:id", h.DeleteCourse)
	admin.POST("/courses/:id/enrollments", h.EnrollStudent)
	admin.DELETE("/courses/:id/enrollments/:studentId", h.UnenrollStudent)
	admin.GET("/reports", h.Reports)
	admin.GET("/audit", h.AuditLog)

	lecturer := session.Group("/v1/lecturer", auth.RequireRoles(auth.RoleLecturer))
	lecturer.GET("/courses", h.MyCourses)
	lecturer.GET("/courses/:id/summary", h.CourseSummary)
	lecturer.POST("/sessions", h.OpenSession)
	lecturer.GET("/sessions", h.RecentSessions)
	lecturer.POST("/sessions/:id/close", h.CloseSession)
	lecturer.GET("/sessions/:id/watch", h.WatchSession)
	lecturer.GET("/class-sessions/:id/records", h.SessionRecords)
	lecturer.POST("/class-sessions/:id/mark", h.MarkManually)

	student := session.Group("/v1/student", auth.RequireRoles(auth.RoleStudent))
	student.POST("/redeem", h.Redeem)
	student.GET("/records", h.MyRecords)
	student.GET("/courses", h.EnrolledCourses)

	return r
}
