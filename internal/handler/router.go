package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hostelhub/hostel-adm-api/internal/middleware"
	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/repository"
	"github.com/hostelhub/hostel-adm-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Students     *StudentHandler
	Hostels      *HostelHandler
	Rooms        *RoomHandler
	Applications *ApplicationHandler
	Complaints   *ComplaintHandler
	Notices      *NoticeHandler
	Fees         *FeeHandler
	Attendance   *AttendanceHandler
	Leaves       *LeaveHandler
	Dashboard    *DashboardHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes mounts all API routes under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, auth *service.AuthService, metrics *service.MetricsService, auditRepo *repository.UserRepository) {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	admin := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleWarden)

	r.GET("/healthz", h.Metrics.Health)
	r.GET("/readyz", h.Metrics.Health)
	r.GET("/metrics", middleware.JWT(auth), admin, h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.Use(middleware.Metrics(metrics))

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))

	protected.POST("/auth/logout", h.Auth.Logout)
	protected.POST("/auth/change-password", h.Auth.ChangePassword)

	users := protected.Group("/users")
	{
		users.GET("", admin, h.Users.List)
		users.GET("/:id", middleware.RBAC("SUPERADMIN", "ADMIN", "SELF"), h.Users.Get)
		users.POST("", admin, h.Users.Create)
		users.PUT("/:id", admin, h.Users.Update)
		users.DELETE("/:id", admin, h.Users.Delete)
	}

	students := protected.Group("/students")
	{
		students.GET("", staff, h.Students.List)
		students.GET("/:id", h.Students.Get)
		students.POST("", staff, h.Students.Register)
		students.PUT("/:id", staff, h.Students.Update)
		students.POST("/:id/approve", staff, h.Students.Approve)
		students.POST("/:id/reject", staff, h.Students.Reject)
		students.POST("/:id/allocate-room", staff, h.Students.AllocateRoom)
		students.POST("/:id/deallocate-room", staff, h.Students.DeallocateRoom)
		students.DELETE("/:id", admin, h.Students.Delete)
	}

	hostels := protected.Group("/hostels")
	{
		hostels.GET("", h.Hostels.List)
		hostels.GET("/:id", h.Hostels.Get)
		hostels.POST("", admin, h.Hostels.Create)
		hostels.PUT("/:id", admin, h.Hostels.Update)
		hostels.PUT("/:id/warden", admin, h.Hostels.AssignWarden)
		hostels.DELETE("/:id", admin, h.Hostels.Deactivate)
	}

	rooms := protected.Group("/rooms")
	{
		rooms.GET("", h.Rooms.List)
		rooms.GET("/:id", h.Rooms.Get)
		rooms.POST("", staff, h.Rooms.Create)
		rooms.PUT("/:id", staff, h.Rooms.Update)
		rooms.POST("/:id/maintenance", staff, h.Rooms.SetMaintenance)
		rooms.DELETE("/:id", admin, h.Rooms.Delete)
	}

	applications := protected.Group("/applications")
	{
		applications.GET("", staff, h.Applications.List)
		applications.POST("", h.Applications.Submit)
		applications.POST("/:id/review", staff, h.Applications.Review)
	}

	complaints := protected.Group("/complaints")
	{
		complaints.GET("", h.Complaints.List)
		complaints.GET("/:id", h.Complaints.Get)
		complaints.POST("", h.Complaints.File)
		complaints.PATCH("/:id", staff, h.Complaints.Update)
	}

	notices := protected.Group("/notices")
	{
		notices.GET("", h.Notices.List)
		notices.GET("/:id", h.Notices.Get)
		notices.POST("", staff, h.Notices.Publish)
		notices.PUT("/:id", staff, h.Notices.Update)
		notices.DELETE("/:id", staff, h.Notices.Delete)
	}

	fees := protected.Group("/fees")
	{
		fees.GET("", staff, h.Fees.List)
		fees.GET("/:id", staff, h.Fees.Get)
		fees.POST("", admin, middleware.Audit(auditRepo, models.AuditActionFeeCreate, "fee"), h.Fees.Create)
		fees.POST("/:id/pay", staff, middleware.Audit(auditRepo, models.AuditActionFeePayment, "fee"), h.Fees.RecordPayment)
		fees.POST("/sweep-overdue", admin, middleware.Audit(auditRepo, models.AuditActionFeeSweep, "fee"), h.Fees.SweepOverdue)
		fees.POST("/statements", h.Fees.RequestStatement)
		fees.GET("/statements/:id", h.Fees.StatementStatus)
		fees.GET("/statements/download/:token", h.Fees.DownloadStatement)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.GET("", staff, h.Attendance.List)
		attendance.POST("", staff, h.Attendance.Mark)
		attendance.POST("/bulk", staff, h.Attendance.MarkBulk)
		attendance.GET("/students/:id/summary", h.Attendance.Summary)
	}

	leaves := protected.Group("/leaves")
	{
		leaves.GET("", staff, h.Leaves.List)
		leaves.POST("", h.Leaves.Request)
		leaves.POST("/:id/review", staff, h.Leaves.Review)
	}

	protected.GET("/dashboard", staff, middleware.WithResponseMeta(), h.Dashboard.Summary)
	protected.GET("/metrics/snapshot", admin, h.Metrics.Snapshot)
}
