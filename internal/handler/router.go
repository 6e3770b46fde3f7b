package handler

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-portal/internal/middleware"
)

// RouterDeps groups the handlers and middleware mounted by NewRouter.
type RouterDeps struct {
	Templates  *template.Template
	Global     []gin.HandlerFunc
	Session    gin.HandlerFunc
	SignInRate gin.HandlerFunc

	Auth       *AuthHandler
	Dashboard  *DashboardHandler
	Attendance *AttendanceHandler
	Reports    *ReportHandler
	Theme      *ThemeHandler
	Metrics    *MetricsHandler
}

// NewRouter builds the portal's gin engine.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(deps.Global...)
	if deps.Templates != nil {
		r.SetHTMLTemplate(deps.Templates)
	}

	r.GET("/health", deps.Metrics.Health)
	r.GET("/ready", deps.Metrics.Ready)
	r.GET("/metrics", deps.Metrics.Prometheus)

	pages := r.Group("/")
	if deps.Session != nil {
		pages.Use(deps.Session)
	}
	pages.POST("/theme/toggle", deps.Theme.Toggle)

	pages.GET("/", deps.Auth.Entry)
	signIn := []gin.HandlerFunc{deps.Auth.SignIn}
	if deps.SignInRate != nil {
		signIn = append([]gin.HandlerFunc{deps.SignInRate}, signIn...)
	}
	pages.POST("/auth/signin", signIn...)
	pages.POST("/auth/signup", deps.Auth.SignUp)
	pages.POST("/auth/signout", deps.Auth.SignOut)

	private := pages.Group("/")
	private.Use(middleware.RequireSession())
	private.GET("/dashboard", deps.Dashboard.Show)
	private.POST("/attendance/mark", deps.Attendance.Mark)
	private.POST("/attendance/bulk-present", deps.Attendance.BulkPresent)
	private.POST("/students", deps.Attendance.Enroll)
	private.GET("/reports/export", deps.Reports.Export)

	api := pages.Group("/api/v1")
	api.Use(middleware.RequireAPISession())
	api.GET("/dashboard", deps.Dashboard.API)
	api.GET("/students/:id/attendance", deps.Dashboard.StudentAttendance)

	return r
}
