package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/dto"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	"github.com/noah-isme/sma-attendance-portal/internal/navigation"
	"github.com/noah-isme/sma-attendance-portal/internal/service"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
	"github.com/noah-isme/sma-attendance-portal/pkg/response"
)

type dashboardLoader interface {
	Load(ctx context.Context, session *models.Session, nav navigation.Navigator, date string) (service.DashboardView, error)
}

type weeklyReporter interface {
	Weekly(ctx context.Context, end time.Time) (*dto.WeeklyReportResponse, error)
}

type historyLoader interface {
	Refresh(ctx context.Context, view *service.StudentView) error
}

// DashboardHandler renders the role-specific dashboard and its JSON projection.
type DashboardHandler struct {
	dashboards dashboardLoader
	reports    weeklyReporter
	history    historyLoader
	appName    string
	secure     bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboards dashboardLoader, reports weeklyReporter, history historyLoader, appName string, secureCookies bool, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{
		dashboards: dashboards,
		reports:    reports,
		history:    history,
		appName:    appName,
		secure:     secureCookies,
		logger:     logger,
		now:        time.Now,
	}
}

// Show renders GET /dashboard?section=&date=.
func (h *DashboardHandler) Show(c *gin.Context) {
	nav := newNavigator(c)
	view, err := h.dashboards.Load(c.Request.Context(), sessionFromContext(c), nav, queryDate(c.Query("date")))
	if err != nil {
		if !nav.redirected {
			response.Error(c, err)
		}
		return
	}

	resolution := navigation.Resolve(c.Query("section"), view.Sections())
	page := dashboardPage{
		basePage: newBasePage(c, h.appName, h.secure),
		Name:     view.Profile().Name,
		Role:     string(view.Role()),
		Visible:  string(resolution.Visible),
	}
	page.Title = resolution.Title
	if !resolution.Found {
		page.Title = navigation.PageTitle(navigation.DefaultFragment)
	}

	date := ""
	switch v := view.(type) {
	case *service.TeacherView:
		page.Teacher = v
		date = v.Date
		if resolution.IsVisible(navigation.SectionReports) && h.reports != nil {
			page.Weekly, page.WeeklyChart = h.weekly(c.Request.Context(), v.Date)
		}
	case *service.StudentView:
		page.Student = v
		chart := v.Chart
		page.StudentChart = &chart
	}
	page.Links = buildLinks(view.Sections(), resolution.Visible, date)

	response.HTML(c, http.StatusOK, "dashboard.html", page)
}

func (h *DashboardHandler) weekly(ctx context.Context, date string) (*dto.WeeklyReportResponse, *service.ChartData) {
	end := h.now()
	if t, err := models.ParseDate(date); err == nil {
		end = t
	}
	report, err := h.reports.Weekly(ctx, end)
	if err != nil {
		h.logger.Warn("weekly report unavailable", zap.Error(err))
		return nil, nil
	}
	chart := &service.ChartData{Label: "Attendance %", Max: 100}
	for _, day := range report.Days {
		chart.Labels = append(chart.Labels, day.Label)
		chart.Values = append(chart.Values, day.Rate)
	}
	return report, chart
}

// API returns GET /api/v1/dashboard as JSON.
func (h *DashboardHandler) API(c *gin.Context) {
	view, ok := h.loadForAPI(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, dashboardResponse(view))
}

// StudentAttendance returns GET /api/v1/students/:id/attendance. Students may
// only read their own history.
func (h *DashboardHandler) StudentAttendance(c *gin.Context) {
	view, ok := h.loadForAPI(c)
	if !ok {
		return
	}
	studentID := c.Param("id")
	if view.Role() == models.RoleStudent && view.Profile().ID != studentID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students can only read their own attendance"))
		return
	}

	history := service.NewStudentView(models.Profile{ID: studentID, Role: models.RoleStudent})
	if err := h.history.Refresh(c.Request.Context(), history); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, studentPayload(history))
}

func (h *DashboardHandler) loadForAPI(c *gin.Context) (service.DashboardView, bool) {
	nav := &navigation.Recorder{}
	view, err := h.dashboards.Load(c.Request.Context(), sessionFromContext(c), nav, queryDate(c.Query("date")))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return view, true
}

// queryDate drops values that are not YYYY-MM-DD so the view falls back to today.
func queryDate(raw string) string {
	if _, err := models.ParseDate(raw); err != nil {
		return ""
	}
	return raw
}

func dashboardResponse(view service.DashboardView) dto.DashboardResponse {
	profile := view.Profile()
	resp := dto.DashboardResponse{Role: string(view.Role()), Name: profile.Name}
	for _, s := range view.Sections() {
		resp.Sections = append(resp.Sections, string(s))
	}
	switch v := view.(type) {
	case *service.TeacherView:
		payload := &dto.TeacherDashboardPayload{
			Date:    v.Date,
			Total:   v.Counts.Total,
			Present: v.Counts.Present,
			Absent:  v.Counts.Absent,
			Late:    v.Counts.Late,
			Rows:    make([]dto.AttendanceRowDTO, 0, len(v.Rows)),
		}
		for _, row := range v.Rows {
			payload.Rows = append(payload.Rows, dto.AttendanceRowDTO{
				StudentID: row.StudentID,
				Name:      row.Name,
				RollNo:    row.RollNo,
				Class:     row.Class,
				Status:    row.Status,
			})
		}
		resp.Teacher = payload
	case *service.StudentView:
		resp.Student = studentPayload(v)
	}
	return resp
}

func studentPayload(v *service.StudentView) *dto.StudentDashboardPayload {
	payload := &dto.StudentDashboardPayload{
		Percentage: v.Summary.Percentage,
		Total:      v.Summary.Total,
		Present:    v.Summary.Present,
		Late:       v.Summary.Late,
		Absent:     v.Summary.Absent,
		History:    make([]dto.AttendanceDayDTO, 0, len(v.Records)),
	}
	for i, rec := range v.Records {
		day := dto.AttendanceDayDTO{Date: rec.Date, Status: string(rec.Status), Value: service.ChartValue(rec.Status)}
		if i < len(v.Chart.Labels) {
			day.Label = v.Chart.Labels[i]
		}
		payload.History = append(payload.History, day)
	}
	return payload
}
