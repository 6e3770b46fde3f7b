package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/dto"
	"github.com/noah-isme/sma-attendance-portal/internal/navigation"
	"github.com/noah-isme/sma-attendance-portal/internal/service"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
	"github.com/noah-isme/sma-attendance-portal/pkg/response"
)

const (
	flashSuccess = "success"
	flashError   = "error"
)

type teacherActions interface {
	MarkAttendance(ctx context.Context, view *service.TeacherView, req dto.MarkAttendanceRequest) error
	BulkMarkPresent(ctx context.Context, view *service.TeacherView, date string) error
	EnrollStudent(ctx context.Context, view *service.TeacherView, req dto.EnrollStudentRequest) (string, error)
}

// AttendanceHandler serves the teacher mutations. Each one ends with a
// redirect back to the section it was posted from.
type AttendanceHandler struct {
	dashboards dashboardLoader
	actions    teacherActions
	logger     *zap.Logger
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(dashboards dashboardLoader, actions teacherActions, logger *zap.Logger) *AttendanceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceHandler{dashboards: dashboards, actions: actions, logger: logger}
}

// Mark handles POST /attendance/mark. Backend failures are logged by the
// service and leave the table as it was.
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	_ = c.ShouldBind(&req)
	req.Date = queryDate(req.Date)

	view, nav, ok := h.teacherView(c, req.Date)
	if !ok {
		return
	}
	if err := h.actions.MarkAttendance(c.Request.Context(), view, req); err != nil && errors.Is(err, appErrors.ErrValidation) {
		setFlash(c, flashError, appErrors.FromError(err).Message)
	}
	nav.to(sectionURL(navigation.SectionStudents, view.Date) + navigation.SectionStudents.Fragment())
}

// BulkPresent handles POST /attendance/bulk-present.
func (h *AttendanceHandler) BulkPresent(c *gin.Context) {
	var req dto.BulkPresentRequest
	_ = c.ShouldBind(&req)
	req.Date = queryDate(req.Date)

	view, nav, ok := h.teacherView(c, req.Date)
	if !ok {
		return
	}
	if err := h.actions.BulkMarkPresent(c.Request.Context(), view, req.Date); err != nil {
		setFlash(c, flashError, appErrors.FromError(err).Message)
	}
	nav.to(sectionURL(navigation.SectionStudents, view.Date) + navigation.SectionStudents.Fragment())
}

// Enroll handles POST /students from the add-student form.
func (h *AttendanceHandler) Enroll(c *gin.Context) {
	var req dto.EnrollStudentRequest
	_ = c.ShouldBind(&req)

	view, nav, ok := h.teacherView(c, "")
	if !ok {
		return
	}
	message, err := h.actions.EnrollStudent(c.Request.Context(), view, req)
	if err != nil {
		setFlash(c, flashError, appErrors.FromError(err).Message)
	} else {
		setFlash(c, flashSuccess, message)
	}
	nav.to(sectionURL(navigation.SectionAddStudent, "") + navigation.SectionAddStudent.Fragment())
}

// teacherView loads the caller's dashboard. Anyone who is not a teacher is
// sent to their own dashboard.
func (h *AttendanceHandler) teacherView(c *gin.Context, date string) (*service.TeacherView, *redirectNavigator, bool) {
	nav := newNavigator(c)
	view, err := h.dashboards.Load(c.Request.Context(), sessionFromContext(c), nav, date)
	if err != nil {
		if !nav.redirected {
			response.Error(c, err)
		}
		return nil, nav, false
	}
	tv, ok := view.(*service.TeacherView)
	if !ok {
		h.logger.Info("non-teacher attempted a teacher action", zap.String("user_id", view.Profile().ID), zap.String("path", c.FullPath()))
		nav.Redirect(navigation.DashboardView)
		return nil, nav, false
	}
	return tv, nav, true
}
