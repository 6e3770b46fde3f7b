package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-portal/internal/dto"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	"github.com/noah-isme/sma-attendance-portal/internal/navigation"
	"github.com/noah-isme/sma-attendance-portal/internal/service"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
	"github.com/noah-isme/sma-attendance-portal/pkg/export"
	"github.com/noah-isme/sma-attendance-portal/pkg/response"
)

type reportExporter interface {
	Export(ctx context.Context, date string, format export.Format) (*service.ReportFile, error)
}

// ReportHandler serves the downloads of the teacher reports section.
type ReportHandler struct {
	dashboards dashboardLoader
	reports    reportExporter
	now        func() time.Time
}

// NewReportHandler constructs handler.
func NewReportHandler(dashboards dashboardLoader, reports reportExporter) *ReportHandler {
	return &ReportHandler{dashboards: dashboards, reports: reports, now: time.Now}
}

// Export handles GET /reports/export?format=csv|pdf&date=.
func (h *ReportHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query"))
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf"))
		return
	}
	if req.Date == "" {
		req.Date = models.FormatDate(h.now())
	}

	nav := newNavigator(c)
	view, err := h.dashboards.Load(c.Request.Context(), sessionFromContext(c), nav, "")
	if err != nil {
		if !nav.redirected {
			response.Error(c, err)
		}
		return
	}
	if _, ok := view.(*service.TeacherView); !ok {
		nav.Redirect(navigation.DashboardView)
		return
	}

	file, err := h.reports.Export(c.Request.Context(), req.Date, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
