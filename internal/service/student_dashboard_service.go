package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
)

const (
	defaultChartDateLayout = "1/2/2006"
	chartMax               = 1.1
	chartLabel             = "Attendance"
)

// StudentDashboardService syncs a student's own attendance history.
type StudentDashboardService struct {
	attendance  backend.AttendanceStore
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	chartLayout string
}

// NewStudentDashboardService constructs the service. chartLayout formats
// chart labels and defaults to month/day/year.
func NewStudentDashboardService(attendance backend.AttendanceStore, chartLayout string, metrics *MetricsService, logger *zap.Logger) *StudentDashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chartLayout == "" {
		chartLayout = defaultChartDateLayout
	}
	return &StudentDashboardService{
		attendance:  attendance,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		chartLayout: chartLayout,
	}
}

// Refresh reloads the full history of view.Student. Records of other
// students are dropped even if the store returns them.
func (s *StudentDashboardService) Refresh(ctx context.Context, view *StudentView) error {
	records, err := s.attendance.ListByStudent(ctx, view.Student.ID)
	if err != nil {
		s.metrics.RecordBackendFailure("attendance.list_by_student")
		s.logger.Error("failed to load attendance history", zap.String("student_id", view.Student.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to load attendance history")
	}

	own := make([]models.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if rec.StudentID == view.Student.ID {
			own = append(own, rec)
		}
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].Date < own[j].Date })

	view.Records = own
	view.Summary = Summarize(own)
	view.Chart = s.chart(own)
	view.SyncedAt = s.now()
	return nil
}

// Summarize counts statuses and computes the present percentage rounded to
// two decimals, zero for an empty history.
func Summarize(records []models.AttendanceRecord) StudentSummary {
	summary := StudentSummary{Total: len(records)}
	for _, rec := range records {
		switch rec.Status {
		case models.AttendanceStatusPresent:
			summary.Present++
		case models.AttendanceStatusLate:
			summary.Late++
		case models.AttendanceStatusAbsent:
			summary.Absent++
		}
	}
	summary.Percentage = Percentage(summary.Present, summary.Total)
	return summary
}

// Percentage returns round(100*part/total, 2), or 0 when total is 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}

// ChartValue maps a status to its bar height.
func ChartValue(status models.AttendanceStatus) float64 {
	switch status {
	case models.AttendanceStatusPresent:
		return 1
	case models.AttendanceStatusLate:
		return 0.5
	default:
		return 0
	}
}

func (s *StudentDashboardService) chart(records []models.AttendanceRecord) ChartData {
	data := ChartData{
		Label:  chartLabel,
		Labels: make([]string, 0, len(records)),
		Values: make([]float64, 0, len(records)),
		Max:    chartMax,
	}
	for _, rec := range records {
		data.Labels = append(data.Labels, s.label(rec.Date))
		data.Values = append(data.Values, ChartValue(rec.Status))
	}
	return data
}

func (s *StudentDashboardService) label(date string) string {
	t, err := models.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format(s.chartLayout)
}
