package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/dto"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
	"github.com/noah-isme/sma-attendance-portal/pkg/export"
)

const schoolDaysPerWeek = 5

var exportHeaders = []string{"Name", "Roll No", "Class", "Status"}

// ReportFile is a rendered export ready for download.
type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService builds the teacher reports section.
type ReportService struct {
	profiles   backend.ProfileStore
	attendance backend.AttendanceStore
	logger     *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(profiles backend.ProfileStore, attendance backend.AttendanceStore, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{profiles: profiles, attendance: attendance, logger: logger}
}

// Weekly returns the Present share of marked records for the five school days
// ending at end. A weekend end date counts back from the preceding Friday.
func (s *ReportService) Weekly(ctx context.Context, end time.Time) (*dto.WeeklyReportResponse, error) {
	days := SchoolDays(end, schoolDaysPerWeek)
	from, to := models.FormatDate(days[0]), models.FormatDate(days[len(days)-1])

	records, err := s.attendance.ListByDateRange(ctx, from, to)
	if err != nil {
		s.logger.Error("failed to load weekly attendance", zap.String("from", from), zap.String("to", to), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to load weekly attendance")
	}

	type tally struct{ marked, present int }
	byDate := make(map[string]*tally, len(days))
	for _, day := range days {
		byDate[models.FormatDate(day)] = &tally{}
	}
	for _, rec := range records {
		t, ok := byDate[rec.Date]
		if !ok {
			continue
		}
		t.marked++
		if rec.Status == models.AttendanceStatusPresent {
			t.present++
		}
	}

	resp := &dto.WeeklyReportResponse{From: from, To: to, Days: make([]dto.DailyRateDTO, 0, len(days))}
	for _, day := range days {
		key := models.FormatDate(day)
		t := byDate[key]
		resp.Days = append(resp.Days, dto.DailyRateDTO{
			Date:    key,
			Label:   day.Format("Mon"),
			Marked:  t.marked,
			Present: t.present,
			Rate:    Percentage(t.present, t.marked),
		})
	}
	return resp, nil
}

// SchoolDays returns the n weekdays ending at end, oldest first.
func SchoolDays(end time.Time, n int) []time.Time {
	days := make([]time.Time, n)
	day := end
	for i := n - 1; i >= 0; {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days[i] = day
			i--
		}
		day = day.AddDate(0, 0, -1)
	}
	return days
}

// Export renders the roster with its status on date.
func (s *ReportService) Export(ctx context.Context, date string, format export.Format) (*ReportFile, error) {
	if _, err := models.ParseDate(date); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}

	students, err := s.profiles.ListByRole(ctx, models.RoleStudent)
	if err != nil {
		s.logger.Error("failed to load roster for export", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to load roster")
	}
	records, err := s.attendance.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("failed to load attendance for export", zap.String("date", date), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to load attendance")
	}

	_, rows := project(students, records)
	data := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Name":    row.Name,
			"Roll No": row.RollNo,
			"Class":   row.Class,
			"Status":  row.Status,
		})
	}

	body, err := export.Render(format, data, "Attendance "+date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ReportFile{
		Filename:    fmt.Sprintf("attendance-%s.%s", date, format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}
