package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/dto"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
)

// EnrollmentSuccessMessage is shown after a student has been added.
const EnrollmentSuccessMessage = "Student added successfully! A temporary password has been sent to their email."

const (
	oneTimePasswordLength   = 8
	oneTimePasswordAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	defaultBulkLockTTL      = 30 * time.Second
)

type lockStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type enrollmentNotifier interface {
	QueueEnrollment(mail EnrollmentMail) error
}

// TeacherDashboardConfig tunes teacher dashboard behaviour.
type TeacherDashboardConfig struct {
	BulkLockTTL time.Duration
}

// TeacherDashboardParams groups constructor dependencies.
type TeacherDashboardParams struct {
	Profiles   backend.ProfileStore
	Attendance backend.AttendanceStore
	Gateway    backend.AuthGateway
	Locks      lockStore
	Mail       enrollmentNotifier
	Validator  *validator.Validate
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     TeacherDashboardConfig
}

// TeacherDashboardService syncs the teacher view and runs its mutations.
type TeacherDashboardService struct {
	profiles   backend.ProfileStore
	attendance backend.AttendanceStore
	gateway    backend.AuthGateway
	locks      lockStore
	mail       enrollmentNotifier
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
	cfg        TeacherDashboardConfig
}

// NewTeacherDashboardService constructs the service with sane defaults.
func NewTeacherDashboardService(params TeacherDashboardParams) *TeacherDashboardService {
	cfg := params.Config
	if cfg.BulkLockTTL <= 0 {
		cfg.BulkLockTTL = defaultBulkLockTTL
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherDashboardService{
		profiles:   params.Profiles,
		attendance: params.Attendance,
		gateway:    params.Gateway,
		locks:      params.Locks,
		mail:       params.Mail,
		validator:  validate,
		metrics:    params.Metrics,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Today returns the local calendar date.
func (s *TeacherDashboardService) Today() string {
	return models.FormatDate(s.now())
}

// Refresh reloads the roster and the records of view.Date (today when empty).
// On any query error the view is left exactly as it was.
func (s *TeacherDashboardService) Refresh(ctx context.Context, view *TeacherView) error {
	date := view.Date
	if date == "" {
		date = s.Today()
	}

	students, err := s.profiles.ListByRole(ctx, models.RoleStudent)
	if err != nil {
		s.metrics.RecordBackendFailure("profiles.list")
		s.logger.Error("failed to load roster", zap.String("teacher_id", view.Teacher.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to load roster")
	}
	records, err := s.attendance.ListByDate(ctx, date)
	if err != nil {
		s.metrics.RecordBackendFailure("attendance.list")
		s.logger.Error("failed to load attendance", zap.String("teacher_id", view.Teacher.ID), zap.String("date", date), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to load attendance")
	}

	counts, rows := project(students, records)
	view.Date = date
	view.Students = students
	view.Attendance = records
	view.Counts = counts
	view.Rows = rows
	view.SyncedAt = s.now()
	return nil
}

// project derives the counts and table rows for one date.
func project(students []models.Profile, records []models.AttendanceRecord) (AttendanceCounts, []AttendanceRow) {
	counts := AttendanceCounts{Total: len(students)}
	byStudent := make(map[string]models.AttendanceStatus, len(records))
	for _, rec := range records {
		byStudent[rec.StudentID] = rec.Status
		switch rec.Status {
		case models.AttendanceStatusPresent:
			counts.Present++
		case models.AttendanceStatusAbsent:
			counts.Absent++
		case models.AttendanceStatusLate:
			counts.Late++
		}
	}

	rows := make([]AttendanceRow, 0, len(students))
	for _, student := range students {
		status := models.StatusNotMarked
		if st, ok := byStudent[student.ID]; ok {
			status = string(st)
		}
		rows = append(rows, AttendanceRow{
			StudentID:  student.ID,
			Name:       student.Name,
			RollNo:     models.Display(student.RollNo),
			Class:      models.Display(student.Class),
			Status:     status,
			BadgeClass: BadgeClass(status),
		})
	}
	return counts, rows
}

// MarkAttendance upserts one record and re-syncs the whole view.
func (s *TeacherDashboardService) MarkAttendance(ctx context.Context, view *TeacherView, req dto.MarkAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student and status are required")
	}
	status, ok := models.ParseAttendanceStatus(req.Status)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}
	date := req.Date
	if date == "" {
		date = view.Date
	}
	if date == "" {
		date = s.Today()
	}

	record := models.AttendanceRecord{
		StudentID: req.StudentID,
		Date:      date,
		Status:    status,
		MarkedBy:  view.Teacher.ID,
	}
	if err := s.attendance.Upsert(ctx, record); err != nil {
		s.metrics.RecordBackendFailure("attendance.upsert")
		s.logger.Error("failed to mark attendance",
			zap.String("student_id", record.StudentID),
			zap.String("date", record.Date),
			zap.String("status", string(record.Status)),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to mark attendance")
	}
	s.metrics.RecordAttendance("single", string(status), 1)

	view.Date = date
	return s.Refresh(ctx, view)
}

// BulkMarkPresent marks every loaded student present on date in one batch.
// A second request for the same teacher and date while the first is in
// flight fails with CONFLICT. A view whose roster never loaded is refused.
func (s *TeacherDashboardService) BulkMarkPresent(ctx context.Context, view *TeacherView, date string) error {
	if view.SyncedAt.IsZero() {
		return appErrors.Clone(appErrors.ErrBackend, "student list is not loaded, please try again")
	}
	if date == "" {
		date = view.Date
	}
	if date == "" {
		date = s.Today()
	}

	lockKey := fmt.Sprintf("bulk:%s:%s", view.Teacher.ID, date)
	if s.locks != nil {
		token, ok, err := s.locks.Acquire(ctx, lockKey, s.cfg.BulkLockTTL)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire bulk lock")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrConflict, "bulk attendance update already in progress")
		}
		defer func() {
			if err := s.locks.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
				s.logger.Warn("failed to release bulk lock", zap.String("key", lockKey), zap.Error(err))
			}
		}()
	}

	records := make([]models.AttendanceRecord, 0, len(view.Students))
	for _, student := range view.Students {
		records = append(records, models.AttendanceRecord{
			StudentID: student.ID,
			Date:      date,
			Status:    models.AttendanceStatusPresent,
			MarkedBy:  view.Teacher.ID,
		})
	}
	if err := s.attendance.UpsertBatch(ctx, records); err != nil {
		s.metrics.RecordBackendFailure("attendance.upsert_batch")
		s.logger.Error("bulk attendance update failed", zap.String("date", date), zap.Int("records", len(records)), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrBatchFailed.Code, appErrors.ErrBatchFailed.Status, appErrors.ErrBatchFailed.Message)
	}
	s.metrics.RecordAttendance("bulk", string(models.AttendanceStatusPresent), len(records))

	view.Date = date
	return s.Refresh(ctx, view)
}

// EnrollStudent creates an identity with a one-time password and its student
// profile, then mails the password. The new identity's session, if the
// backend returns one, is discarded.
func (s *TeacherDashboardService) EnrollStudent(ctx context.Context, view *TeacherView, req dto.EnrollStudentRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name and email are required")
	}
	password, err := oneTimePassword(oneTimePasswordLength)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}

	identity, _, err := s.gateway.SignUp(ctx, req.Email, password)
	if err != nil {
		s.metrics.RecordAuthFailure("enroll")
		s.logger.Info("enrollment sign up rejected", zap.String("email", req.Email), zap.Error(err))
		return "", authError(err)
	}

	profile := &models.Profile{
		ID:      identity.ID,
		Role:    models.RoleStudent,
		Name:    req.Name,
		RollNo:  models.StringPtr(req.RollNo),
		Class:   models.StringPtr(req.Class),
		Contact: models.StringPtr(req.Contact),
	}
	if err := s.profiles.Insert(ctx, profile); err != nil {
		s.metrics.RecordAuthFailure("enroll_profile")
		compensateOrphan(ctx, s.gateway, identity, err, s.logger)
		return "", authError(err)
	}

	if s.mail != nil {
		if err := s.mail.QueueEnrollment(EnrollmentMail{To: req.Email, Name: req.Name, Password: password}); err != nil {
			s.logger.Error("failed to queue enrollment mail", zap.String("identity_id", identity.ID), zap.Error(err))
		}
	}

	if err := s.Refresh(ctx, view); err != nil {
		s.logger.Warn("refresh after enrollment failed", zap.Error(err))
	}
	return EnrollmentSuccessMessage, nil
}

func oneTimePassword(n int) (string, error) {
	max := big.NewInt(int64(len(oneTimePasswordAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = oneTimePasswordAlphabet[idx.Int64()]
	}
	return string(out), nil
}
