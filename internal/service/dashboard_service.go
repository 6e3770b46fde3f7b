package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	"github.com/noah-isme/sma-attendance-portal/internal/navigation"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
)

type sessionEnder interface {
	SignOut(ctx context.Context, sessionID string) error
}

// DashboardService resolves the signed-in profile and builds its view.
type DashboardService struct {
	profiles backend.ProfileStore
	teachers *TeacherDashboardService
	students *StudentDashboardService
	sessions sessionEnder
	logger   *zap.Logger
}

// NewDashboardService wires the role-specific services.
func NewDashboardService(profiles backend.ProfileStore, teachers *TeacherDashboardService, students *StudentDashboardService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{profiles: profiles, teachers: teachers, students: students, logger: logger}
}

// EndSessionsWith lets Load sign out a session whose profile cannot be
// resolved. Without it the entry view would send the browser straight back.
func (s *DashboardService) EndSessionsWith(sessions sessionEnder) *DashboardService {
	s.sessions = sessions
	return s
}

// Teachers exposes the teacher mutations.
func (s *DashboardService) Teachers() *TeacherDashboardService { return s.teachers }

// Load returns the view for session. Without a session, or when the profile
// cannot be read, nav is sent to the entry view and an UNAUTHORIZED error is
// returned; in the latter case the session is ended first. A failed refresh is logged and the empty view is still returned.
// date selects the teacher table date and may be empty.
func (s *DashboardService) Load(ctx context.Context, session *models.Session, nav navigation.Navigator, date string) (DashboardView, error) {
	if session == nil {
		nav.Redirect(navigation.EntryView)
		return nil, appErrors.ErrUnauthorized
	}
	ctx = backend.WithAccessToken(ctx, session.AccessToken)

	profile, err := s.profiles.FindByID(ctx, session.UserID)
	if err != nil || profile == nil {
		s.logger.Warn("profile unavailable, returning to entry view", zap.String("user_id", session.UserID), zap.Error(err))
		s.endSession(ctx, session)
		nav.Redirect(navigation.EntryView)
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "profile not found")
	}

	switch profile.Role {
	case models.RoleTeacher:
		view := NewTeacherView(*profile, date)
		_ = s.teachers.Refresh(ctx, view)
		return view, nil
	case models.RoleStudent:
		view := NewStudentView(*profile)
		_ = s.students.Refresh(ctx, view)
		return view, nil
	default:
		s.logger.Warn("profile has unknown role", zap.String("user_id", profile.ID), zap.String("role", string(profile.Role)))
		s.endSession(ctx, session)
		nav.Redirect(navigation.EntryView)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
}

func (s *DashboardService) endSession(ctx context.Context, session *models.Session) {
	if s.sessions == nil || session.ID == "" {
		return
	}
	if err := s.sessions.SignOut(ctx, session.ID); err != nil {
		s.logger.Error("failed to end unresolved session", zap.String("user_id", session.UserID), zap.Error(err))
	}
}
