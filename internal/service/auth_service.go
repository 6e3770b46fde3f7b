package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/dto"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
)

// SignUpConfirmationMessage is shown when the backend requires e-mail
// confirmation before the first sign-in.
const SignUpConfirmationMessage = "Signup successful! Please check your email for confirmation."

// sessionRevalidateInterval bounds how long a stored session is trusted
// before the backend is asked about its access token again.
const sessionRevalidateInterval = 5 * time.Minute

// placeholderColumn fills the role-specific profile column a sign-up form does not ask for.
const placeholderColumn = "N/A"

type sessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// SignUpResult reports the outcome of a successful sign-up. Session is nil
// when the identity must be confirmed first.
type SignUpResult struct {
	Identity *models.Identity
	Session  *models.Session
	Message  string
}

// AuthServiceParams groups constructor dependencies.
type AuthServiceParams struct {
	Gateway   backend.AuthGateway
	Profiles  backend.ProfileStore
	Sessions  sessionStore
	Notifier  *SessionNotifier
	Validator *validator.Validate
	Metrics   *MetricsService
	Logger    *zap.Logger
	// JWTSecret verifies access tokens when reading their expiry. Empty skips verification.
	JWTSecret []byte
}

// AuthService adapts the backend auth gateway to browser sessions.
type AuthService struct {
	gateway   backend.AuthGateway
	profiles  backend.ProfileStore
	sessions  sessionStore
	notifier  *SessionNotifier
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	secret    []byte
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(params AuthServiceParams) *AuthService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = NewSessionNotifier()
	}
	return &AuthService{
		gateway:   params.Gateway,
		profiles:  params.Profiles,
		sessions:  params.Sessions,
		notifier:  notifier,
		validator: validate,
		metrics:   params.Metrics,
		logger:    logger,
		secret:    params.JWTSecret,
		now:       time.Now,
	}
}

// SignIn authenticates against the backend and stores the resulting session.
func (s *AuthService) SignIn(ctx context.Context, req dto.SignInRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAuth.Code, appErrors.ErrAuth.Status, "email and password are required")
	}

	session, err := s.gateway.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		s.metrics.RecordAuthFailure("sign_in")
		s.logger.Info("sign in rejected", zap.String("email", req.Email), zap.Error(err))
		return nil, authError(err)
	}

	if err := s.store(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SignUp registers an identity and its profile. A profile insert failure
// leaves an orphaned identity, which is deleted when the gateway can.
func (s *AuthService) SignUp(ctx context.Context, req dto.SignUpRequest) (*SignUpResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAuth.Code, appErrors.ErrAuth.Status, "name, email, password and role are required")
	}

	identity, session, err := s.gateway.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		s.metrics.RecordAuthFailure("sign_up")
		s.logger.Info("sign up rejected", zap.String("email", req.Email), zap.Error(err))
		return nil, authError(err)
	}

	profile := &models.Profile{ID: identity.ID, Role: req.Role, Name: req.Name}
	switch req.Role {
	case models.RoleStudent:
		profile.RollNo = models.StringPtr(placeholderColumn)
	case models.RoleTeacher:
		profile.Class = models.StringPtr(placeholderColumn)
	}

	insertCtx := ctx
	if session != nil {
		insertCtx = backend.WithAccessToken(ctx, session.AccessToken)
	}
	if err := s.profiles.Insert(insertCtx, profile); err != nil {
		s.metrics.RecordAuthFailure("sign_up_profile")
		compensateOrphan(ctx, s.gateway, identity, err, s.logger)
		return nil, authError(err)
	}

	result := &SignUpResult{Identity: identity, Message: SignUpConfirmationMessage}
	if session != nil {
		if err := s.store(ctx, session); err != nil {
			return nil, err
		}
		result.Session = session
		result.Message = ""
	}
	return result, nil
}

// SignOut revokes the backend session and forgets the stored one. Unknown
// session ids are ignored.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionNotFound) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if err := s.gateway.SignOut(ctx, session.AccessToken); err != nil {
		s.logger.Warn("backend sign out failed", zap.String("user_id", session.UserID), zap.Error(err))
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.publish(models.SessionSignedOut, session)
	return nil
}

// Session returns the live session for id, or nil when there is none. A
// session not confirmed by the backend within sessionRevalidateInterval is
// checked again; a token the backend rejects ends the session.
func (s *AuthService) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, nil
	}
	if s.now().Sub(session.ValidatedAt) >= sessionRevalidateInterval && !s.revalidate(ctx, session) {
		return nil, nil
	}
	return session, nil
}

// revalidate asks the backend about session's token. Backend outages keep
// the session; only a rejected token or a different identity ends it.
func (s *AuthService) revalidate(ctx context.Context, session *models.Session) bool {
	identity, err := s.gateway.User(ctx, session.AccessToken)
	if err != nil {
		if !rejected(err) {
			s.logger.Warn("session revalidation failed", zap.String("user_id", session.UserID), zap.Error(err))
			return true
		}
		s.forget(ctx, session)
		return false
	}
	if identity != nil && identity.ID != session.UserID {
		s.forget(ctx, session)
		return false
	}

	session.ValidatedAt = s.now()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Warn("failed to record session revalidation", zap.Error(err))
	}
	return true
}

func (s *AuthService) forget(ctx context.Context, session *models.Session) {
	s.logger.Info("backend rejected stored session", zap.String("user_id", session.UserID))
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("failed to delete rejected session", zap.Error(err))
		return
	}
	s.publish(models.SessionSignedOut, session)
}

func rejected(err error) bool {
	var backendErr *backend.Error
	if !errors.As(err, &backendErr) {
		return false
	}
	return backendErr.Status == http.StatusUnauthorized || backendErr.Status == http.StatusForbidden
}

// Subscribe returns a channel of session changes and its cancel function.
func (s *AuthService) Subscribe() (<-chan models.SessionEvent, func()) {
	return s.notifier.Subscribe()
}

func (s *AuthService) store(ctx context.Context, session *models.Session) error {
	if claims, err := backend.ParseAccessToken(session.AccessToken, s.secret); err == nil {
		if session.UserID == "" {
			session.UserID = claims.Subject
		}
		if session.Email == "" {
			session.Email = claims.Email
		}
		if session.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}
	} else {
		s.logger.Debug("access token not readable", zap.Error(err))
	}

	session.ID = uuid.NewString()
	session.ValidatedAt = s.now()
	if err := s.sessions.Save(ctx, session); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session")
	}
	s.publish(models.SessionSignedIn, session)
	return nil
}

func (s *AuthService) publish(eventType models.SessionEventType, session *models.Session) {
	s.metrics.RecordSessionEvent(string(eventType))
	s.notifier.Publish(models.SessionEvent{
		Type:    eventType,
		UserID:  session.UserID,
		Session: session,
		At:      s.now().UTC(),
	})
}

// authError carries the backend's message to the inline form error.
func authError(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrAuth.Code, appErrors.ErrAuth.Status, backend.Message(err))
}

// compensateOrphan removes an identity whose profile could not be created.
func compensateOrphan(ctx context.Context, gateway backend.AuthGateway, identity *models.Identity, cause error, logger *zap.Logger) {
	fields := []zap.Field{zap.String("identity_id", identity.ID), zap.String("email", identity.Email), zap.NamedError("cause", cause)}
	deleter, ok := gateway.(backend.IdentityDeleter)
	if !ok {
		logger.Error("orphaned identity", fields...)
		return
	}
	if err := deleter.DeleteIdentity(ctx, identity.ID); err != nil {
		logger.Error("orphaned identity", append(fields, zap.Error(err))...)
		return
	}
	logger.Warn("deleted identity after failed profile insert", fields...)
}
