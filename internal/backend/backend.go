// Package backend defines the contracts of the hosted auth and table backend.
// Implementations live in the rest and memory subpackages and in
// internal/repository for direct Postgres access.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/sma-attendance-portal/internal/models"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("backend: row not found")

// AuthGateway is the auth half of the backend.
type AuthGateway interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	// SignUp creates an identity. The session is nil when the backend requires
	// e-mail confirmation before the first sign-in.
	SignUp(ctx context.Context, email, password string) (*models.Identity, *models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	User(ctx context.Context, accessToken string) (*models.Identity, error)
}

// IdentityDeleter is implemented by gateways holding an admin credential.
type IdentityDeleter interface {
	DeleteIdentity(ctx context.Context, id string) error
}

// ProfileStore reads and creates rows of the profiles table.
type ProfileStore interface {
	ListByRole(ctx context.Context, role models.Role) ([]models.Profile, error)
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	Insert(ctx context.Context, profile *models.Profile) error
}

// AttendanceStore reads and upserts rows of the attendance table.
type AttendanceStore interface {
	ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
	ListByDateRange(ctx context.Context, from, to string) ([]models.AttendanceRecord, error)
	Upsert(ctx context.Context, record models.AttendanceRecord) error
	// UpsertBatch submits every record in one request; a failure covers the whole batch.
	UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error
}

// Error is a failure reported by the backend with its human-readable message.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// Message extracts the user-facing message from err.
func Message(err error) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

type accessTokenKey struct{}

// WithAccessToken attaches the caller's backend token so row-level policies
// are evaluated for that user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token attached by WithAccessToken.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
