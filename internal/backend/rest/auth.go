package rest

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	User         *authUser `json:"user"`
}

// signUpResponse is a session when auto-confirm is on, a bare user otherwise.
type signUpResponse struct {
	tokenResponse
	ID    string `json:"id"`
	Email string `json:"email"`
}

var _ backend.AuthGateway = (*Client)(nil)
var _ backend.IdentityDeleter = (*Client)(nil)

// SignIn exchanges e-mail and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	start := time.Now()
	var out tokenResponse
	resp, err := c.request(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(credentials{Email: email, Password: password}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/auth/v1/token")
	err = check(resp, err)
	c.observe("auth.sign_in", start, resp, err)
	if err != nil {
		return nil, err
	}
	return out.session(time.Now()), nil
}

// SignUp registers a new identity.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.Identity, *models.Session, error) {
	start := time.Now()
	var out signUpResponse
	resp, err := c.request(backend.WithAccessToken(ctx, "")).
		SetBody(credentials{Email: email, Password: password}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/auth/v1/signup")
	err = check(resp, err)
	c.observe("auth.sign_up", start, resp, err)
	if err != nil {
		return nil, nil, err
	}

	if out.AccessToken != "" && out.User != nil {
		session := out.session(time.Now())
		return &models.Identity{ID: out.User.ID, Email: out.User.Email}, session, nil
	}
	if out.ID == "" {
		return nil, nil, fmt.Errorf("sign up returned no identity")
	}
	return &models.Identity{ID: out.ID, Email: out.Email}, nil, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	start := time.Now()
	resp, err := c.request(backend.WithAccessToken(ctx, accessToken)).
		SetError(&apiError{}).
		Post("/auth/v1/logout")
	err = check(resp, err)
	c.observe("auth.sign_out", start, resp, err)
	return err
}

// User returns the identity owning accessToken.
func (c *Client) User(ctx context.Context, accessToken string) (*models.Identity, error) {
	start := time.Now()
	var out authUser
	resp, err := c.request(backend.WithAccessToken(ctx, accessToken)).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/auth/v1/user")
	err = check(resp, err)
	c.observe("auth.user", start, resp, err)
	if err != nil {
		return nil, err
	}
	return &models.Identity{ID: out.ID, Email: out.Email}, nil
}

// DeleteIdentity removes an identity with the service key.
func (c *Client) DeleteIdentity(ctx context.Context, id string) error {
	if c.serviceKey == "" {
		return fmt.Errorf("delete identity %s: no service key configured", id)
	}
	start := time.Now()
	resp, err := c.adminRequest(ctx).
		SetPathParam("id", id).
		SetError(&apiError{}).
		Delete("/auth/v1/admin/users/{id}")
	err = check(resp, err)
	c.observe("auth.delete_identity", start, resp, err)
	return err
}

func (t tokenResponse) session(now time.Time) *models.Session {
	session := &models.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	if t.User != nil {
		session.UserID = t.User.ID
		session.Email = t.User.Email
	}
	switch {
	case t.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(t.ExpiresAt, 0).UTC()
	case t.ExpiresIn > 0:
		session.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	}
	return session
}
