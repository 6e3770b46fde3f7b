package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	"github.com/noah-isme/sma-attendance-portal/internal/navigation"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
	"github.com/noah-isme/sma-attendance-portal/pkg/response"
)

// ContextSessionKey is the gin context key storing the current session.
const ContextSessionKey = "currentSession"

type sessionLoader interface {
	Session(ctx context.Context, sessionID string) (*models.Session, error)
}

// Session resolves the session cookie. A live session is stored on the gin
// context and its access token on the request context; anything else leaves
// the request anonymous.
func Session(loader sessionLoader, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || id == "" {
			c.Next()
			return
		}

		session, err := loader.Session(c.Request.Context(), id)
		if err != nil {
			logger.Warn("failed to load session", zap.Error(err))
			c.Next()
			return
		}
		if session == nil {
			c.SetCookie(cookieName, "", -1, "/", "", false, true)
			c.Next()
			return
		}

		c.Set(ContextSessionKey, session)
		c.Request = c.Request.WithContext(backend.WithAccessToken(c.Request.Context(), session.AccessToken))
		c.Next()
	}
}

// CurrentSession returns the session stored by Session, or nil.
func CurrentSession(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// RequireSession sends anonymous page requests back to the entry view.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) == nil {
			c.Redirect(http.StatusSeeOther, string(navigation.EntryView))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAPISession rejects anonymous API requests with 401.
func RequireAPISession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
