package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/dto"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	"github.com/noah-isme/sma-attendance-portal/internal/navigation"
	"github.com/noah-isme/sma-attendance-portal/internal/service"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
	"github.com/noah-isme/sma-attendance-portal/pkg/response"
)

const (
	tabSignIn = "signin"
	tabSignUp = "signup"
)

type authService interface {
	SignIn(ctx context.Context, req dto.SignInRequest) (*models.Session, error)
	SignUp(ctx context.Context, req dto.SignUpRequest) (*service.SignUpResult, error)
	SignOut(ctx context.Context, sessionID string) error
}

// AuthHandler serves the entry page and its sign-in, sign-up and sign-out forms.
type AuthHandler struct {
	service authService
	appName string
	cookies CookieOptions
	logger  *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, appName string, cookies CookieOptions, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: svc, appName: appName, cookies: cookies, logger: logger}
}

// Entry renders the sign-in and sign-up tabs. A signed-in browser goes
// straight to the dashboard.
func (h *AuthHandler) Entry(c *gin.Context) {
	if sessionFromContext(c) != nil {
		newNavigator(c).Redirect(navigation.TargetFor(models.SessionSignedIn))
		return
	}
	tab := tabSignIn
	if c.Query("tab") == tabSignUp {
		tab = tabSignUp
	}
	h.render(c, http.StatusOK, entryPage{Tab: tab})
}

// SignIn authenticates the form credentials. Failures are shown inline.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		h.render(c, http.StatusBadRequest, entryPage{Tab: tabSignIn, Error: "invalid sign in form"})
		return
	}

	session, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		appErr := appErrors.FromError(err)
		h.render(c, appErr.Status, entryPage{Tab: tabSignIn, Form: entryForm{Email: req.Email}, Error: appErr.Message})
		return
	}

	h.setSessionCookie(c, session.ID)
	newNavigator(c).Redirect(navigation.TargetFor(models.SessionSignedIn))
}

// SignUp registers an identity with its profile. When the backend requires
// e-mail confirmation the entry page shows the confirmation message instead
// of redirecting.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBind(&req); err != nil {
		h.render(c, http.StatusBadRequest, entryPage{Tab: tabSignUp, Error: "invalid sign up form"})
		return
	}
	form := entryForm{Name: req.Name, Email: req.Email, Role: string(req.Role)}

	res, err := h.service.SignUp(c.Request.Context(), req)
	if err != nil {
		appErr := appErrors.FromError(err)
		h.render(c, appErr.Status, entryPage{Tab: tabSignUp, Form: form, Error: appErr.Message})
		return
	}

	if res.Session == nil {
		h.render(c, http.StatusOK, entryPage{Tab: tabSignIn, Form: entryForm{Email: req.Email}, Message: res.Message})
		return
	}
	h.setSessionCookie(c, res.Session.ID)
	newNavigator(c).Redirect(navigation.TargetFor(models.SessionSignedIn))
}

// SignOut ends the session and returns to the entry view.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if id, err := c.Cookie(h.cookies.SessionName); err == nil {
		if err := h.service.SignOut(c.Request.Context(), id); err != nil {
			h.logger.Warn("sign out failed", zap.Error(err))
		}
	}
	c.SetCookie(h.cookies.SessionName, "", -1, "/", "", h.cookies.Secure, true)
	newNavigator(c).Redirect(navigation.TargetFor(models.SessionSignedOut))
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookies.SessionName, id, int(h.cookies.SessionTTL.Seconds()), "/", "", h.cookies.Secure, true)
}

func (h *AuthHandler) render(c *gin.Context, status int, page entryPage) {
	page.basePage = newBasePage(c, h.appName, h.cookies.Secure)
	page.Title = "Welcome"
	page.ReturnTo = "/?tab=" + page.Tab
	response.HTML(c, status, "entry.html", page)
}

// SignInRateLimited re-renders the sign-in tab when a client exceeds its budget.
func (h *AuthHandler) SignInRateLimited(c *gin.Context) {
	h.render(c, http.StatusTooManyRequests, entryPage{Tab: tabSignIn, Error: "too many attempts, please wait a minute"})
}
