package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-portal/internal/navigation"
)

// ThemeHandler flips the light/dark preference.
type ThemeHandler struct {
	secure bool
}

// NewThemeHandler constructs the handler.
func NewThemeHandler(secureCookies bool) *ThemeHandler {
	return &ThemeHandler{secure: secureCookies}
}

// Toggle handles POST /theme/toggle and returns to the posting page.
func (h *ThemeHandler) Toggle(c *gin.Context) {
	navigation.ToggleTheme(cookieThemeStore{c: c, secure: h.secure})
	newNavigator(c).to(safeReturn(c.PostForm("return_to")))
}
