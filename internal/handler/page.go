package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-portal/internal/dto"
	"github.com/noah-isme/sma-attendance-portal/internal/navigation"
	"github.com/noah-isme/sma-attendance-portal/internal/service"
)

const (
	flashCookie    = "flash"
	flashMaxAge    = 60
	themeCookieAge = 365 * 24 * 60 * 60
)

// CookieOptions controls the cookies the portal writes.
type CookieOptions struct {
	SessionName string
	SessionTTL  time.Duration
	Secure      bool
}

type flash struct {
	Kind    string
	Message string
}

type basePage struct {
	AppName    string
	Title      string
	Theme      string
	ThemeClass string
	ReturnTo   string
	Flash      *flash
}

type entryForm struct {
	Name  string
	Email string
	Role  string
}

type entryPage struct {
	basePage
	Tab     string
	Form    entryForm
	Error   string
	Message string
}

type navLink struct {
	Href        string
	Label       string
	TeacherOnly bool
	Hidden      bool
	Active      bool
}

type dashboardPage struct {
	basePage
	Name         string
	Role         string
	Visible      string
	Links        []navLink
	Teacher      *service.TeacherView
	Student      *service.StudentView
	Weekly       *dto.WeeklyReportResponse
	StudentChart *service.ChartData
	WeeklyChart  *service.ChartData
}

// allLinks is the single navigation set; links the view does not offer are hidden.
var allLinks = []struct {
	section     navigation.Section
	teacherOnly bool
}{
	{navigation.SectionDashboard, false},
	{navigation.SectionStudents, true},
	{navigation.SectionReports, true},
	{navigation.SectionAddStudent, true},
}

func buildLinks(available []navigation.Section, visible navigation.Section, date string) []navLink {
	offered := make(map[navigation.Section]bool, len(available))
	for _, s := range available {
		offered[s] = true
	}
	links := make([]navLink, 0, len(allLinks))
	for _, l := range allLinks {
		links = append(links, navLink{
			Href:        sectionURL(l.section, date) + l.section.Fragment(),
			Label:       l.section.Title(),
			TeacherOnly: l.teacherOnly,
			Hidden:      !offered[l.section],
			Active:      l.section == visible,
		})
	}
	return links
}

func sectionURL(section navigation.Section, date string) string {
	q := url.Values{}
	q.Set("section", string(section))
	if date != "" {
		q.Set("date", date)
	}
	return string(navigation.DashboardView) + "?" + q.Encode()
}

// redirectNavigator performs at most one 303 redirect on the current request.
type redirectNavigator struct {
	c          *gin.Context
	redirected bool
}

func newNavigator(c *gin.Context) *redirectNavigator {
	return &redirectNavigator{c: c}
}

func (n *redirectNavigator) Redirect(target navigation.Target) {
	n.to(string(target))
}

func (n *redirectNavigator) to(location string) {
	if n.redirected {
		return
	}
	n.redirected = true
	n.c.Redirect(http.StatusSeeOther, location)
}

// cookieThemeStore keeps the theme preference in a long-lived cookie.
type cookieThemeStore struct {
	c      *gin.Context
	secure bool
}

func (s cookieThemeStore) LoadTheme() (string, bool) {
	v, err := s.c.Cookie(navigation.ThemeKey)
	if err != nil {
		return "", false
	}
	return v, true
}

func (s cookieThemeStore) SaveTheme(theme navigation.Theme) {
	s.c.SetCookie(navigation.ThemeKey, string(theme), themeCookieAge, "/", "", s.secure, false)
}

func newBasePage(c *gin.Context, appName string, secure bool) basePage {
	theme := navigation.ApplyTheme(cookieThemeStore{c: c, secure: secure})
	return basePage{
		AppName:    appName,
		Theme:      string(theme),
		ThemeClass: theme.BodyClass(),
		ReturnTo:   c.Request.URL.RequestURI(),
		Flash:      popFlash(c),
	}
}

func setFlash(c *gin.Context, kind, message string) {
	c.SetCookie(flashCookie, kind+"|"+message, flashMaxAge, "/", "", false, true)
}

func popFlash(c *gin.Context) *flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	kind, message, ok := strings.Cut(raw, "|")
	if !ok {
		return nil
	}
	return &flash{Kind: kind, Message: message}
}

// safeReturn only accepts local paths.
func safeReturn(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return string(navigation.EntryView)
	}
	return raw
}
