package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-portal/internal/middleware"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	"github.com/noah-isme/sma-attendance-portal/internal/navigation"
	"github.com/noah-isme/sma-attendance-portal/internal/service"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
	"github.com/noah-isme/sma-attendance-portal/web"
)

type fakeLoader struct {
	view  service.DashboardView
	err   error
	dates []string
}

func (f *fakeLoader) Load(_ context.Context, session *models.Session, nav navigation.Navigator, date string) (service.DashboardView, error) {
	f.dates = append(f.dates, date)
	if session == nil {
		nav.Redirect(navigation.EntryView)
		return nil, appErrors.ErrUnauthorized
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.view, nil
}

var testSession = &models.Session{ID: "sess-1", UserID: "t-1", AccessToken: "tok"}

func withSession(session *models.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if session != nil {
			c.Set(middleware.ContextSessionKey, session)
		}
		c.Next()
	}
}

func newTestEngine(t *testing.T, session *models.Session) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tmpl, err := web.Templates()
	require.NoError(t, err)
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(withSession(session))
	return r
}

func postForm(r http.Handler, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func get(r http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func teacherView() *service.TeacherView {
	view := service.NewTeacherView(models.Profile{ID: "t-1", Role: models.RoleTeacher, Name: "Bu Sari"}, "2024-05-02")
	view.Counts = service.AttendanceCounts{Total: 2, Present: 1}
	view.Rows = []service.AttendanceRow{
		{StudentID: "a", Name: "Ani", RollNo: "01", Class: "X-1", Status: "Present", BadgeClass: service.BadgeClass("Present")},
		{StudentID: "b", Name: "Budi", RollNo: "02", Class: "X-1", Status: models.StatusNotMarked, BadgeClass: service.BadgeClass(models.StatusNotMarked)},
	}
	return view
}

func studentView() *service.StudentView {
	view := service.NewStudentView(models.Profile{ID: "s-1", Role: models.RoleStudent, Name: "Ani"})
	view.Records = []models.AttendanceRecord{
		{StudentID: "s-1", Date: "2024-05-01", Status: models.AttendanceStatusPresent},
		{StudentID: "s-1", Date: "2024-05-02", Status: models.AttendanceStatusAbsent},
	}
	view.Summary = service.StudentSummary{Total: 2, Present: 1, Absent: 1, Percentage: 50}
	view.Chart = service.ChartData{Label: "Attendance", Labels: []string{"5/1/2024", "5/2/2024"}, Values: []float64{1, 0}, Max: 1.1}
	return view
}
