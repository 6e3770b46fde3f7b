package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-portal/internal/backend/memory"
	"github.com/noah-isme/sma-attendance-portal/internal/dto"
	"github.com/noah-isme/sma-attendance-portal/internal/middleware"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	"github.com/noah-isme/sma-attendance-portal/internal/repository"
	"github.com/noah-isme/sma-attendance-portal/internal/service"
	"github.com/noah-isme/sma-attendance-portal/web"
)

func newPortal(t *testing.T) (http.Handler, *memory.Backend) {
	t.Helper()
	secret := []byte("router-secret")
	mem := memory.New(secret)
	metrics := service.NewMetricsService()

	auth := service.NewAuthService(service.AuthServiceParams{
		Gateway:   mem,
		Profiles:  mem,
		Sessions:  repository.NewMemorySessionRepository(time.Hour),
		Metrics:   metrics,
		JWTSecret: secret,
	})
	teachers := service.NewTeacherDashboardService(service.TeacherDashboardParams{
		Profiles:   mem,
		Attendance: mem,
		Gateway:    mem,
		Locks:      repository.NewMemoryLockRepository(),
		Metrics:    metrics,
	})
	students := service.NewStudentDashboardService(mem, "", metrics, nil)
	dashboards := service.NewDashboardService(mem, teachers, students, nil).EndSessionsWith(auth)
	reports := service.NewReportService(mem, mem, nil)

	tmpl, err := web.Templates()
	require.NoError(t, err)

	r := NewRouter(RouterDeps{
		Templates:  tmpl,
		Session:    middleware.Session(auth, testCookies.SessionName, nil),
		Auth:       NewAuthHandler(auth, "SMA Attendance", testCookies, nil),
		Dashboard:  NewDashboardHandler(dashboards, reports, students, "SMA Attendance", false, nil),
		Attendance: NewAttendanceHandler(dashboards, teachers, nil),
		Reports:    NewReportHandler(dashboards, reports),
		Theme:      NewThemeHandler(false),
		Metrics:    NewMetricsHandler(metrics, nil, nil),
	})
	return r, mem
}

func enrollDirect(t *testing.T, mem *memory.Backend, email, name, roll string) string {
	t.Helper()
	identity, _, err := mem.SignUp(context.Background(), email, "secret-pass")
	require.NoError(t, err)
	require.NoError(t, mem.Insert(context.Background(), &models.Profile{
		ID:     identity.ID,
		Role:   models.RoleStudent,
		Name:   name,
		RollNo: models.StringPtr(roll),
		Class:  models.StringPtr("X-1"),
	}))
	return identity.ID
}

func TestPortalTeacherFlow(t *testing.T) {
	r, mem := newPortal(t)
	aniID := enrollDirect(t, mem, "ani@sma.test", "Ani", "01")
	enrollDirect(t, mem, "budi@sma.test", "Budi", "02")

	rec := postForm(r, "/auth/signup", url.Values{
		"name":     {"Bu Sari"},
		"email":    {"sari@sma.test"},
		"password": {"secret-pass"},
		"role":     {"teacher"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	sid := findCookie(rec, testCookies.SessionName)
	require.NotNil(t, sid)

	rec = get(r, "/dashboard?section=students&date=2024-05-02", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ani")
	assert.Contains(t, rec.Body.String(), "Not Marked")

	rec = postForm(r, "/attendance/mark", url.Values{
		"student_id": {aniID},
		"status":     {"Present"},
		"date":       {"2024-05-02"},
	}, sid)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard?date=2024-05-02&section=students#students", rec.Header().Get("Location"))

	rec = get(r, "/api/v1/dashboard?date=2024-05-02", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var payload dto.DashboardResponse
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.NotNil(t, payload.Teacher)
	assert.Equal(t, 2, payload.Teacher.Total)
	assert.Equal(t, 1, payload.Teacher.Present)

	rec = postForm(r, "/attendance/bulk-present", url.Values{"date": {"2024-05-03"}}, sid)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	records, err := mem.ListByDate(context.Background(), "2024-05-03")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	rec = postForm(r, "/auth/signout", nil, sid)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = get(r, "/dashboard", sid)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestPortalStudentSeesOwnHistoryOnly(t *testing.T) {
	r, mem := newPortal(t)
	otherID := enrollDirect(t, mem, "budi@sma.test", "Budi", "02")

	rec := postForm(r, "/auth/signup", url.Values{
		"name":     {"Ani"},
		"email":    {"ani@sma.test"},
		"password": {"secret-pass"},
		"role":     {"student"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	sid := findCookie(rec, testCookies.SessionName)
	require.NotNil(t, sid)

	rec = get(r, "/dashboard", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0.00%")

	rec = get(r, "/api/v1/students/"+otherID+"/attendance", sid)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = get(r, "/attendance/bulk-present", sid)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postForm(r, "/attendance/bulk-present", url.Values{"date": {"2024-05-03"}}, sid)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestPortalSignInWithoutProfileLandsOnEntry(t *testing.T) {
	r, mem := newPortal(t)
	_, _, err := mem.SignUp(context.Background(), "ghost@sma.test", "secret-pass")
	require.NoError(t, err)

	rec := postForm(r, "/auth/signin", url.Values{"email": {"ghost@sma.test"}, "password": {"secret-pass"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	sid := findCookie(rec, testCookies.SessionName)
	require.NotNil(t, sid)

	cookies := []*http.Cookie{sid}
	var hops []string
	for i := 0; rec.Code == http.StatusSeeOther && i < 5; i++ {
		location := rec.Header().Get("Location")
		hops = append(hops, location)
		rec = get(r, location, cookies...)
		if cleared := findCookie(rec, testCookies.SessionName); cleared != nil && cleared.MaxAge < 0 {
			cookies = nil
		}
	}

	assert.Equal(t, []string{"/dashboard", "/"}, hops)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="loginForm"`)
	assert.Nil(t, cookies)
}

func TestPortalAPIRequiresSession(t *testing.T) {
	r, _ := newPortal(t)
	rec := get(r, "/api/v1/dashboard")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
}
