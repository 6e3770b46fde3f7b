package handler

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-portal/internal/dto"
	"github.com/noah-isme/sma-attendance-portal/internal/service"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
)

type fakeActions struct {
	marks     []dto.MarkAttendanceRequest
	bulkDates []string
	enrolls   []dto.EnrollStudentRequest
	err       error
}

func (f *fakeActions) MarkAttendance(_ context.Context, view *service.TeacherView, req dto.MarkAttendanceRequest) error {
	f.marks = append(f.marks, req)
	if req.Date != "" {
		view.Date = req.Date
	}
	return f.err
}

func (f *fakeActions) BulkMarkPresent(_ context.Context, _ *service.TeacherView, date string) error {
	f.bulkDates = append(f.bulkDates, date)
	return f.err
}

func (f *fakeActions) EnrollStudent(_ context.Context, _ *service.TeacherView, req dto.EnrollStudentRequest) (string, error) {
	f.enrolls = append(f.enrolls, req)
	if f.err != nil {
		return "", f.err
	}
	return service.EnrollmentSuccessMessage, nil
}

func newAttendanceEngine(t *testing.T, view service.DashboardView, actions *fakeActions) http.Handler {
	r := newTestEngine(t, testSession)
	h := NewAttendanceHandler(&fakeLoader{view: view}, actions, nil)
	r.POST("/attendance/mark", h.Mark)
	r.POST("/attendance/bulk-present", h.BulkPresent)
	r.POST("/students", h.Enroll)
	return r
}

func TestMarkRedirectsToStudentsSection(t *testing.T) {
	actions := &fakeActions{}
	r := newAttendanceEngine(t, teacherView(), actions)

	rec := postForm(r, "/attendance/mark", url.Values{"student_id": {"a"}, "status": {"Late"}, "date": {"2024-05-03"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard?date=2024-05-03&section=students#students", rec.Header().Get("Location"))
	require.Len(t, actions.marks, 1)
	assert.Equal(t, dto.MarkAttendanceRequest{StudentID: "a", Status: "Late", Date: "2024-05-03"}, actions.marks[0])
	assert.Nil(t, findCookie(rec, flashCookie))
}

func TestMarkBackendFailureIsSilent(t *testing.T) {
	actions := &fakeActions{err: appErrors.Clone(appErrors.ErrBackend, "failed to mark attendance")}
	r := newAttendanceEngine(t, teacherView(), actions)

	rec := postForm(r, "/attendance/mark", url.Values{"student_id": {"a"}, "status": {"Present"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, findCookie(rec, flashCookie))
}

func TestMarkValidationErrorIsFlashed(t *testing.T) {
	actions := &fakeActions{err: appErrors.Clone(appErrors.ErrValidation, `unknown status "Sick"`)}
	r := newAttendanceEngine(t, teacherView(), actions)

	rec := postForm(r, "/attendance/mark", url.Values{"student_id": {"a"}, "status": {"Sick"}})
	cookie := findCookie(rec, flashCookie)
	require.NotNil(t, cookie)
	assert.Contains(t, cookie.Value, "error")
}

func TestStudentCannotPostTeacherActions(t *testing.T) {
	actions := &fakeActions{}
	r := newAttendanceEngine(t, studentView(), actions)

	for _, path := range []string{"/attendance/mark", "/attendance/bulk-present", "/students"} {
		rec := postForm(r, path, url.Values{"student_id": {"s-1"}, "status": {"Present"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"), path)
	}
	assert.Empty(t, actions.marks)
	assert.Empty(t, actions.bulkDates)
	assert.Empty(t, actions.enrolls)
}

func TestBulkPresentConflictIsFlashed(t *testing.T) {
	actions := &fakeActions{err: appErrors.Clone(appErrors.ErrConflict, "bulk attendance update already in progress")}
	r := newAttendanceEngine(t, teacherView(), actions)

	rec := postForm(r, "/attendance/bulk-present", url.Values{"date": {"2024-05-02"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"2024-05-02"}, actions.bulkDates)
	cookie := findCookie(rec, flashCookie)
	require.NotNil(t, cookie)
	decoded, err := url.QueryUnescape(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "error|bulk attendance update already in progress", decoded)
}

func TestEnrollFlashesOutcome(t *testing.T) {
	actions := &fakeActions{}
	r := newAttendanceEngine(t, teacherView(), actions)

	form := url.Values{"name": {"Citra"}, "email": {"citra@sma.test"}, "roll_no": {"03"}, "class": {"X-1"}, "contact": {"0812"}}
	rec := postForm(r, "/students", form)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard?section=add-student#add-student", rec.Header().Get("Location"))
	require.Len(t, actions.enrolls, 1)
	assert.Equal(t, "03", actions.enrolls[0].RollNo)
	decoded, err := url.QueryUnescape(findCookie(rec, flashCookie).Value)
	require.NoError(t, err)
	assert.Equal(t, "success|"+service.EnrollmentSuccessMessage, decoded)
}

func TestFlashIsShownOnce(t *testing.T) {
	r := newTestEngine(t, testSession)
	h := NewDashboardHandler(&fakeLoader{view: teacherView()}, nil, nil, "SMA Attendance", false, nil)
	r.GET("/dashboard", h.Show)

	flashValue := url.QueryEscape("error|" + "bulk attendance update failed")
	rec := get(r, "/dashboard?section=students", &http.Cookie{Name: flashCookie, Value: flashValue})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bulk attendance update failed")
	assert.Contains(t, rec.Body.String(), "bg-red-100 text-red-700")
	assert.True(t, findCookie(rec, flashCookie).MaxAge < 0)
}
