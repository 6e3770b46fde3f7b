package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	"github.com/noah-isme/sma-attendance-portal/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.BackendConfig{URL: srv.URL, AnonKey: "anon", ServiceKey: "service"}, nil)
}

func TestSignInSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))

		var body credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "teacher@school.test", body.Email)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok","refresh_token":"ref","expires_in":3600,"expires_at":1900000000,"user":{"id":"u-1","email":"teacher@school.test"}}`)
	})

	session, err := client.SignIn(context.Background(), "teacher@school.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", session.UserID)
	assert.Equal(t, "tok", session.AccessToken)
	assert.Equal(t, int64(1900000000), session.ExpiresAt.Unix())
}

func TestSignInFailureCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
	})

	_, err := client.SignIn(context.Background(), "x@school.test", "bad")
	require.Error(t, err)
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadRequest, be.Status)
	assert.Equal(t, "Invalid login credentials", backend.Message(err))
}

func TestSignUpWithoutSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"new-1","email":"s@school.test"}`)
	})

	ctx := backend.WithAccessToken(context.Background(), "teacher-token")
	identity, session, err := client.SignUp(ctx, "s@school.test", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "new-1", identity.ID)
	assert.Nil(t, session)
}

func TestSignUpDuplicate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`)
	})

	_, _, err := client.SignUp(context.Background(), "s@school.test", "pw123456")
	require.Error(t, err)
	assert.Equal(t, "User already registered", backend.Message(err))
}

func TestListByDateUsesEqualityFilterAndUserToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/attendance", r.URL.Path)
		assert.Equal(t, "eq.2024-05-02", r.URL.Query().Get("date"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"student_id":"s-1","date":"2024-05-02","status":"Present","marked_by":"t-1"}]`)
	})

	ctx := backend.WithAccessToken(context.Background(), "user-token")
	rows, err := client.ListByDate(ctx, "2024-05-02")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.AttendanceStatusPresent, rows[0].Status)
}

func TestListByDateRangeSendsBothBounds(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.ElementsMatch(t, []string{"gte.2024-05-01", "lte.2024-05-05"}, r.URL.Query()["date"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	})

	rows, err := client.ListByDateRange(context.Background(), "2024-05-01", "2024-05-05")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFindByIDNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.missing", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := client.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestUpsertBatchSingleRequest(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "student_id,date", r.URL.Query().Get("on_conflict"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")

		var body []models.AttendanceRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body, 3)
		w.WriteHeader(http.StatusCreated)
	})

	err := client.UpsertBatch(context.Background(), []models.AttendanceRecord{
		{StudentID: "a", Date: "2024-05-02", Status: models.AttendanceStatusPresent, MarkedBy: "t"},
		{StudentID: "b", Date: "2024-05-02", Status: models.AttendanceStatusPresent, MarkedBy: "t"},
		{StudentID: "c", Date: "2024-05-02", Status: models.AttendanceStatusPresent, MarkedBy: "t"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestUpsertErrorFromTableAPI(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"code":"42501","message":"new row violates row-level security policy"}`)
	})

	err := client.Upsert(context.Background(), models.AttendanceRecord{StudentID: "a", Date: "2024-05-02", Status: models.AttendanceStatusLate})
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "42501", be.Code)
	assert.Contains(t, be.Message, "row-level security")
}

func TestDeleteIdentityUsesServiceKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/auth/v1/admin/users/u-9", r.URL.Path)
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		assert.Equal(t, "service", r.Header.Get("apikey"))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.DeleteIdentity(context.Background(), "u-9"))
}
