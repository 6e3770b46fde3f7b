package rest

import (
	"context"
	"net/url"
	"time"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
)

const (
	profilesPath   = "/rest/v1/profiles"
	attendancePath = "/rest/v1/attendance"
)

var _ backend.ProfileStore = (*Client)(nil)
var _ backend.AttendanceStore = (*Client)(nil)

// ListByRole selects all profiles with the given role in store order.
func (c *Client) ListByRole(ctx context.Context, role models.Role) ([]models.Profile, error) {
	var out []models.Profile
	err := c.selectRows(ctx, "profiles.list_by_role", profilesPath, url.Values{
		"select": {"*"},
		"role":   {"eq." + string(role)},
	}, &out)
	return out, err
}

// FindByID selects one profile by primary key.
func (c *Client) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var out []models.Profile
	if err := c.selectRows(ctx, "profiles.find_by_id", profilesPath, url.Values{
		"select": {"*"},
		"id":     {"eq." + id},
		"limit":  {"1"},
	}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, backend.ErrNotFound
	}
	return &out[0], nil
}

// Insert creates a profile row.
func (c *Client) Insert(ctx context.Context, profile *models.Profile) error {
	start := time.Now()
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(profile).
		SetError(&apiError{}).
		Post(profilesPath)
	err = check(resp, err)
	c.observe("profiles.insert", start, resp, err)
	return err
}

// ListByDate selects attendance rows for one date.
func (c *Client) ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	err := c.selectRows(ctx, "attendance.list_by_date", attendancePath, url.Values{
		"select": {"*"},
		"date":   {"eq." + date},
	}, &out)
	return out, err
}

// ListByStudent selects the full attendance history of one student.
func (c *Client) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	err := c.selectRows(ctx, "attendance.list_by_student", attendancePath, url.Values{
		"select":     {"*"},
		"student_id": {"eq." + studentID},
	}, &out)
	return out, err
}

// ListByDateRange selects attendance rows with from <= date <= to.
func (c *Client) ListByDateRange(ctx context.Context, from, to string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	err := c.selectRows(ctx, "attendance.list_by_range", attendancePath, url.Values{
		"select": {"*"},
		"date":   {"gte." + from, "lte." + to},
	}, &out)
	return out, err
}

// Upsert writes one record, replacing any row with the same (student_id, date).
func (c *Client) Upsert(ctx context.Context, record models.AttendanceRecord) error {
	return c.upsert(ctx, "attendance.upsert", record)
}

// UpsertBatch writes all records in a single request.
func (c *Client) UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	return c.upsert(ctx, "attendance.upsert_batch", records)
}

func (c *Client) upsert(ctx context.Context, op string, body interface{}) error {
	start := time.Now()
	resp, err := c.request(ctx).
		SetQueryParam("on_conflict", "student_id,date").
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetBody(body).
		SetError(&apiError{}).
		Post(attendancePath)
	err = check(resp, err)
	c.observe(op, start, resp, err)
	return err
}

func (c *Client) selectRows(ctx context.Context, op, path string, query url.Values, dest interface{}) error {
	start := time.Now()
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(query).
		SetResult(dest).
		SetError(&apiError{}).
		Get(path)
	err = check(resp, err)
	c.observe(op, start, resp, err)
	return err
}
