package models

import (
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar date used as part of the attendance key.
const DateLayout = "2006-01-02"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
	AttendanceStatusLate    AttendanceStatus = "Late"
)

// StatusNotMarked is displayed for roster students without a record on the selected date.
const StatusNotMarked = "Not Marked"

// AttendanceStatuses lists the markable statuses in display order.
var AttendanceStatuses = []AttendanceStatus{
	AttendanceStatusPresent,
	AttendanceStatusAbsent,
	AttendanceStatusLate,
}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// ParseAttendanceStatus accepts any casing of a supported status.
func ParseAttendanceStatus(raw string) (AttendanceStatus, bool) {
	for _, status := range AttendanceStatuses {
		if strings.EqualFold(strings.TrimSpace(raw), string(status)) {
			return status, true
		}
	}
	return "", false
}

// AttendanceRecord is one row of the attendance table, keyed by (StudentID, Date).
type AttendanceRecord struct {
	StudentID string           `db:"student_id" json:"student_id"`
	Date      string           `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
}

// Key returns the composite upsert key.
func (r AttendanceRecord) Key() string {
	return r.StudentID + "|" + r.Date
}

// FormatDate renders t as a YYYY-MM-DD attendance date in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD attendance date.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}
