package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
)

const attendanceColumns = "student_id, date::text AS date, status, marked_by"

// AttendanceRepository handles persistence for attendance records keyed by
// (student_id, date).
type AttendanceRepository struct {
	db *sqlx.DB
}

var _ backend.AttendanceStore = (*AttendanceRepository)(nil)

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListByDate returns the records of one date.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE date = $1", attendanceColumns)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}
	return rows, nil
}

// ListByStudent returns the history of one student.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE student_id = $1 ORDER BY date", attendanceColumns)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list attendance by student: %w", err)
	}
	return rows, nil
}

// ListByDateRange returns records with from <= date <= to.
func (r *AttendanceRepository) ListByDateRange(ctx context.Context, from, to string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE date >= $1 AND date <= $2 ORDER BY date", attendanceColumns)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("list attendance by range: %w", err)
	}
	return rows, nil
}

// Upsert inserts or replaces one record.
func (r *AttendanceRepository) Upsert(ctx context.Context, record models.AttendanceRecord) error {
	query := `INSERT INTO attendance (student_id, date, status, marked_by)
VALUES ($1, $2, $3, $4)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by`
	if _, err := r.db.ExecContext(ctx, query, record.StudentID, record.Date, record.Status, record.MarkedBy); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// UpsertBatch writes every record in one statement, so the batch succeeds or
// fails as a whole.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*4)
	for _, rec := range records {
		n := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4))
		args = append(args, rec.StudentID, rec.Date, rec.Status, rec.MarkedBy)
	}
	query := fmt.Sprintf(`INSERT INTO attendance (student_id, date, status, marked_by)
VALUES %s
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by`, strings.Join(values, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert attendance batch: %w", err)
	}
	return nil
}
