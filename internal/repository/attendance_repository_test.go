package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-portal/internal/models"
)

func TestAttendanceRepositoryListByDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "date", "status", "marked_by"}).
		AddRow("a", "2024-05-02", "Present", "t")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, date::text AS date, status, marked_by FROM attendance WHERE date = $1")).
		WithArgs("2024-05-02").
		WillReturnRows(rows)

	records, err := repo.ListByDate(context.Background(), "2024-05-02")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AttendanceStatusPresent, records[0].Status)
	assert.Equal(t, "2024-05-02", records[0].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByDateRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE date >= $1 AND date <= $2 ORDER BY date")).
		WithArgs("2024-04-29", "2024-05-03").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "date", "status", "marked_by"}))

	records, err := repo.ListByDateRange(context.Background(), "2024-04-29", "2024-05-03")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, date)")).
		WithArgs("a", "2024-05-02", models.AttendanceStatusLate, "t").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), models.AttendanceRecord{StudentID: "a", Date: "2024-05-02", Status: models.AttendanceStatusLate, MarkedBy: "t"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertBatchSingleStatement(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4), ($5, $6, $7, $8), ($9, $10, $11, $12)")).
		WithArgs(
			"a", "2024-05-02", models.AttendanceStatusPresent, "t",
			"b", "2024-05-02", models.AttendanceStatusPresent, "t",
			"c", "2024-05-02", models.AttendanceStatusPresent, "t",
		).
		WillReturnResult(sqlmock.NewResult(0, 3))

	records := []models.AttendanceRecord{
		{StudentID: "a", Date: "2024-05-02", Status: models.AttendanceStatusPresent, MarkedBy: "t"},
		{StudentID: "b", Date: "2024-05-02", Status: models.AttendanceStatusPresent, MarkedBy: "t"},
		{StudentID: "c", Date: "2024-05-02", Status: models.AttendanceStatusPresent, MarkedBy: "t"},
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertBatchError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance").WillReturnError(errors.New("permission denied"))

	err := repo.UpsertBatch(context.Background(), []models.AttendanceRecord{
		{StudentID: "a", Date: "2024-05-02", Status: models.AttendanceStatusPresent, MarkedBy: "t"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, repo.UpsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
