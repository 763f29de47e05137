package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishhub/chms-api/internal/models"
)

func newShiftMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestShiftRepositoryList(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "ministry_id", "shift_date", "start_time", "end_time", "notes", "member_id", "assigned_at", "created_at", "updated_at", "assignee_name", "assignee_email"}).
		AddRow("s1", "min-1", now, "09:00", "11:00", "", nil, nil, now, now, nil, nil)
	mock.ExpectQuery("SELECT s.id, s.ministry_id, s.shift_date").
		WithArgs("min-1").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("min-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	unassigned := true
	shifts, total, err := repo.List(context.Background(), models.ShiftFilter{MinistryID: "min-1", Unassigned: &unassigned})
	require.NoError(t, err)
	assert.Len(t, shifts, 1)
	assert.Equal(t, 1, total)
	assert.Nil(t, shifts[0].MemberID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryListUnassignedInWindow(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	rows := sqlmock.NewRows([]string{"id", "ministry_id", "shift_date", "start_time", "end_time", "notes", "member_id", "assigned_at", "created_at", "updated_at"}).
		AddRow("s1", "min-1", from, "09:00", "11:00", "", nil, nil, from, from).
		AddRow("s2", "min-1", from.AddDate(0, 0, 1), "09:00", "11:00", "", nil, nil, from, from)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT s.id, s.ministry_id, s.shift_date, s.start_time, s.end_time, s.notes, s.member_id, s.assigned_at, s.created_at, s.updated_at
        FROM shifts s
        WHERE s.ministry_id = $1 AND s.member_id IS NULL AND s.shift_date >= $2 AND s.shift_date <= $3
        ORDER BY s.shift_date ASC, s.start_time ASC, s.created_at ASC`)).
		WithArgs("min-1", from, to).
		WillReturnRows(rows)

	shifts, err := repo.ListUnassignedInWindow(context.Background(), "min-1", from, to)
	require.NoError(t, err)
	assert.Len(t, shifts, 2)
	assert.Equal(t, "s1", shifts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	mock.ExpectExec("INSERT INTO shifts").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	shift := &models.Shift{MinistryID: "min-1", Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), StartTime: "09:00", EndTime: "11:00"}
	err := repo.Create(context.Background(), shift)
	require.NoError(t, err)
	assert.NotEmpty(t, shift.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryAssign(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE shifts SET member_id = $2, assigned_at = $3, updated_at = $3 WHERE id = $1 AND member_id IS NULL`)).
		WithArgs("s1", "m1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Assign(context.Background(), "s1", "m1", at)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryAssignAlreadyFilled(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE shifts SET member_id = $2, assigned_at = $3, updated_at = $3 WHERE id = $1 AND member_id IS NULL`)).
		WithArgs("s1", "m1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Assign(context.Background(), "s1", "m1", at)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryUnassignNotFound(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	mock.ExpectExec("UPDATE shifts SET member_id = NULL").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Unassign(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	mock.ExpectExec("DELETE FROM shifts").
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
