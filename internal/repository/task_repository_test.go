package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishhub/chms-api/internal/models"
)

func newTaskMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTaskRepositoryListOverdue(t *testing.T) {
	db, mock, cleanup := newTaskMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "assignee_id", "due_date", "status", "completed_at", "created_at", "updated_at"}).
		AddRow("t1", "Order candles", "", nil, now.AddDate(0, 0, -3), models.TaskStatusPending, nil, now, now)
	mock.ExpectQuery("t.due_date < CURRENT_DATE AND t.status <> 'completed'").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	tasks, total, err := repo.List(context.Background(), models.TaskFilter{Overdue: true})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newTaskMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	task := &models.Task{Title: "Order candles"}
	err := repo.Create(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.NotEmpty(t, task.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newTaskMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("UPDATE tasks SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Task{ID: "missing", Title: "Order candles"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newTaskMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectQuery("FILTER \\(WHERE status = 'pending'\\)").
		WillReturnRows(sqlmock.NewRows([]string{"pending", "in_progress", "completed", "overdue"}).AddRow(3, 2, 10, 1))

	counts, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Pending)
	assert.Equal(t, 2, counts.InProgress)
	assert.Equal(t, 10, counts.Completed)
	assert.Equal(t, 1, counts.Overdue)
	assert.NoError(t, mock.ExpectationsWereMet())
}
