package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishhub/chms-api/internal/models"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
)

type mockTaskRepo struct {
	items      map[string]*models.Task
	lastFilter models.TaskFilter
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{items: map[string]*models.Task{}}
}

func (m *mockTaskRepo) List(_ context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	m.lastFilter = filter
	out := []models.Task{}
	for _, t := range m.items {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (m *mockTaskRepo) FindByID(_ context.Context, id string) (*models.Task, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (m *mockTaskRepo) Create(_ context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = "t-new"
	}
	clone := *task
	m.items[task.ID] = &clone
	return nil
}

func (m *mockTaskRepo) Update(_ context.Context, task *models.Task) error {
	if _, ok := m.items[task.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *task
	m.items[task.ID] = &clone
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func TestTaskServiceCreate(t *testing.T) {
	repo := newMockTaskRepo()
	svc := NewTaskService(repo, nil, nil)

	task, err := svc.Create(context.Background(), CreateTaskRequest{Title: "  Order candles  ", DueDate: "2026-04-05"})
	require.NoError(t, err)
	assert.Equal(t, "Order candles", task.Title)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC), *task.DueDate)
}

func TestTaskServiceCreateBadDueDate(t *testing.T) {
	svc := NewTaskService(newMockTaskRepo(), nil, nil)

	_, err := svc.Create(context.Background(), CreateTaskRequest{Title: "Order candles", DueDate: "05/04/2026"})
	require.Error(t, err)
}

func TestTaskServiceUpdateStampsCompletedAt(t *testing.T) {
	repo := newMockTaskRepo()
	repo.items["t1"] = &models.Task{ID: "t1", Title: "Order candles", Status: models.TaskStatusPending}
	svc := NewTaskService(repo, nil, nil)

	task, err := svc.Update(context.Background(), "t1", UpdateTaskRequest{Title: "Order candles", Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)

	task, err = svc.Update(context.Background(), "t1", UpdateTaskRequest{Title: "Order candles", Status: "in_progress"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	assert.Nil(t, task.CompletedAt)
}

func TestTaskServiceUpdateUnknownStatus(t *testing.T) {
	repo := newMockTaskRepo()
	repo.items["t1"] = &models.Task{ID: "t1", Title: "Order candles", Status: models.TaskStatusPending}
	svc := NewTaskService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "t1", UpdateTaskRequest{Title: "Order candles", Status: "done"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTaskServiceCompleteIsIdempotent(t *testing.T) {
	repo := newMockTaskRepo()
	repo.items["t1"] = &models.Task{ID: "t1", Title: "Order candles", Status: models.TaskStatusPending}
	svc := NewTaskService(repo, nil, nil)

	task, err := svc.Complete(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	first := *task.CompletedAt

	task, err = svc.Complete(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, first, *task.CompletedAt)
}

func TestTaskServiceListNormalizesStatus(t *testing.T) {
	repo := newMockTaskRepo()
	svc := NewTaskService(repo, nil, nil)

	_, _, err := svc.List(context.Background(), TaskListRequest{Status: "Pending"})
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Status)
	assert.Equal(t, models.TaskStatusPending, *repo.lastFilter.Status)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, 20, repo.lastFilter.PageSize)
}

func TestTaskServiceDeleteMissing(t *testing.T) {
	svc := NewTaskService(newMockTaskRepo(), nil, nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
