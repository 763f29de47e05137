package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishhub/chms-api/internal/models"
	"github.com/parishhub/chms-api/internal/service"
)

type fakeTaskRepo struct {
	items      map[string]*models.Task
	lastFilter models.TaskFilter
}

func (f *fakeTaskRepo) List(_ context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	f.lastFilter = filter
	out := []models.Task{}
	for _, t := range f.items {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (f *fakeTaskRepo) FindByID(_ context.Context, id string) (*models.Task, error) {
	t, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTaskRepo) Create(_ context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = "t-new"
	}
	clone := *task
	f.items[task.ID] = &clone
	return nil
}

func (f *fakeTaskRepo) Update(_ context.Context, task *models.Task) error {
	if _, ok := f.items[task.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *task
	f.items[task.ID] = &clone
	return nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

func newTaskHandlerFixture() (*TaskHandler, *fakeTaskRepo) {
	repo := &fakeTaskRepo{items: map[string]*models.Task{
		"t1": {ID: "t1", Title: "Order candles", Status: models.TaskStatusPending},
	}}
	return NewTaskHandler(service.NewTaskService(repo, nil, nil)), repo
}

func TestTaskHandlerListParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, repo := newTaskHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/tasks?status=pending&assignee_id=u1&overdue=true&page=2&limit=5", nil)

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.lastFilter.Status)
	assert.Equal(t, models.TaskStatusPending, *repo.lastFilter.Status)
	assert.Equal(t, "u1", repo.lastFilter.AssigneeID)
	assert.True(t, repo.lastFilter.Overdue)
	assert.Equal(t, 2, repo.lastFilter.Page)
	assert.Equal(t, 5, repo.lastFilter.PageSize)
}

func TestTaskHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, repo := newTaskHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":"Print bulletins","due_date":"2026-04-05"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, repo.items, 2)
}

func TestTaskHandlerCreateInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTaskHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTaskHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/tasks/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskHandlerComplete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, repo := newTaskHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/tasks/t1/complete", nil)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}

	h.Complete(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TaskStatusCompleted, repo.items["t1"].Status)
}

func TestTaskHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, repo := newTaskHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/tasks/t1", nil)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}

	h.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, repo.items)
}
