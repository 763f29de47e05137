package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/parishhub/chms-api/internal/models"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
)

type taskRepository interface {
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error)
	FindByID(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
}

// TaskService manages administrative tasks.
type TaskService struct {
	repo      taskRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTaskService constructs the service.
func NewTaskService(repo taskRepository, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &TaskService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
		switch models.TaskStatus(strings.ToLower(fl.Field().String())) {
		case models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusCompleted:
			return true
		default:
			return false
		}
	})
	return svc
}

// CreateTaskRequest describes the create payload.
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,min=2,max=200"`
	Description string  `json:"description"`
	AssigneeID  *string `json:"assignee_id"`
	DueDate     string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateTaskRequest describes the update payload.
type UpdateTaskRequest struct {
	Title       string  `json:"title" validate:"required,min=2,max=200"`
	Description string  `json:"description"`
	AssigneeID  *string `json:"assignee_id"`
	DueDate     string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Status      string  `json:"status" validate:"required,taskstatus"`
}

// TaskListRequest describes filters for listing tasks.
type TaskListRequest struct {
	Status     string `form:"status"`
	AssigneeID string `form:"assignee_id"`
	Overdue    bool   `form:"overdue"`
	Search     string `form:"search"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	SortBy     string `form:"sort_by"`
	SortOrder  string `form:"sort_order"`
}

// List returns tasks with pagination.
func (s *TaskService) List(ctx context.Context, req TaskListRequest) ([]models.Task, *models.Pagination, error) {
	filter := models.TaskFilter{
		AssigneeID: req.AssigneeID,
		Overdue:    req.Overdue,
		Search:     req.Search,
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}
	if req.Status != "" {
		status := models.TaskStatus(strings.ToLower(req.Status))
		filter.Status = &status
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	tasks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return tasks, pagination, nil
}

// Get returns one task by id.
func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get task")
	}
	return task, nil
}

// Create registers a new task in pending state.
func (s *TaskService) Create(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	task := &models.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		Status:      models.TaskStatusPending,
	}
	if req.DueDate != "" {
		due, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid due_date")
		}
		task.DueDate = &due
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	return task, nil
}

// Update modifies an existing task. Moving into completed stamps
// completed_at; moving out clears it.
func (s *TaskService) Update(ctx context.Context, id string, req UpdateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}

	status := models.TaskStatus(strings.ToLower(req.Status))
	if status == models.TaskStatusCompleted && task.Status != models.TaskStatusCompleted {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}
	if status != models.TaskStatusCompleted {
		task.CompletedAt = nil
	}

	task.Title = strings.TrimSpace(req.Title)
	task.Description = req.Description
	task.AssigneeID = req.AssigneeID
	task.Status = status
	task.DueDate = nil
	if req.DueDate != "" {
		due, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid due_date")
		}
		task.DueDate = &due
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	return task, nil
}

// Complete marks a task completed, stamping completed_at once.
// Completing an already completed task is a no-op.
func (s *TaskService) Complete(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if task.Status != models.TaskStatusCompleted {
		now := time.Now().UTC()
		task.Status = models.TaskStatusCompleted
		task.CompletedAt = &now
		if err := s.repo.Update(ctx, task); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete task")
		}
	}
	return task, nil
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	return nil
}
