package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/parishhub/chms-api/internal/models"
)

// TaskRepository manages persistence for administrative tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs a TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

var taskSortColumns = map[string]string{
	"title":      "t.title",
	"due_date":   "t.due_date",
	"status":     "t.status",
	"created_at": "t.created_at",
}

// List returns tasks matching the filter.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.AssigneeID != "" {
		conditions = append(conditions, fmt.Sprintf("t.assignee_id = $%d", len(args)+1))
		args = append(args, filter.AssigneeID)
	}
	if filter.Overdue {
		conditions = append(conditions, "t.due_date < CURRENT_DATE AND t.status <> 'completed'")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("t.title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	base := fmt.Sprintf("FROM tasks t WHERE %s", strings.Join(conditions, " AND "))

	sortCol, ok := taskSortColumns[filter.SortBy]
	if !ok {
		sortCol = "t.due_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT t.* %s ORDER BY %s %s NULLS LAST LIMIT %d OFFSET %d`, base, sortCol, order, size, offset)

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	return tasks, total, nil
}

// FindByID fetches one task.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.GetContext(ctx, &task, `SELECT * FROM tasks WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	const query = `INSERT INTO tasks (id, title, description, assignee_id, due_date, status, completed_at, created_at, updated_at)
        VALUES (:id, :title, :description, :assignee_id, :due_date, :status, :completed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update rewrites a task's mutable fields.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET title = :title, description = :description, assignee_id = :assignee_id,
        due_date = :due_date, status = :status, completed_at = :completed_at, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, task)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a task.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TaskCounts aggregates task totals for the dashboard.
type TaskCounts struct {
	Pending    int `db:"pending"`
	InProgress int `db:"in_progress"`
	Completed  int `db:"completed"`
	Overdue    int `db:"overdue"`
}

// Counts returns per-status and overdue task totals.
func (r *TaskRepository) Counts(ctx context.Context) (*TaskCounts, error) {
	const query = `SELECT
        COUNT(*) FILTER (WHERE status = 'pending') AS pending,
        COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress,
        COUNT(*) FILTER (WHERE status = 'completed') AS completed,
        COUNT(*) FILTER (WHERE due_date < CURRENT_DATE AND status <> 'completed') AS overdue
        FROM tasks`
	var counts TaskCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	return &counts, nil
}
