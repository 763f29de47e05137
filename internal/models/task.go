package models

import "time"

// TaskStatus enumerates the task lifecycle.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Task is an administrative to-do, optionally assigned to a user.
type Task struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	AssigneeID  *string    `db:"assignee_id" json:"assignee_id,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	Status      TaskStatus `db:"status" json:"status"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// TaskFilter captures list query options for tasks.
type TaskFilter struct {
	Status     *TaskStatus
	AssigneeID string
	Overdue    bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
