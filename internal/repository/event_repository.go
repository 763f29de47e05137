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

// EventRepository manages persistence for events and registrations.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

var eventSortColumns = map[string]string{
	"title":      "e.title",
	"starts_at":  "e.starts_at",
	"created_at": "e.created_at",
}

const eventColumns = `e.id, e.title, e.description, e.location, e.starts_at, e.ends_at, e.capacity, e.recurrence, e.created_at, e.updated_at,
        (SELECT COUNT(*) FROM event_registrations er WHERE er.event_id = e.id) AS registered`

// List returns events matching the filter with registration counts.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.EventDetail, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(e.title ILIKE $%d OR e.location ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("e.ends_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("e.starts_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	base := fmt.Sprintf("FROM events e WHERE %s", strings.Join(conditions, " AND "))

	sortCol, ok := eventSortColumns[filter.SortBy]
	if !ok {
		sortCol = "e.starts_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		eventColumns, base, sortCol, order, size, offset)

	var events []models.EventDetail
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// ListUpcoming returns the next events starting at or after the given time.
func (r *EventRepository) ListUpcoming(ctx context.Context, after time.Time, limit int) ([]models.EventDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM events e WHERE e.starts_at >= $1 ORDER BY e.starts_at ASC LIMIT $2`, eventColumns)
	var events []models.EventDetail
	if err := r.db.SelectContext(ctx, &events, query, after, limit); err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	return events, nil
}

// FindByID fetches one event with its registration count.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.EventDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM events e WHERE e.id = $1`, eventColumns)
	var detail models.EventDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO events (id, title, description, location, starts_at, ends_at, capacity, recurrence, created_at, updated_at)
        VALUES (:id, :title, :description, :location, :starts_at, :ends_at, :capacity, :recurrence, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update rewrites an event's mutable fields.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET title = :title, description = :description, location = :location,
        starts_at = :starts_at, ends_at = :ends_at, capacity = :capacity, recurrence = :recurrence, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an event and its registrations (FK cascade).
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsRegistered reports whether a user already holds a spot.
func (r *EventRepository) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM event_registrations WHERE event_id = $1 AND user_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, eventID, userID); err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return exists, nil
}

// CountRegistrations returns the number of spots taken for an event.
func (r *EventRepository) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, eventID); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

// Register records a user's registration.
func (r *EventRepository) Register(ctx context.Context, reg *models.EventRegistration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.RegisteredAt.IsZero() {
		reg.RegisteredAt = time.Now().UTC()
	}
	const query = `INSERT INTO event_registrations (id, event_id, user_id, registered_at)
        VALUES (:id, :event_id, :user_id, :registered_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reg); err != nil {
		return fmt.Errorf("register for event: %w", err)
	}
	return nil
}

// Unregister removes a user's registration.
func (r *EventRepository) Unregister(ctx context.Context, eventID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM event_registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("unregister from event: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
