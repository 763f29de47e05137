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

// ShiftRepository manages persistence for shift positions.
type ShiftRepository struct {
	db *sqlx.DB
}

// NewShiftRepository constructs a ShiftRepository.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

const shiftColumns = `s.id, s.ministry_id, s.shift_date, s.start_time, s.end_time, s.notes, s.member_id, s.assigned_at, s.created_at, s.updated_at,
        u.full_name AS assignee_name, u.email AS assignee_email`

const shiftJoin = `FROM shifts s
        LEFT JOIN ministry_members mm ON mm.id = s.member_id
        LEFT JOIN users u ON u.id = mm.user_id`

// List returns shift positions matching the filter, ordered by date then
// start time then creation order so slot grouping stays stable.
func (r *ShiftRepository) List(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftDetail, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.MinistryID != "" {
		conditions = append(conditions, fmt.Sprintf("s.ministry_id = $%d", len(args)+1))
		args = append(args, filter.MinistryID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("s.shift_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("s.shift_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Unassigned != nil {
		if *filter.Unassigned {
			conditions = append(conditions, "s.member_id IS NULL")
		} else {
			conditions = append(conditions, "s.member_id IS NOT NULL")
		}
	}

	base := fmt.Sprintf("%s WHERE %s", shiftJoin, strings.Join(conditions, " AND "))

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s %s ORDER BY s.shift_date %s, s.start_time %s, s.created_at ASC LIMIT %d OFFSET %d`,
		shiftColumns, base, order, order, size, offset)

	var shifts []models.ShiftDetail
	if err := r.db.SelectContext(ctx, &shifts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list shifts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count shifts: %w", err)
	}
	return shifts, total, nil
}

// FindByID fetches one shift position.
func (r *ShiftRepository) FindByID(ctx context.Context, id string) (*models.ShiftDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE s.id = $1`, shiftColumns, shiftJoin)
	var detail models.ShiftDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListGroup returns the positions of one time-slot group in creation order.
func (r *ShiftRepository) ListGroup(ctx context.Context, ministryID string, date time.Time, startTime, endTime string) ([]models.ShiftDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
        WHERE s.ministry_id = $1 AND s.shift_date = $2 AND s.start_time = $3 AND s.end_time = $4
        ORDER BY s.created_at ASC`, shiftColumns, shiftJoin)
	var shifts []models.ShiftDetail
	if err := r.db.SelectContext(ctx, &shifts, query, ministryID, date, startTime, endTime); err != nil {
		return nil, fmt.Errorf("list shift group: %w", err)
	}
	return shifts, nil
}

// ListUnassignedInWindow returns open positions within [from, to].
func (r *ShiftRepository) ListUnassignedInWindow(ctx context.Context, ministryID string, from, to time.Time) ([]models.Shift, error) {
	const query = `SELECT s.id, s.ministry_id, s.shift_date, s.start_time, s.end_time, s.notes, s.member_id, s.assigned_at, s.created_at, s.updated_at
        FROM shifts s
        WHERE s.ministry_id = $1 AND s.member_id IS NULL AND s.shift_date >= $2 AND s.shift_date <= $3
        ORDER BY s.shift_date ASC, s.start_time ASC, s.created_at ASC`
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, ministryID, from, to); err != nil {
		return nil, fmt.Errorf("list unassigned shifts: %w", err)
	}
	return shifts, nil
}

// MemberAssignment pairs a member with one assigned shift date.
type MemberAssignment struct {
	MemberID string    `db:"member_id"`
	Date     time.Time `db:"shift_date"`
}

// ListAssignments returns (member, date) pairs for filled shifts in the
// window; the rotation engine derives consecutive-day runs from them.
func (r *ShiftRepository) ListAssignments(ctx context.Context, ministryID string, from, to time.Time) ([]MemberAssignment, error) {
	const query = `SELECT s.member_id, s.shift_date FROM shifts s
        WHERE s.ministry_id = $1 AND s.member_id IS NOT NULL AND s.shift_date >= $2 AND s.shift_date <= $3
        ORDER BY s.shift_date ASC`
	var assignments []MemberAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, ministryID, from, to); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// MemberLastAssignment carries a member's most recent assignment stamp.
type MemberLastAssignment struct {
	MemberID   string     `db:"member_id"`
	AssignedAt *time.Time `db:"last_assigned_at"`
}

// ListLastAssignments returns each member's most recent assignment time,
// which drives the least-recently-assigned rotation order.
func (r *ShiftRepository) ListLastAssignments(ctx context.Context, ministryID string) ([]MemberLastAssignment, error) {
	const query = `SELECT s.member_id, MAX(s.assigned_at) AS last_assigned_at FROM shifts s
        WHERE s.ministry_id = $1 AND s.member_id IS NOT NULL GROUP BY s.member_id`
	var rows []MemberLastAssignment
	if err := r.db.SelectContext(ctx, &rows, query, ministryID); err != nil {
		return nil, fmt.Errorf("list last assignments: %w", err)
	}
	return rows, nil
}

// CountUnassignedInWindow returns open positions across all ministries
// within [from, to], used by the dashboard shifts widget.
func (r *ShiftRepository) CountUnassignedInWindow(ctx context.Context, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM shifts WHERE member_id IS NULL AND shift_date >= $1 AND shift_date <= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, fmt.Errorf("count unassigned shifts: %w", err)
	}
	return count, nil
}

// Create inserts one shift position.
func (r *ShiftRepository) Create(ctx context.Context, shift *models.Shift) error {
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if shift.CreatedAt.IsZero() {
		shift.CreatedAt = now
	}
	shift.UpdatedAt = now
	const query = `INSERT INTO shifts (id, ministry_id, shift_date, start_time, end_time, notes, member_id, assigned_at, created_at, updated_at)
        VALUES (:id, :ministry_id, :shift_date, :start_time, :end_time, :notes, :member_id, :assigned_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, shift); err != nil {
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

// Assign fills an open position. It only succeeds when the position is
// still unassigned, so two concurrent runs cannot double-book one shift.
func (r *ShiftRepository) Assign(ctx context.Context, shiftID, memberID string, at time.Time) error {
	const query = `UPDATE shifts SET member_id = $2, assigned_at = $3, updated_at = $3 WHERE id = $1 AND member_id IS NULL`
	res, err := r.db.ExecContext(ctx, query, shiftID, memberID, at)
	if err != nil {
		return fmt.Errorf("assign shift: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Unassign clears a filled position.
func (r *ShiftRepository) Unassign(ctx context.Context, shiftID string) error {
	const query = `UPDATE shifts SET member_id = NULL, assigned_at = NULL, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, shiftID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("unassign shift: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes one shift position.
func (r *ShiftRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete shift: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
