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

// MemberRepository manages persistence for ministry membership records.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository constructs a MemberRepository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = `mm.id, mm.ministry_id, mm.user_id, mm.role, mm.active, mm.available_days, mm.max_consecutive_shifts, mm.created_at, mm.updated_at,
        u.full_name, u.email, u.phone`

// List returns members matching the provided filters.
func (r *MemberRepository) List(ctx context.Context, filter models.MemberFilter) ([]models.MinistryMemberDetail, int, error) {
	base := "FROM ministry_members mm JOIN users u ON u.id = mm.user_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.MinistryID != "" {
		conditions = append(conditions, fmt.Sprintf("mm.ministry_id = $%d", len(args)+1))
		args = append(args, filter.MinistryID)
	}
	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("mm.role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("mm.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"full_name":  "u.full_name",
		"role":       "mm.role",
		"created_at": "mm.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "u.full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", memberColumns, base, column, order, size, offset)

	var members []models.MinistryMemberDetail
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}
	return members, total, nil
}

// ListActiveByMinistry returns every active member of a ministry, the
// candidate pool for one rotation run.
func (r *MemberRepository) ListActiveByMinistry(ctx context.Context, ministryID string) ([]models.MinistryMemberDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM ministry_members mm JOIN users u ON u.id = mm.user_id
        WHERE mm.ministry_id = $1 AND mm.active = true ORDER BY mm.created_at ASC`, memberColumns)
	var members []models.MinistryMemberDetail
	if err := r.db.SelectContext(ctx, &members, query, ministryID); err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	return members, nil
}

// FindByID fetches a member with the linked user's identity.
func (r *MemberRepository) FindByID(ctx context.Context, id string) (*models.MinistryMemberDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM ministry_members mm JOIN users u ON u.id = mm.user_id WHERE mm.id = $1`, memberColumns)
	var detail models.MinistryMemberDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByUser checks whether a user already belongs to a ministry.
func (r *MemberRepository) ExistsByUser(ctx context.Context, ministryID, userID string) (bool, error) {
	const query = "SELECT 1 FROM ministry_members WHERE ministry_id = $1 AND user_id = $2 LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, ministryID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

// HasActiveLead reports whether the ministry already has an active lead,
// optionally excluding one member (the one being edited).
func (r *MemberRepository) HasActiveLead(ctx context.Context, ministryID string, excludeMemberID string) (bool, error) {
	query := "SELECT 1 FROM ministry_members WHERE ministry_id = $1 AND role = $2 AND active = true"
	args := []interface{}{ministryID, models.MemberRoleLead}
	if excludeMemberID != "" {
		query += " AND id <> $3"
		args = append(args, excludeMemberID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active lead: %w", err)
	}
	return true, nil
}

// Create inserts a membership record. The partial unique index on
// (ministry_id) WHERE role = 'lead' AND active backs the one-lead
// invariant; a violation surfaces as a conflict to the service layer.
func (r *MemberRepository) Create(ctx context.Context, member *models.MinistryMember) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = now
	const query = `INSERT INTO ministry_members (id, ministry_id, user_id, role, active, available_days, max_consecutive_shifts, created_at, updated_at)
        VALUES (:id, :ministry_id, :user_id, :role, :active, :available_days, :max_consecutive_shifts, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// Update modifies an existing membership record.
func (r *MemberRepository) Update(ctx context.Context, member *models.MinistryMember) error {
	member.UpdatedAt = time.Now().UTC()
	const query = `UPDATE ministry_members SET role = :role, active = :active, available_days = :available_days, max_consecutive_shifts = :max_consecutive_shifts, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return nil
}

// MemberCounts aggregates membership totals for the dashboard.
type MemberCounts struct {
	Total  int `db:"total"`
	Active int `db:"active"`
}

// Counts returns total and active membership record counts.
func (r *MemberRepository) Counts(ctx context.Context) (*MemberCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE active) AS active FROM ministry_members`
	var counts MemberCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	return &counts, nil
}

// Delete removes a membership record.
func (r *MemberRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ministry_members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
