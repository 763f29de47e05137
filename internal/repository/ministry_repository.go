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

// MinistryRepository manages persistence for ministry records.
type MinistryRepository struct {
	db *sqlx.DB
}

// NewMinistryRepository constructs a MinistryRepository.
func NewMinistryRepository(db *sqlx.DB) *MinistryRepository {
	return &MinistryRepository{db: db}
}

// List returns ministries with member and unassigned-shift aggregates.
func (r *MinistryRepository) List(ctx context.Context, filter models.MinistryFilter) ([]models.MinistryDetail, int, error) {
	base := `FROM ministries m`
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("m.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(m.name) LIKE $%d OR LOWER(m.description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":       "m.name",
		"created_at": "m.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "m.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT m.id, m.name, m.description, m.active, m.created_at, m.updated_at,
        (SELECT COUNT(*) FROM ministry_members mm WHERE mm.ministry_id = m.id AND mm.active = true) AS active_members,
        (SELECT COUNT(*) FROM ministry_members mm WHERE mm.ministry_id = m.id) AS total_members,
        (SELECT COUNT(*) FROM shifts s WHERE s.ministry_id = m.id AND s.member_id IS NULL AND s.shift_date >= CURRENT_DATE) AS unassigned_shifts
        %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, where, column, order, size, offset)

	var ministries []models.MinistryDetail
	if err := r.db.SelectContext(ctx, &ministries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list ministries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count ministries: %w", err)
	}
	return ministries, total, nil
}

// ListActive returns all active ministries, used by the global rotation run.
func (r *MinistryRepository) ListActive(ctx context.Context) ([]models.Ministry, error) {
	const query = `SELECT id, name, description, active, created_at, updated_at FROM ministries WHERE active = true ORDER BY name ASC`
	var ministries []models.Ministry
	if err := r.db.SelectContext(ctx, &ministries, query); err != nil {
		return nil, fmt.Errorf("list active ministries: %w", err)
	}
	return ministries, nil
}

// CountActive returns the number of active ministries.
func (r *MinistryRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM ministries WHERE active = true`); err != nil {
		return 0, fmt.Errorf("count ministries: %w", err)
	}
	return count, nil
}

// FindByID fetches a ministry with aggregates.
func (r *MinistryRepository) FindByID(ctx context.Context, id string) (*models.MinistryDetail, error) {
	const query = `SELECT m.id, m.name, m.description, m.active, m.created_at, m.updated_at,
        (SELECT COUNT(*) FROM ministry_members mm WHERE mm.ministry_id = m.id AND mm.active = true) AS active_members,
        (SELECT COUNT(*) FROM ministry_members mm WHERE mm.ministry_id = m.id) AS total_members,
        (SELECT COUNT(*) FROM shifts s WHERE s.ministry_id = m.id AND s.member_id IS NULL AND s.shift_date >= CURRENT_DATE) AS unassigned_shifts
        FROM ministries m WHERE m.id = $1`
	var detail models.MinistryDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByName checks name uniqueness, optionally excluding an ID.
func (r *MinistryRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM ministries WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check ministry name: %w", err)
	}
	return true, nil
}

// Create inserts a new ministry.
func (r *MinistryRepository) Create(ctx context.Context, ministry *models.Ministry) error {
	if ministry.ID == "" {
		ministry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ministry.CreatedAt.IsZero() {
		ministry.CreatedAt = now
	}
	ministry.UpdatedAt = now
	const query = `INSERT INTO ministries (id, name, description, active, created_at, updated_at)
        VALUES (:id, :name, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ministry); err != nil {
		return fmt.Errorf("create ministry: %w", err)
	}
	return nil
}

// Update modifies an existing ministry.
func (r *MinistryRepository) Update(ctx context.Context, ministry *models.Ministry) error {
	ministry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE ministries SET name = :name, description = :description, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, ministry); err != nil {
		return fmt.Errorf("update ministry: %w", err)
	}
	return nil
}

// Delete removes a ministry. Members, shifts and assignments cascade via FK.
func (r *MinistryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ministries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ministry: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
