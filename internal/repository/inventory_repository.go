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

// InventoryRepository manages persistence for inventory items.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository constructs an InventoryRepository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

var inventorySortColumns = map[string]string{
	"name":       "i.name",
	"category":   "i.category",
	"quantity":   "i.quantity",
	"created_at": "i.created_at",
}

// List returns inventory items matching the filter.
func (r *InventoryRepository) List(ctx context.Context, filter models.InventoryFilter) ([]models.InventoryItem, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(i.name ILIKE $%d OR i.location ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("i.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.LowStock {
		conditions = append(conditions, "i.low_stock_threshold > 0 AND i.quantity <= i.low_stock_threshold")
	}

	base := fmt.Sprintf("FROM inventory_items i WHERE %s", strings.Join(conditions, " AND "))

	sortCol, ok := inventorySortColumns[filter.SortBy]
	if !ok {
		sortCol = "i.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT i.* %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, sortCol, order, size, offset)

	var items []models.InventoryItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list inventory: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count inventory: %w", err)
	}
	return items, total, nil
}

// FindByID fetches one inventory item.
func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.GetContext(ctx, &item, `SELECT * FROM inventory_items WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new inventory item.
func (r *InventoryRepository) Create(ctx context.Context, item *models.InventoryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO inventory_items (id, name, category, quantity, low_stock_threshold, location, notes, created_at, updated_at)
        VALUES (:id, :name, :category, :quantity, :low_stock_threshold, :location, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create inventory item: %w", err)
	}
	return nil
}

// Update rewrites an item's mutable fields.
func (r *InventoryRepository) Update(ctx context.Context, item *models.InventoryItem) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE inventory_items SET name = :name, category = :category, quantity = :quantity,
        low_stock_threshold = :low_stock_threshold, location = :location, notes = :notes, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AdjustQuantity applies a relative stock change and returns the new level.
func (r *InventoryRepository) AdjustQuantity(ctx context.Context, id string, delta int) (int, error) {
	const query = `UPDATE inventory_items SET quantity = quantity + $2, updated_at = $3 WHERE id = $1 AND quantity + $2 >= 0
        RETURNING quantity`
	var quantity int
	if err := r.db.GetContext(ctx, &quantity, query, id, delta, time.Now().UTC()); err != nil {
		return 0, err
	}
	return quantity, nil
}

// Delete removes an inventory item.
func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
