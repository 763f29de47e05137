package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/parishhub/chms-api/internal/models"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
)

type inventoryRepository interface {
	List(ctx context.Context, filter models.InventoryFilter) ([]models.InventoryItem, int, error)
	FindByID(ctx context.Context, id string) (*models.InventoryItem, error)
	Create(ctx context.Context, item *models.InventoryItem) error
	Update(ctx context.Context, item *models.InventoryItem) error
	AdjustQuantity(ctx context.Context, id string, delta int) (int, error)
	Delete(ctx context.Context, id string) error
}

// InventoryService manages physical assets and supplies.
type InventoryService struct {
	repo      inventoryRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInventoryService constructs the service.
func NewInventoryService(repo inventoryRepository, validate *validator.Validate, logger *zap.Logger) *InventoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{repo: repo, validator: validate, logger: logger}
}

// CreateInventoryItemRequest describes the create payload.
type CreateInventoryItemRequest struct {
	Name              string `json:"name" validate:"required,min=2,max=200"`
	Category          string `json:"category" validate:"required"`
	Quantity          int    `json:"quantity" validate:"min=0"`
	LowStockThreshold int    `json:"low_stock_threshold" validate:"min=0"`
	Location          string `json:"location"`
	Notes             string `json:"notes"`
}

// UpdateInventoryItemRequest mirrors the create payload.
type UpdateInventoryItemRequest = CreateInventoryItemRequest

// AdjustQuantityRequest applies a relative stock change.
type AdjustQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// InventoryListRequest describes filters for listing items.
type InventoryListRequest struct {
	Search    string `form:"search"`
	Category  string `form:"category"`
	LowStock  bool   `form:"low_stock"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// List returns inventory items with pagination.
func (s *InventoryService) List(ctx context.Context, req InventoryListRequest) ([]models.InventoryItem, *models.Pagination, error) {
	filter := models.InventoryFilter{
		Search:    req.Search,
		Category:  req.Category,
		LowStock:  req.LowStock,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inventory")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return items, pagination, nil
}

// Get returns one item by id.
func (s *InventoryService) Get(ctx context.Context, id string) (*models.InventoryItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get inventory item")
	}
	return item, nil
}

// Create registers a new item.
func (s *InventoryService) Create(ctx context.Context, req CreateInventoryItemRequest) (*models.InventoryItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	item := &models.InventoryItem{
		Name:              strings.TrimSpace(req.Name),
		Category:          req.Category,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
		Location:          req.Location,
		Notes:             req.Notes,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create inventory item")
	}
	return item, nil
}

// Update modifies an existing item.
func (s *InventoryService) Update(ctx context.Context, id string, req UpdateInventoryItemRequest) (*models.InventoryItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inventory item")
	}

	item.Name = strings.TrimSpace(req.Name)
	item.Category = req.Category
	item.Quantity = req.Quantity
	item.LowStockThreshold = req.LowStockThreshold
	item.Location = req.Location
	item.Notes = req.Notes

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inventory item")
	}
	return item, nil
}

// Adjust applies a relative quantity change. Stock never goes negative;
// an adjustment that would is rejected as a conflict.
func (s *InventoryService) Adjust(ctx context.Context, id string, req AdjustQuantityRequest) (*models.InventoryItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	if _, err := s.repo.AdjustQuantity(ctx, id, req.Delta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the item is gone or the delta would underflow.
			if _, findErr := s.repo.FindByID(ctx, id); findErr != nil {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
			}
			return nil, appErrors.Clone(appErrors.ErrConflict, "quantity cannot go below zero")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust quantity")
	}
	return s.Get(ctx, id)
}

// Delete removes an item.
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete inventory item")
	}
	return nil
}
