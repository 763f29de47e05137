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

type ministryRepository interface {
	List(ctx context.Context, filter models.MinistryFilter) ([]models.MinistryDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.MinistryDetail, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, ministry *models.Ministry) error
	Update(ctx context.Context, ministry *models.Ministry) error
	Delete(ctx context.Context, id string) error
}

type ministryCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// MinistryService manages ministries and their aggregates.
type MinistryService struct {
	repo      ministryRepository
	cache     ministryCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMinistryService constructs the service.
func NewMinistryService(repo ministryRepository, cache ministryCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *MinistryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MinistryService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// CreateMinistryRequest describes the create payload.
type CreateMinistryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Description string `json:"description"`
}

// UpdateMinistryRequest describes the update payload.
type UpdateMinistryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// MinistryListRequest describes filters for listing ministries.
type MinistryListRequest struct {
	Search    string `form:"search"`
	Active    *bool  `form:"active"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// List returns ministries with aggregate counts.
func (s *MinistryService) List(ctx context.Context, req MinistryListRequest) ([]models.MinistryDetail, *models.Pagination, error) {
	filter := models.MinistryFilter{
		Search:    req.Search,
		Active:    req.Active,
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
	ministries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ministries")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return ministries, pagination, nil
}

// Get returns one ministry by id.
func (s *MinistryService) Get(ctx context.Context, id string) (*models.MinistryDetail, error) {
	ministry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ministry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get ministry")
	}
	return ministry, nil
}

// Create registers a new ministry.
func (s *MinistryService) Create(ctx context.Context, req CreateMinistryRequest) (*models.Ministry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ministry name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "ministry name already in use")
	}

	ministry := &models.Ministry{
		Name:        name,
		Description: req.Description,
		Active:      true,
	}
	if err := s.repo.Create(ctx, ministry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create ministry")
	}
	s.invalidate(ctx)
	return ministry, nil
}

// Update modifies an existing ministry.
func (s *MinistryService) Update(ctx context.Context, id string, req UpdateMinistryRequest) (*models.Ministry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ministry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ministry")
	}

	name := strings.TrimSpace(req.Name)
	taken, err := s.repo.ExistsByName(ctx, name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ministry name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "ministry name already in use")
	}

	ministry := existing.Ministry
	ministry.Name = name
	ministry.Description = req.Description
	ministry.Active = req.Active

	if err := s.repo.Update(ctx, &ministry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update ministry")
	}
	s.invalidate(ctx)
	return &ministry, nil
}

// Delete removes a ministry with its members and shifts.
func (s *MinistryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "ministry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete ministry")
	}
	s.invalidate(ctx)
	return nil
}

func (s *MinistryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
