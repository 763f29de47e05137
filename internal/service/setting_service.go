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

const settingsCacheKey = "settings:all"

type settingRepository interface {
	List(ctx context.Context) ([]models.Setting, error)
	Find(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

type settingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SettingService manages application-wide key/value settings. The full
// list is served through Redis; writes invalidate the cached copy.
type SettingService struct {
	repo      settingRepository
	cache     settingCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingService constructs the service.
func NewSettingService(repo settingRepository, cache settingCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *SettingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &SettingService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// PutSettingRequest writes one setting value.
type PutSettingRequest struct {
	Value string `json:"value" validate:"required"`
}

// List returns every setting, serving the cached copy when fresh.
func (s *SettingService) List(ctx context.Context) ([]models.Setting, error) {
	if s.cache != nil {
		var cached []models.Setting
		if err := s.cache.Get(ctx, settingsCacheKey, &cached); err == nil {
			return cached, nil
		}
	}
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, settingsCacheKey, settings, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache settings", zap.Error(err))
		}
	}
	return settings, nil
}

// Get returns one setting by key.
func (s *SettingService) Get(ctx context.Context, key string) (*models.Setting, error) {
	setting, err := s.repo.Find(ctx, strings.TrimSpace(key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "setting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get setting")
	}
	return setting, nil
}

// Put creates or replaces a setting.
func (s *SettingService) Put(ctx context.Context, key string, req PutSettingRequest) (*models.Setting, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "setting key required")
	}
	setting := &models.Setting{Key: key, Value: req.Value}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save setting")
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "settings:*"); err != nil {
			s.logger.Warn("failed to invalidate settings cache", zap.Error(err))
		}
	}
	return setting, nil
}
