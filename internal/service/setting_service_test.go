package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishhub/chms-api/internal/models"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
)

type mockSettingRepo struct {
	items     map[string]models.Setting
	listCalls int
}

func (m *mockSettingRepo) List(ctx context.Context) ([]models.Setting, error) {
	m.listCalls++
	out := make([]models.Setting, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSettingRepo) Find(ctx context.Context, key string) (*models.Setting, error) {
	if s, ok := m.items[key]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSettingRepo) Upsert(ctx context.Context, setting *models.Setting) error {
	if m.items == nil {
		m.items = map[string]models.Setting{}
	}
	m.items[setting.Key] = *setting
	return nil
}

type mockSettingCache struct {
	stored  map[string][]models.Setting
	deletes []string
}

func (m *mockSettingCache) Get(ctx context.Context, key string, dest interface{}) error {
	cached, ok := m.stored[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if out, ok := dest.(*[]models.Setting); ok {
		*out = cached
	}
	return nil
}

func (m *mockSettingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.stored == nil {
		m.stored = map[string][]models.Setting{}
	}
	if settings, ok := value.([]models.Setting); ok {
		m.stored[key] = settings
	}
	return nil
}

func (m *mockSettingCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes = append(m.deletes, pattern)
	for key := range m.stored {
		if strings.HasPrefix(key, strings.TrimSuffix(pattern, "*")) {
			delete(m.stored, key)
		}
	}
	return nil
}

func TestSettingServiceListServedFromCache(t *testing.T) {
	repo := &mockSettingRepo{items: map[string]models.Setting{
		"parish.name": {Key: "parish.name", Value: "St. Mary"},
	}}
	cache := &mockSettingCache{}
	svc := NewSettingService(repo, cache, time.Minute, nil, nil)

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls)
}

func TestSettingServicePutInvalidatesCache(t *testing.T) {
	repo := &mockSettingRepo{items: map[string]models.Setting{
		"parish.name": {Key: "parish.name", Value: "St. Mary"},
	}}
	cache := &mockSettingCache{}
	svc := NewSettingService(repo, cache, time.Minute, nil, nil)

	_, err := svc.List(context.Background())
	require.NoError(t, err)

	_, err = svc.Put(context.Background(), "parish.name", PutSettingRequest{Value: "St. Joseph"})
	require.NoError(t, err)
	assert.Contains(t, cache.deletes, "settings:*")

	settings, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, "St. Joseph", settings[0].Value)
	assert.Equal(t, 2, repo.listCalls)
}

func TestSettingServiceWorksWithoutCache(t *testing.T) {
	repo := &mockSettingRepo{items: map[string]models.Setting{
		"parish.name": {Key: "parish.name", Value: "St. Mary"},
	}}
	svc := NewSettingService(repo, nil, 0, nil, nil)

	settings, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, settings, 1)

	_, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}
