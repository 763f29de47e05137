package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/parishhub/chms-api/internal/models"
)

// SettingRepository manages the key/value application settings table.
type SettingRepository struct {
	db *sqlx.DB
}

// NewSettingRepository constructs a SettingRepository.
func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// List returns all settings ordered by key.
func (r *SettingRepository) List(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	if err := r.db.SelectContext(ctx, &settings, `SELECT * FROM settings ORDER BY key ASC`); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// Find fetches one setting by key.
func (r *SettingRepository) Find(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.GetContext(ctx, &setting, `SELECT * FROM settings WHERE key = $1`, key); err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert writes a setting, replacing any existing value.
func (r *SettingRepository) Upsert(ctx context.Context, setting *models.Setting) error {
	setting.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO settings (key, value, updated_at) VALUES (:key, :value, :updated_at)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, setting); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}
