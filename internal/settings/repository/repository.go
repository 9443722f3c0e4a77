package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	settingsdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/domain"
)

type gormRepository struct{}

// Provide constructs the gorm-backed settings repository.
func Provide() settingsdomain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) FindByName(ctx context.Context, db *gorm.DB, name string) (*settingsdomain.Setting, error) {
	var setting settingsdomain.Setting
	err := db.WithContext(ctx).Where("name = ?", name).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settingsdomain.ErrSettingNotFound
		}
		return nil, err
	}
	return &setting, nil
}

func (r *gormRepository) List(ctx context.Context, db *gorm.DB) ([]settingsdomain.Setting, error) {
	var settings []settingsdomain.Setting
	if err := db.WithContext(ctx).Order("name ASC").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateValueCAS writes the setting guarded by the expected version.
func (r *gormRepository) UpdateValueCAS(ctx context.Context, db *gorm.DB, setting *settingsdomain.Setting, expectedVersion int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE inventory_settings
		 SET value = ?, updated_by = ?, version = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		setting.Value,
		setting.UpdatedBy,
		setting.Version,
		time.Now().UTC(),
		setting.ID,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) InsertChange(ctx context.Context, db *gorm.DB, change *settingsdomain.SettingChange) error {
	return db.WithContext(ctx).Create(change).Error
}

func (r *gormRepository) ListChanges(ctx context.Context, db *gorm.DB, name string, limit int) ([]settingsdomain.SettingChange, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var changes []settingsdomain.SettingChange
	err := db.WithContext(ctx).
		Where("name = ?", name).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func (r *gormRepository) Insert(ctx context.Context, db *gorm.DB, setting *settingsdomain.Setting) error {
	return db.WithContext(ctx).Create(setting).Error
}
