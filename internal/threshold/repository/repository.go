package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
)

type gormRepository struct{}

// Provide constructs the gorm-backed override repository.
func Provide() thresholddomain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) FindActiveByItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID) (*thresholddomain.Override, error) {
	var override thresholddomain.Override
	err := db.WithContext(ctx).
		Where("item_id = ? AND active = ?", itemID, true).
		First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, thresholddomain.ErrOverrideNotFound
		}
		return nil, err
	}
	return &override, nil
}

func (r *gormRepository) ListByItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID) ([]thresholddomain.Override, error) {
	var overrides []thresholddomain.Override
	err := db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC, id DESC").
		Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

// Activate deactivates any prior active override for the item and inserts
// the new one. Callers run it inside a transaction so both steps commit
// together, preserving the one-active-per-item invariant.
func (r *gormRepository) Activate(ctx context.Context, db *gorm.DB, override *thresholddomain.Override) error {
	if override == nil || override.ItemID == 0 {
		return thresholddomain.ErrInvalidOverride
	}
	if err := db.WithContext(ctx).Exec(
		`UPDATE threshold_overrides SET active = false, updated_at = ? WHERE item_id = ? AND active = true`,
		time.Now().UTC(),
		override.ItemID,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Create(override).Error
}

func (r *gormRepository) Deactivate(ctx context.Context, db *gorm.DB, itemID snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE threshold_overrides SET active = false, updated_at = ? WHERE item_id = ? AND active = true`,
		time.Now().UTC(),
		itemID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
