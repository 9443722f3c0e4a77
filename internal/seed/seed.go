// Package seed bootstraps default settings and, outside production, a small
// demo catalog.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
	settingsdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/domain"
)

type defaultSetting struct {
	Name        string
	Value       int64
	ValueType   settingsdomain.ValueType
	MinValue    int64
	MaxValue    int64
	Description string
}

var defaultSettings = []defaultSetting{
	{settingsdomain.SettingMinimumStockPct, 10, settingsdomain.ValueTypePercentage, 0, 100, "Minimum level as a percentage of current stock"},
	{settingsdomain.SettingReorderStockPct, 20, settingsdomain.ValueTypePercentage, 0, 100, "Reorder point as a percentage of current stock"},
	{settingsdomain.SettingMaximumStockPct, 150, settingsdomain.ValueTypePercentage, 100, 500, "Maximum level as a percentage of current stock"},
	{settingsdomain.SettingMinimumStockFloor, 5, settingsdomain.ValueTypeAbsolute, 0, 1000000, "Absolute floor for the minimum level"},
	{settingsdomain.SettingReorderStockFloor, 10, settingsdomain.ValueTypeAbsolute, 0, 1000000, "Absolute floor for the reorder point"},
	{settingsdomain.SettingMaximumStockFloor, 100, settingsdomain.ValueTypeAbsolute, 0, 10000000, "Absolute floor for the maximum level"},
}

// EnsureDefaultSettings inserts any missing threshold settings. Existing
// rows, including administrator-tuned values, are left alone.
func EnsureDefaultSettings(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range defaultSettings {
			var existing settingsdomain.Setting
			err := tx.WithContext(ctx).Where("name = ?", def.Name).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			now := time.Now().UTC()
			setting := settingsdomain.Setting{
				ID:          node.Generate(),
				Name:        def.Name,
				Value:       def.Value,
				ValueType:   def.ValueType,
				MinValue:    def.MinValue,
				MaxValue:    def.MaxValue,
				Active:      true,
				Description: def.Description,
				UpdatedBy:   "system",
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&setting).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

var demoItems = []struct {
	Code string
	Name string
	Unit string
}{
	{"PPR-A4", "A4 Printing Paper", "ream"},
	{"TNR-85A", "Toner Cartridge 85A", "piece"},
	{"STP-STD", "Standard Stapler", "piece"},
	{"FLD-MNL", "Manila Folder", "piece"},
}

// EnsureDemoItems seeds a handful of catalog items for local development.
func EnsureDemoItems(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, demo := range demoItems {
			var existing catalogdomain.Item
			err := tx.WithContext(ctx).Where("code = ?", demo.Code).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			now := time.Now().UTC()
			item := catalogdomain.Item{
				ID:        node.Generate(),
				Code:      demo.Code,
				Name:      demo.Name,
				Unit:      demo.Unit,
				Active:    true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
