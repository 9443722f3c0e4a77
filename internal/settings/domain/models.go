// Package domain contains inventory settings with bounded values and a
// versioned change history.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ValueType tags how a setting value is interpreted.
type ValueType string

const (
	ValueTypePercentage ValueType = "percentage"
	ValueTypeAbsolute   ValueType = "absolute"
)

// Names of the settings the threshold resolver reads.
const (
	SettingMinimumStockPct   = "minimum_stock_pct"
	SettingReorderStockPct   = "reorder_stock_pct"
	SettingMaximumStockPct   = "maximum_stock_pct"
	SettingMinimumStockFloor = "minimum_stock_floor"
	SettingReorderStockFloor = "reorder_stock_floor"
	SettingMaximumStockFloor = "maximum_stock_floor"
)

// Setting is a named numeric configuration value. Values may only move
// within [MinValue, MaxValue], and every change appends a SettingChange row.
type Setting struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:text;not null;uniqueIndex" json:"name"`
	Value       int64        `gorm:"not null" json:"value"`
	ValueType   ValueType    `gorm:"type:text;not null" json:"value_type"`
	MinValue    int64        `gorm:"not null" json:"min_value"`
	MaxValue    int64        `gorm:"not null" json:"max_value"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	UpdatedBy   string       `gorm:"type:text" json:"updated_by,omitempty"`
	Version     int64        `gorm:"not null;default:0" json:"version"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Setting) TableName() string { return "inventory_settings" }

// SettingChange is an immutable audit row written atomically with every
// successful value change.
type SettingChange struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	SettingID snowflake.ID `gorm:"not null;index" json:"setting_id"`
	Name      string       `gorm:"type:text;not null;index" json:"name"`
	OldValue  int64        `gorm:"not null" json:"old_value"`
	NewValue  int64        `gorm:"not null" json:"new_value"`
	Actor     string       `gorm:"type:text;not null" json:"actor"`
	Reason    string       `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (SettingChange) TableName() string { return "inventory_setting_changes" }

var (
	ErrSettingNotFound    = errors.New("setting_not_found")
	ErrSettingOutOfBounds = errors.New("setting_out_of_bounds")
	ErrInvalidSetting     = errors.New("invalid_setting")
	ErrSettingConflict    = errors.New("setting_conflict")
	ErrStoreUnavailable   = errors.New("store_unavailable")
)

// UpdateRequest changes one setting's value.
type UpdateRequest struct {
	Name   string
	Value  int64
	Actor  string
	Reason string
}

// Snapshot carries the resolver's view of the six threshold settings.
// Inactive or missing settings leave Configured false.
type Snapshot struct {
	Configured   bool
	MinimumPct   int64
	ReorderPct   int64
	MaximumPct   int64
	MinimumFloor int64
	ReorderFloor int64
	MaximumFloor int64
}

// Repository persists settings and their change rows.
type Repository interface {
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Setting, error)
	List(ctx context.Context, db *gorm.DB) ([]Setting, error)
	UpdateValueCAS(ctx context.Context, db *gorm.DB, setting *Setting, expectedVersion int64) (bool, error)
	InsertChange(ctx context.Context, db *gorm.DB, change *SettingChange) error
	ListChanges(ctx context.Context, db *gorm.DB, name string, limit int) ([]SettingChange, error)
	Insert(ctx context.Context, db *gorm.DB, setting *Setting) error
}

// Service is the settings store contract.
type Service interface {
	Get(ctx context.Context, name string) (*Setting, error)
	List(ctx context.Context) ([]Setting, error)
	Update(ctx context.Context, req UpdateRequest) (*Setting, error)
	Changes(ctx context.Context, name string, limit int) ([]SettingChange, error)
	ThresholdSnapshot(ctx context.Context) (Snapshot, error)
}
