// Package domain contains per-item threshold overrides and the resolver
// contract that turns settings and overrides into effective stock levels.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Override replaces computed threshold levels for one item. At most one
// override per item is active; prior overrides are deactivated, never deleted.
type Override struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ItemID    snowflake.ID `gorm:"not null;index" json:"item_id"`
	Minimum   int64        `gorm:"not null" json:"minimum"`
	Reorder   int64        `gorm:"not null" json:"reorder"`
	Maximum   int64        `gorm:"not null" json:"maximum"`
	Reason    string       `gorm:"type:text" json:"reason,omitempty"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedBy string       `gorm:"type:text;not null" json:"created_by"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Override) TableName() string { return "threshold_overrides" }

// Levels are the effective minimum/reorder/maximum for an item.
type Levels struct {
	Minimum int64 `json:"minimum"`
	Reorder int64 `json:"reorder"`
	Maximum int64 `json:"maximum"`
}

// Source says where resolved levels came from.
type Source string

const (
	SourceOverride Source = "override"
	SourceComputed Source = "computed"
	SourceNone     Source = "none"
)

var (
	ErrOverrideNotFound = errors.New("override_not_found")
	ErrInvalidOverride  = errors.New("invalid_override")
	ErrStoreUnavailable = errors.New("store_unavailable")
)

// ActivateRequest installs a new override for an item.
type ActivateRequest struct {
	ItemID  snowflake.ID
	Minimum int64
	Reorder int64
	Maximum int64
	Reason  string
	Actor   string
}

// Repository persists overrides.
type Repository interface {
	FindActiveByItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID) (*Override, error)
	ListByItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID) ([]Override, error)
	Activate(ctx context.Context, db *gorm.DB, override *Override) error
	Deactivate(ctx context.Context, db *gorm.DB, itemID snowflake.ID) (bool, error)
}

// Resolver computes effective threshold levels with strict precedence:
// active override, then settings-derived values, then zeros.
type Resolver interface {
	Resolve(ctx context.Context, itemID snowflake.ID, currentQuantity int64) (Levels, Source, error)
}

// Service manages overrides and exposes resolution.
type Service interface {
	Resolver
	GetActive(ctx context.Context, itemID snowflake.ID) (*Override, error)
	History(ctx context.Context, itemID snowflake.ID) ([]Override, error)
	Activate(ctx context.Context, req ActivateRequest) (*Override, error)
	Deactivate(ctx context.Context, itemID snowflake.ID, actor string) error
}
