// Package domain contains the item master records the ledger reads.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Item identifies a stock-keeping unit. Items are created by catalog
// management; the ledger treats them as read-only.
type Item struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Code          string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Unit          string       `gorm:"type:text;not null" json:"unit"`
	CategoryID    snowflake.ID `gorm:"index" json:"category_id"`
	SubCategoryID snowflake.ID `gorm:"" json:"sub_category_id"`
	Active        bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Item) TableName() string { return "items" }

var (
	ErrItemNotFound = errors.New("item_not_found")
	ErrInvalidItem  = errors.New("invalid_item")
)

// ListRequest filters the item listing.
type ListRequest struct {
	Search string
	Active *bool
	Limit  int
}

// Repository reads item master rows.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Item, error)
	List(ctx context.Context, db *gorm.DB, req ListRequest) ([]Item, error)
	Insert(ctx context.Context, db *gorm.DB, item *Item) error
}
