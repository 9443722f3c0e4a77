// Package domain contains the stock ledger's persistence models and contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// MovementKind classifies a stock movement event.
type MovementKind string

const (
	MovementKindDelivery   MovementKind = "delivery"
	MovementKindIssuance   MovementKind = "issuance"
	MovementKindReturn     MovementKind = "return"
	MovementKindAdjustment MovementKind = "adjustment"
)

// Valid reports whether the kind is one of the four movement kinds.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementKindDelivery, MovementKindIssuance, MovementKindReturn, MovementKindAdjustment:
		return true
	default:
		return false
	}
}

// MovementEvent is an immutable, append-only stock fact. A correction is a
// new compensating event, never an edit.
type MovementEvent struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	EventKey string       `gorm:"type:text;not null;uniqueIndex" json:"event_key"`
	ItemID   snowflake.ID `gorm:"not null;index" json:"item_id"`
	Kind     MovementKind `gorm:"type:text;not null" json:"kind"`

	// Quantity is the signed delta: deliveries and returns positive,
	// issuances negative, adjustments either sign.
	Quantity int64 `gorm:"not null" json:"quantity"`

	// ReserveDelta adjusts reserved_quantity atomically with this event.
	ReserveDelta int64 `gorm:"not null;default:0" json:"reserve_delta,omitempty"`

	// Correcting marks an adjustment allowed to drive stock negative.
	Correcting bool `gorm:"not null;default:false" json:"correcting,omitempty"`

	OccurredAt time.Time         `gorm:"not null" json:"occurred_at"`
	SourceRef  string            `gorm:"type:text" json:"source_ref,omitempty"`
	Actor      string            `gorm:"type:text;not null" json:"actor"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (MovementEvent) TableName() string { return "stock_movements" }

// StockRecord is the authoritative per-item aggregate. current_quantity must
// always equal the replay sum of the item's accepted movement events.
type StockRecord struct {
	ItemID           snowflake.ID `gorm:"primaryKey" json:"item_id"`
	CurrentQuantity  int64        `gorm:"not null;default:0" json:"current_quantity"`
	ReservedQuantity int64        `gorm:"not null;default:0" json:"reserved_quantity"`
	LastMovementAt   *time.Time   `gorm:"" json:"last_movement_at,omitempty"`
	Version          int64        `gorm:"not null;default:0" json:"version"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (StockRecord) TableName() string { return "stock_records" }

// Available is the derived quantity not held against open reservations.
// It is never stored independently.
func (r StockRecord) Available() int64 {
	return r.CurrentQuantity - r.ReservedQuantity
}

// RecomputeResult reports both the incrementally maintained value and the
// replayed sum so callers can detect drift.
type RecomputeResult struct {
	ItemID      snowflake.ID `json:"item_id"`
	Incremental int64        `json:"incremental"`
	Replayed    int64        `json:"replayed"`
	Drift       bool         `json:"drift"`
	Repaired    bool         `json:"repaired"`
	Record      *StockRecord `json:"record"`
}
