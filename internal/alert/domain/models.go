// Package domain classifies stock records into stock-health alert tiers.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
)

// Tier is an item's stock-health classification.
type Tier string

const (
	TierCritical     Tier = "critical"
	TierUrgent       Tier = "urgent"
	TierWarning      Tier = "warning"
	TierNormal       Tier = "normal"
	TierUnconfigured Tier = "unconfigured"
)

// Priority orders tiers for sorting: lower sorts first.
func (t Tier) Priority() int {
	switch t {
	case TierCritical:
		return 0
	case TierUrgent:
		return 1
	case TierWarning:
		return 2
	case TierNormal:
		return 3
	default:
		return 4
	}
}

// Valid reports whether the tier is a known classification.
func (t Tier) Valid() bool {
	switch t {
	case TierCritical, TierUrgent, TierWarning, TierNormal, TierUnconfigured:
		return true
	default:
		return false
	}
}

// Classification reasons.
const (
	ReasonOutOfStock     = "out of stock"
	ReasonAtReorderPoint = "at or below reorder point"
	ReasonAtMinimum      = "at or below minimum level"
	ReasonNearMinimum    = "approaching minimum — early warning band"
	ReasonNormal         = "stock level normal"
	ReasonUnconfigured   = "no threshold configured"
)

// Entry is a derived alert row. Entries are computed at query time, never
// stored.
type Entry struct {
	ItemID            snowflake.ID           `json:"item_id"`
	ItemCode          string                 `json:"item_code,omitempty"`
	ItemName          string                 `json:"item_name,omitempty"`
	Tier              Tier                   `json:"tier"`
	Reason            string                 `json:"reason"`
	CurrentQuantity   int64                  `json:"current_quantity"`
	AvailableQuantity int64                  `json:"available_quantity"`
	Levels            thresholddomain.Levels `json:"levels"`
	ThresholdSource   thresholddomain.Source `json:"threshold_source"`
	ComputedAt        time.Time              `json:"computed_at"`
}

// Filter narrows an alert listing.
type Filter struct {
	Tier   Tier
	Search string
}

// Feed serves sorted, filterable alert listings. Invalidate drops cached
// listings after a write that changes stock.
type Feed interface {
	ListAlerts(ctx context.Context, filter Filter) ([]Entry, error)
	Invalidate()
}
