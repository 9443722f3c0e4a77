package domain

import (
	"time"

	ledgerdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/domain"
	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
)

// Classify assigns exactly one tier to a stock record. Rules run top to
// bottom and the first match wins, so an item below both reorder and minimum
// is urgent, never warning. The early-warning band check uses integer
// cross-multiplication for current < minimum * 1.2.
func Classify(record ledgerdomain.StockRecord, levels thresholddomain.Levels, source thresholddomain.Source, now time.Time) Entry {
	entry := Entry{
		ItemID:            record.ItemID,
		CurrentQuantity:   record.CurrentQuantity,
		AvailableQuantity: record.Available(),
		Levels:            levels,
		ThresholdSource:   source,
		ComputedAt:        now,
	}

	qty := record.CurrentQuantity
	switch {
	case qty <= 0:
		entry.Tier = TierCritical
		entry.Reason = ReasonOutOfStock
	case levels.Reorder > 0 && qty <= levels.Reorder:
		entry.Tier = TierUrgent
		entry.Reason = ReasonAtReorderPoint
	case levels.Minimum > 0 && qty <= levels.Minimum:
		entry.Tier = TierWarning
		entry.Reason = ReasonAtMinimum
	case levels.Minimum > 0 && qty*5 < levels.Minimum*6:
		entry.Tier = TierWarning
		entry.Reason = ReasonNearMinimum
	case source == thresholddomain.SourceNone:
		entry.Tier = TierUnconfigured
		entry.Reason = ReasonUnconfigured
	default:
		entry.Tier = TierNormal
		entry.Reason = ReasonNormal
	}

	return entry
}
