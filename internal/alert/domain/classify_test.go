package domain

import (
	"testing"
	"time"

	ledgerdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/domain"
	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
)

func TestClassify(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	levels := thresholddomain.Levels{Minimum: 40, Reorder: 60, Maximum: 200}

	tests := []struct {
		name       string
		quantity   int64
		levels     thresholddomain.Levels
		source     thresholddomain.Source
		wantTier   Tier
		wantReason string
	}{
		{"zero stock is critical", 0, levels, thresholddomain.SourceComputed, TierCritical, ReasonOutOfStock},
		{"negative stock is critical", -2, levels, thresholddomain.SourceComputed, TierCritical, ReasonOutOfStock},
		{"at reorder point is urgent", 60, levels, thresholddomain.SourceComputed, TierUrgent, ReasonAtReorderPoint},
		{"between minimum and reorder is urgent", 50, levels, thresholddomain.SourceComputed, TierUrgent, ReasonAtReorderPoint},
		{"below reorder beats minimum", 35, levels, thresholddomain.SourceComputed, TierUrgent, ReasonAtReorderPoint},
		{"at minimum without reorder", 40, thresholddomain.Levels{Minimum: 40}, thresholddomain.SourceComputed, TierWarning, ReasonAtMinimum},
		{"early warning band", 45, thresholddomain.Levels{Minimum: 40}, thresholddomain.SourceComputed, TierWarning, ReasonNearMinimum},
		{"just outside early band", 48, thresholddomain.Levels{Minimum: 40}, thresholddomain.SourceComputed, TierNormal, ReasonNormal},
		{"healthy stock", 150, levels, thresholddomain.SourceOverride, TierNormal, ReasonNormal},
		{"no thresholds configured", 30, thresholddomain.Levels{}, thresholddomain.SourceNone, TierUnconfigured, ReasonUnconfigured},
		{"unconfigured but empty is critical", 0, thresholddomain.Levels{}, thresholddomain.SourceNone, TierCritical, ReasonOutOfStock},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			record := ledgerdomain.StockRecord{ItemID: 1, CurrentQuantity: tc.quantity}
			entry := Classify(record, tc.levels, tc.source, now)
			if entry.Tier != tc.wantTier {
				t.Fatalf("expected tier %s, got %s", tc.wantTier, entry.Tier)
			}
			if entry.Reason != tc.wantReason {
				t.Fatalf("expected reason %q, got %q", tc.wantReason, entry.Reason)
			}
		})
	}
}

func TestTierPriorityOrdersSeverity(t *testing.T) {
	ordered := []Tier{TierCritical, TierUrgent, TierWarning, TierNormal, TierUnconfigured}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Priority() >= ordered[i].Priority() {
			t.Fatalf("%s should sort before %s", ordered[i-1], ordered[i])
		}
	}
}
