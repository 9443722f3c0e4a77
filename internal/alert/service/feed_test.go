package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/alert/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/cache"
	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/clock"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/config"
	ledgerdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/domain"
	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
)

type stubLedger struct {
	ledgerdomain.Service
	records []ledgerdomain.StockRecord
	calls   int
}

func (s *stubLedger) ListLowStock(ctx context.Context, pred ledgerdomain.StockPredicate) ([]ledgerdomain.StockRecord, error) {
	s.calls++
	return s.records, nil
}

type stubResolver struct {
	thresholddomain.Service
	levels  map[snowflake.ID]thresholddomain.Levels
	sources map[snowflake.ID]thresholddomain.Source
	failFor snowflake.ID
}

func (s *stubResolver) Resolve(ctx context.Context, itemID snowflake.ID, currentQuantity int64) (thresholddomain.Levels, thresholddomain.Source, error) {
	if itemID == s.failFor {
		return thresholddomain.Levels{}, thresholddomain.SourceNone, errors.New("resolver down")
	}
	source, ok := s.sources[itemID]
	if !ok {
		source = thresholddomain.SourceComputed
	}
	return s.levels[itemID], source, nil
}

type stubItems struct {
	catalogdomain.Repository
	items       map[snowflake.ID]*catalogdomain.Item
	sawDeadline bool
}

func (s *stubItems) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.Item, error) {
	_, s.sawDeadline = ctx.Deadline()
	item, ok := s.items[id]
	if !ok {
		return nil, catalogdomain.ErrItemNotFound
	}
	return item, nil
}

func newTestFeed(ledgerSvc *stubLedger, resolver *stubResolver, items *stubItems) *Feed {
	return &Feed{
		log:          zap.NewNop(),
		clk:          clock.Fixed{At: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		cfg:          config.Config{AlertCacheTTL: time.Minute, StoreTimeout: 5 * time.Second},
		ledgerSvc:    ledgerSvc,
		thresholdSvc: resolver,
		itemRepo:     items,
		cache:        cache.NewTTLCache[string, []alertdomain.Entry](),
	}
}

func TestListAlertsSortsByTierThenAvailable(t *testing.T) {
	ledgerSvc := &stubLedger{records: []ledgerdomain.StockRecord{
		{ItemID: 1, CurrentQuantity: 150}, // normal
		{ItemID: 2, CurrentQuantity: 0},   // critical
		{ItemID: 3, CurrentQuantity: 30},  // urgent, below reorder
		{ItemID: 4, CurrentQuantity: 10},  // urgent, further below reorder
	}}
	levels := thresholddomain.Levels{Minimum: 20, Reorder: 40, Maximum: 400}
	resolver := &stubResolver{levels: map[snowflake.ID]thresholddomain.Levels{
		1: levels, 2: levels, 3: levels, 4: levels,
	}}
	items := &stubItems{items: map[snowflake.ID]*catalogdomain.Item{
		1: {ID: 1, Code: "A4-PAPER", Name: "A4 Paper"},
		2: {ID: 2, Code: "STAPLER", Name: "Stapler"},
		3: {ID: 3, Code: "TONER", Name: "Toner Cartridge"},
		4: {ID: 4, Code: "MARKER", Name: "Whiteboard Marker"},
	}}
	feed := newTestFeed(ledgerSvc, resolver, items)

	entries, err := feed.ListAlerts(context.Background(), alertdomain.Filter{})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	wantOrder := []snowflake.ID{2, 4, 3, 1}
	for i, id := range wantOrder {
		if entries[i].ItemID != id {
			t.Fatalf("position %d: expected item %d, got %d", i, id, entries[i].ItemID)
		}
	}
	if entries[0].Tier != alertdomain.TierCritical {
		t.Fatalf("expected critical first, got %s", entries[0].Tier)
	}
	if entries[0].ItemCode != "STAPLER" {
		t.Fatalf("expected decorated item code, got %q", entries[0].ItemCode)
	}
}

func TestListAlertsFiltersByTierAndSearch(t *testing.T) {
	ledgerSvc := &stubLedger{records: []ledgerdomain.StockRecord{
		{ItemID: 1, CurrentQuantity: 0},
		{ItemID: 2, CurrentQuantity: 0},
		{ItemID: 3, CurrentQuantity: 500},
	}}
	levels := thresholddomain.Levels{Minimum: 20, Reorder: 40, Maximum: 400}
	resolver := &stubResolver{levels: map[snowflake.ID]thresholddomain.Levels{
		1: levels, 2: levels, 3: levels,
	}}
	items := &stubItems{items: map[snowflake.ID]*catalogdomain.Item{
		1: {ID: 1, Code: "A4-PAPER", Name: "A4 Paper"},
		2: {ID: 2, Code: "STAPLER", Name: "Stapler"},
		3: {ID: 3, Code: "TONER", Name: "Toner Cartridge"},
	}}
	feed := newTestFeed(ledgerSvc, resolver, items)

	entries, err := feed.ListAlerts(context.Background(), alertdomain.Filter{
		Tier:   alertdomain.TierCritical,
		Search: "paper",
	})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(entries) != 1 || entries[0].ItemID != 1 {
		t.Fatalf("expected only the paper item, got %+v", entries)
	}
}

func TestListAlertsSkipsFailedResolution(t *testing.T) {
	ledgerSvc := &stubLedger{records: []ledgerdomain.StockRecord{
		{ItemID: 1, CurrentQuantity: 0},
		{ItemID: 2, CurrentQuantity: 0},
	}}
	resolver := &stubResolver{
		levels:  map[snowflake.ID]thresholddomain.Levels{},
		failFor: 1,
	}
	items := &stubItems{items: map[snowflake.ID]*catalogdomain.Item{}}
	feed := newTestFeed(ledgerSvc, resolver, items)

	entries, err := feed.ListAlerts(context.Background(), alertdomain.Filter{})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(entries) != 1 || entries[0].ItemID != 2 {
		t.Fatalf("expected the resolvable item only, got %+v", entries)
	}
}

func TestListAlertsServesCachedListing(t *testing.T) {
	ledgerSvc := &stubLedger{records: []ledgerdomain.StockRecord{
		{ItemID: 1, CurrentQuantity: 0},
	}}
	resolver := &stubResolver{levels: map[snowflake.ID]thresholddomain.Levels{}}
	items := &stubItems{items: map[snowflake.ID]*catalogdomain.Item{}}
	feed := newTestFeed(ledgerSvc, resolver, items)

	for i := 0; i < 3; i++ {
		if _, err := feed.ListAlerts(context.Background(), alertdomain.Filter{}); err != nil {
			t.Fatalf("list alerts %d: %v", i, err)
		}
	}
	if ledgerSvc.calls != 1 {
		t.Fatalf("expected one ledger scan, got %d", ledgerSvc.calls)
	}

	// A different filter is a different cache entry.
	if _, err := feed.ListAlerts(context.Background(), alertdomain.Filter{Tier: alertdomain.TierCritical}); err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if ledgerSvc.calls != 2 {
		t.Fatalf("expected second ledger scan for new filter, got %d", ledgerSvc.calls)
	}
}

func TestInvalidateDropsCachedListings(t *testing.T) {
	ledgerSvc := &stubLedger{records: []ledgerdomain.StockRecord{
		{ItemID: 1, CurrentQuantity: 0},
	}}
	resolver := &stubResolver{levels: map[snowflake.ID]thresholddomain.Levels{}}
	items := &stubItems{items: map[snowflake.ID]*catalogdomain.Item{}}
	feed := newTestFeed(ledgerSvc, resolver, items)

	for i := 0; i < 2; i++ {
		if _, err := feed.ListAlerts(context.Background(), alertdomain.Filter{}); err != nil {
			t.Fatalf("list alerts %d: %v", i, err)
		}
	}
	if ledgerSvc.calls != 1 {
		t.Fatalf("expected one ledger scan, got %d", ledgerSvc.calls)
	}

	// After a movement the cached listing is dropped, so the next request
	// recomputes even inside the TTL.
	feed.Invalidate()
	if _, err := feed.ListAlerts(context.Background(), alertdomain.Filter{}); err != nil {
		t.Fatalf("list after invalidate: %v", err)
	}
	if ledgerSvc.calls != 2 {
		t.Fatalf("expected fresh ledger scan after invalidate, got %d", ledgerSvc.calls)
	}
}

func TestListAlertsBoundsItemLookup(t *testing.T) {
	ledgerSvc := &stubLedger{records: []ledgerdomain.StockRecord{
		{ItemID: 1, CurrentQuantity: 0},
	}}
	resolver := &stubResolver{levels: map[snowflake.ID]thresholddomain.Levels{}}
	items := &stubItems{items: map[snowflake.ID]*catalogdomain.Item{
		1: {ID: 1, Code: "PEN-01", Name: "Pen"},
	}}
	feed := newTestFeed(ledgerSvc, resolver, items)

	if _, err := feed.ListAlerts(context.Background(), alertdomain.Filter{}); err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if !items.sawDeadline {
		t.Fatal("expected the item lookup to carry a deadline")
	}
}
