package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/alert/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/cache"
	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/clock"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/config"
	ledgerdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/observability/metrics"
	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
)

type FeedParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Config       config.Config
	LedgerSvc    ledgerdomain.Service
	ThresholdSvc thresholddomain.Service
	ItemRepo     catalogdomain.Repository
	Metrics      *metrics.LedgerMetrics   `optional:"true"`
}

// Feed computes alert listings from the ledger, resolver, and classifier.
// Listings are cached per filter for a short TTL; within that TTL a served
// list may trail a fresh computation, never longer.
type Feed struct {
	db           *gorm.DB
	log          *zap.Logger
	clk          clock.Clock
	cfg          config.Config
	ledgerSvc    ledgerdomain.Service
	thresholdSvc thresholddomain.Service
	itemRepo     catalogdomain.Repository
	metrics      *metrics.LedgerMetrics

	cache *cache.TTLCache[string, []alertdomain.Entry]
}

func NewFeed(p FeedParam) alertdomain.Feed {
	return &Feed{
		db:           p.DB,
		log:          p.Log.Named("alert.feed"),
		clk:          p.Clock,
		cfg:          p.Config,
		ledgerSvc:    p.LedgerSvc,
		thresholdSvc: p.ThresholdSvc,
		itemRepo:     p.ItemRepo,
		metrics:      p.Metrics,
		cache:        cache.NewTTLCache[string, []alertdomain.Entry](),
	}
}

// ListAlerts returns classified items sorted by tier priority, then by
// ascending available quantity. An item whose threshold resolution fails is
// skipped with a warning rather than failing the whole listing.
func (f *Feed) ListAlerts(ctx context.Context, filter alertdomain.Filter) ([]alertdomain.Entry, error) {
	key := cacheKey(filter)
	if cached, ok := f.cache.Get(key); ok {
		if f.metrics != nil {
			f.metrics.IncFeedRequest("hit")
		}
		return cached, nil
	}
	if f.metrics != nil {
		f.metrics.IncFeedRequest("miss")
	}

	records, err := f.ledgerSvc.ListLowStock(ctx, nil)
	if err != nil {
		return nil, err
	}

	now := f.clk.Now()
	entries := make([]alertdomain.Entry, 0, len(records))
	tierCounts := make(map[alertdomain.Tier]int)

	for _, record := range records {
		levels, source, err := f.thresholdSvc.Resolve(ctx, record.ItemID, record.CurrentQuantity)
		if err != nil {
			f.log.Warn("skipping item: threshold resolution failed",
				zap.String("item_id", record.ItemID.String()),
				zap.Error(err),
			)
			continue
		}

		entry := alertdomain.Classify(record, levels, source, now)
		f.decorate(ctx, &entry)
		tierCounts[entry.Tier]++

		if filter.Tier != "" && entry.Tier != filter.Tier {
			continue
		}
		if !matchesSearch(entry, filter.Search) {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Tier.Priority() != entries[j].Tier.Priority() {
			return entries[i].Tier.Priority() < entries[j].Tier.Priority()
		}
		return entries[i].AvailableQuantity < entries[j].AvailableQuantity
	})

	if f.metrics != nil {
		for _, tier := range []alertdomain.Tier{
			alertdomain.TierCritical,
			alertdomain.TierUrgent,
			alertdomain.TierWarning,
			alertdomain.TierNormal,
			alertdomain.TierUnconfigured,
		} {
			f.metrics.SetTierCount(string(tier), tierCounts[tier])
		}
	}

	f.cache.Set(key, entries, f.cfg.AlertCacheTTL)
	return entries, nil
}

// Invalidate drops every cached listing so the next request recomputes from
// the ledger. Called after a movement changes stock.
func (f *Feed) Invalidate() {
	f.cache.Flush()
}

func (f *Feed) decorate(ctx context.Context, entry *alertdomain.Entry) {
	ctx, cancel := f.storeContext(ctx)
	defer cancel()

	item, err := f.itemRepo.FindByID(ctx, f.db, entry.ItemID)
	if err != nil {
		return
	}
	entry.ItemCode = item.Code
	entry.ItemName = item.Name
}

func (f *Feed) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := f.cfg.StoreTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func matchesSearch(entry alertdomain.Entry, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(entry.ItemCode), search) ||
		strings.Contains(strings.ToLower(entry.ItemName), search)
}

func cacheKey(filter alertdomain.Filter) string {
	return string(filter.Tier) + "|" + strings.ToLower(strings.TrimSpace(filter.Search))
}
