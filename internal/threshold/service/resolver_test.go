package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/syedsanaulhaq/ims-v1-sub001/internal/cache"
	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
	catalogrepo "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/repository"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/config"
	settingsdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/domain"
	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
	thresholdrepo "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/repository"
)

var resolverDBSeq atomic.Int64

// stubSettings serves a fixed snapshot and counts reads so tests can assert
// the resolver's cache behavior.
type stubSettings struct {
	settingsdomain.Service
	snapshot settingsdomain.Snapshot
	reads    int
}

func (s *stubSettings) ThresholdSnapshot(ctx context.Context) (settingsdomain.Snapshot, error) {
	s.reads++
	return s.snapshot, nil
}

func configuredSnapshot() settingsdomain.Snapshot {
	return settingsdomain.Snapshot{
		Configured:   true,
		MinimumPct:   10,
		ReorderPct:   20,
		MaximumPct:   150,
		MinimumFloor: 5,
		ReorderFloor: 10,
		MaximumFloor: 100,
	}
}

func setupResolverTest(t *testing.T, snapshot settingsdomain.Snapshot) (*Service, *gorm.DB, *stubSettings) {
	t.Helper()
	dsn := fmt.Sprintf("file:resolver_test_%d?mode=memory&cache=shared", resolverDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&catalogdomain.Item{}, &thresholddomain.Override{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	stub := &stubSettings{snapshot: snapshot}
	svc := &Service{
		db:          db,
		log:         zap.NewNop(),
		genID:       node,
		cfg:         config.Config{SettingsCacheTTL: time.Minute, StoreTimeout: 5 * time.Second},
		repo:        thresholdrepo.Provide(),
		itemRepo:    catalogrepo.Provide(),
		settingsSvc: stub,
		snapshot:    cache.NewTTLCache[string, settingsdomain.Snapshot](),
	}
	return svc, db, stub
}

func insertResolverItem(t *testing.T, db *gorm.DB, id snowflake.ID) {
	t.Helper()
	item := &catalogdomain.Item{ID: id, Code: fmt.Sprintf("ITM-%d", id), Name: "Item", Unit: "each", Active: true}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("insert item: %v", err)
	}
}

// timeoutOverrideRepo simulates a store that never answers before the
// deadline, while recording whether the call carried one.
type timeoutOverrideRepo struct {
	thresholddomain.Repository
	sawDeadline bool
}

func (r *timeoutOverrideRepo) FindActiveByItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID) (*thresholddomain.Override, error) {
	_, r.sawDeadline = ctx.Deadline()
	return nil, context.DeadlineExceeded
}

func TestResolveMapsTimeoutToStoreUnavailable(t *testing.T) {
	svc, _, _ := setupResolverTest(t, configuredSnapshot())
	slow := &timeoutOverrideRepo{Repository: svc.repo}
	svc.repo = slow

	_, _, err := svc.Resolve(context.Background(), 1, 100)
	if !errors.Is(err, thresholddomain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if !slow.sawDeadline {
		t.Fatal("expected the store call to carry a deadline")
	}
}

func TestResolveComputesFromSettings(t *testing.T) {
	svc, _, _ := setupResolverTest(t, configuredSnapshot())

	levels, source, err := svc.Resolve(context.Background(), 1, 1000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if source != thresholddomain.SourceComputed {
		t.Fatalf("expected computed source, got %s", source)
	}
	want := thresholddomain.Levels{Minimum: 100, Reorder: 200, Maximum: 1500}
	if levels != want {
		t.Fatalf("expected %+v, got %+v", want, levels)
	}
}

func TestResolveAppliesFloors(t *testing.T) {
	svc, _, _ := setupResolverTest(t, configuredSnapshot())

	// 10% of 30 is 3, below the floor of 5; 20% is 6, below 10; 150% is 45,
	// below 100.
	levels, _, err := svc.Resolve(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := thresholddomain.Levels{Minimum: 5, Reorder: 10, Maximum: 100}
	if levels != want {
		t.Fatalf("expected %+v, got %+v", want, levels)
	}
}

func TestResolveRoundsMaximumUp(t *testing.T) {
	snapshot := configuredSnapshot()
	snapshot.MaximumFloor = 0
	svc, _, _ := setupResolverTest(t, snapshot)

	// 150% of 33 is 49.5, which must round up.
	levels, _, err := svc.Resolve(context.Background(), 1, 33)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if levels.Maximum != 50 {
		t.Fatalf("expected maximum 50, got %d", levels.Maximum)
	}
}

func TestResolveOverrideWinsVerbatim(t *testing.T) {
	svc, db, _ := setupResolverTest(t, configuredSnapshot())
	insertResolverItem(t, db, 7)

	if _, err := svc.Activate(context.Background(), thresholddomain.ActivateRequest{
		ItemID: 7, Minimum: 12, Reorder: 24, Maximum: 90, Actor: "tester",
	}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	levels, source, err := svc.Resolve(context.Background(), 7, 1000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if source != thresholddomain.SourceOverride {
		t.Fatalf("expected override source, got %s", source)
	}
	want := thresholddomain.Levels{Minimum: 12, Reorder: 24, Maximum: 90}
	if levels != want {
		t.Fatalf("expected %+v, got %+v", want, levels)
	}
}

func TestResolveUnconfiguredSettings(t *testing.T) {
	svc, _, _ := setupResolverTest(t, settingsdomain.Snapshot{})

	levels, source, err := svc.Resolve(context.Background(), 1, 500)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if source != thresholddomain.SourceNone {
		t.Fatalf("expected source none, got %s", source)
	}
	if levels != (thresholddomain.Levels{}) {
		t.Fatalf("expected zero levels, got %+v", levels)
	}
}

func TestResolveCachesSettingsSnapshot(t *testing.T) {
	svc, _, stub := setupResolverTest(t, configuredSnapshot())

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Resolve(context.Background(), 1, 100); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	if stub.reads != 1 {
		t.Fatalf("expected one snapshot read, got %d", stub.reads)
	}
}

func TestActivateValidatesLevels(t *testing.T) {
	svc, db, _ := setupResolverTest(t, configuredSnapshot())
	insertResolverItem(t, db, 8)

	cases := []thresholddomain.ActivateRequest{
		{ItemID: 8, Minimum: -1},
		{ItemID: 8, Minimum: 100, Maximum: 50},
		{ItemID: 8, Reorder: 100, Maximum: 50},
		{ItemID: 0, Minimum: 1},
	}
	for i, req := range cases {
		if _, err := svc.Activate(context.Background(), req); !errors.Is(err, thresholddomain.ErrInvalidOverride) {
			t.Fatalf("case %d: expected invalid override, got %v", i, err)
		}
	}
}

func TestActivateReplacesPriorOverride(t *testing.T) {
	svc, db, _ := setupResolverTest(t, configuredSnapshot())
	insertResolverItem(t, db, 9)

	if _, err := svc.Activate(context.Background(), thresholddomain.ActivateRequest{
		ItemID: 9, Minimum: 5, Reorder: 10, Maximum: 50, Actor: "tester",
	}); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	second, err := svc.Activate(context.Background(), thresholddomain.ActivateRequest{
		ItemID: 9, Minimum: 8, Reorder: 16, Maximum: 80, Actor: "tester",
	})
	if err != nil {
		t.Fatalf("second activate: %v", err)
	}

	active, err := svc.GetActive(context.Background(), 9)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active.ID != second.ID {
		t.Fatalf("expected latest override active, got %d", active.ID)
	}

	history, err := svc.History(context.Background(), 9)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
}

func TestDeactivateDisablesOverride(t *testing.T) {
	svc, db, _ := setupResolverTest(t, configuredSnapshot())
	insertResolverItem(t, db, 10)

	if _, err := svc.Activate(context.Background(), thresholddomain.ActivateRequest{
		ItemID: 10, Minimum: 5, Reorder: 10, Maximum: 50, Actor: "tester",
	}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := svc.Deactivate(context.Background(), 10, "tester"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := svc.GetActive(context.Background(), 10); !errors.Is(err, thresholddomain.ErrOverrideNotFound) {
		t.Fatalf("expected override not found, got %v", err)
	}
	if err := svc.Deactivate(context.Background(), 10, "tester"); !errors.Is(err, thresholddomain.ErrOverrideNotFound) {
		t.Fatalf("expected override not found on repeat, got %v", err)
	}
}
