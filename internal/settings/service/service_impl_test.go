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

	"github.com/syedsanaulhaq/ims-v1-sub001/internal/clock"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/config"
	settingsdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/domain"
	settingsrepo "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/repository"
)

var settingsDBSeq atomic.Int64

func setupSettingsTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:settings_test_%d?mode=memory&cache=shared", settingsDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&settingsdomain.Setting{}, &settingsdomain.SettingChange{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	svc := &Service{
		db:    db,
		log:   zap.NewNop(),
		genID: node,
		clk:   clock.Fixed{At: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		cfg:   config.Config{StoreTimeout: 5 * time.Second},
		repo:  settingsrepo.Provide(),
	}
	return svc, db
}

// timeoutSettingsRepo simulates a store that never answers before the
// deadline, while recording whether the call carried one.
type timeoutSettingsRepo struct {
	settingsdomain.Repository
	sawDeadline bool
}

func (r *timeoutSettingsRepo) List(ctx context.Context, db *gorm.DB) ([]settingsdomain.Setting, error) {
	_, r.sawDeadline = ctx.Deadline()
	return nil, context.DeadlineExceeded
}

func TestThresholdSnapshotMapsTimeoutToStoreUnavailable(t *testing.T) {
	svc, _ := setupSettingsTest(t)
	slow := &timeoutSettingsRepo{Repository: svc.repo}
	svc.repo = slow

	_, err := svc.ThresholdSnapshot(context.Background())
	if !errors.Is(err, settingsdomain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if !slow.sawDeadline {
		t.Fatal("expected the store call to carry a deadline")
	}
}

func insertSetting(t *testing.T, db *gorm.DB, svc *Service, name string, value, minValue, maxValue int64) {
	t.Helper()
	setting := &settingsdomain.Setting{
		ID:        svc.genID.Generate(),
		Name:      name,
		Value:     value,
		ValueType: settingsdomain.ValueTypePercentage,
		MinValue:  minValue,
		MaxValue:  maxValue,
		Active:    true,
	}
	if err := db.Create(setting).Error; err != nil {
		t.Fatalf("insert setting %s: %v", name, err)
	}
}

func TestUpdateWritesValueAndChangeRow(t *testing.T) {
	svc, db := setupSettingsTest(t)
	insertSetting(t, db, svc, settingsdomain.SettingMinimumStockPct, 10, 0, 100)

	updated, err := svc.Update(context.Background(), settingsdomain.UpdateRequest{
		Name:   settingsdomain.SettingMinimumStockPct,
		Value:  15,
		Actor:  "alice",
		Reason: "seasonal adjustment",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Value != 15 || updated.Version != 1 {
		t.Fatalf("expected value 15 version 1, got %d / %d", updated.Value, updated.Version)
	}

	changes, err := svc.Changes(context.Background(), settingsdomain.SettingMinimumStockPct, 10)
	if err != nil {
		t.Fatalf("changes: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected 1 change row, got %d", len(changes))
	}
	if changes[0].OldValue != 10 || changes[0].NewValue != 15 || changes[0].Actor != "alice" {
		t.Fatalf("unexpected change row: %+v", changes[0])
	}
}

func TestUpdateRejectsOutOfBounds(t *testing.T) {
	svc, db := setupSettingsTest(t)
	insertSetting(t, db, svc, settingsdomain.SettingMinimumStockPct, 10, 0, 100)

	_, err := svc.Update(context.Background(), settingsdomain.UpdateRequest{
		Name:  settingsdomain.SettingMinimumStockPct,
		Value: 101,
		Actor: "alice",
	})
	if !errors.Is(err, settingsdomain.ErrSettingOutOfBounds) {
		t.Fatalf("expected out of bounds, got %v", err)
	}

	// The rejected write must leave both the value and the log untouched.
	setting, err := svc.Get(context.Background(), settingsdomain.SettingMinimumStockPct)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if setting.Value != 10 || setting.Version != 0 {
		t.Fatalf("rejected update changed setting: %+v", setting)
	}
	changes, err := svc.Changes(context.Background(), settingsdomain.SettingMinimumStockPct, 10)
	if err != nil {
		t.Fatalf("changes: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no change rows, got %d", len(changes))
	}
}

func TestUpdateSameValueIsNoOp(t *testing.T) {
	svc, db := setupSettingsTest(t)
	insertSetting(t, db, svc, settingsdomain.SettingReorderStockPct, 20, 0, 100)

	updated, err := svc.Update(context.Background(), settingsdomain.UpdateRequest{
		Name:  settingsdomain.SettingReorderStockPct,
		Value: 20,
		Actor: "alice",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 0 {
		t.Fatalf("no-op update bumped version to %d", updated.Version)
	}
	changes, err := svc.Changes(context.Background(), settingsdomain.SettingReorderStockPct, 10)
	if err != nil {
		t.Fatalf("changes: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no change rows, got %d", len(changes))
	}
}

func TestUpdateUnknownSetting(t *testing.T) {
	svc, _ := setupSettingsTest(t)

	_, err := svc.Update(context.Background(), settingsdomain.UpdateRequest{
		Name:  "no_such_setting",
		Value: 1,
		Actor: "alice",
	})
	if !errors.Is(err, settingsdomain.ErrSettingNotFound) {
		t.Fatalf("expected setting not found, got %v", err)
	}
}

func TestThresholdSnapshotRequiresAllPercentages(t *testing.T) {
	svc, db := setupSettingsTest(t)
	insertSetting(t, db, svc, settingsdomain.SettingMinimumStockPct, 10, 0, 100)
	insertSetting(t, db, svc, settingsdomain.SettingReorderStockPct, 20, 0, 100)

	snapshot, err := svc.ThresholdSnapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.Configured {
		t.Fatal("expected unconfigured snapshot with a percentage missing")
	}

	insertSetting(t, db, svc, settingsdomain.SettingMaximumStockPct, 150, 100, 500)
	insertSetting(t, db, svc, settingsdomain.SettingMinimumStockFloor, 5, 0, 1000)

	snapshot, err = svc.ThresholdSnapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snapshot.Configured {
		t.Fatal("expected configured snapshot")
	}
	if snapshot.MinimumPct != 10 || snapshot.ReorderPct != 20 || snapshot.MaximumPct != 150 {
		t.Fatalf("unexpected percentages: %+v", snapshot)
	}
	if snapshot.MinimumFloor != 5 || snapshot.ReorderFloor != 0 {
		t.Fatalf("unexpected floors: %+v", snapshot)
	}
}

func TestThresholdSnapshotIgnoresInactiveSettings(t *testing.T) {
	svc, db := setupSettingsTest(t)
	insertSetting(t, db, svc, settingsdomain.SettingMinimumStockPct, 10, 0, 100)
	insertSetting(t, db, svc, settingsdomain.SettingReorderStockPct, 20, 0, 100)
	insertSetting(t, db, svc, settingsdomain.SettingMaximumStockPct, 150, 100, 500)

	if err := db.Model(&settingsdomain.Setting{}).
		Where("name = ?", settingsdomain.SettingMaximumStockPct).
		Update("active", false).Error; err != nil {
		t.Fatalf("deactivate setting: %v", err)
	}

	snapshot, err := svc.ThresholdSnapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.Configured {
		t.Fatal("expected unconfigured snapshot with an inactive percentage")
	}
}
