package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/syedsanaulhaq/ims-v1-sub001/internal/cache"
	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/config"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/events"
	settingsdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/domain"
	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
)

const settingsSnapshotKey = "threshold_settings"

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Config      config.Config
	Repo        thresholddomain.Repository
	ItemRepo    catalogdomain.Repository
	SettingsSvc settingsdomain.Service
	Outbox      *events.Outbox             `optional:"true"`
}

// Service manages threshold overrides and resolves effective levels.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	cfg         config.Config
	repo        thresholddomain.Repository
	itemRepo    catalogdomain.Repository
	settingsSvc settingsdomain.Service

	outbox   *events.Outbox
	snapshot *cache.TTLCache[string, settingsdomain.Snapshot]
}

func NewService(p ServiceParam) thresholddomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("threshold.service"),
		genID:       p.GenID,
		cfg:         p.Config,
		repo:        p.Repo,
		itemRepo:    p.ItemRepo,
		settingsSvc: p.SettingsSvc,
		outbox:      p.Outbox,
		snapshot:    cache.NewTTLCache[string, settingsdomain.Snapshot](),
	}
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.StoreTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// mapStoreErr converts timeouts into ErrStoreUnavailable; domain sentinels
// pass through untouched.
func (s *Service) mapStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return thresholddomain.ErrStoreUnavailable
	}
	return err
}

// Resolve computes the item's effective levels. Precedence is strict: an
// active override wins verbatim; otherwise levels derive from active
// settings; otherwise all levels are zero with Source none. Setting bounds
// were validated at write time, so resolution never fails on that path.
func (s *Service) Resolve(ctx context.Context, itemID snowflake.ID, currentQuantity int64) (thresholddomain.Levels, thresholddomain.Source, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	override, err := s.repo.FindActiveByItem(ctx, s.db, itemID)
	if err == nil {
		return thresholddomain.Levels{
			Minimum: override.Minimum,
			Reorder: override.Reorder,
			Maximum: override.Maximum,
		}, thresholddomain.SourceOverride, nil
	}
	if !errors.Is(err, thresholddomain.ErrOverrideNotFound) {
		return thresholddomain.Levels{}, thresholddomain.SourceNone, s.mapStoreErr(err)
	}

	snapshot, err := s.settingsSnapshot(ctx)
	if err != nil {
		return thresholddomain.Levels{}, thresholddomain.SourceNone, s.mapStoreErr(err)
	}
	if !snapshot.Configured {
		return thresholddomain.Levels{}, thresholddomain.SourceNone, nil
	}

	return computeLevels(snapshot, currentQuantity), thresholddomain.SourceComputed, nil
}

// computeLevels derives levels from settings: percentages of current stock
// floored (minimum, reorder) or ceiled (maximum), never below the absolute
// floor for that level.
func computeLevels(snapshot settingsdomain.Snapshot, currentQuantity int64) thresholddomain.Levels {
	qty := currentQuantity
	if qty < 0 {
		qty = 0
	}
	return thresholddomain.Levels{
		Minimum: maxInt64(qty*snapshot.MinimumPct/100, snapshot.MinimumFloor),
		Reorder: maxInt64(qty*snapshot.ReorderPct/100, snapshot.ReorderFloor),
		Maximum: maxInt64(ceilPct(qty, snapshot.MaximumPct), snapshot.MaximumFloor),
	}
}

func ceilPct(qty, pct int64) int64 {
	product := qty * pct
	value := product / 100
	if product%100 != 0 {
		value++
	}
	return value
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func (s *Service) settingsSnapshot(ctx context.Context) (settingsdomain.Snapshot, error) {
	if cached, ok := s.snapshot.Get(settingsSnapshotKey); ok {
		return cached, nil
	}
	snapshot, err := s.settingsSvc.ThresholdSnapshot(ctx)
	if err != nil {
		return settingsdomain.Snapshot{}, err
	}
	s.snapshot.Set(settingsSnapshotKey, snapshot, s.cfg.SettingsCacheTTL)
	return snapshot, nil
}

func (s *Service) GetActive(ctx context.Context, itemID snowflake.ID) (*thresholddomain.Override, error) {
	if itemID == 0 {
		return nil, thresholddomain.ErrInvalidOverride
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	override, err := s.repo.FindActiveByItem(ctx, s.db, itemID)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return override, nil
}

func (s *Service) History(ctx context.Context, itemID snowflake.ID) ([]thresholddomain.Override, error) {
	if itemID == 0 {
		return nil, thresholddomain.ErrInvalidOverride
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	history, err := s.repo.ListByItem(ctx, s.db, itemID)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return history, nil
}

// Activate installs a new override, atomically deactivating any prior one.
func (s *Service) Activate(ctx context.Context, req thresholddomain.ActivateRequest) (*thresholddomain.Override, error) {
	if req.ItemID == 0 {
		return nil, thresholddomain.ErrInvalidOverride
	}
	if req.Minimum < 0 || req.Reorder < 0 || req.Maximum < 0 {
		return nil, thresholddomain.ErrInvalidOverride
	}
	if req.Maximum > 0 && (req.Minimum > req.Maximum || req.Reorder > req.Maximum) {
		return nil, thresholddomain.ErrInvalidOverride
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if _, err := s.itemRepo.FindByID(ctx, s.db, req.ItemID); err != nil {
		return nil, s.mapStoreErr(err)
	}

	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		actor = "system"
	}

	override := &thresholddomain.Override{
		ID:        s.genID.Generate(),
		ItemID:    req.ItemID,
		Minimum:   req.Minimum,
		Reorder:   req.Reorder,
		Maximum:   req.Maximum,
		Reason:    strings.TrimSpace(req.Reason),
		Active:    true,
		CreatedBy: actor,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Activate(ctx, tx, override); err != nil {
			return err
		}
		if s.outbox != nil {
			return s.outbox.PublishTx(ctx, tx, events.Event{
				Type:      events.EventOverrideChanged,
				DedupeKey: "override:" + override.ID.String(),
				Payload: map[string]any{
					"item_id": req.ItemID.String(),
					"minimum": req.Minimum,
					"reorder": req.Reorder,
					"maximum": req.Maximum,
					"actor":   actor,
					"action":  "activate",
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	s.log.Info("threshold override activated",
		zap.String("item_id", req.ItemID.String()),
		zap.String("actor", actor),
	)
	return override, nil
}

// Deactivate soft-disables the item's active override. The row survives for
// audit history.
func (s *Service) Deactivate(ctx context.Context, itemID snowflake.ID, actor string) error {
	if itemID == 0 {
		return thresholddomain.ErrInvalidOverride
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	return s.mapStoreErr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.Deactivate(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if !found {
			return thresholddomain.ErrOverrideNotFound
		}
		if s.outbox != nil {
			return s.outbox.PublishTx(ctx, tx, events.Event{
				Type:      events.EventOverrideChanged,
				DedupeKey: "override_off:" + itemID.String() + ":" + s.genID.Generate().String(),
				Payload: map[string]any{
					"item_id": itemID.String(),
					"actor":   strings.TrimSpace(actor),
					"action":  "deactivate",
				},
			})
		}
		return nil
	}))
}
