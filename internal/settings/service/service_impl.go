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

	"github.com/syedsanaulhaq/ims-v1-sub001/internal/clock"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/config"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/events"
	settingsdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/domain"
)

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   settingsdomain.Repository
	Outbox *events.Outbox            `optional:"true"`
}

// Service enforces value bounds and keeps the change log in lockstep with
// the live value.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clk    clock.Clock
	cfg    config.Config
	repo   settingsdomain.Repository
	outbox *events.Outbox
}

func NewService(p ServiceParam) settingsdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("settings.service"),
		genID:  p.GenID,
		clk:    p.Clock,
		cfg:    p.Config,
		repo:   p.Repo,
		outbox: p.Outbox,
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
		return settingsdomain.ErrStoreUnavailable
	}
	return err
}

func (s *Service) Get(ctx context.Context, name string) (*settingsdomain.Setting, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, settingsdomain.ErrInvalidSetting
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	setting, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return setting, nil
}

func (s *Service) List(ctx context.Context) ([]settingsdomain.Setting, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	all, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return all, nil
}

// Update validates the new value against the setting's declared bounds and,
// inside one transaction, bumps the value and appends the change row. An
// out-of-bounds value leaves both the value and the log untouched.
func (s *Service) Update(ctx context.Context, req settingsdomain.UpdateRequest) (*settingsdomain.Setting, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, settingsdomain.ErrInvalidSetting
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		actor = "system"
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	var updated *settingsdomain.Setting
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		setting, err := s.repo.FindByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if req.Value < setting.MinValue || req.Value > setting.MaxValue {
			return settingsdomain.ErrSettingOutOfBounds
		}
		if req.Value == setting.Value {
			updated = setting
			return nil
		}

		oldValue := setting.Value
		next := *setting
		next.Value = req.Value
		next.UpdatedBy = actor
		next.Version = setting.Version + 1

		ok, err := s.repo.UpdateValueCAS(ctx, tx, &next, setting.Version)
		if err != nil {
			return err
		}
		if !ok {
			return settingsdomain.ErrSettingConflict
		}

		change := &settingsdomain.SettingChange{
			ID:        s.genID.Generate(),
			SettingID: setting.ID,
			Name:      name,
			OldValue:  oldValue,
			NewValue:  req.Value,
			Actor:     actor,
			Reason:    strings.TrimSpace(req.Reason),
			CreatedAt: s.clk.Now(),
		}
		if err := s.repo.InsertChange(ctx, tx, change); err != nil {
			return err
		}

		if s.outbox != nil {
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type:      events.EventSettingChanged,
				DedupeKey: "setting:" + change.ID.String(),
				Payload: map[string]any{
					"name":      name,
					"old_value": oldValue,
					"new_value": req.Value,
					"actor":     actor,
				},
			}); err != nil {
				return err
			}
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	s.log.Info("setting updated",
		zap.String("name", name),
		zap.Int64("value", updated.Value),
		zap.String("actor", actor),
	)
	return updated, nil
}

func (s *Service) Changes(ctx context.Context, name string, limit int) ([]settingsdomain.SettingChange, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, settingsdomain.ErrInvalidSetting
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	changes, err := s.repo.ListChanges(ctx, s.db, name, limit)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return changes, nil
}

// ThresholdSnapshot reads the six threshold settings in one pass. Missing or
// inactive settings yield an unconfigured snapshot, which downgrades
// classification rather than failing it.
func (s *Service) ThresholdSnapshot(ctx context.Context) (settingsdomain.Snapshot, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	all, err := s.repo.List(ctx, s.db)
	if err != nil {
		return settingsdomain.Snapshot{}, s.mapStoreErr(err)
	}

	byName := make(map[string]settingsdomain.Setting, len(all))
	for _, setting := range all {
		if setting.Active {
			byName[setting.Name] = setting
		}
	}

	required := []string{
		settingsdomain.SettingMinimumStockPct,
		settingsdomain.SettingReorderStockPct,
		settingsdomain.SettingMaximumStockPct,
	}
	for _, name := range required {
		if _, ok := byName[name]; !ok {
			return settingsdomain.Snapshot{}, nil
		}
	}

	snapshot := settingsdomain.Snapshot{
		Configured:   true,
		MinimumPct:   byName[settingsdomain.SettingMinimumStockPct].Value,
		ReorderPct:   byName[settingsdomain.SettingReorderStockPct].Value,
		MaximumPct:   byName[settingsdomain.SettingMaximumStockPct].Value,
		MinimumFloor: byName[settingsdomain.SettingMinimumStockFloor].Value,
		ReorderFloor: byName[settingsdomain.SettingReorderStockFloor].Value,
		MaximumFloor: byName[settingsdomain.SettingMaximumStockFloor].Value,
	}
	return snapshot, nil
}
