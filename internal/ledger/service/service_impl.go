package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/clock"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/config"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/events"
	ledgerdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/domain"
	ledgerrepo "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/repository"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/observability/metrics"
)

// errCASRetry signals a lost optimistic-lock race inside the apply loop.
var errCASRetry = errors.New("cas_retry")

const listBatchSize = 200

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   config.Config
	ItemRepo catalogdomain.Repository
	Repo     ledgerrepo.Repository
	Outbox   *events.Outbox           `optional:"true"`
	Metrics  *metrics.LedgerMetrics   `optional:"true"`
}

// Service maintains the per-item stock aggregate from movement events.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clk   clock.Clock
	cfg   config.Config

	itemRepo catalogdomain.Repository
	repo     ledgerrepo.Repository
	outbox   *events.Outbox
	metrics  *metrics.LedgerMetrics
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clk:   p.Clock,
		cfg:   p.Config,

		itemRepo: p.ItemRepo,
		repo:     p.Repo,
		outbox:   p.Outbox,
		metrics:  p.Metrics,
	}
}

// ApplyMovement validates and applies one movement event. Application is
// idempotent under EventKey: a resubmitted event returns the unchanged
// record with ErrDuplicateEvent so stock is never double-counted.
func (s *Service) ApplyMovement(ctx context.Context, req ledgerdomain.ApplyRequest) (*ledgerdomain.StockRecord, error) {
	start := time.Now()
	record, err := s.applyMovement(ctx, req)
	s.observeApply(req.Kind, err, time.Since(start))
	return record, err
}

func (s *Service) applyMovement(ctx context.Context, req ledgerdomain.ApplyRequest) (*ledgerdomain.StockRecord, error) {
	if err := ledgerdomain.ValidateApply(req); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if _, err := s.itemRepo.FindByID(ctx, s.db, req.ItemID); err != nil {
		if errors.Is(err, catalogdomain.ErrItemNotFound) {
			return nil, ledgerdomain.ErrUnknownItem
		}
		return nil, s.mapStoreErr(err)
	}

	retries := s.cfg.MovementRetries
	if retries <= 0 {
		retries = 5
	}

	for attempt := 0; attempt < retries; attempt++ {
		record, err := s.applyOnce(ctx, req)
		switch {
		case err == nil:
			return record, nil
		case errors.Is(err, errCASRetry):
			if s.metrics != nil {
				s.metrics.IncCASConflict()
			}
			continue
		case errors.Is(err, ledgerdomain.ErrDuplicateEvent):
			// Answer from the original event, not the resubmission: a replay
			// carrying a different item id still reports the item the key
			// was first applied to.
			itemID := req.ItemID
			original, findErr := s.repo.FindEventByKey(ctx, s.db, req.EventKey)
			if findErr != nil {
				return nil, s.mapStoreErr(findErr)
			}
			if original != nil {
				itemID = original.ItemID
			}
			existing, getErr := s.repo.GetRecord(ctx, s.db, itemID)
			if getErr != nil {
				return nil, s.mapStoreErr(getErr)
			}
			return existing, ledgerdomain.ErrDuplicateEvent
		default:
			return nil, s.mapStoreErr(err)
		}
	}

	s.log.Warn("movement apply exhausted retries",
		zap.String("event_key", req.EventKey),
		zap.String("item_id", req.ItemID.String()),
		zap.Int("retries", retries),
	)
	return nil, ledgerdomain.ErrConcurrencyConflict
}

func (s *Service) applyOnce(ctx context.Context, req ledgerdomain.ApplyRequest) (*ledgerdomain.StockRecord, error) {
	var applied ledgerdomain.StockRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clk.Now()

		event := &ledgerdomain.MovementEvent{
			ID:           s.genID.Generate(),
			EventKey:     req.EventKey,
			ItemID:       req.ItemID,
			Kind:         req.Kind,
			Quantity:     req.Quantity,
			ReserveDelta: req.ReserveDelta,
			Correcting:   req.Correcting,
			OccurredAt:   req.OccurredAt.UTC(),
			SourceRef:    req.SourceRef,
			Actor:        req.Actor,
			CreatedAt:    now,
		}
		if req.Metadata != nil {
			event.Metadata = datatypes.JSONMap(req.Metadata)
		}
		if err := s.repo.InsertEvent(ctx, tx, event); err != nil {
			return err
		}

		record, err := s.repo.GetRecord(ctx, tx, req.ItemID)
		if errors.Is(err, ledgerdomain.ErrStockNotFound) {
			record = &ledgerdomain.StockRecord{
				ItemID:    req.ItemID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if insErr := s.repo.InsertRecord(ctx, tx, record); insErr != nil {
				if errors.Is(insErr, gorm.ErrDuplicatedKey) {
					return errCASRetry
				}
				return insErr
			}
		} else if err != nil {
			return err
		}

		next := *record
		next.CurrentQuantity += req.Quantity
		next.ReservedQuantity += req.ReserveDelta
		movedAt := req.OccurredAt.UTC()
		next.LastMovementAt = &movedAt

		if next.CurrentQuantity < 0 && !(req.Kind == ledgerdomain.MovementKindAdjustment && req.Correcting) {
			return ledgerdomain.ErrInsufficientStock
		}
		if next.ReservedQuantity < 0 {
			return ledgerdomain.ErrInvalidReservation
		}

		expected := record.Version
		next.Version = expected + 1
		ok, err := s.repo.UpdateRecordCAS(ctx, tx, &next, expected)
		if err != nil {
			return err
		}
		if !ok {
			return errCASRetry
		}

		if s.outbox != nil {
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type:      events.EventMovementApplied,
				DedupeKey: req.EventKey,
				Payload: map[string]any{
					"event_id":         event.ID.String(),
					"item_id":          req.ItemID.String(),
					"kind":             string(req.Kind),
					"quantity":         req.Quantity,
					"current_quantity": next.CurrentQuantity,
					"version":          next.Version,
				},
			}); err != nil {
				return err
			}
		}

		applied = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &applied, nil
}

// GetStock returns the current aggregate snapshot for an item.
func (s *Service) GetStock(ctx context.Context, itemID snowflake.ID) (*ledgerdomain.StockRecord, error) {
	if itemID == 0 {
		return nil, ledgerdomain.ErrUnknownItem
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.repo.GetRecord(ctx, s.db, itemID)
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrStockNotFound) {
			return nil, err
		}
		return nil, s.mapStoreErr(err)
	}
	return record, nil
}

// RecomputeFromEvents replays every accepted movement for the item and
// compares the sum against the incrementally maintained value. Divergence is
// an integrity fault: it is logged and surfaced, and the incremental value is
// only overwritten when the caller explicitly asks for repair.
func (s *Service) RecomputeFromEvents(ctx context.Context, itemID snowflake.ID, repair bool) (*ledgerdomain.RecomputeResult, error) {
	if itemID == 0 {
		return nil, ledgerdomain.ErrUnknownItem
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	var result *ledgerdomain.RecomputeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.repo.GetRecord(ctx, tx, itemID)
		if err != nil {
			return err
		}

		replayed, err := s.repo.SumEvents(ctx, tx, itemID)
		if err != nil {
			return err
		}

		result = &ledgerdomain.RecomputeResult{
			ItemID:      itemID,
			Incremental: record.CurrentQuantity,
			Replayed:    replayed,
			Drift:       record.CurrentQuantity != replayed,
			Record:      record,
		}
		if !result.Drift {
			return nil
		}

		if s.metrics != nil {
			s.metrics.IncDrift()
		}
		s.log.Error("stock drift detected",
			zap.String("item_id", itemID.String()),
			zap.Int64("incremental", record.CurrentQuantity),
			zap.Int64("replayed", replayed),
		)
		if s.outbox != nil {
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type:      events.EventDriftDetected,
				DedupeKey: "drift:" + itemID.String() + ":" + s.clk.Now().Format(time.RFC3339),
				Payload: map[string]any{
					"item_id":     itemID.String(),
					"incremental": record.CurrentQuantity,
					"replayed":    replayed,
				},
			}); err != nil {
				return err
			}
		}

		if !repair {
			return nil
		}

		next := *record
		next.CurrentQuantity = replayed
		next.Version = record.Version + 1
		ok, err := s.repo.UpdateRecordCAS(ctx, tx, &next, record.Version)
		if err != nil {
			return err
		}
		if !ok {
			return errCASRetry
		}
		result.Repaired = true
		result.Record = &next
		return nil
	})
	if err != nil {
		if errors.Is(err, errCASRetry) {
			return nil, ledgerdomain.ErrConcurrencyConflict
		}
		if errors.Is(err, ledgerdomain.ErrStockNotFound) {
			return nil, err
		}
		return nil, s.mapStoreErr(err)
	}

	if result.Drift && !result.Repaired {
		return result, ledgerdomain.ErrIntegrityFault
	}
	return result, nil
}

// ListLowStock scans stock records ordered by ascending available quantity,
// keeping those matching the predicate. The scan pages with a keyset so a
// consumer can restart from where it stopped.
func (s *Service) ListLowStock(ctx context.Context, pred ledgerdomain.StockPredicate) ([]ledgerdomain.StockRecord, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	var (
		matched        []ledgerdomain.StockRecord
		afterAvailable *int64
		afterItemID    snowflake.ID
	)
	for {
		batch, err := s.repo.ListRecordsByAvailable(ctx, s.db, afterAvailable, afterItemID, listBatchSize)
		if err != nil {
			return nil, s.mapStoreErr(err)
		}
		for _, record := range batch {
			if pred == nil || pred(record) {
				matched = append(matched, record)
			}
		}
		if len(batch) < listBatchSize {
			return matched, nil
		}
		last := batch[len(batch)-1]
		available := last.Available()
		afterAvailable = &available
		afterItemID = last.ItemID
	}
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.StoreTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// mapStoreErr keeps domain sentinels intact and converts timeouts into
// ErrStoreUnavailable so a slow store is never read as zero stock.
func (s *Service) mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledgerdomain.ErrDuplicateEvent),
		errors.Is(err, ledgerdomain.ErrInsufficientStock),
		errors.Is(err, ledgerdomain.ErrInvalidReservation),
		errors.Is(err, ledgerdomain.ErrStockNotFound),
		errors.Is(err, ledgerdomain.ErrUnknownItem):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ledgerdomain.ErrStoreUnavailable
	default:
		return err
	}
}

func (s *Service) observeApply(kind ledgerdomain.MovementKind, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	result := "applied"
	switch {
	case errors.Is(err, ledgerdomain.ErrDuplicateEvent):
		result = "duplicate"
	case err != nil:
		result = "rejected"
	}
	s.metrics.ObserveMovement(string(kind), result, elapsed.Seconds())
}
