// Package repository persists movement events and stock records through gorm.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	ledgerdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/domain"
)

// Repository exposes the storage operations the ledger service composes
// inside its transactions.
type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *ledgerdomain.MovementEvent) error
	FindEventByKey(ctx context.Context, db *gorm.DB, eventKey string) (*ledgerdomain.MovementEvent, error)
	GetRecord(ctx context.Context, db *gorm.DB, itemID snowflake.ID) (*ledgerdomain.StockRecord, error)
	InsertRecord(ctx context.Context, db *gorm.DB, record *ledgerdomain.StockRecord) error
	UpdateRecordCAS(ctx context.Context, db *gorm.DB, record *ledgerdomain.StockRecord, expectedVersion int64) (bool, error)
	SumEvents(ctx context.Context, db *gorm.DB, itemID snowflake.ID) (int64, error)
	ListRecordsByAvailable(ctx context.Context, db *gorm.DB, afterAvailable *int64, afterItemID snowflake.ID, limit int) ([]ledgerdomain.StockRecord, error)
}

type gormRepository struct{}

// Provide constructs the gorm-backed ledger repository.
func Provide() Repository {
	return &gormRepository{}
}

func (r *gormRepository) InsertEvent(ctx context.Context, db *gorm.DB, event *ledgerdomain.MovementEvent) error {
	err := db.WithContext(ctx).Create(event).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ledgerdomain.ErrDuplicateEvent
	}
	return err
}

func (r *gormRepository) FindEventByKey(ctx context.Context, db *gorm.DB, eventKey string) (*ledgerdomain.MovementEvent, error) {
	var event ledgerdomain.MovementEvent
	err := db.WithContext(ctx).Where("event_key = ?", eventKey).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *gormRepository) GetRecord(ctx context.Context, db *gorm.DB, itemID snowflake.ID) (*ledgerdomain.StockRecord, error) {
	var record ledgerdomain.StockRecord
	err := db.WithContext(ctx).Where("item_id = ?", itemID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgerdomain.ErrStockNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *gormRepository) InsertRecord(ctx context.Context, db *gorm.DB, record *ledgerdomain.StockRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

// UpdateRecordCAS writes the record guarded by the expected version. It
// returns false without error when another writer won the race.
func (r *gormRepository) UpdateRecordCAS(ctx context.Context, db *gorm.DB, record *ledgerdomain.StockRecord, expectedVersion int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE stock_records
		 SET current_quantity = ?, reserved_quantity = ?, last_movement_at = ?,
		     version = ?, updated_at = ?
		 WHERE item_id = ? AND version = ?`,
		record.CurrentQuantity,
		record.ReservedQuantity,
		record.LastMovementAt,
		record.Version,
		time.Now().UTC(),
		record.ItemID,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) SumEvents(ctx context.Context, db *gorm.DB, itemID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(quantity), 0) FROM stock_movements WHERE item_id = ?`,
		itemID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ListRecordsByAvailable pages stock records by ascending available quantity
// using a keyset so callers can restart a scan where they left off.
func (r *gormRepository) ListRecordsByAvailable(ctx context.Context, db *gorm.DB, afterAvailable *int64, afterItemID snowflake.ID, limit int) ([]ledgerdomain.StockRecord, error) {
	if limit <= 0 {
		limit = 200
	}

	query := db.WithContext(ctx).Model(&ledgerdomain.StockRecord{})
	if afterAvailable != nil {
		query = query.Where(
			`(current_quantity - reserved_quantity) > ?
			 OR ((current_quantity - reserved_quantity) = ? AND item_id > ?)`,
			*afterAvailable, *afterAvailable, afterItemID,
		)
	}

	var records []ledgerdomain.StockRecord
	err := query.
		Order("(current_quantity - reserved_quantity) ASC, item_id ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
