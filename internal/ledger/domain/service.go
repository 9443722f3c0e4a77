package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrUnknownItem         = errors.New("unknown_item")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidKind         = errors.New("invalid_kind")
	ErrInvalidEventKey     = errors.New("invalid_event_key")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOccurredAt   = errors.New("invalid_occurred_at")
	ErrDuplicateEvent      = errors.New("duplicate_event")
	ErrInsufficientStock   = errors.New("insufficient_stock")
	ErrInvalidReservation  = errors.New("invalid_reservation")
	ErrStockNotFound       = errors.New("stock_not_found")
	ErrConcurrencyConflict = errors.New("concurrency_conflict")
	ErrStoreUnavailable    = errors.New("store_unavailable")
	ErrIntegrityFault      = errors.New("integrity_fault")
)

// ApplyRequest carries one movement event submission.
type ApplyRequest struct {
	EventKey     string
	ItemID       snowflake.ID
	Kind         MovementKind
	Quantity     int64
	ReserveDelta int64
	Correcting   bool
	OccurredAt   time.Time
	SourceRef    string
	Actor        string
	Metadata     map[string]any
}

// StockPredicate filters stock records in listings.
type StockPredicate func(StockRecord) bool

// Service is the ledger's aggregate contract. ApplyMovement is idempotent
// under EventKey: a duplicate returns the unchanged record together with
// ErrDuplicateEvent, which callers treat as a no-op rather than a failure.
type Service interface {
	ApplyMovement(ctx context.Context, req ApplyRequest) (*StockRecord, error)
	GetStock(ctx context.Context, itemID snowflake.ID) (*StockRecord, error)
	RecomputeFromEvents(ctx context.Context, itemID snowflake.ID, repair bool) (*RecomputeResult, error)
	ListLowStock(ctx context.Context, pred StockPredicate) ([]StockRecord, error)
}
