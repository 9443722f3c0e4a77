package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/domain"
)

type submitMovementRequest struct {
	EventID      string         `json:"event_id"`
	ItemID       string         `json:"item_id"`
	Kind         string         `json:"kind"`
	Quantity     int64          `json:"quantity"`
	ReserveDelta int64          `json:"reserve_delta"`
	Correcting   bool           `json:"correcting"`
	OccurredAt   time.Time      `json:"occurred_at"`
	SourceRef    string         `json:"source_ref"`
	Metadata     map[string]any `json:"metadata"`
}

// SubmitMovement accepts one movement event and returns the updated stock
// record. Resubmitting an event id is a no-op answered with the unchanged
// record and a duplicate marker.
func (s *Server) SubmitMovement(c *gin.Context) {
	var req submitMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	itemID, err := parseSnowflake(req.ItemID)
	if err != nil {
		AbortWithError(c, newValidationError("item_id", "invalid_item_id", "invalid item id"))
		return
	}

	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	record, err := s.ledgerSvc.ApplyMovement(c.Request.Context(), ledgerdomain.ApplyRequest{
		EventKey:     strings.TrimSpace(req.EventID),
		ItemID:       itemID,
		Kind:         ledgerdomain.MovementKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Quantity:     req.Quantity,
		ReserveDelta: req.ReserveDelta,
		Correcting:   req.Correcting,
		OccurredAt:   occurredAt,
		SourceRef:    strings.TrimSpace(req.SourceRef),
		Actor:        s.actor(c),
		Metadata:     req.Metadata,
	})
	if errors.Is(err, ledgerdomain.ErrDuplicateEvent) {
		c.JSON(http.StatusOK, gin.H{"data": record, "duplicate": true})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Stock changed; cached alert listings are stale.
	s.alertFeed.Invalidate()
	c.JSON(http.StatusOK, gin.H{"data": record})
}

// GetStock returns the current aggregate snapshot for one item.
func (s *Server) GetStock(c *gin.Context) {
	itemID, err := parseSnowflake(c.Param("item_id"))
	if err != nil {
		AbortWithError(c, newValidationError("item_id", "invalid_item_id", "invalid item id"))
		return
	}

	record, err := s.ledgerSvc.GetStock(c.Request.Context(), itemID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

// ListStock lists stock records by ascending available quantity. With
// low=true only records at or below the max_available cutoff are returned.
func (s *Server) ListStock(c *gin.Context) {
	var query struct {
		Low          bool   `form:"low"`
		MaxAvailable *int64 `form:"max_available"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var pred ledgerdomain.StockPredicate
	if query.Low {
		cutoff := int64(0)
		if query.MaxAvailable != nil {
			cutoff = *query.MaxAvailable
		}
		pred = func(record ledgerdomain.StockRecord) bool {
			return record.Available() <= cutoff
		}
	}

	records, err := s.ledgerSvc.ListLowStock(c.Request.Context(), pred)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

// Recompute replays the item's full movement log and reports both the
// incremental and replayed values. Drift is answered with 409 so callers
// cannot mistake a corrupted ledger for a healthy one; repair=true rewrites
// the incremental value from the replay.
func (s *Server) Recompute(c *gin.Context) {
	itemID, err := parseSnowflake(c.Param("item_id"))
	if err != nil {
		AbortWithError(c, newValidationError("item_id", "invalid_item_id", "invalid item id"))
		return
	}

	repair := strings.EqualFold(c.Query("repair"), "true")

	result, err := s.ledgerSvc.RecomputeFromEvents(c.Request.Context(), itemID, repair)
	if err != nil && !errors.Is(err, ledgerdomain.ErrIntegrityFault) {
		AbortWithError(c, err)
		return
	}

	if result.Repaired {
		s.alertFeed.Invalidate()
	}

	targetID := itemID.String()
	s.audit(c, "stock.recompute", "stock_record", &targetID, map[string]any{
		"repair":      repair,
		"drift":       result.Drift,
		"incremental": result.Incremental,
		"replayed":    result.Replayed,
	})

	if errors.Is(err, ledgerdomain.ErrIntegrityFault) {
		c.JSON(http.StatusConflict, gin.H{
			"data": result,
			"error": &apiError{
				Status:  http.StatusConflict,
				Code:    "integrity_fault",
				Message: "incremental value disagrees with replay",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func parseSnowflake(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		if err == nil {
			err = errors.New("zero id")
		}
		return 0, err
	}
	return id, nil
}
