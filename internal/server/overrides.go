package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
)

type activateOverrideRequest struct {
	Minimum int64  `json:"minimum"`
	Reorder int64  `json:"reorder"`
	Maximum int64  `json:"maximum"`
	Reason  string `json:"reason"`
}

// GetOverride returns the item's active override, or its override history
// with history=true.
func (s *Server) GetOverride(c *gin.Context) {
	itemID, err := parseSnowflake(c.Param("item_id"))
	if err != nil {
		AbortWithError(c, newValidationError("item_id", "invalid_item_id", "invalid item id"))
		return
	}

	if strings.EqualFold(c.Query("history"), "true") {
		history, err := s.thresholdSvc.History(c.Request.Context(), itemID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": history})
		return
	}

	override, err := s.thresholdSvc.GetActive(c.Request.Context(), itemID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": override})
}

// ActivateOverride replaces the item's active override with a new one.
func (s *Server) ActivateOverride(c *gin.Context) {
	itemID, err := parseSnowflake(c.Param("item_id"))
	if err != nil {
		AbortWithError(c, newValidationError("item_id", "invalid_item_id", "invalid item id"))
		return
	}

	var req activateOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	override, err := s.thresholdSvc.Activate(c.Request.Context(), thresholddomain.ActivateRequest{
		ItemID:  itemID,
		Minimum: req.Minimum,
		Reorder: req.Reorder,
		Maximum: req.Maximum,
		Reason:  strings.TrimSpace(req.Reason),
		Actor:   s.actor(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := itemID.String()
	s.audit(c, "override.activate", "threshold_override", &targetID, map[string]any{
		"minimum": req.Minimum,
		"reorder": req.Reorder,
		"maximum": req.Maximum,
		"reason":  req.Reason,
	})

	c.JSON(http.StatusOK, gin.H{"data": override})
}

// DeactivateOverride disables the item's active override so computed
// thresholds apply again.
func (s *Server) DeactivateOverride(c *gin.Context) {
	itemID, err := parseSnowflake(c.Param("item_id"))
	if err != nil {
		AbortWithError(c, newValidationError("item_id", "invalid_item_id", "invalid item id"))
		return
	}

	if err := s.thresholdSvc.Deactivate(c.Request.Context(), itemID, s.actor(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := itemID.String()
	s.audit(c, "override.deactivate", "threshold_override", &targetID, nil)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"item_id": itemID, "active": false}})
}
