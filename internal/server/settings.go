package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	settingsdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/domain"
)

type updateSettingRequest struct {
	Value  int64  `json:"value"`
	Reason string `json:"reason"`
}

// ListSettings returns every setting row, active or not.
func (s *Server) ListSettings(c *gin.Context) {
	settings, err := s.settingsSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

// GetSetting returns one setting by name.
func (s *Server) GetSetting(c *gin.Context) {
	setting, err := s.settingsSvc.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": setting})
}

// UpdateSetting changes one setting's value after bounds validation and
// writes an immutable change-log row alongside.
func (s *Server) UpdateSetting(c *gin.Context) {
	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	name := strings.TrimSpace(c.Param("name"))
	setting, err := s.settingsSvc.Update(c.Request.Context(), settingsdomain.UpdateRequest{
		Name:   name,
		Value:  req.Value,
		Actor:  s.actor(c),
		Reason: strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "setting.update", "setting", &name, map[string]any{
		"value":  req.Value,
		"reason": req.Reason,
	})

	c.JSON(http.StatusOK, gin.H{"data": setting})
}

// ListSettingChanges returns the newest change-log rows for one setting.
func (s *Server) ListSettingChanges(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	changes, err := s.settingsSvc.Changes(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": changes})
}
