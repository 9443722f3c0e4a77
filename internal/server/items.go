package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
)

// ListItems lists item master rows with optional search and active filters.
func (s *Server) ListItems(c *gin.Context) {
	req := catalogdomain.ListRequest{
		Search: strings.TrimSpace(c.Query("search")),
	}

	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, newValidationError("active", "invalid_active", "active must be true or false"))
			return
		}
		req.Active = &active
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
			return
		}
		req.Limit = limit
	}

	items, err := s.itemRepo.List(c.Request.Context(), s.db, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// GetItem returns one item master row.
func (s *Server) GetItem(c *gin.Context) {
	id, err := parseSnowflake(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid item id"))
		return
	}

	item, err := s.itemRepo.FindByID(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}
