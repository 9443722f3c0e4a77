package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	alertdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/alert/domain"
)

// ListAlerts returns the classified low-stock feed, most severe first.
func (s *Server) ListAlerts(c *gin.Context) {
	filter := alertdomain.Filter{
		Search: strings.TrimSpace(c.Query("search")),
	}

	if tier := strings.ToLower(strings.TrimSpace(c.Query("tier"))); tier != "" {
		t := alertdomain.Tier(tier)
		if !t.Valid() {
			AbortWithError(c, newValidationError("tier", "invalid_tier", "unknown alert tier"))
			return
		}
		filter.Tier = t
	}

	entries, err := s.alertFeed.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
