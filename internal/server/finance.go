package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/clubworks/clubledger/internal/billingcycle"
)

// getCurrentCycle resolves the billing period containing the reference date
// ("at" query parameter, default now) under the organization's settings.
func (s *Server) getCurrentCycle(c *gin.Context) {
	orgID, ok := orgIDFromPath(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	reference := time.Now().UTC()
	if at, err := parseOptionalTime(c.Query("at"), false); err != nil {
		AbortWithError(c, err)
		return
	} else if at != nil {
		reference = *at
	}

	settings, err := s.settingsSvc.Get(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	cycle, err := billingcycle.Resolve(settings, reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cycle})
}

func (s *Server) financeDashboard(c *gin.Context) {
	orgID, ok := orgIDFromPath(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dashboard, err := s.financeSvc.Dashboard(c.Request.Context(), orgID, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dashboard})
}
