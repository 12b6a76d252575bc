package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	billingsettingsdomain "github.com/clubworks/clubledger/internal/billingsettings/domain"
)

func (s *Server) getBillingSettings(c *gin.Context) {
	orgID, ok := orgIDFromPath(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	settings, err := s.settingsSvc.Get(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (s *Server) updateBillingSettings(c *gin.Context) {
	orgID, ok := orgIDFromPath(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req billingsettingsdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	settings, err := s.settingsSvc.Update(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}
