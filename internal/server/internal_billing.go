package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// runBillingSweep triggers one generation sweep across all organizations,
// the same pass the scheduler runs on its interval.
func (s *Server) runBillingSweep(c *gin.Context) {
	if s.scheduler == nil {
		AbortWithError(c, ErrInternal)
		return
	}

	if err := s.scheduler.RunOnce(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
