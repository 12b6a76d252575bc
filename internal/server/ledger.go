package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/clubworks/clubledger/internal/ledger/domain"
	"github.com/clubworks/clubledger/pkg/db/pagination"
)

func (s *Server) listLedgerEntries(c *gin.Context) {
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

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.ledgerSvc.Query(c.Request.Context(), orgID, ledgerdomain.QueryRequest{
		From:       from,
		To:         to,
		Pagination: page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) appendLedgerEntry(c *gin.Context) {
	orgID, ok := orgIDFromPath(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req ledgerdomain.AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	entry, err := s.ledgerSvc.Append(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (s *Server) ledgerSummary(c *gin.Context) {
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

	summary, err := s.ledgerSvc.Summarize(c.Request.Context(), orgID, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
