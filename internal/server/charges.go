package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	chargedomain "github.com/clubworks/clubledger/internal/charge/domain"
	rosterdomain "github.com/clubworks/clubledger/internal/roster/domain"
	"github.com/clubworks/clubledger/pkg/db/pagination"
)

func (s *Server) generateCharges(c *gin.Context) {
	orgID, ok := orgIDFromPath(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req chargedomain.GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	result, err := s.chargeSvc.Generate(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) listCharges(c *gin.Context) {
	orgID, ok := orgIDFromPath(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	payerKind := rosterdomain.PayerKind(strings.TrimSpace(c.Query("payer_kind")))
	switch payerKind {
	case "", rosterdomain.PayerKindMember, rosterdomain.PayerKindGuest:
	default:
		AbortWithError(c, rosterdomain.ErrInvalidPayerKind)
		return
	}

	payerID, err := parseOptionalSnowflakeID(c.Query("payer_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := chargedomain.ListRequest{
		CycleKey:   strings.TrimSpace(c.Query("cycle_key")),
		Status:     chargedomain.ChargeStatus(strings.TrimSpace(c.Query("status"))),
		PayerKind:  payerKind,
		PayerID:    payerID,
		Pagination: page,
	}

	resp, err := s.chargeSvc.List(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) payCharge(c *gin.Context) {
	s.transitionCharge(c, s.chargeSvc.MarkPaid)
}

func (s *Server) voidCharge(c *gin.Context) {
	s.transitionCharge(c, s.chargeSvc.MarkVoid)
}

func (s *Server) transitionCharge(c *gin.Context, transition func(ctx context.Context, orgID, chargeID snowflake.ID) (chargedomain.Charge, error)) {
	orgID, ok := orgIDFromPath(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	chargeID, err := snowflake.ParseString(strings.TrimSpace(c.Param("chargeId")))
	if err != nil || chargeID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	charge, err := transition(c.Request.Context(), orgID, chargeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": charge})
}
