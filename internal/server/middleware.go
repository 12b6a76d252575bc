package server

import (
	"crypto/subtle"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/clubworks/clubledger/internal/audit/domain"
	"github.com/clubworks/clubledger/internal/auditcontext"
	"github.com/clubworks/clubledger/internal/orgcontext"
)

const (
	// HeaderUser carries the authenticated user ID, injected by the edge
	// proxy after session validation. Authentication itself lives outside
	// this service.
	HeaderUser = "X-User-ID"

	// HeaderInternalKey guards the internal endpoints.
	HeaderInternalKey = "X-Internal-Key"
)

// ActorRequired resolves the acting user from the edge-injected header and
// stores it on the request context for authorization and auditing.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUser))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		userID, err := snowflake.ParseString(raw)
		if err != nil || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := auditcontext.WithActor(c.Request.Context(), auditdomain.ActorTypeUser, userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// OrgContext parses the org path parameter and stores it on the request
// context.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := snowflake.ParseString(strings.TrimSpace(c.Param("orgId")))
		if err != nil || orgID == 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// InternalAuth guards internal endpoints with the shared key and runs the
// request as the system principal.
func (s *Server) InternalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderInternalKey))
		if s.cfg.InternalKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.InternalKey)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := auditcontext.WithActor(c.Request.Context(), auditdomain.ActorTypeSystem, "internal")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func orgIDFromPath(c *gin.Context) (snowflake.ID, bool) {
	return orgcontext.OrgIDFromContext(c.Request.Context())
}
