package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/clubworks/clubledger/internal/authorization"
	"github.com/clubworks/clubledger/internal/billingcycle"
	billingsettingsdomain "github.com/clubworks/clubledger/internal/billingsettings/domain"
	chargedomain "github.com/clubworks/clubledger/internal/charge/domain"
	financedomain "github.com/clubworks/clubledger/internal/financedashboard/domain"
	ledgerdomain "github.com/clubworks/clubledger/internal/ledger/domain"
	rosterdomain "github.com/clubworks/clubledger/internal/roster/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware converts errors collected on the gin context into
// one JSON error response after the handler chain finishes.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// isValidationError covers everything rejected before any state changes:
// malformed requests, bad cycle configuration and bad filters.
func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billingsettingsdomain.ErrInvalidBillingMode),
		errors.Is(err, billingsettingsdomain.ErrInvalidCycle),
		errors.Is(err, billingsettingsdomain.ErrDueDayOutOfRange),
		errors.Is(err, billingsettingsdomain.ErrCycleWeeksRequired),
		errors.Is(err, billingsettingsdomain.ErrCycleWeeksNotAllowed),
		errors.Is(err, billingsettingsdomain.ErrInvalidAnchorDate),
		errors.Is(err, billingsettingsdomain.ErrInvalidAmount),
		errors.Is(err, billingsettingsdomain.ErrInvalidOrganization),
		errors.Is(err, billingcycle.ErrInvalidCycleKey),
		errors.Is(err, ledgerdomain.ErrInvalidEntryType),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidDescription),
		errors.Is(err, ledgerdomain.ErrInvalidOccurredAt),
		errors.Is(err, ledgerdomain.ErrInvalidDateRange),
		errors.Is(err, ledgerdomain.ErrInvalidPageToken),
		errors.Is(err, ledgerdomain.ErrInvalidOrganization),
		errors.Is(err, chargedomain.ErrInvalidStatusFilter),
		errors.Is(err, chargedomain.ErrInvalidPageToken),
		errors.Is(err, chargedomain.ErrInvalidOrganization),
		errors.Is(err, rosterdomain.ErrInvalidPayerKind),
		errors.Is(err, financedomain.ErrInvalidDateRange),
		errors.Is(err, financedomain.ErrInvalidOrganization):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, chargedomain.ErrChargeNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, chargedomain.ErrInvalidTransition),
		errors.Is(err, chargedomain.ErrStorageConflict),
		errors.Is(err, billingsettingsdomain.ErrStorageConflict):
		return true
	default:
		return false
	}
}
