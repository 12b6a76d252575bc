package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// UpdateRequest carries a full replacement of an organization's settings.
type UpdateRequest struct {
	BillingMode      BillingMode `json:"billing_mode"`
	Cycle            CycleType   `json:"cycle"`
	CycleWeeks       *int        `json:"cycle_weeks,omitempty"`
	AnchorDate       string      `json:"anchor_date"`
	DueDay           int         `json:"due_day"`
	MembershipAmount int64       `json:"membership_amount"`
	SessionAmount    int64       `json:"session_amount"`
}

type Service interface {
	// Get returns the organization's settings, creating defaults on first read.
	Get(ctx context.Context, orgID snowflake.ID) (BillingSettings, error)
	// Update validates and replaces the settings, bumping SettingsVersion.
	Update(ctx context.Context, orgID snowflake.ID, req UpdateRequest) (BillingSettings, error)
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidBillingMode   = errors.New("invalid_billing_mode")
	ErrInvalidCycle         = errors.New("invalid_cycle")
	ErrDueDayOutOfRange     = errors.New("invalid_due_day")
	ErrCycleWeeksRequired   = errors.New("invalid_cycle_weeks")
	ErrCycleWeeksNotAllowed = errors.New("invalid_cycle_weeks_present")
	ErrInvalidAnchorDate    = errors.New("invalid_anchor_date")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrStorageConflict      = errors.New("storage_conflict")
)
