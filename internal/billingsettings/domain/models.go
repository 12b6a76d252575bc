// Package domain contains the billing configuration model for an organization.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingMode selects which charge types an organization generates.
type BillingMode string

const (
	BillingModeMembership BillingMode = "MEMBERSHIP"
	BillingModePerSession BillingMode = "PER_SESSION"
	BillingModeHybrid     BillingMode = "HYBRID"
)

// CycleType selects how billing periods are laid out.
type CycleType string

const (
	CycleMonthly     CycleType = "MONTHLY"
	CycleWeekly      CycleType = "WEEKLY"
	CycleCustomWeeks CycleType = "CUSTOM_WEEKS"
)

// BillingSettings holds one organization's billing configuration. Amounts are
// minor currency units. SettingsVersion increases on every update and is
// stamped onto generated charges, so later edits never rewrite history.
type BillingSettings struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID `gorm:"not null;uniqueIndex:ux_billing_settings_org" json:"org_id"`
	BillingMode      BillingMode  `gorm:"type:text;not null;default:'HYBRID'" json:"billing_mode"`
	Cycle            CycleType    `gorm:"type:text;not null;default:'MONTHLY'" json:"cycle"`
	CycleWeeks       *int         `gorm:"" json:"cycle_weeks,omitempty"`
	AnchorDate       time.Time    `gorm:"not null" json:"anchor_date"`
	DueDay           int          `gorm:"not null;default:1" json:"due_day"`
	MembershipAmount int64        `gorm:"not null;default:0" json:"membership_amount"`
	SessionAmount    int64        `gorm:"not null;default:0" json:"session_amount"`
	SettingsVersion  int64        `gorm:"not null;default:1" json:"settings_version"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BillingSettings) TableName() string { return "org_billing_settings" }

// Validate checks the cycle configuration invariants.
func (s BillingSettings) Validate() error {
	switch s.BillingMode {
	case BillingModeMembership, BillingModePerSession, BillingModeHybrid:
	default:
		return ErrInvalidBillingMode
	}

	switch s.Cycle {
	case CycleMonthly:
		if s.DueDay < 1 || s.DueDay > 31 {
			return ErrDueDayOutOfRange
		}
	case CycleWeekly:
		// Due day is a day-of-window offset here, never silently wrapped.
		if s.DueDay < 1 || s.DueDay > 7 {
			return ErrDueDayOutOfRange
		}
	case CycleCustomWeeks:
		if s.CycleWeeks == nil || *s.CycleWeeks <= 0 {
			return ErrCycleWeeksRequired
		}
		// Day-of-window offset, capped at 31 so long windows cannot push the
		// due day past the day-of-month range.
		limit := *s.CycleWeeks * 7
		if limit > 31 {
			limit = 31
		}
		if s.DueDay < 1 || s.DueDay > limit {
			return ErrDueDayOutOfRange
		}
	default:
		return ErrInvalidCycle
	}

	if s.Cycle != CycleCustomWeeks && s.CycleWeeks != nil {
		return ErrCycleWeeksNotAllowed
	}
	if s.AnchorDate.IsZero() {
		return ErrInvalidAnchorDate
	}
	if s.MembershipAmount < 0 || s.SessionAmount < 0 {
		return ErrInvalidAmount
	}
	return nil
}
