// Package domain contains the charge model and its lifecycle contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	rosterdomain "github.com/clubworks/clubledger/internal/roster/domain"
)

// ChargeType distinguishes recurring membership fees from per-game fees.
type ChargeType string

const (
	ChargeTypeMembership ChargeType = "MEMBERSHIP"
	ChargeTypePerSession ChargeType = "PER_SESSION"
)

// ChargeStatus is the lifecycle state. PENDING is the only non-terminal
// state; PAID and VOID are frozen forever.
type ChargeStatus string

const (
	ChargeStatusPending ChargeStatus = "PENDING"
	ChargeStatusPaid    ChargeStatus = "PAID"
	ChargeStatusVoid    ChargeStatus = "VOID"
)

// Charge is one amount owed by one payer for one cycle. At most one
// non-VOID charge exists per (org, payer, cycle key, charge type); the
// partial unique index enforcing that lets a voided charge be regenerated.
// Amount is minor currency units, frozen at generation time together with
// the settings version that produced it.
type Charge struct {
	ID              snowflake.ID           `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID           `gorm:"not null;index" json:"org_id"`
	PayerKind       rosterdomain.PayerKind `gorm:"type:text;not null" json:"payer_kind"`
	PayerID         snowflake.ID           `gorm:"not null" json:"payer_id"`
	ChargeType      ChargeType             `gorm:"type:text;not null" json:"charge_type"`
	Status          ChargeStatus           `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	Amount          int64                  `gorm:"not null" json:"amount"`
	CycleKey        string                 `gorm:"type:text;not null;index" json:"cycle_key"`
	DueDate         time.Time              `gorm:"not null;index" json:"due_date"`
	SettingsVersion int64                  `gorm:"not null" json:"settings_version"`
	PaidAt          *time.Time             `gorm:"index" json:"paid_at,omitempty"`
	VoidedAt        *time.Time             `gorm:"" json:"voided_at,omitempty"`
	LedgerEntryID   *snowflake.ID          `gorm:"" json:"ledger_entry_id,omitempty"`
	CreatedAt       time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Charge) TableName() string { return "org_charges" }

// Payer returns the charge's payer reference.
func (c Charge) Payer() rosterdomain.PayerRef {
	return rosterdomain.PayerRef{Kind: c.PayerKind, ID: c.PayerID}
}
