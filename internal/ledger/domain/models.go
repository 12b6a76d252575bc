// Package domain contains the organization ledger models. The ledger is
// append-only: entries are never updated or deleted, corrections are posted
// as compensating entries.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryType classifies the direction of a ledger entry.
type EntryType string

const (
	EntryTypeIncome  EntryType = "INCOME"
	EntryTypeExpense EntryType = "EXPENSE"
)

// LedgerEntry is one immutable money movement. Amount is always positive in
// minor currency units; the entry type carries the sign.
type LedgerEntry struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID  `gorm:"not null;index:idx_ledger_org_occurred,priority:1" json:"org_id"`
	EntryType   EntryType     `gorm:"type:text;not null" json:"entry_type"`
	Amount      int64         `gorm:"not null" json:"amount"`
	Description string        `gorm:"type:text;not null" json:"description"`
	OccurredAt  time.Time     `gorm:"not null;index:idx_ledger_org_occurred,priority:2" json:"occurred_at"`
	ChargeID    *snowflake.ID `gorm:"index" json:"charge_id,omitempty"`
	CreatedBy   *string       `gorm:"type:text" json:"created_by,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }
