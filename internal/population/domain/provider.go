// Package domain defines the billable population contract: who owes what
// kind of charge for a given billing period. The roster and attendance data
// behind it is consumed read-only.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/clubworks/clubledger/internal/billingcycle"
	settingsdomain "github.com/clubworks/clubledger/internal/billingsettings/domain"
	rosterdomain "github.com/clubworks/clubledger/internal/roster/domain"
)

// EntryKind is the kind of charge a population entry calls for.
type EntryKind string

const (
	EntryKindMembership EntryKind = "membership"
	EntryKindSession    EntryKind = "session"
)

// Entry is one payer owing one charge in a cycle. GameID is set only for
// session entries.
type Entry struct {
	Payer  rosterdomain.PayerRef `json:"payer"`
	Kind   EntryKind             `json:"kind"`
	GameID *snowflake.ID         `json:"game_id,omitempty"`
}

// Provider computes the billable population for one organization and cycle.
//
// Membership entries: active monthly members, when the billing mode includes
// membership billing. Session entries: payers marked billable for a game
// starting inside the period; guests are always billable and only ever
// produce session entries, regardless of billing mode.
type Provider interface {
	BillablePopulation(ctx context.Context, orgID snowflake.ID, settings settingsdomain.BillingSettings, cycle billingcycle.Cycle) ([]Entry, error)
}
