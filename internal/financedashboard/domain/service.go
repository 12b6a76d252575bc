// Package domain defines the read-only finance dashboard composition.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/clubworks/clubledger/internal/charge/domain"
	ledgerdomain "github.com/clubworks/clubledger/internal/ledger/domain"
)

// ChargeTotals sums charge amounts inside the requested range: PENDING
// charges by due date, PAID charges by payment date.
type ChargeTotals struct {
	PendingTotal int64 `json:"pending_total"`
	PendingCount int64 `json:"pending_count"`
	PaidTotal    int64 `json:"paid_total"`
	PaidCount    int64 `json:"paid_count"`
}

// RecentActivity is the latest ledger entries and charges, unfiltered by the
// range, for quick inspection.
type RecentActivity struct {
	Ledger  []*ledgerdomain.LedgerEntry `json:"ledger"`
	Charges []*chargedomain.Charge      `json:"charges"`
}

// Dashboard composes the ledger summary, charge totals and recent activity.
type Dashboard struct {
	Summary ledgerdomain.Summary `json:"summary"`
	Charges ChargeTotals         `json:"charges"`
	Recent  RecentActivity       `json:"recent"`
}

type Service interface {
	// Dashboard aggregates reporting data for [from, to]; nil bounds mean
	// unbounded. Performs no writes.
	Dashboard(ctx context.Context, orgID snowflake.ID, from, to *time.Time) (Dashboard, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidDateRange    = errors.New("invalid_date_range")
)
