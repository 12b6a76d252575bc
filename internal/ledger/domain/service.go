package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clubworks/clubledger/pkg/db/pagination"
)

// AppendRequest posts one manual entry to the organization ledger.
type AppendRequest struct {
	EntryType   EntryType `json:"entry_type"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	OccurredAt  string    `json:"occurred_at,omitempty"` // YYYY-MM-DD, defaults to today
}

// QueryRequest filters entries by occurrence date, newest first.
type QueryRequest struct {
	From *time.Time
	To   *time.Time
	pagination.Pagination
}

type QueryResponse struct {
	Data     []*LedgerEntry       `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

// Summary is the running totals of an organization's ledger.
type Summary struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

type Service interface {
	// Append posts a manual entry. Charge settlement posts its own entries
	// inside the settlement transaction and does not go through here.
	Append(ctx context.Context, orgID snowflake.ID, req AppendRequest) (LedgerEntry, error)
	// Query lists entries newest first with cursor pagination.
	Query(ctx context.Context, orgID snowflake.ID, req QueryRequest) (QueryResponse, error)
	// Summarize returns income, expense and balance over entries whose
	// occurrence date falls in [from, to]; nil bounds mean unbounded.
	Summarize(ctx context.Context, orgID snowflake.ID, from, to *time.Time) (Summary, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidEntryType    = errors.New("invalid_entry_type")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidDescription  = errors.New("invalid_description")
	ErrInvalidOccurredAt   = errors.New("invalid_occurred_at")
	ErrInvalidDateRange    = errors.New("invalid_date_range")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)
