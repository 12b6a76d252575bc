package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	rosterdomain "github.com/clubworks/clubledger/internal/roster/domain"
	"github.com/clubworks/clubledger/pkg/db/pagination"
)

// GenerateRequest triggers charge generation for one organization. CycleKey
// optionally targets a specific period; empty means the period containing
// the current time.
type GenerateRequest struct {
	CycleKey string `json:"cycle_key,omitempty"`
}

// GenerateResult reports one generation run. Failed counts population
// entries skipped because the payer was not eligible; the rest of the batch
// still proceeds.
type GenerateResult struct {
	CycleKey string `json:"cycle_key"`
	Created  int    `json:"created"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// ListRequest filters charges; zero values mean no filter.
type ListRequest struct {
	CycleKey  string
	Status    ChargeStatus
	PayerKind rosterdomain.PayerKind
	PayerID   snowflake.ID
	pagination.Pagination
}

type ListResponse struct {
	Data     []*Charge            `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

type Service interface {
	// Generate ensures exactly one charge per (payer, cycle, type) for the
	// resolved cycle. Safe to call repeatedly and concurrently.
	Generate(ctx context.Context, orgID snowflake.ID, req GenerateRequest) (GenerateResult, error)
	// List returns charges newest first with cursor pagination.
	List(ctx context.Context, orgID snowflake.ID, req ListRequest) (ListResponse, error)
	// MarkPaid settles a PENDING charge, writing its income ledger entry in
	// the same transaction.
	MarkPaid(ctx context.Context, orgID snowflake.ID, chargeID snowflake.ID) (Charge, error)
	// MarkVoid cancels a PENDING charge. No ledger effect.
	MarkVoid(ctx context.Context, orgID snowflake.ID, chargeID snowflake.ID) (Charge, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrChargeNotFound      = errors.New("charge_not_found")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrPayerNotEligible    = errors.New("payer_not_eligible")
	ErrStorageConflict     = errors.New("storage_conflict")
	ErrInvalidStatusFilter = errors.New("invalid_status_filter")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)
