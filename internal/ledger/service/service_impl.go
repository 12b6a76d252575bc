package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clubworks/clubledger/internal/audit/domain"
	"github.com/clubworks/clubledger/internal/auditcontext"
	"github.com/clubworks/clubledger/internal/authorization"
	"github.com/clubworks/clubledger/internal/clock"
	"github.com/clubworks/clubledger/internal/ledger/domain"
	"github.com/clubworks/clubledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Authz authorization.Service
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	authz authorization.Service
	audit auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
		authz: p.Authz,
		audit: p.Audit,
	}
}

func (s *Service) Append(ctx context.Context, orgID snowflake.ID, req domain.AppendRequest) (domain.LedgerEntry, error) {
	if orgID == 0 {
		return domain.LedgerEntry{}, domain.ErrInvalidOrganization
	}
	if err := s.authz.Authorize(ctx, auditcontext.Subject(ctx), orgID.String(), authorization.ObjectLedger, authorization.ActionLedgerAppend); err != nil {
		return domain.LedgerEntry{}, err
	}

	switch req.EntryType {
	case domain.EntryTypeIncome, domain.EntryTypeExpense:
	default:
		return domain.LedgerEntry{}, domain.ErrInvalidEntryType
	}
	if req.Amount <= 0 {
		return domain.LedgerEntry{}, domain.ErrInvalidAmount
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return domain.LedgerEntry{}, domain.ErrInvalidDescription
	}

	now := s.clock.Now()
	occurredAt := now
	if strings.TrimSpace(req.OccurredAt) != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.OccurredAt, time.UTC)
		if err != nil {
			return domain.LedgerEntry{}, domain.ErrInvalidOccurredAt
		}
		occurredAt = parsed
	}

	subject := auditcontext.Subject(ctx)
	entry := domain.LedgerEntry{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		EntryType:   req.EntryType,
		Amount:      req.Amount,
		Description: description,
		OccurredAt:  occurredAt,
		CreatedBy:   &subject,
		CreatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return domain.LedgerEntry{}, err
	}

	s.log.Info("ledger entry appended",
		zap.String("org_id", orgID.String()),
		zap.String("entry_type", string(entry.EntryType)),
		zap.Int64("amount", entry.Amount),
	)

	entryID := entry.ID.String()
	if err := s.audit.AuditLog(ctx, &orgID, "", nil, "ledger.appended", "ledger_entry", &entryID, map[string]any{
		"entry_type": string(entry.EntryType),
		"amount":     entry.Amount,
	}); err != nil {
		s.log.Warn("failed to audit ledger append", zap.Error(err))
	}

	return entry, nil
}

func (s *Service) Query(ctx context.Context, orgID snowflake.ID, req domain.QueryRequest) (domain.QueryResponse, error) {
	if orgID == 0 {
		return domain.QueryResponse{}, domain.ErrInvalidOrganization
	}
	if err := s.authz.Authorize(ctx, auditcontext.Subject(ctx), orgID.String(), authorization.ObjectLedger, authorization.ActionLedgerView); err != nil {
		return domain.QueryResponse{}, err
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return domain.QueryResponse{}, domain.ErrInvalidDateRange
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 10
	}

	query := s.db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("org_id = ?", orgID)

	if req.From != nil {
		query = query.Where("occurred_at >= ?", *req.From)
	}
	if req.To != nil {
		query = query.Where("occurred_at <= ?", *req.To)
	}

	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.QueryResponse{}, domain.ErrInvalidPageToken
		}
		occurredAt, err := time.Parse(time.RFC3339Nano, cursor.OccurredAt)
		if err != nil {
			return domain.QueryResponse{}, domain.ErrInvalidPageToken
		}
		lastID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.QueryResponse{}, domain.ErrInvalidPageToken
		}
		query = query.Where("(occurred_at < ?) OR (occurred_at = ? AND id < ?)", occurredAt, occurredAt, lastID)
	}

	var entries []*domain.LedgerEntry
	if err := query.
		Order("occurred_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&entries).Error; err != nil {
		return domain.QueryResponse{}, err
	}

	pageInfo, entries := pagination.BuildCursorPageInfo(entries, limit, func(entry *domain.LedgerEntry) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:         entry.ID.String(),
			OccurredAt: entry.OccurredAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	return domain.QueryResponse{Data: entries, PageInfo: pageInfo}, nil
}

// Summarize totals entries with an occurrence date in [from, to], boundaries
// included.
func (s *Service) Summarize(ctx context.Context, orgID snowflake.ID, from, to *time.Time) (domain.Summary, error) {
	if orgID == 0 {
		return domain.Summary{}, domain.ErrInvalidOrganization
	}
	if err := s.authz.Authorize(ctx, auditcontext.Subject(ctx), orgID.String(), authorization.ObjectLedger, authorization.ActionLedgerView); err != nil {
		return domain.Summary{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return domain.Summary{}, domain.ErrInvalidDateRange
	}

	query := s.db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("org_id = ?", orgID)
	if from != nil {
		query = query.Where("occurred_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("occurred_at <= ?", *to)
	}

	var row struct {
		Income  int64 `gorm:"column:income"`
		Expense int64 `gorm:"column:expense"`
	}
	if err := query.Select(
		`COALESCE(SUM(CASE WHEN entry_type = 'INCOME' THEN amount ELSE 0 END), 0) AS income,
		 COALESCE(SUM(CASE WHEN entry_type = 'EXPENSE' THEN amount ELSE 0 END), 0) AS expense`,
	).Scan(&row).Error; err != nil {
		return domain.Summary{}, err
	}

	return domain.Summary{
		Income:  row.Income,
		Expense: row.Expense,
		Balance: row.Income - row.Expense,
	}, nil
}
