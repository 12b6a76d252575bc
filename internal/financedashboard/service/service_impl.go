package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clubworks/clubledger/internal/auditcontext"
	"github.com/clubworks/clubledger/internal/authorization"
	chargedomain "github.com/clubworks/clubledger/internal/charge/domain"
	"github.com/clubworks/clubledger/internal/config"
	"github.com/clubworks/clubledger/internal/financedashboard/domain"
	ledgerdomain "github.com/clubworks/clubledger/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Ledger  ledgerdomain.Service
	Authz   authorization.Service
	Billing *config.BillingConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	ledger  ledgerdomain.Service
	authz   authorization.Service
	billing *config.BillingConfigHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("financedashboard.service"),
		ledger:  p.Ledger,
		authz:   p.Authz,
		billing: p.Billing,
	}
}

func (s *Service) Dashboard(ctx context.Context, orgID snowflake.ID, from, to *time.Time) (domain.Dashboard, error) {
	if orgID == 0 {
		return domain.Dashboard{}, domain.ErrInvalidOrganization
	}
	if err := s.authz.Authorize(ctx, auditcontext.Subject(ctx), orgID.String(), authorization.ObjectFinanceDashboard, authorization.ActionFinanceDashboardView); err != nil {
		return domain.Dashboard{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return domain.Dashboard{}, domain.ErrInvalidDateRange
	}

	summary, err := s.ledger.Summarize(ctx, orgID, from, to)
	if err != nil {
		return domain.Dashboard{}, err
	}

	totals, err := s.chargeTotals(ctx, orgID, from, to)
	if err != nil {
		return domain.Dashboard{}, err
	}

	recent, err := s.recentActivity(ctx, orgID)
	if err != nil {
		return domain.Dashboard{}, err
	}

	return domain.Dashboard{
		Summary: summary,
		Charges: totals,
		Recent:  recent,
	}, nil
}

// chargeTotals scopes PENDING charges by due date and PAID charges by
// payment date, both inclusive of the range boundaries.
func (s *Service) chargeTotals(ctx context.Context, orgID snowflake.ID, from, to *time.Time) (domain.ChargeTotals, error) {
	var totals domain.ChargeTotals

	pending := s.db.WithContext(ctx).
		Model(&chargedomain.Charge{}).
		Where("org_id = ? AND status = ?", orgID, chargedomain.ChargeStatusPending)
	if from != nil {
		pending = pending.Where("due_date >= ?", *from)
	}
	if to != nil {
		pending = pending.Where("due_date <= ?", *to)
	}
	if err := scanTotals(pending, &totals.PendingTotal, &totals.PendingCount); err != nil {
		return domain.ChargeTotals{}, err
	}

	paid := s.db.WithContext(ctx).
		Model(&chargedomain.Charge{}).
		Where("org_id = ? AND status = ?", orgID, chargedomain.ChargeStatusPaid)
	if from != nil {
		paid = paid.Where("paid_at >= ?", *from)
	}
	if to != nil {
		paid = paid.Where("paid_at <= ?", *to)
	}
	if err := scanTotals(paid, &totals.PaidTotal, &totals.PaidCount); err != nil {
		return domain.ChargeTotals{}, err
	}

	return totals, nil
}

func scanTotals(query *gorm.DB, total *int64, count *int64) error {
	var row struct {
		Total int64 `gorm:"column:total"`
		Count int64 `gorm:"column:count"`
	}
	if err := query.Select("COALESCE(SUM(amount), 0) AS total, COUNT(1) AS count").Scan(&row).Error; err != nil {
		return err
	}
	*total = row.Total
	*count = row.Count
	return nil
}

func (s *Service) recentActivity(ctx context.Context, orgID snowflake.ID) (domain.RecentActivity, error) {
	limit := s.billing.Current().RecentActivityLimit

	var entries []*ledgerdomain.LedgerEntry
	if err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("occurred_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return domain.RecentActivity{}, err
	}

	var charges []*chargedomain.Charge
	if err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("id DESC").
		Limit(limit).
		Find(&charges).Error; err != nil {
		return domain.RecentActivity{}, err
	}

	return domain.RecentActivity{Ledger: entries, Charges: charges}, nil
}
