package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clubworks/clubledger/internal/audit/domain"
	"github.com/clubworks/clubledger/internal/auditcontext"
	"github.com/clubworks/clubledger/internal/authorization"
	settingsdomain "github.com/clubworks/clubledger/internal/billingsettings/domain"
	"github.com/clubworks/clubledger/internal/charge/domain"
	"github.com/clubworks/clubledger/internal/clock"
	"github.com/clubworks/clubledger/internal/observability/metrics"
	populationdomain "github.com/clubworks/clubledger/internal/population/domain"
	"github.com/clubworks/clubledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Authz      authorization.Service
	Audit      auditdomain.Service
	Settings   settingsdomain.Service
	Population populationdomain.Provider
	Metrics    *metrics.Metrics
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	authz      authorization.Service
	audit      auditdomain.Service
	settings   settingsdomain.Service
	population populationdomain.Provider
	metrics    *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("charge.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		authz:      p.Authz,
		audit:      p.Audit,
		settings:   p.Settings,
		population: p.Population,
		metrics:    p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID, req domain.ListRequest) (domain.ListResponse, error) {
	if orgID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidOrganization
	}
	if err := s.authz.Authorize(ctx, auditcontext.Subject(ctx), orgID.String(), authorization.ObjectCharge, authorization.ActionChargeView); err != nil {
		return domain.ListResponse{}, err
	}

	if req.Status != "" {
		switch req.Status {
		case domain.ChargeStatusPending, domain.ChargeStatusPaid, domain.ChargeStatusVoid:
		default:
			return domain.ListResponse{}, domain.ErrInvalidStatusFilter
		}
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 10
	}

	query := s.db.WithContext(ctx).
		Model(&domain.Charge{}).
		Where("org_id = ?", orgID)

	if req.CycleKey != "" {
		query = query.Where("cycle_key = ?", req.CycleKey)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.PayerKind != "" {
		query = query.Where("payer_kind = ?", req.PayerKind)
	}
	if req.PayerID != 0 {
		query = query.Where("payer_id = ?", req.PayerID)
	}

	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		lastID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		query = query.Where("id < ?", lastID)
	}

	var charges []*domain.Charge
	if err := query.
		Order("id DESC").
		Limit(limit + 1).
		Find(&charges).Error; err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo, charges := pagination.BuildCursorPageInfo(charges, limit, func(charge *domain.Charge) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: charge.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})

	return domain.ListResponse{Data: charges, PageInfo: pageInfo}, nil
}
