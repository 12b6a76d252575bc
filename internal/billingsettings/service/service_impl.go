package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clubworks/clubledger/internal/auditcontext"
	auditdomain "github.com/clubworks/clubledger/internal/audit/domain"
	"github.com/clubworks/clubledger/internal/authorization"
	"github.com/clubworks/clubledger/internal/billingsettings/domain"
	"github.com/clubworks/clubledger/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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
		log:   p.Log.Named("billingsettings.service"),
		genID: p.GenID,
		clock: p.Clock,
		authz: p.Authz,
		audit: p.Audit,
	}
}

// Get returns the organization's settings, inserting defaults on first read so
// every organization always has a resolvable configuration.
func (s *Service) Get(ctx context.Context, orgID snowflake.ID) (domain.BillingSettings, error) {
	if orgID == 0 {
		return domain.BillingSettings{}, domain.ErrInvalidOrganization
	}
	if err := s.authz.Authorize(ctx, auditcontext.Subject(ctx), orgID.String(), authorization.ObjectBillingSettings, authorization.ActionBillingSettingsView); err != nil {
		return domain.BillingSettings{}, err
	}

	var settings domain.BillingSettings
	err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		First(&settings).Error
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.BillingSettings{}, err
	}

	now := s.clock.Now()
	settings = s.defaults(orgID, now)

	// A concurrent first read may have inserted already; re-read on conflict.
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}},
			DoNothing: true,
		}).
		Create(&settings).Error; err != nil {
		return domain.BillingSettings{}, err
	}

	if err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		First(&settings).Error; err != nil {
		return domain.BillingSettings{}, err
	}
	return settings, nil
}

func (s *Service) Update(ctx context.Context, orgID snowflake.ID, req domain.UpdateRequest) (domain.BillingSettings, error) {
	if orgID == 0 {
		return domain.BillingSettings{}, domain.ErrInvalidOrganization
	}
	if err := s.authz.Authorize(ctx, auditcontext.Subject(ctx), orgID.String(), authorization.ObjectBillingSettings, authorization.ActionBillingSettingsUpdate); err != nil {
		return domain.BillingSettings{}, err
	}

	anchor, err := time.ParseInLocation("2006-01-02", req.AnchorDate, time.UTC)
	if err != nil {
		return domain.BillingSettings{}, domain.ErrInvalidAnchorDate
	}

	// The version guard can miss when a concurrent writer bumps
	// settings_version between the read and the UPDATE. Retry the
	// read-validate-update once against the fresh version before surfacing
	// the conflict.
	for attempt := 0; attempt < 2; attempt++ {
		current, err := s.Get(ctx, orgID)
		if err != nil {
			return domain.BillingSettings{}, err
		}

		now := s.clock.Now()
		next := current
		next.BillingMode = req.BillingMode
		next.Cycle = req.Cycle
		next.CycleWeeks = req.CycleWeeks
		next.AnchorDate = anchor
		next.DueDay = req.DueDay
		next.MembershipAmount = req.MembershipAmount
		next.SessionAmount = req.SessionAmount
		next.SettingsVersion = current.SettingsVersion + 1
		next.UpdatedAt = now

		if err := next.Validate(); err != nil {
			return domain.BillingSettings{}, err
		}

		res := s.db.WithContext(ctx).
			Model(&domain.BillingSettings{}).
			Where("org_id = ? AND settings_version = ?", orgID, current.SettingsVersion).
			Updates(map[string]any{
				"billing_mode":      next.BillingMode,
				"cycle":             next.Cycle,
				"cycle_weeks":       next.CycleWeeks,
				"anchor_date":       next.AnchorDate,
				"due_day":           next.DueDay,
				"membership_amount": next.MembershipAmount,
				"session_amount":    next.SessionAmount,
				"settings_version":  next.SettingsVersion,
				"updated_at":        next.UpdatedAt,
			})
		if res.Error != nil {
			return domain.BillingSettings{}, res.Error
		}
		if res.RowsAffected == 0 {
			s.log.Warn("billing settings version race, retrying",
				zap.String("org_id", orgID.String()),
				zap.Int64("settings_version", current.SettingsVersion),
			)
			continue
		}

		s.log.Info("billing settings updated",
			zap.String("org_id", orgID.String()),
			zap.String("billing_mode", string(next.BillingMode)),
			zap.String("cycle", string(next.Cycle)),
			zap.Int64("settings_version", next.SettingsVersion),
		)

		if err := s.audit.AuditLog(ctx, &orgID, "", nil, "billing_settings.updated", "billing_settings", nil, map[string]any{
			"billing_mode":     string(next.BillingMode),
			"cycle":            string(next.Cycle),
			"due_day":          next.DueDay,
			"settings_version": next.SettingsVersion,
		}); err != nil {
			s.log.Warn("failed to audit settings update", zap.Error(err))
		}

		return next, nil
	}

	return domain.BillingSettings{}, domain.ErrStorageConflict
}

func (s *Service) defaults(orgID snowflake.ID, now time.Time) domain.BillingSettings {
	return domain.BillingSettings{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		BillingMode:     domain.BillingModeHybrid,
		Cycle:           domain.CycleMonthly,
		AnchorDate:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		DueDay:          1,
		SettingsVersion: 1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
