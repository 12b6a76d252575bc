package service

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/clubworks/clubledger/internal/billingcycle"
	settingsdomain "github.com/clubworks/clubledger/internal/billingsettings/domain"
	"github.com/clubworks/clubledger/internal/population/domain"
	rosterdomain "github.com/clubworks/clubledger/internal/roster/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Provider struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewProvider(p Params) domain.Provider {
	return &Provider{
		db:  p.DB,
		log: p.Log.Named("population.provider"),
	}
}

func (p *Provider) BillablePopulation(ctx context.Context, orgID snowflake.ID, settings settingsdomain.BillingSettings, cycle billingcycle.Cycle) ([]domain.Entry, error) {
	var entries []domain.Entry

	if settings.BillingMode == settingsdomain.BillingModeMembership || settings.BillingMode == settingsdomain.BillingModeHybrid {
		membership, err := p.membershipEntries(ctx, orgID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, membership...)
	}

	session, err := p.sessionEntries(ctx, orgID, settings, cycle)
	if err != nil {
		return nil, err
	}
	entries = append(entries, session...)

	// Deterministic order keeps generation runs and their logs comparable.
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Payer.Kind != b.Payer.Kind {
			return a.Payer.Kind < b.Payer.Kind
		}
		if a.Payer.ID != b.Payer.ID {
			return a.Payer.ID < b.Payer.ID
		}
		return gameIDOf(a) < gameIDOf(b)
	})

	p.log.Debug("billable population resolved",
		zap.String("org_id", orgID.String()),
		zap.String("cycle_key", cycle.Key),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

func (p *Provider) membershipEntries(ctx context.Context, orgID snowflake.ID) ([]domain.Entry, error) {
	var rows []struct {
		UserID snowflake.ID `gorm:"column:user_id"`
	}
	if err := p.db.WithContext(ctx).Raw(
		`SELECT user_id
		 FROM org_members
		 WHERE org_id = ? AND is_active AND member_type = ?`,
		orgID,
		rosterdomain.MemberTypeMonthly,
	).Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.Entry{
			Payer: rosterdomain.PayerRef{Kind: rosterdomain.PayerKindMember, ID: row.UserID},
			Kind:  domain.EntryKindMembership,
		})
	}
	return entries, nil
}

// sessionEntries returns one entry per (payer, game) for games starting in
// [PeriodStart, PeriodEnd). Members owe a session fee only when the team
// formation workflow flagged them billable and the mode bills per session;
// guests owe one for every game they attend, whatever the mode.
func (p *Provider) sessionEntries(ctx context.Context, orgID snowflake.ID, settings settingsdomain.BillingSettings, cycle billingcycle.Cycle) ([]domain.Entry, error) {
	perSession := settings.BillingMode == settingsdomain.BillingModePerSession ||
		settings.BillingMode == settingsdomain.BillingModeHybrid

	var rows []struct {
		PayerKind rosterdomain.PayerKind `gorm:"column:payer_kind"`
		PayerID   snowflake.ID           `gorm:"column:payer_id"`
		GameID    snowflake.ID           `gorm:"column:game_id"`
	}
	if err := p.db.WithContext(ctx).Raw(
		`SELECT DISTINCT ga.payer_kind, ga.payer_id, ga.game_id
		 FROM game_attendances ga
		 JOIN games g ON g.id = ga.game_id
		 WHERE g.org_id = ?
		   AND g.start_at >= ? AND g.start_at < ?
		   AND ga.status = ?
		   AND (ga.payer_kind = ? OR (? AND ga.billable))`,
		orgID,
		cycle.PeriodStart,
		cycle.PeriodEnd,
		rosterdomain.AttendanceStatusGoing,
		rosterdomain.PayerKindGuest,
		perSession,
	).Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		gameID := row.GameID
		entries = append(entries, domain.Entry{
			Payer:  rosterdomain.PayerRef{Kind: row.PayerKind, ID: row.PayerID},
			Kind:   domain.EntryKindSession,
			GameID: &gameID,
		})
	}
	return entries, nil
}

func gameIDOf(entry domain.Entry) snowflake.ID {
	if entry.GameID == nil {
		return 0
	}
	return *entry.GameID
}
