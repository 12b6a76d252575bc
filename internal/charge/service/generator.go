package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clubworks/clubledger/internal/auditcontext"
	"github.com/clubworks/clubledger/internal/authorization"
	"github.com/clubworks/clubledger/internal/billingcycle"
	settingsdomain "github.com/clubworks/clubledger/internal/billingsettings/domain"
	"github.com/clubworks/clubledger/internal/charge/domain"
	populationdomain "github.com/clubworks/clubledger/internal/population/domain"
	rosterdomain "github.com/clubworks/clubledger/internal/roster/domain"
	"github.com/clubworks/clubledger/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// Generate resolves the target cycle, computes the billable population and
// inserts the missing charges. Existing charges are left untouched, PAID and
// VOID ones included: generation never mutates a charge it finds.
func (s *Service) Generate(ctx context.Context, orgID snowflake.ID, req domain.GenerateRequest) (domain.GenerateResult, error) {
	if orgID == 0 {
		return domain.GenerateResult{}, domain.ErrInvalidOrganization
	}
	if err := s.authz.Authorize(ctx, auditcontext.Subject(ctx), orgID.String(), authorization.ObjectCharge, authorization.ActionChargeGenerate); err != nil {
		return domain.GenerateResult{}, err
	}

	settings, err := s.settings.Get(ctx, orgID)
	if err != nil {
		return domain.GenerateResult{}, err
	}

	var cycle billingcycle.Cycle
	if req.CycleKey != "" {
		cycle, err = billingcycle.ParseKey(settings, req.CycleKey)
	} else {
		cycle, err = billingcycle.Resolve(settings, s.clock.Now())
	}
	if err != nil {
		return domain.GenerateResult{}, err
	}

	entries, err := s.population.BillablePopulation(ctx, orgID, settings, cycle)
	if err != nil {
		return domain.GenerateResult{}, err
	}

	result := domain.GenerateResult{CycleKey: cycle.Key}
	now := s.clock.Now()

	for _, entry := range entries {
		eligible, err := s.payerEligible(ctx, orgID, entry.Payer)
		if err != nil {
			return result, err
		}
		if !eligible {
			s.log.Warn("skipping ineligible payer",
				zap.String("org_id", orgID.String()),
				zap.String("cycle_key", cycle.Key),
				zap.String("payer_kind", string(entry.Payer.Kind)),
				zap.String("payer_id", entry.Payer.ID.String()),
				zap.Error(domain.ErrPayerNotEligible),
			)
			result.Failed++
			s.metrics.ObserveChargeFailed()
			continue
		}

		charge := s.buildCharge(orgID, settings, cycle, entry, now)
		if charge == nil {
			continue
		}

		created, err := s.insertCharge(ctx, charge)
		if err != nil {
			s.metrics.ObserveGenerationRun("conflict")
			return result, err
		}
		if created {
			result.Created++
			s.metrics.ObserveChargeGenerated(string(charge.ChargeType))
		} else {
			result.Skipped++
			s.metrics.ObserveChargeSkipped()
		}
	}

	s.log.Info("charge generation finished",
		zap.String("org_id", orgID.String()),
		zap.String("cycle_key", cycle.Key),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	s.metrics.ObserveGenerationRun("ok")

	if err := s.audit.AuditLog(ctx, &orgID, "", nil, "charge.generated", "billing_cycle", &result.CycleKey, map[string]any{
		"created": result.Created,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}); err != nil {
		s.log.Warn("failed to audit charge generation", zap.Error(err))
	}

	return result, nil
}

func (s *Service) buildCharge(orgID snowflake.ID, settings settingsdomain.BillingSettings, cycle billingcycle.Cycle, entry populationdomain.Entry, now time.Time) *domain.Charge {
	charge := domain.Charge{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		PayerKind:       entry.Payer.Kind,
		PayerID:         entry.Payer.ID,
		Status:          domain.ChargeStatusPending,
		DueDate:         cycle.DueDate,
		SettingsVersion: settings.SettingsVersion,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	switch entry.Kind {
	case populationdomain.EntryKindMembership:
		charge.ChargeType = domain.ChargeTypeMembership
		charge.CycleKey = cycle.Key
		charge.Amount = settings.MembershipAmount
	case populationdomain.EntryKindSession:
		if entry.GameID == nil {
			return nil
		}
		charge.ChargeType = domain.ChargeTypePerSession
		charge.CycleKey = billingcycle.SessionKey(cycle, *entry.GameID)
		charge.Amount = settings.SessionAmount
	default:
		return nil
	}
	return &charge
}

// insertCharge is the atomic insert-if-absent. The conflict target is the
// partial unique index over non-VOID charges, so a voided charge can be
// regenerated while a PENDING or PAID one blocks duplicates. A duplicate-key
// error (a race the conflict clause did not absorb) is retried once with a
// fresh ID, then surfaced as a storage conflict.
func (s *Service) insertCharge(ctx context.Context, charge *domain.Charge) (bool, error) {
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "org_id"},
			{Name: "payer_kind"},
			{Name: "payer_id"},
			{Name: "cycle_key"},
			{Name: "charge_type"},
		},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "status <> 'VOID'"},
		}},
		DoNothing: true,
	}

	res := s.db.WithContext(ctx).Clauses(onConflict).Create(charge)
	if res.Error == nil {
		return res.RowsAffected > 0, nil
	}
	if !db.IsDuplicateKeyErr(res.Error) {
		return false, res.Error
	}

	charge.ID = s.genID.Generate()
	res = s.db.WithContext(ctx).Clauses(onConflict).Create(charge)
	if res.Error == nil {
		return res.RowsAffected > 0, nil
	}
	if db.IsDuplicateKeyErr(res.Error) {
		return false, domain.ErrStorageConflict
	}
	return false, res.Error
}

func (s *Service) payerEligible(ctx context.Context, orgID snowflake.ID, payer rosterdomain.PayerRef) (bool, error) {
	var count int64
	switch payer.Kind {
	case rosterdomain.PayerKindMember:
		if err := s.db.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM org_members WHERE org_id = ? AND user_id = ? AND is_active`,
			orgID, payer.ID,
		).Scan(&count).Error; err != nil {
			return false, err
		}
	case rosterdomain.PayerKindGuest:
		if err := s.db.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM org_guests WHERE org_id = ? AND id = ? AND is_active`,
			orgID, payer.ID,
		).Scan(&count).Error; err != nil {
			return false, err
		}
	default:
		return false, nil
	}
	return count > 0, nil
}
