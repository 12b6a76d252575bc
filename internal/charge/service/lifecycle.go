package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/clubworks/clubledger/internal/auditcontext"
	"github.com/clubworks/clubledger/internal/authorization"
	"github.com/clubworks/clubledger/internal/charge/domain"
	ledgerdomain "github.com/clubworks/clubledger/internal/ledger/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MarkPaid settles a PENDING charge. The status flip and the income ledger
// entry commit in one transaction: a paid charge always references its
// ledger entry and the entry always points back at the charge.
func (s *Service) MarkPaid(ctx context.Context, orgID snowflake.ID, chargeID snowflake.ID) (domain.Charge, error) {
	if orgID == 0 {
		return domain.Charge{}, domain.ErrInvalidOrganization
	}
	if err := s.authz.Authorize(ctx, auditcontext.Subject(ctx), orgID.String(), authorization.ObjectCharge, authorization.ActionChargePay); err != nil {
		return domain.Charge{}, err
	}

	now := s.clock.Now()
	subject := auditcontext.Subject(ctx)

	var charge domain.Charge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Charge{}).
			Where("id = ? AND org_id = ? AND status = ?", chargeID, orgID, domain.ChargeStatusPending).
			Updates(map[string]any{
				"status":     domain.ChargeStatusPaid,
				"paid_at":    now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.classifyMissedTransition(tx, orgID, chargeID)
		}

		if err := tx.Where("id = ? AND org_id = ?", chargeID, orgID).First(&charge).Error; err != nil {
			return err
		}

		entry := ledgerdomain.LedgerEntry{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			EntryType:   ledgerdomain.EntryTypeIncome,
			Amount:      charge.Amount,
			Description: fmt.Sprintf("Charge paid: %s (%s)", charge.CycleKey, charge.ChargeType),
			OccurredAt:  now,
			ChargeID:    &charge.ID,
			CreatedBy:   &subject,
			CreatedAt:   now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.Charge{}).
			Where("id = ?", charge.ID).
			Update("ledger_entry_id", entry.ID).Error; err != nil {
			return err
		}
		charge.LedgerEntryID = &entry.ID
		return nil
	})
	if err != nil {
		return domain.Charge{}, err
	}

	s.log.Info("charge marked paid",
		zap.String("org_id", orgID.String()),
		zap.String("charge_id", chargeID.String()),
		zap.Int64("amount", charge.Amount),
	)
	s.metrics.ObserveChargeTransition(string(domain.ChargeStatusPaid))
	s.metrics.ObserveLedgerEntry(string(ledgerdomain.EntryTypeIncome))
	s.auditTransition(ctx, orgID, charge, "charge.paid")

	return charge, nil
}

// MarkVoid cancels a PENDING charge. No ledger entry is written, and the
// partial unique index frees the slot for regeneration.
func (s *Service) MarkVoid(ctx context.Context, orgID snowflake.ID, chargeID snowflake.ID) (domain.Charge, error) {
	if orgID == 0 {
		return domain.Charge{}, domain.ErrInvalidOrganization
	}
	if err := s.authz.Authorize(ctx, auditcontext.Subject(ctx), orgID.String(), authorization.ObjectCharge, authorization.ActionChargeVoid); err != nil {
		return domain.Charge{}, err
	}

	now := s.clock.Now()

	var charge domain.Charge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Charge{}).
			Where("id = ? AND org_id = ? AND status = ?", chargeID, orgID, domain.ChargeStatusPending).
			Updates(map[string]any{
				"status":     domain.ChargeStatusVoid,
				"voided_at":  now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.classifyMissedTransition(tx, orgID, chargeID)
		}
		return tx.Where("id = ? AND org_id = ?", chargeID, orgID).First(&charge).Error
	})
	if err != nil {
		return domain.Charge{}, err
	}

	s.log.Info("charge voided",
		zap.String("org_id", orgID.String()),
		zap.String("charge_id", chargeID.String()),
	)
	s.metrics.ObserveChargeTransition(string(domain.ChargeStatusVoid))
	s.auditTransition(ctx, orgID, charge, "charge.voided")

	return charge, nil
}

// classifyMissedTransition tells a missing charge apart from a frozen one
// after a conditional update matched nothing.
func (s *Service) classifyMissedTransition(tx *gorm.DB, orgID snowflake.ID, chargeID snowflake.ID) error {
	var existing domain.Charge
	err := tx.Where("id = ? AND org_id = ?", chargeID, orgID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrChargeNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func (s *Service) auditTransition(ctx context.Context, orgID snowflake.ID, charge domain.Charge, action string) {
	chargeID := charge.ID.String()
	if err := s.audit.AuditLog(ctx, &orgID, "", nil, action, "charge", &chargeID, map[string]any{
		"cycle_key":   charge.CycleKey,
		"charge_type": string(charge.ChargeType),
		"amount":      charge.Amount,
	}); err != nil {
		s.log.Warn("failed to audit charge transition", zap.Error(err))
	}
}
