// Package scheduler drives periodic charge generation. Generation is
// idempotent, so the cadence only affects how quickly new cycles get their
// charges, never how many exist.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clubworks/clubledger/internal/audit/domain"
	"github.com/clubworks/clubledger/internal/auditcontext"
	chargedomain "github.com/clubworks/clubledger/internal/charge/domain"
	"github.com/clubworks/clubledger/internal/config"
	"github.com/clubworks/clubledger/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

const runTimeout = 5 * time.Minute

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	ChargeSvc chargedomain.Service
	Billing   *config.BillingConfigHolder
}

type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	chargeSvc chargedomain.Service
	billing   *config.BillingConfigHolder

	stop chan struct{}
	done chan struct{}
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.ChargeSvc == nil || p.Billing == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		chargeSvc: p.ChargeSvc,
		billing:   p.Billing,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Start launches the periodic loop. No-op when the scheduler is disabled.
func (s *Scheduler) Start() {
	if !s.billing.Current().SchedulerEnabled {
		s.log.Info("scheduler disabled")
		close(s.done)
		return
	}
	go s.loop()
}

// Stop signals the loop and waits for the in-flight run to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	close(s.stop)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)

	interval := s.billing.Current().GenerateInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", interval))

	for {
		select {
		case <-s.stop:
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("generation sweep failed", zap.Error(err))
			}
			cancel()

			// Pick up hot-reloaded interval changes between runs.
			if next := s.billing.Current().GenerateInterval; next != interval {
				interval = next
				ticker.Reset(interval)
				s.log.Info("scheduler interval updated", zap.Duration("interval", interval))
			}
		}
	}
}

// RunOnce generates charges for every organization with billing settings,
// acting as the system principal. Per-org failures are logged and do not
// abort the sweep.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx = auditcontext.WithActor(ctx, auditdomain.ActorTypeSystem, "scheduler")

	orgIDs, err := s.organizations(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, orgID := range orgIDs {
		orgCtx := orgcontext.WithOrgID(ctx, orgID)
		result, err := s.chargeSvc.Generate(orgCtx, orgID, chargedomain.GenerateRequest{})
		if err != nil {
			failed++
			s.log.Error("generation failed for organization",
				zap.String("org_id", orgID.String()),
				zap.Error(err),
			)
			continue
		}
		if result.Created > 0 || result.Failed > 0 {
			s.log.Info("generation sweep progressed",
				zap.String("org_id", orgID.String()),
				zap.String("cycle_key", result.CycleKey),
				zap.Int("created", result.Created),
				zap.Int("failed", result.Failed),
			)
		}
	}

	s.log.Debug("generation sweep finished",
		zap.Int("organizations", len(orgIDs)),
		zap.Int("failed", failed),
	)
	return nil
}

func (s *Scheduler) organizations(ctx context.Context) ([]snowflake.ID, error) {
	var rows []struct {
		OrgID snowflake.ID `gorm:"column:org_id"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT org_id FROM org_billing_settings ORDER BY org_id`,
	).Scan(&rows).Error; err != nil {
		return nil, err
	}

	orgIDs := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		orgIDs = append(orgIDs, row.OrgID)
	}
	return orgIDs, nil
}
