package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/clubworks/clubledger/internal/auditcontext"
	"github.com/clubworks/clubledger/internal/billingsettings/domain"
	"github.com/clubworks/clubledger/internal/clock"
	"github.com/clubworks/clubledger/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockAuditSvc struct {
	mock.Mock
}

func (m *mockAuditSvc) AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	args := m.Called(ctx, orgID, actorType, actorID, action, targetType, targetID, metadata)
	return args.Error(0)
}

type allowAllAuthz struct{}

func (allowAllAuthz) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	return nil
}

func openSettingsDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)

	db.Exec(`CREATE TABLE IF NOT EXISTS org_billing_settings (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		billing_mode TEXT NOT NULL DEFAULT 'HYBRID',
		cycle TEXT NOT NULL DEFAULT 'MONTHLY',
		cycle_weeks INTEGER,
		anchor_date TIMESTAMP NOT NULL,
		due_day INTEGER NOT NULL DEFAULT 1,
		membership_amount BIGINT NOT NULL DEFAULT 0,
		session_amount BIGINT NOT NULL DEFAULT 0,
		settings_version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	// SQLite requires an explicit UNIQUE index for ON CONFLICT to work.
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS ux_billing_settings_org ON org_billing_settings(org_id)")
	return db
}

func TestSettingsGetCreatesDefaults(t *testing.T) {
	db := openSettingsDB(t)
	node, _ := snowflake.NewNode(1)
	mockAudit := new(mockAuditSvc)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		Authz: allowAllAuthz{},
		Audit: mockAudit,
	})

	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), orgID)
	ctx = auditcontext.WithActor(ctx, "user", "1")

	settings, err := svc.Get(ctx, orgID)
	assert.NoError(t, err)
	assert.Equal(t, orgID, settings.OrgID)
	assert.Equal(t, domain.BillingModeHybrid, settings.BillingMode)
	assert.Equal(t, domain.CycleMonthly, settings.Cycle)
	assert.Equal(t, 1, settings.DueDay)
	assert.Equal(t, int64(1), settings.SettingsVersion)
	assert.False(t, settings.AnchorDate.IsZero())

	// Second read returns the same row, not a new one.
	again, err := svc.Get(ctx, orgID)
	assert.NoError(t, err)
	assert.Equal(t, settings.ID, again.ID)
}

func TestSettingsUpdate(t *testing.T) {
	db := openSettingsDB(t)
	node, _ := snowflake.NewNode(1)
	mockAudit := new(mockAuditSvc)
	mockAudit.On("AuditLog", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "billing_settings.updated", "billing_settings", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		Authz: allowAllAuthz{},
		Audit: mockAudit,
	})

	orgID := node.Generate()
	ctx := auditcontext.WithActor(context.Background(), "user", "1")

	t.Run("Valid Update - Version Bumped", func(t *testing.T) {
		updated, err := svc.Update(ctx, orgID, domain.UpdateRequest{
			BillingMode:      domain.BillingModeMembership,
			Cycle:            domain.CycleMonthly,
			AnchorDate:       "2025-01-01",
			DueDay:           15,
			MembershipAmount: 50000,
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.BillingModeMembership, updated.BillingMode)
		assert.Equal(t, 15, updated.DueDay)
		assert.Equal(t, int64(50000), updated.MembershipAmount)
		assert.Equal(t, int64(2), updated.SettingsVersion)

		stored, err := svc.Get(ctx, orgID)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), stored.SettingsVersion)
		assert.Equal(t, 15, stored.DueDay)
	})

	t.Run("Invalid Due Day - Rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, orgID, domain.UpdateRequest{
			BillingMode: domain.BillingModeHybrid,
			Cycle:       domain.CycleWeekly,
			AnchorDate:  "2025-01-06",
			DueDay:      9,
		})
		assert.ErrorIs(t, err, domain.ErrDueDayOutOfRange)
	})

	t.Run("Custom Weeks Without Length - Rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, orgID, domain.UpdateRequest{
			BillingMode: domain.BillingModeHybrid,
			Cycle:       domain.CycleCustomWeeks,
			AnchorDate:  "2025-01-06",
			DueDay:      1,
		})
		assert.ErrorIs(t, err, domain.ErrCycleWeeksRequired)
	})

	t.Run("Cycle Weeks On Monthly - Rejected", func(t *testing.T) {
		weeks := 2
		_, err := svc.Update(ctx, orgID, domain.UpdateRequest{
			BillingMode: domain.BillingModeHybrid,
			Cycle:       domain.CycleMonthly,
			CycleWeeks:  &weeks,
			AnchorDate:  "2025-01-01",
			DueDay:      1,
		})
		assert.ErrorIs(t, err, domain.ErrCycleWeeksNotAllowed)
	})

	t.Run("Bad Anchor Date - Rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, orgID, domain.UpdateRequest{
			BillingMode: domain.BillingModeHybrid,
			Cycle:       domain.CycleMonthly,
			AnchorDate:  "01/01/2025",
			DueDay:      1,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAnchorDate)
	})

	t.Run("Negative Amount - Rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, orgID, domain.UpdateRequest{
			BillingMode:   domain.BillingModeHybrid,
			Cycle:         domain.CycleMonthly,
			AnchorDate:    "2025-01-01",
			DueDay:        1,
			SessionAmount: -100,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("Custom Weeks Due Day Over 31 - Rejected", func(t *testing.T) {
		weeks := 5
		_, err := svc.Update(ctx, orgID, domain.UpdateRequest{
			BillingMode: domain.BillingModeHybrid,
			Cycle:       domain.CycleCustomWeeks,
			CycleWeeks:  &weeks,
			AnchorDate:  "2025-01-06",
			DueDay:      35,
		})
		assert.ErrorIs(t, err, domain.ErrDueDayOutOfRange)
	})
}

func TestSettingsUpdateConcurrentWriter(t *testing.T) {
	db := openSettingsDB(t)
	node, _ := snowflake.NewNode(1)
	mockAudit := new(mockAuditSvc)
	mockAudit.On("AuditLog", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "billing_settings.updated", "billing_settings", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		Authz: allowAllAuthz{},
		Audit: mockAudit,
	})

	orgID := node.Generate()
	ctx := auditcontext.WithActor(context.Background(), "user", "1")

	_, err := svc.Get(ctx, orgID)
	assert.NoError(t, err)

	// Writer that sneaks in between Update's read and its guarded UPDATE,
	// like a second admin saving at the same moment.
	raw := db.Session(&gorm.Session{NewDB: true})
	interleaves := 0
	maxInterleaves := 0
	err = db.Callback().Update().Before("gorm:update").Register("settings_interleaved_writer", func(tx *gorm.DB) {
		if tx.Statement.Table != "org_billing_settings" || interleaves >= maxInterleaves {
			return
		}
		interleaves++
		raw.Exec(
			`UPDATE org_billing_settings SET due_day = 28, settings_version = settings_version + 1 WHERE org_id = ?`,
			orgID,
		)
	})
	assert.NoError(t, err)
	defer db.Callback().Update().Remove("settings_interleaved_writer")

	t.Run("Version Race - Retried And Persisted", func(t *testing.T) {
		interleaves = 0
		maxInterleaves = 1

		updated, err := svc.Update(ctx, orgID, domain.UpdateRequest{
			BillingMode:   domain.BillingModePerSession,
			Cycle:         domain.CycleMonthly,
			AnchorDate:    "2025-01-01",
			DueDay:        15,
			SessionAmount: 7500,
		})
		assert.NoError(t, err)

		// Seed was v1, the interleaved writer took v2, the retry landed v3.
		assert.Equal(t, int64(3), updated.SettingsVersion)

		stored, err := svc.Get(ctx, orgID)
		assert.NoError(t, err)
		assert.Equal(t, domain.BillingModePerSession, stored.BillingMode)
		assert.Equal(t, 15, stored.DueDay)
		assert.Equal(t, updated.SettingsVersion, stored.SettingsVersion)
	})

	t.Run("Persistent Race - Conflict Surfaced", func(t *testing.T) {
		interleaves = 0
		maxInterleaves = 2

		_, err := svc.Update(ctx, orgID, domain.UpdateRequest{
			BillingMode: domain.BillingModeMembership,
			Cycle:       domain.CycleMonthly,
			AnchorDate:  "2025-02-01",
			DueDay:      10,
		})
		assert.ErrorIs(t, err, domain.ErrStorageConflict)

		// The interleaved writer's state stands; the lost update is reported,
		// never silently accepted.
		stored, err := svc.Get(ctx, orgID)
		assert.NoError(t, err)
		assert.Equal(t, 28, stored.DueDay)
		assert.NotEqual(t, domain.BillingModeMembership, stored.BillingMode)
	})
}
