package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/clubworks/clubledger/internal/billingcycle"
	settingsdomain "github.com/clubworks/clubledger/internal/billingsettings/domain"
	"github.com/clubworks/clubledger/internal/population/domain"
	rosterdomain "github.com/clubworks/clubledger/internal/roster/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openRosterDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)

	db.Exec(`CREATE TABLE IF NOT EXISTS org_members (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		role TEXT NOT NULL DEFAULT 'MEMBER',
		member_type TEXT NOT NULL DEFAULT 'MONTHLY',
		nickname TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	db.Exec(`CREATE TABLE IF NOT EXISTS games (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		title TEXT,
		start_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
	db.Exec(`CREATE TABLE IF NOT EXISTS game_attendances (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		game_id BIGINT NOT NULL,
		payer_kind TEXT NOT NULL,
		payer_id BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'GOING',
		billable BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`)
	return db
}

type rosterFixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	orgID snowflake.ID
}

func (f *rosterFixture) addMember(t *testing.T, memberType rosterdomain.MemberType, active bool) snowflake.ID {
	now := time.Now().UTC()
	member := rosterdomain.OrgMember{
		ID:         f.node.Generate(),
		OrgID:      f.orgID,
		UserID:     f.node.Generate(),
		Role:       rosterdomain.OrgRoleMember,
		MemberType: memberType,
		IsActive:   active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	assert.NoError(t, f.db.Create(&member).Error)
	return member.UserID
}

func (f *rosterFixture) addGame(t *testing.T, startAt time.Time) snowflake.ID {
	game := rosterdomain.Game{
		ID:        f.node.Generate(),
		OrgID:     f.orgID,
		StartAt:   startAt,
		CreatedAt: time.Now().UTC(),
	}
	assert.NoError(t, f.db.Create(&game).Error)
	return game.ID
}

func (f *rosterFixture) addAttendance(t *testing.T, gameID snowflake.ID, payer rosterdomain.PayerRef, status rosterdomain.AttendanceStatus, billable bool) {
	attendance := rosterdomain.GameAttendance{
		ID:        f.node.Generate(),
		OrgID:     f.orgID,
		GameID:    gameID,
		PayerKind: payer.Kind,
		PayerID:   payer.ID,
		Status:    status,
		Billable:  billable,
		CreatedAt: time.Now().UTC(),
	}
	assert.NoError(t, f.db.Create(&attendance).Error)
}

func testCycle(orgID snowflake.ID) (settingsdomain.BillingSettings, billingcycle.Cycle) {
	settings := settingsdomain.BillingSettings{
		OrgID:       orgID,
		BillingMode: settingsdomain.BillingModeHybrid,
		Cycle:       settingsdomain.CycleMonthly,
		AnchorDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDay:      15,
	}
	cycle, _ := billingcycle.Resolve(settings, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	return settings, cycle
}

func TestBillablePopulationHybrid(t *testing.T) {
	db := openRosterDB(t)
	node, _ := snowflake.NewNode(1)
	fixture := &rosterFixture{db: db, node: node, orgID: node.Generate()}
	provider := NewProvider(Params{DB: db, Log: zap.NewNop()})

	settings, cycle := testCycle(fixture.orgID)

	monthlyID := fixture.addMember(t, rosterdomain.MemberTypeMonthly, true)
	inactiveID := fixture.addMember(t, rosterdomain.MemberTypeMonthly, false)
	guestID := node.Generate()

	gameIn := fixture.addGame(t, time.Date(2025, 3, 8, 19, 0, 0, 0, time.UTC))
	gameOut := fixture.addGame(t, time.Date(2025, 4, 2, 19, 0, 0, 0, time.UTC))

	member := rosterdomain.PayerRef{Kind: rosterdomain.PayerKindMember, ID: monthlyID}
	guest := rosterdomain.PayerRef{Kind: rosterdomain.PayerKindGuest, ID: guestID}

	fixture.addAttendance(t, gameIn, member, rosterdomain.AttendanceStatusGoing, true)
	fixture.addAttendance(t, gameIn, guest, rosterdomain.AttendanceStatusGoing, false)
	// Outside the period: must not appear.
	fixture.addAttendance(t, gameOut, member, rosterdomain.AttendanceStatusGoing, true)

	entries, err := provider.BillablePopulation(context.Background(), fixture.orgID, settings, cycle)
	assert.NoError(t, err)

	var membership, session []domain.Entry
	for _, entry := range entries {
		switch entry.Kind {
		case domain.EntryKindMembership:
			membership = append(membership, entry)
		case domain.EntryKindSession:
			session = append(session, entry)
		}
	}

	// Only the active monthly member owes membership; the inactive one does not.
	assert.Len(t, membership, 1)
	assert.Equal(t, monthlyID, membership[0].Payer.ID)
	for _, entry := range membership {
		assert.NotEqual(t, inactiveID, entry.Payer.ID)
	}

	// One session entry for the billable member, one for the guest.
	assert.Len(t, session, 2)
	for _, entry := range session {
		assert.NotNil(t, entry.GameID)
		assert.Equal(t, gameIn, *entry.GameID)
	}
}

func TestBillablePopulationGuestAlwaysSession(t *testing.T) {
	db := openRosterDB(t)
	node, _ := snowflake.NewNode(1)
	fixture := &rosterFixture{db: db, node: node, orgID: node.Generate()}
	provider := NewProvider(Params{DB: db, Log: zap.NewNop()})

	settings, cycle := testCycle(fixture.orgID)
	settings.BillingMode = settingsdomain.BillingModeMembership

	monthlyID := fixture.addMember(t, rosterdomain.MemberTypeMonthly, true)
	guestID := node.Generate()
	game := fixture.addGame(t, time.Date(2025, 3, 8, 19, 0, 0, 0, time.UTC))

	member := rosterdomain.PayerRef{Kind: rosterdomain.PayerKindMember, ID: monthlyID}
	guest := rosterdomain.PayerRef{Kind: rosterdomain.PayerKindGuest, ID: guestID}

	// Guest without the billable flag still owes; the member's session fee is
	// covered by membership under MEMBERSHIP mode.
	fixture.addAttendance(t, game, guest, rosterdomain.AttendanceStatusGoing, false)
	fixture.addAttendance(t, game, member, rosterdomain.AttendanceStatusGoing, true)

	entries, err := provider.BillablePopulation(context.Background(), fixture.orgID, settings, cycle)
	assert.NoError(t, err)

	var session []domain.Entry
	for _, entry := range entries {
		if entry.Kind == domain.EntryKindSession {
			session = append(session, entry)
		}
	}
	assert.Len(t, session, 1)
	assert.Equal(t, rosterdomain.PayerKindGuest, session[0].Payer.Kind)
	assert.Equal(t, guestID, session[0].Payer.ID)
}

func TestBillablePopulationSkipsNonGoing(t *testing.T) {
	db := openRosterDB(t)
	node, _ := snowflake.NewNode(1)
	fixture := &rosterFixture{db: db, node: node, orgID: node.Generate()}
	provider := NewProvider(Params{DB: db, Log: zap.NewNop()})

	settings, cycle := testCycle(fixture.orgID)
	settings.BillingMode = settingsdomain.BillingModePerSession

	monthlyID := fixture.addMember(t, rosterdomain.MemberTypeMonthly, true)
	game := fixture.addGame(t, time.Date(2025, 3, 8, 19, 0, 0, 0, time.UTC))

	member := rosterdomain.PayerRef{Kind: rosterdomain.PayerKindMember, ID: monthlyID}
	fixture.addAttendance(t, game, member, rosterdomain.AttendanceStatusOut, true)

	entries, err := provider.BillablePopulation(context.Background(), fixture.orgID, settings, cycle)
	assert.NoError(t, err)
	// PER_SESSION mode yields no membership entries, and an OUT attendance
	// yields no session entry either.
	assert.Empty(t, entries)
}
