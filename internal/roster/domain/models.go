// Package domain contains persistence models for the club roster: the
// membership registry and the game/attendance feed. This core consumes them
// read-only; roster CRUD lives elsewhere.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// OrgRole is a member's role inside an organization.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "OWNER"
	OrgRoleAdmin  OrgRole = "ADMIN"
	OrgRoleMember OrgRole = "MEMBER"
)

// MemberType distinguishes monthly-billed members from pay-as-you-go guests.
type MemberType string

const (
	MemberTypeMonthly MemberType = "MONTHLY"
	MemberTypeGuest   MemberType = "GUEST"
)

// AttendanceStatus mirrors the attendance feed states.
type AttendanceStatus string

const (
	AttendanceStatusGoing AttendanceStatus = "GOING"
	AttendanceStatusOut   AttendanceStatus = "OUT"
)

// PayerKind tags the two payer variants.
type PayerKind string

const (
	PayerKindMember PayerKind = "member"
	PayerKindGuest  PayerKind = "guest"
)

// PayerRef identifies a member or guest who may owe a charge.
type PayerRef struct {
	Kind PayerKind    `json:"kind"`
	ID   snowflake.ID `json:"id"`
}

var ErrInvalidPayerKind = errors.New("invalid_payer_kind")

// Organization represents a tenant club.
type Organization struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Slug      string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// OrgMember represents membership of a user in an organization.
type OrgMember struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_members_user,priority:1" json:"org_id"`
	UserID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_members_user,priority:2" json:"user_id"`
	Role       OrgRole      `gorm:"type:text;not null;default:'MEMBER'" json:"role"`
	MemberType MemberType   `gorm:"type:text;not null;default:'MONTHLY'" json:"member_type"`
	Nickname   string       `gorm:"type:text" json:"nickname"`
	IsActive   bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OrgMember) TableName() string { return "org_members" }

// OrgGuest is a payer without a user account, invited per game.
type OrgGuest struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"org_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (OrgGuest) TableName() string { return "org_guests" }

// Game is a scheduled session.
type Game struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"org_id"`
	Title     string       `gorm:"type:text" json:"title"`
	StartAt   time.Time    `gorm:"not null;index" json:"start_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Game) TableName() string { return "games" }

// GameAttendance records a payer's attendance for one game. Billable is set
// by the team-formation workflow when the payer owes a session fee.
type GameAttendance struct {
	ID        snowflake.ID     `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID     `gorm:"not null;index" json:"org_id"`
	GameID    snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_game_attendance_payer,priority:1" json:"game_id"`
	PayerKind PayerKind        `gorm:"type:text;not null;uniqueIndex:ux_game_attendance_payer,priority:2" json:"payer_kind"`
	PayerID   snowflake.ID     `gorm:"not null;uniqueIndex:ux_game_attendance_payer,priority:3" json:"payer_id"`
	Status    AttendanceStatus `gorm:"type:text;not null;default:'GOING'" json:"status"`
	Billable  bool             `gorm:"not null;default:false" json:"billable"`
	CreatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (GameAttendance) TableName() string { return "game_attendances" }
