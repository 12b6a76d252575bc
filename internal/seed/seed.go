// Package seed bootstraps a demo club so a fresh development database is
// immediately usable.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	rosterdomain "github.com/clubworks/clubledger/internal/roster/domain"
	"github.com/clubworks/clubledger/pkg/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	demoOrgName = "Demo Club"
	demoOrgSlug = "demo"
)

// EnsureDemoOrg creates the demo organization, its owner and a couple of
// roster entries when the org does not exist yet. Idempotent.
func EnsureDemoOrg(db *gorm.DB, node *snowflake.Node) error {
	if db == nil || node == nil {
		return errors.New("seed requires database handle and id generator")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orgs := repository.ProvideStore[rosterdomain.Organization](tx)

		existing, err := orgs.FindOne(ctx, &rosterdomain.Organization{Slug: demoOrgSlug})
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		now := time.Now().UTC()
		org := &rosterdomain.Organization{
			ID:        node.Generate(),
			Name:      demoOrgName,
			Slug:      demoOrgSlug,
			Metadata:  datatypes.JSONMap{"seeded": true},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := orgs.Create(ctx, org); err != nil {
			return err
		}

		members := repository.ProvideStore[rosterdomain.OrgMember](tx)
		if err := members.BatchCreate(ctx, []*rosterdomain.OrgMember{
			{
				ID:         node.Generate(),
				OrgID:      org.ID,
				UserID:     node.Generate(),
				Role:       rosterdomain.OrgRoleOwner,
				MemberType: rosterdomain.MemberTypeMonthly,
				Nickname:   "Owner",
				IsActive:   true,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
			{
				ID:         node.Generate(),
				OrgID:      org.ID,
				UserID:     node.Generate(),
				Role:       rosterdomain.OrgRoleMember,
				MemberType: rosterdomain.MemberTypeMonthly,
				Nickname:   "Member",
				IsActive:   true,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		}); err != nil {
			return err
		}

		guests := repository.ProvideStore[rosterdomain.OrgGuest](tx)
		return guests.Create(ctx, &rosterdomain.OrgGuest{
			ID:        node.Generate(),
			OrgID:     org.ID,
			Name:      "Drop-in Guest",
			IsActive:  true,
			CreatedAt: now,
		})
	})
}
