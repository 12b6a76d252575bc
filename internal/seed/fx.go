package seed

import (
	"github.com/bwmarrin/snowflake"
	"github.com/clubworks/clubledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module seeds the demo club outside production environments.
var Module = fx.Module("seed",
	fx.Invoke(func(cfg config.Config, db *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
		if cfg.Environment == "production" {
			return nil
		}
		if err := EnsureDemoOrg(db, node); err != nil {
			log.Warn("demo seed failed", zap.Error(err))
		}
		return nil
	}),
)
