package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/clubworks/clubledger/internal/clock"
	"github.com/clubworks/clubledger/internal/config"
	"github.com/clubworks/clubledger/internal/migration"
	"github.com/clubworks/clubledger/internal/scheduler"
	"github.com/clubworks/clubledger/internal/seed"
	"github.com/clubworks/clubledger/internal/server"
	"github.com/clubworks/clubledger/pkg/db"
	"github.com/clubworks/clubledger/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
