package financedashboard

import (
	"github.com/clubworks/clubledger/internal/financedashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("financedashboard.service",
	fx.Provide(service.NewService),
)
