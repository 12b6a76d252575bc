package charge

import (
	"github.com/clubworks/clubledger/internal/charge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("charge.service",
	fx.Provide(service.NewService),
)
