package population

import (
	"github.com/clubworks/clubledger/internal/population/service"
	"go.uber.org/fx"
)

var Module = fx.Module("population.provider",
	fx.Provide(service.NewProvider),
)
