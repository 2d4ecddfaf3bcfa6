package nba

import (
	"github.com/smallbiznis/nbaflow/internal/nba/repository"
	"github.com/smallbiznis/nbaflow/internal/nba/service"
	"go.uber.org/fx"
)

var Module = fx.Module("nba.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
