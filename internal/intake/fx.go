package intake

import (
	"github.com/smallbiznis/nbaflow/internal/intake/kafka"
	"github.com/smallbiznis/nbaflow/internal/intake/service"
	"go.uber.org/fx"
)

var Module = fx.Module("intake",
	fx.Provide(service.NewService),
	kafka.Module,
)
