package queue

import (
	"github.com/smallbiznis/nbaflow/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("queue",
	fx.Provide(func(cfg config.Config) *Queue { return New(cfg.QueueCapacity) }),
	fx.Provide(func(q *Queue) Publisher { return q }),
	fx.Provide(func(q *Queue) Consumer { return q }),
)
