package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nbaflow/internal/calculation"
	"github.com/smallbiznis/nbaflow/internal/clock"
	"github.com/smallbiznis/nbaflow/internal/config"
	"github.com/smallbiznis/nbaflow/internal/directory"
	"github.com/smallbiznis/nbaflow/internal/enrichment"
	"github.com/smallbiznis/nbaflow/internal/eventlog"
	"github.com/smallbiznis/nbaflow/internal/intake"
	"github.com/smallbiznis/nbaflow/internal/nba"
	"github.com/smallbiznis/nbaflow/internal/observability"
	"github.com/smallbiznis/nbaflow/internal/queue"
	"github.com/smallbiznis/nbaflow/internal/ratelimit"
	"github.com/smallbiznis/nbaflow/internal/redisclient"
	"github.com/smallbiznis/nbaflow/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		redisclient.Module,

		// Pipeline
		directory.Module,
		enrichment.Module,
		queue.Module,
		nba.Module,
		eventlog.Module,
		ratelimit.Module,
		intake.Module,
		calculation.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
