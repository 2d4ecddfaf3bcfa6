package directory

import (
	"context"

	"github.com/smallbiznis/nbaflow/internal/cache"
	"github.com/smallbiznis/nbaflow/internal/config"
	"github.com/smallbiznis/nbaflow/internal/directory/domain"
	"github.com/smallbiznis/nbaflow/internal/directory/repository"
	"github.com/smallbiznis/nbaflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("directory",
	fx.Provide(NewDirectory),
	fx.Provide(func(svc domain.Service) domain.Directory { return svc }),
)

func NewDirectory(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (domain.Service, error) {
	log = log.Named("directory")
	if !cfg.Directory.Enabled {
		log.Info("directory disabled, enrichment lookups will miss")
		return repository.Empty(), nil
	}

	conn, err := db.Open(dbConfig(cfg.Directory), log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	log.Info("directory connected",
		zap.String("db_type", cfg.Directory.DBType),
		zap.Duration("cache_ttl", cfg.Directory.CacheTTL),
	)
	return repository.WithCache(repository.New(conn), cache.NewDirectoryCache(cfg.Directory.CacheTTL)), nil
}

func dbConfig(cfg config.DirectoryConfig) db.Config {
	return db.Config{
		Type:        cfg.DBType,
		Path:        cfg.Path,
		Host:        cfg.Host,
		Port:        cfg.Port,
		Name:        cfg.Name,
		User:        cfg.User,
		Password:    cfg.Password,
		SSLMode:     cfg.SSLMode,
		MaxIdleConn: 2,
		MaxOpenConn: 4,
	}
}
