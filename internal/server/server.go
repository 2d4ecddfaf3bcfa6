package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/nbaflow/internal/calculation/liveoutcomes"
	"github.com/smallbiznis/nbaflow/internal/config"
	directorydomain "github.com/smallbiznis/nbaflow/internal/directory/domain"
	eventlogdomain "github.com/smallbiznis/nbaflow/internal/eventlog/domain"
	intakedomain "github.com/smallbiznis/nbaflow/internal/intake/domain"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
	"github.com/smallbiznis/nbaflow/internal/observability"
	obsmiddleware "github.com/smallbiznis/nbaflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/nbaflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/nbaflow/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
		QuietRoutes:     []string{"/health", "/metrics"},
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.String("addr", addr), zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	intake    intakedomain.Service
	nbaSvc    nbadomain.Service
	eventLog  eventlogdomain.Service
	directory directorydomain.Service
	outcomes  *liveoutcomes.Hub
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Intake    intakedomain.Service
	NBASvc    nbadomain.Service
	EventLog  eventlogdomain.Service
	Directory directorydomain.Service
	Outcomes  *liveoutcomes.Hub `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		intake:    p.Intake,
		nbaSvc:    p.NBASvc,
		eventLog:  p.EventLog,
		directory: p.Directory,
		outcomes:  p.Outcomes,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/internal/events/nba-calculation", s.IngestCalculationEvent)

	nba := api.Group("/nba")
	nba.GET("", s.ListNBAs)
	nba.GET("/outcomes/stream", s.StreamOutcomes)
	nba.GET("/:id", s.GetNBA)
	nba.GET("/:id/events", s.ListNBAEvents)
	nba.POST("/:id/actions", s.RegisterNBAAction)

	api.GET("/event-log", s.ListEventLog)
	api.GET("/mock-db/overview", s.MockDBOverview)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
