// Package server exposes the stock ledger over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/alert/domain"
	auditdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/audit/domain"
	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/config"
	ledgerdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/observability/logger"
	settingsdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/domain"
	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
)

// HeaderActor names the caller recorded on movements and audit rows.
// Authentication is a collaborator concern; the ledger only records identity.
const HeaderActor = "X-Actor"

type ServerParam struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	DB     *gorm.DB

	LedgerSvc    ledgerdomain.Service
	SettingsSvc  settingsdomain.Service
	ThresholdSvc thresholddomain.Service
	AlertFeed    alertdomain.Feed
	AuditSvc     auditdomain.Service      `optional:"true"`
	ItemRepo     catalogdomain.Repository
}

// Server holds the handler dependencies.
type Server struct {
	cfg config.Config
	log *zap.Logger
	db  *gorm.DB

	ledgerSvc    ledgerdomain.Service
	settingsSvc  settingsdomain.Service
	thresholdSvc thresholddomain.Service
	alertFeed    alertdomain.Feed
	auditSvc     auditdomain.Service
	itemRepo     catalogdomain.Repository

	engine  *gin.Engine
	limiter *rateLimiter
}

// NewServer wires handlers onto a gin engine.
func NewServer(p ServerParam) *Server {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:          p.Config,
		log:          p.Log.Named("server"),
		db:           p.DB,
		ledgerSvc:    p.LedgerSvc,
		settingsSvc:  p.SettingsSvc,
		thresholdSvc: p.ThresholdSvc,
		alertFeed:    p.AlertFeed,
		auditSvc:     p.AuditSvc,
		itemRepo:     p.ItemRepo,
		limiter:      newRateLimiter(p.Config.RateLimit, p.Config.RateLimitWindow),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(p.Log))
	s.engine = engine
	s.RegisterRoutes()
	return s
}

// RegisterRoutes attaches every route to the engine.
func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.POST("/movements", s.rateLimited(), s.SubmitMovement)
		api.GET("/stock/:item_id", s.GetStock)
		api.GET("/stock", s.ListStock)
		api.POST("/recompute/:item_id", s.rateLimited(), s.Recompute)

		api.GET("/alerts", s.ListAlerts)

		api.GET("/settings", s.ListSettings)
		api.GET("/settings/:name", s.GetSetting)
		api.PUT("/settings/:name", s.rateLimited(), s.UpdateSetting)
		api.GET("/settings/:name/changes", s.ListSettingChanges)

		api.GET("/overrides/:item_id", s.GetOverride)
		api.POST("/overrides/:item_id", s.rateLimited(), s.ActivateOverride)
		api.DELETE("/overrides/:item_id", s.rateLimited(), s.DeactivateOverride)

		api.GET("/items", s.ListItems)
		api.GET("/items/:id", s.GetItem)

		api.GET("/audit", s.ListAudit)
	}
}

// Health reports liveness plus a cheap database ping.
func (s *Server) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) rateLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP(), c.FullPath()) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func (s *Server) actor(c *gin.Context) string {
	actor := c.GetHeader(HeaderActor)
	if actor == "" {
		return "system"
	}
	return actor
}

func (s *Server) audit(c *gin.Context, action, targetType string, targetID *string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actor := s.actor(c)
	actorType := auditdomain.ActorTypeUser
	if actor == "system" {
		actorType = auditdomain.ActorTypeSystem
	}
	_ = s.auditSvc.Record(c.Request.Context(), actorType, &actor, action, targetType, targetID, metadata)
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Module provides the server and starts it.
var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)
