package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/pharmadesk/station/api/handler"
	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/config"
	"github.com/pharmadesk/station/internal/guard"
	"github.com/pharmadesk/station/internal/infrastructure/monitor"
	"github.com/pharmadesk/station/internal/infrastructure/outbox"
	pgInfra "github.com/pharmadesk/station/internal/infrastructure/postgres"
	redisInfra "github.com/pharmadesk/station/internal/infrastructure/redis"
	"github.com/pharmadesk/station/internal/middleware"
	"github.com/pharmadesk/station/internal/router"
	"github.com/pharmadesk/station/internal/services"
	"github.com/pharmadesk/station/internal/services/lifecycle"
	"github.com/pharmadesk/station/internal/upstream"
	"github.com/pharmadesk/station/pkg/httpcontext"
	"github.com/pharmadesk/station/pkg/logger"
	"github.com/pharmadesk/station/repository/postgres"
	redisRepo "github.com/pharmadesk/station/repository/redis"
	authUC "github.com/pharmadesk/station/usecase/auth"
	catalogUC "github.com/pharmadesk/station/usecase/catalog"
	dashUC "github.com/pharmadesk/station/usecase/dashboard"
	sellUC "github.com/pharmadesk/station/usecase/sellstation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	outboxStore, err := outbox.Open(cfg.Outbox.Path, "effects")
	if err != nil {
		zapLogger.Fatal("failed to open effects outbox", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return outboxStore.Close()
	})

	pharmacyAPI := upstream.New(cfg.Upstream, zapLogger)

	mon := monitor.New(pharmacyAPI, pool, redisClient, outboxStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	sessionRepo := redisRepo.NewSessionRepository(redisClient, 24*time.Hour)
	auditRepo := postgres.NewAuditRepository(pool)

	sessionGuard := guard.New(
		guard.UpstreamSource{Client: pharmacyAPI},
		sessionRepo,
		guard.Config{
			IdleTimeout:      cfg.Guard.IdleTimeout,
			CheckInterval:    cfg.Guard.CheckInterval,
			RefreshThreshold: cfg.Guard.RefreshThreshold,
		},
		zapLogger,
	)

	effectsProcessor := services.NewEffectsProcessor(
		outboxStore,
		mon,
		sessionGuard,
		pharmacyAPI,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Outbox.DrainInterval,
			BatchSize:  cfg.Outbox.BatchSize,
			MaxRetries: cfg.Outbox.MaxRetry,
		},
	)
	effectsProcessor.Start()
	manager.Register("effects_processor", func(ctx context.Context) error {
		effectsProcessor.Stop(ctx)
		return nil
	})

	effectsBridge := services.NewEffectsBridge(effectsProcessor)

	authUseCase := authUC.New(sessionGuard, auditRepo, zapLogger)
	catalogUseCase := catalogUC.New(pharmacyAPI, zapLogger)
	sellUseCase := sellUC.New(pharmacyAPI, catalogUseCase, effectsBridge, auditRepo, zapLogger)
	dashUseCase := dashUC.New(pharmacyAPI, zapLogger)

	// A forced expiry also drops the operator's in-progress cart.
	sessionGuard.OnExpired = func(session *domain.Session, reason string) {
		authUseCase.RecordExpiry(session, reason)
		sellUseCase.DropCart(session.ID)
	}

	sessionGuard.Start()
	manager.Register("session_guard", func(ctx context.Context) error {
		sessionGuard.Stop()
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:      apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger, cfg.Cookies),
		Catalog:   apiHandler.NewCatalogHandler(catalogUseCase, ctxAdapter, zapLogger),
		Cart:      apiHandler.NewCartHandler(sellUseCase, ctxAdapter, zapLogger),
		Dashboard: apiHandler.NewDashboardHandler(dashUseCase, ctxAdapter, zapLogger),
		Audit:     apiHandler.NewAuditHandler(authUseCase, ctxAdapter, zapLogger),
		Health:    apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	gate := middleware.Gate(authUseCase, cfg.Cookies, zapLogger)
	r := router.New(handlers, gate)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("station gateway started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
