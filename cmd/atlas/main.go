package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-bms/atlas-bms/internal/app"
	"github.com/atlas-bms/atlas-bms/internal/auth"
	"github.com/atlas-bms/atlas-bms/internal/authz"
	"github.com/atlas-bms/atlas-bms/internal/departments"
	"github.com/atlas-bms/atlas-bms/internal/observability"
	"github.com/atlas-bms/atlas-bms/internal/platform/cache"
	"github.com/atlas-bms/atlas-bms/internal/platform/db"
	"github.com/atlas-bms/atlas-bms/internal/roles"
	"github.com/atlas-bms/atlas-bms/internal/shared"
	"github.com/atlas-bms/atlas-bms/internal/users"
	"github.com/atlas-bms/atlas-bms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Permission lookups fall back to postgres when redis is down.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	authzRepo := authz.NewRepository(dbpool)
	catalog := authz.NewCachedCatalog(authzRepo, redisClient, cfg.PermissionCacheTTL, logger)
	rolesRepo := roles.NewRepository(dbpool)

	engine := authz.NewEngine(catalog, authzRepo, rolesRepo, authzRepo, logger, metrics)
	authzMW := authz.Middleware{Engine: engine, Logger: logger}
	authzService := authz.NewService(catalog, authzRepo, auditLogger, logger)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authMW := auth.NewMiddleware(tokens)

	rolesService := roles.NewService(rolesRepo, auditLogger, logger)
	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, authzService, rolesService, logger, cfg.BcryptCost)
	authService := auth.NewService(usersService, rolesRepo, usersRepo, tokens, logger)

	departmentsRepo := departments.NewRepository(dbpool)
	departmentsService := departments.NewService(departmentsRepo, auditLogger, logger)

	authHandler := auth.NewHandler(logger, authService, authMW)
	usersHandler := users.NewHandler(logger, usersService, authzMW)
	departmentsHandler := departments.NewHandler(logger, departmentsService, usersService, engine, authzMW)
	rolesHandler := roles.NewHandler(logger, rolesService, authMW.RequireRole)
	permissionsHandler := authz.NewHandler(logger, authzRepo, authzService, engine, authMW.RequireRole)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthMiddleware:     authMW,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		DepartmentsHandler: departmentsHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
