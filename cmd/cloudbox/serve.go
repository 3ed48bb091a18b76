package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/bigkaa/cloudbox/internal/api/handlers"
	"github.com/bigkaa/cloudbox/internal/api/middleware"
	"github.com/bigkaa/cloudbox/internal/config"
	"github.com/bigkaa/cloudbox/internal/database"
	"github.com/bigkaa/cloudbox/internal/repository"
	"github.com/bigkaa/cloudbox/internal/server"
	"github.com/bigkaa/cloudbox/internal/service"
)

// newServeCommand — запуск HTTP API.
func newServeCommand() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false,
		"не применять миграции при старте")
	return cmd
}

func runServe(ctx context.Context, skipMigrations bool) error {
	// 1. Конфигурация и логгер
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}
	logger := config.SetupLogger(cfg)
	logger.Info("cloudbox запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("CB_DEPHEALTH_GROUP") == "" {
		logger.Warn("CB_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 2. Миграции
	if skipMigrations {
		logger.Info("Миграции пропущены (--skip-migrations)")
	} else {
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			return fmt.Errorf("миграции БД: %w", err)
		}
	}

	// 3. PostgreSQL
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("подключение к PostgreSQL: %w", err)
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 4. Сервисы
	fileRepo := repository.NewFileRepository(pool)
	cache := service.NewCacheService(cfg.CacheMaxSize, cfg.CacheTTL)
	lifecycleSvc := service.NewLifecycleService(fileRepo, cache, logger)
	catalogSvc := service.NewCatalogService(fileRepo, cache, logger)

	// 5. topologymetrics — мониторинг PostgreSQL и Identity Provider
	dephealthSvc, err := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "cloudbox",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PostgresURL:   cfg.DatabaseURL(),
		JWKSURL:       cfg.JWTJWKSURL,
		CheckInterval: cfg.DephealthCheckInterval,
		IsEntry:       cfg.DephealthIsEntry,
	}, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		defer dephealthSvc.Stop()
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 6. Health
	idpChecker, err := middleware.NewIdPReadinessChecker(cfg.JWTJWKSURL, cfg.JWKSCACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		return fmt.Errorf("readiness checker Identity Provider: %w", err)
	}
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), idpChecker)
	if dephealthSvc != nil {
		healthHandler.WithDependencies(dephealthSvc)
	}
	apiHandler := handlers.NewAPIHandler(healthHandler, lifecycleSvc, catalogSvc, logger)

	// 7. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
		JWKSURL:           cfg.JWTJWKSURL,
		CACertPath:        cfg.JWKSCACertPath,
		Issuer:            cfg.JWTIssuer,
		AuthorizedParties: cfg.JWTAuthorizedParties,
		SessionCookie:     cfg.JWTSessionCookie,
		ClientTimeout:     cfg.JWKSClientTimeout,
		RefreshInterval:   cfg.JWKSRefreshInterval,
		Leeway:            cfg.JWTLeeway,
	}, logger)
	if err != nil {
		return fmt.Errorf("инициализация JWT: %w", err)
	}

	// 8. HTTP-сервер: metrics → logging → JWT (кроме публичных путей)
	srv := server.New(cfg, logger, apiHandler, handlers.ParamErrorHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
		server.JWTAuthWithExclusions(jwtAuth.Middleware(), server.PublicPaths...),
	)

	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info("cloudbox остановлен")
	return nil
}
