// Пакет database — пул pgx, миграции схемы cloudbox и проверка готовности PostgreSQL.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/cloudbox/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	applicationName   = "cloudbox"
	healthCheckPeriod = 30 * time.Second
	readinessTimeout  = 3 * time.Second
)

// PoolConfig собирает конфигурацию pgxpool из настроек cloudbox.
func PoolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("разбор DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.HealthCheckPeriod = healthCheckPeriod
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	return poolCfg, nil
}

// Connect открывает пул и проверяет его ping-ом; при ошибке пул закрывается.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("создание пула: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQL %s:%d недоступен: %w", cfg.DBHost, cfg.DBPort, err)
	}

	logger.Info("Пул PostgreSQL готов",
		slog.String("host", cfg.DBHost),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)
	return pool, nil
}

// Migrate доводит схему до последней встроенной версии.
// База в состоянии dirty (прерванная миграция) — ошибка: её чинят вручную.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	dbURL, err := migrateURL(cfg)
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("встроенные миграции: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("инициализация migrate: %w", err)
	}
	defer m.Close()

	if version, dirty, verr := m.Version(); verr == nil && dirty {
		return fmt.Errorf("схема в состоянии dirty на версии %d", version)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		version, _, _ := m.Version()
		logger.Info("Схема БД актуальна", slog.Uint64("version", uint64(version)))
		return nil
	case err != nil:
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Миграции применены", slog.Uint64("version", uint64(version)))
	return nil
}

// migrateURL — URL подключения со схемой драйвера pgx5 golang-migrate.
func migrateURL(cfg *config.Config) (string, error) {
	u, err := url.Parse(cfg.DatabaseURL())
	if err != nil {
		return "", fmt.Errorf("URL базы данных: %w", err)
	}
	u.Scheme = "pgx5"
	return u.String(), nil
}

// Pinger — *pgxpool.Pool с точки зрения проверки готовности.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker — readiness PostgreSQL для /health/ready.
type ReadinessChecker struct {
	db Pinger
}

func NewReadinessChecker(db Pinger) *ReadinessChecker {
	return &ReadinessChecker{db: db}
}

// CheckReady — "ok" с временем ping или "fail" с причиной.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()

	start := time.Now()
	if err := c.db.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	return "ok", fmt.Sprintf("ping %s", time.Since(start).Round(time.Millisecond))
}
