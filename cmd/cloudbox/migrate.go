package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigkaa/cloudbox/internal/config"
	"github.com/bigkaa/cloudbox/internal/database"
)

// newMigrateCommand — применить миграции и выйти.
func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции БД и завершиться",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("загрузка конфигурации: %w", err)
			}
			logger := config.SetupLogger(cfg)
			logger.Info("Применение миграций БД...", slog.String("version", config.Version))
			return database.Migrate(cfg, logger)
		},
	}
}
