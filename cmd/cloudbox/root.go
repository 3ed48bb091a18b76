package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// newRootCommand — корневая команда: общий флаг --env-file и подкоманды.
func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "cloudbox",
		Short:         "Сервис метаданных файлов cloudbox",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadEnvFile(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"файл с переменными окружения CB_* (отсутствие файла не ошибка)")

	root.AddCommand(newServeCommand(), newMigrateCommand())
	return root
}

// loadEnvFile загружает переменные из файла, не перезаписывая уже заданные.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("загрузка %s: %w", path, err)
	}
	return nil
}
