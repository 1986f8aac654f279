package postgresql

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"petro-planning/migrations"
)

type MigrateCommand string

const (
	MigrateUp     MigrateCommand = "up"
	MigrateDown   MigrateCommand = "down"
	MigrateStatus MigrateCommand = "status"
)

// Migrate применяет встроенные миграции через database/sql поверх pgx.
func Migrate(dsn string, command MigrateCommand, logger *zap.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("не удалось открыть соединение для миграций: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	logger.Info("Запуск миграций", zap.String("command", string(command)))

	switch command {
	case MigrateUp:
		err = goose.Up(db, ".")
	case MigrateDown:
		err = goose.Down(db, ".")
	case MigrateStatus:
		err = goose.Status(db, ".")
	default:
		return fmt.Errorf("неизвестная команда миграции: %s", command)
	}
	if err != nil {
		return fmt.Errorf("миграция '%s' завершилась ошибкой: %w", command, err)
	}
	return nil
}
