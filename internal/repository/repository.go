// Пакет repository — слой доступа к данным PostgreSQL для cloudbox.
// Все запросы — чистый SQL через pgx, без ORM.
// Каждая операция над записью фильтрует по владельцу (user_id) в том же
// SQL-выражении, что и изменение: отдельного шага «прочитать, потом изменить» нет.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена (или не принадлежит владельцу).
	ErrNotFound = errors.New("запись не найдена")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, а в тестах — pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// rowScanner — общий интерфейс pgx.Row и pgx.Rows для сканирования одной строки.
type rowScanner interface {
	Scan(dest ...any) error
}
