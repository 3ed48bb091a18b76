package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/cloudbox/internal/domain/model"
)

// fileColumns — список столбцов таблицы files для SELECT и RETURNING.
const fileColumns = `id, name, path, size, type, file_url, thumbnail_url,
	user_id, parent_id, is_folder, is_starred, is_trash, created_at, updated_at`

// ListFilter — параметры выборки файлов владельца.
type ListFilter struct {
	// ParentID — родительская папка (nil — корень). Игнорируется при AllLevels.
	ParentID *string
	// AllLevels — не фильтровать по родителю (плоский список)
	AllLevels bool
	// IsTrash — выбирать записи в корзине (true) или вне её (false)
	IsTrash bool
	// IsStarred — фильтр по избранному (nil — не применяется)
	IsStarred *bool
}

// FileRepository — интерфейс доступа к таблице files.
// Все методы, принимающие userID, не видят чужих записей:
// для них чужая запись неотличима от отсутствующей (ErrNotFound).
type FileRepository interface {
	// Create вставляет запись; ID, CreatedAt и UpdatedAt заполняются из БД.
	Create(ctx context.Context, f *model.FileRecord) error
	// GetOwned возвращает запись по ID, если она принадлежит userID.
	GetOwned(ctx context.Context, fileID, userID string) (*model.FileRecord, error)
	// ListOwned возвращает записи владельца по фильтру, новые первыми.
	ListOwned(ctx context.Context, userID string, filter ListFilter) ([]*model.FileRecord, error)
	// SetTrash устанавливает флаг is_trash и возвращает обновлённую запись.
	SetTrash(ctx context.Context, fileID, userID string, isTrash bool) (*model.FileRecord, error)
	// ToggleStar инвертирует флаг is_starred и возвращает обновлённую запись.
	ToggleStar(ctx context.Context, fileID, userID string) (*model.FileRecord, error)
	// DeleteOwned удаляет запись и возвращает её последнее состояние.
	DeleteOwned(ctx context.Context, fileID, userID string) (*model.FileRecord, error)
	// DeleteTrashed удаляет все записи владельца в корзине и возвращает их.
	DeleteTrashed(ctx context.Context, userID string) ([]*model.FileRecord, error)
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// Create вставляет новую запись.
func (r *fileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO files (name, path, size, type, file_url, thumbnail_url,
			user_id, parent_id, is_folder, is_starred, is_trash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		f.Name, f.Path, f.Size, f.Type, f.FileURL, f.ThumbnailURL,
		f.UserID, f.ParentID, f.IsFolder, f.IsStarred, f.IsTrash,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

// GetOwned возвращает запись владельца по UUID или ErrNotFound.
func (r *fileRepo) GetOwned(ctx context.Context, fileID, userID string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1 AND user_id = $2`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, fileID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// ListOwned возвращает записи владельца по фильтру.
func (r *fileRepo) ListOwned(ctx context.Context, userID string, filter ListFilter) ([]*model.FileRecord, error) {
	where, args := buildListWhere(userID, filter)
	query := fmt.Sprintf(
		`SELECT %s FROM files %s ORDER BY created_at DESC, id`,
		fileColumns, where,
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	return collectFiles(rows)
}

// SetTrash перемещает запись в корзину или восстанавливает её.
// Повторная установка того же значения не является ошибкой.
func (r *fileRepo) SetTrash(ctx context.Context, fileID, userID string, isTrash bool) (*model.FileRecord, error) {
	query := fmt.Sprintf(`
		UPDATE files
		SET is_trash = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING %s`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, fileID, userID, isTrash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка изменения флага корзины: %w", err)
	}
	return f, nil
}

// ToggleStar инвертирует флаг избранного одним выражением.
func (r *fileRepo) ToggleStar(ctx context.Context, fileID, userID string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`
		UPDATE files
		SET is_starred = NOT is_starred, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING %s`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, fileID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка изменения флага избранного: %w", err)
	}
	return f, nil
}

// DeleteOwned удаляет запись независимо от флага корзины.
func (r *fileRepo) DeleteOwned(ctx context.Context, fileID, userID string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`
		DELETE FROM files
		WHERE id = $1 AND user_id = $2
		RETURNING %s`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, fileID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка удаления файла: %w", err)
	}
	return f, nil
}

// DeleteTrashed удаляет все записи владельца с is_trash = true.
// Пустая корзина — не ошибка: возвращается пустой срез.
func (r *fileRepo) DeleteTrashed(ctx context.Context, userID string) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(`
		DELETE FROM files
		WHERE user_id = $1 AND is_trash = true
		RETURNING %s`, fileColumns)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка очистки корзины: %w", err)
	}
	return collectFiles(rows)
}

// scanFile сканирует одну строку в FileRecord. Порядок — как в fileColumns.
func scanFile(row rowScanner) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	err := row.Scan(
		&f.ID, &f.Name, &f.Path, &f.Size, &f.Type, &f.FileURL, &f.ThumbnailURL,
		&f.UserID, &f.ParentID, &f.IsFolder, &f.IsStarred, &f.IsTrash, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// collectFiles читает все строки и закрывает rows.
func collectFiles(rows pgx.Rows) ([]*model.FileRecord, error) {
	defer rows.Close()

	result := make([]*model.FileRecord, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// buildListWhere строит WHERE-условие для ListOwned.
// Владелец ($1) и флаг корзины ($2) присутствуют всегда.
func buildListWhere(userID string, filter ListFilter) (whereClause string, args []any) {
	conditions := []string{"user_id = $1", "is_trash = $2"}
	args = []any{userID, filter.IsTrash}
	argNum := 3

	if !filter.AllLevels {
		if filter.ParentID != nil {
			conditions = append(conditions, fmt.Sprintf("parent_id = $%d", argNum))
			args = append(args, *filter.ParentID)
			argNum++
		} else {
			conditions = append(conditions, "parent_id IS NULL")
		}
	}

	if filter.IsStarred != nil {
		conditions = append(conditions, fmt.Sprintf("is_starred = $%d", argNum))
		args = append(args, *filter.IsStarred)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
