// lifecycle.go — жизненный цикл файлов: корзина, восстановление,
// безвозвратное удаление и очистка корзины.
//
// Все операции выполняются от имени вызывающего (callerID = sub токена)
// и затрагивают только его записи. Чужая запись неотличима от отсутствующей.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bigkaa/cloudbox/internal/domain/model"
	"github.com/bigkaa/cloudbox/internal/repository"
)

// EmptyTrashResult — результат очистки корзины.
type EmptyTrashResult struct {
	// Deleted — удалённые записи (состояние на момент удаления)
	Deleted []*model.FileRecord
}

// Count — количество удалённых записей.
func (r *EmptyTrashResult) Count() int {
	return len(r.Deleted)
}

// FreedBytes — суммарный размер удалённых записей.
func (r *EmptyTrashResult) FreedBytes() int64 {
	var total int64
	for _, f := range r.Deleted {
		total += f.Size
	}
	return total
}

// Message — сообщение для клиента.
func (r *EmptyTrashResult) Message() string {
	if r.Count() == 0 {
		return "No files in trash"
	}
	return fmt.Sprintf("%d files permanently deleted", r.Count())
}

// LifecycleService — операции жизненного цикла файлов.
type LifecycleService struct {
	fileRepo repository.FileRepository
	cache    *CacheService
	logger   *slog.Logger
}

// NewLifecycleService создаёт сервис жизненного цикла.
func NewLifecycleService(
	fileRepo repository.FileRepository,
	cache *CacheService,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		fileRepo: fileRepo,
		cache:    cache,
		logger:   logger.With(slog.String("component", "lifecycle_service")),
	}
}

// MoveToTrash помечает файл как находящийся в корзине.
// Повторный вызов для файла в корзине успешен и не меняет состояние.
func (s *LifecycleService) MoveToTrash(ctx context.Context, callerID, fileID string) (*model.FileRecord, error) {
	return s.setTrash(ctx, OpMoveToTrash, callerID, fileID, true)
}

// RestoreFromTrash снимает пометку корзины.
// Повторный вызов для файла вне корзины успешен и не меняет состояние.
func (s *LifecycleService) RestoreFromTrash(ctx context.Context, callerID, fileID string) (*model.FileRecord, error) {
	return s.setTrash(ctx, OpRestore, callerID, fileID, false)
}

func (s *LifecycleService) setTrash(
	ctx context.Context, op, callerID, fileID string, isTrash bool,
) (record *model.FileRecord, err error) {
	start := time.Now()
	defer func() { observe(op, start, err) }()

	if err := checkTarget(op, callerID, fileID); err != nil {
		return nil, err
	}

	record, err = s.fileRepo.SetTrash(ctx, fileID, callerID, isTrash)
	if err != nil {
		return nil, s.storageError(op, fileID, err)
	}
	s.cache.Delete(fileID)

	s.logger.Info("Флаг корзины изменён",
		slog.String("operation", op),
		slog.String("file_id", record.ID),
		slog.String("user_id", callerID),
		slog.Bool("is_trash", record.IsTrash),
	)
	return record, nil
}

// PermanentlyDelete удаляет файл безвозвратно, независимо от флага корзины.
// Возвращает последнее состояние удалённой записи.
func (s *LifecycleService) PermanentlyDelete(ctx context.Context, callerID, fileID string) (record *model.FileRecord, err error) {
	start := time.Now()
	defer func() { observe(OpDelete, start, err) }()

	if err := checkTarget(OpDelete, callerID, fileID); err != nil {
		return nil, err
	}

	record, err = s.fileRepo.DeleteOwned(ctx, fileID, callerID)
	if err != nil {
		return nil, s.storageError(OpDelete, fileID, err)
	}
	s.cache.Delete(fileID)

	s.logger.Info("Файл удалён безвозвратно",
		slog.String("file_id", record.ID),
		slog.String("user_id", callerID),
		slog.Bool("was_in_trash", record.IsTrash),
	)
	return record, nil
}

// EmptyTrash безвозвратно удаляет все файлы вызывающего, находящиеся в корзине.
// Пустая корзина — успешный результат с нулевым количеством.
func (s *LifecycleService) EmptyTrash(ctx context.Context, callerID string) (result *EmptyTrashResult, err error) {
	start := time.Now()
	defer func() { observe(OpEmptyTrash, start, err) }()

	if err := checkCaller(OpEmptyTrash, callerID); err != nil {
		return nil, err
	}

	deleted, err := s.fileRepo.DeleteTrashed(ctx, callerID)
	if err != nil {
		return nil, s.storageError(OpEmptyTrash, "", err)
	}
	for _, f := range deleted {
		s.cache.Delete(f.ID)
	}

	result = &EmptyTrashResult{Deleted: deleted}
	trashEmptiedFilesTotal.Add(float64(result.Count()))

	s.logger.Info("Корзина очищена",
		slog.String("user_id", callerID),
		slog.Int("deleted", result.Count()),
		slog.String("freed", humanize.Bytes(uint64(result.FreedBytes()))), //nolint:gosec // размер неотрицателен
	)
	return result, nil
}

// storageError преобразует ошибку репозитория в ошибку сервиса.
func (s *LifecycleService) storageError(op, fileID string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(op)
	}
	s.logger.Error("Ошибка хранилища",
		slog.String("operation", op),
		slog.String("file_id", fileID),
		slog.String("error", err.Error()),
	)
	return internal(op, err)
}
