// catalog.go — каталог файлов владельца: регистрация загруженных файлов,
// создание папок, просмотр и избранное.
// Содержимое файлов хранится у внешнего медиа-хостинга; сервис хранит только метаданные.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/cloudbox/internal/domain/model"
	"github.com/bigkaa/cloudbox/internal/repository"
)

// RegisterFileInput — метаданные загруженного файла.
type RegisterFileInput struct {
	Name         string
	Type         string
	Size         int64
	FileURL      string
	ThumbnailURL *string
	ParentID     *string
}

// CreateFolderInput — параметры новой папки.
type CreateFolderInput struct {
	Name     string
	ParentID *string
}

// ListQuery — параметры просмотра каталога.
type ListQuery struct {
	// ParentID — папка (nil — корень)
	ParentID *string
	// All — все уровни вложенности
	All bool
	// Trash — содержимое корзины (всегда плоский список)
	Trash bool
	// Starred — фильтр по избранному
	Starred *bool
}

// CatalogService — просмотр и пополнение каталога владельца.
type CatalogService struct {
	fileRepo repository.FileRepository
	cache    *CacheService
	logger   *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(
	fileRepo repository.FileRepository,
	cache *CacheService,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		fileRepo: fileRepo,
		cache:    cache,
		logger:   logger.With(slog.String("component", "catalog_service")),
	}
}

// RegisterFile добавляет в каталог файл, уже загруженный на медиа-хостинг.
func (s *CatalogService) RegisterFile(ctx context.Context, callerID string, in RegisterFileInput) (record *model.FileRecord, err error) {
	start := time.Now()
	defer func() { observe(OpRegisterFile, start, err) }()

	if err := checkCaller(OpRegisterFile, callerID); err != nil {
		return nil, err
	}
	name, err := validateName(OpRegisterFile, in.Name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Type) == "" {
		return nil, invalidRequest(OpRegisterFile, ReasonTypeRequired)
	}
	if !isHTTPURL(in.FileURL) {
		return nil, invalidRequest(OpRegisterFile, ReasonFileURL)
	}
	if in.Size < 0 {
		return nil, invalidRequest(OpRegisterFile, ReasonNegativeSize)
	}

	parentPath, err := s.resolveParent(ctx, OpRegisterFile, callerID, in.ParentID)
	if err != nil {
		return nil, err
	}

	record = &model.FileRecord{
		Name:         name,
		Path:         parentPath + "/" + name,
		Size:         in.Size,
		Type:         strings.TrimSpace(in.Type),
		FileURL:      in.FileURL,
		ThumbnailURL: in.ThumbnailURL,
		UserID:       callerID,
		ParentID:     in.ParentID,
	}
	if err := s.fileRepo.Create(ctx, record); err != nil {
		return nil, s.storageError(OpRegisterFile, err)
	}

	s.logger.Info("Файл зарегистрирован",
		slog.String("file_id", record.ID),
		slog.String("user_id", callerID),
		slog.String("path", record.Path),
		slog.Int64("size", record.Size),
	)
	return record, nil
}

// CreateFolder создаёт папку в корне или внутри существующей папки.
func (s *CatalogService) CreateFolder(ctx context.Context, callerID string, in CreateFolderInput) (record *model.FileRecord, err error) {
	start := time.Now()
	defer func() { observe(OpCreateFolder, start, err) }()

	if err := checkCaller(OpCreateFolder, callerID); err != nil {
		return nil, err
	}
	name, err := validateName(OpCreateFolder, in.Name)
	if err != nil {
		return nil, err
	}

	parentPath, err := s.resolveParent(ctx, OpCreateFolder, callerID, in.ParentID)
	if err != nil {
		return nil, err
	}

	record = &model.FileRecord{
		Name:     name,
		Path:     parentPath + "/" + name,
		Type:     model.FolderType,
		UserID:   callerID,
		ParentID: in.ParentID,
		IsFolder: true,
	}
	if err := s.fileRepo.Create(ctx, record); err != nil {
		return nil, s.storageError(OpCreateFolder, err)
	}

	s.logger.Info("Папка создана",
		slog.String("file_id", record.ID),
		slog.String("user_id", callerID),
		slog.String("path", record.Path),
	)
	return record, nil
}

// ListFiles возвращает записи вызывающего, новые первыми.
func (s *CatalogService) ListFiles(ctx context.Context, callerID string, q ListQuery) (files []*model.FileRecord, err error) {
	start := time.Now()
	defer func() { observe(OpListFiles, start, err) }()

	if err := checkCaller(OpListFiles, callerID); err != nil {
		return nil, err
	}
	if q.ParentID != nil {
		if _, err := uuid.Parse(*q.ParentID); err != nil {
			return nil, invalidRequest(OpListFiles, ReasonInvalidParent)
		}
	}

	filter := repository.ListFilter{
		ParentID:  q.ParentID,
		AllLevels: q.All || q.Trash,
		IsTrash:   q.Trash,
		IsStarred: q.Starred,
	}
	files, err = s.fileRepo.ListOwned(ctx, callerID, filter)
	if err != nil {
		return nil, s.storageError(OpListFiles, err)
	}
	return files, nil
}

// GetFile возвращает метаданные файла вызывающего (cache-first).
func (s *CatalogService) GetFile(ctx context.Context, callerID, fileID string) (record *model.FileRecord, err error) {
	start := time.Now()
	defer func() { observe(OpGetFile, start, err) }()

	if err := checkTarget(OpGetFile, callerID, fileID); err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(fileID, callerID); ok {
		return cached, nil
	}

	epoch := s.cache.Epoch()
	record, err = s.fileRepo.GetOwned(ctx, fileID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(OpGetFile)
		}
		return nil, s.storageError(OpGetFile, err)
	}
	s.cache.Set(record, epoch)
	return record, nil
}

// ToggleStar инвертирует флаг избранного.
func (s *CatalogService) ToggleStar(ctx context.Context, callerID, fileID string) (record *model.FileRecord, err error) {
	start := time.Now()
	defer func() { observe(OpToggleStar, start, err) }()

	if err := checkTarget(OpToggleStar, callerID, fileID); err != nil {
		return nil, err
	}

	record, err = s.fileRepo.ToggleStar(ctx, fileID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(OpToggleStar)
		}
		return nil, s.storageError(OpToggleStar, err)
	}
	s.cache.Delete(fileID)
	return record, nil
}

// resolveParent проверяет родительскую папку и возвращает её путь.
// Для корня возвращается пустая строка.
// Родитель должен существовать, принадлежать вызывающему, быть папкой и не лежать в корзине.
func (s *CatalogService) resolveParent(ctx context.Context, op, callerID string, parentID *string) (string, error) {
	if parentID == nil {
		return "", nil
	}
	if _, err := uuid.Parse(*parentID); err != nil {
		return "", invalidRequest(op, ReasonParentNotFound)
	}

	parent, err := s.fileRepo.GetOwned(ctx, *parentID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", invalidRequest(op, ReasonParentNotFound)
		}
		return "", s.storageError(op, err)
	}
	if !parent.IsFolder || parent.IsTrash {
		return "", invalidRequest(op, ReasonParentNotFound)
	}
	return parent.Path, nil
}

func (s *CatalogService) storageError(op string, err error) error {
	s.logger.Error("Ошибка хранилища",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return internal(op, err)
}

// validateName проверяет имя файла или папки и возвращает его без пробелов по краям.
func validateName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidRequest(op, ReasonNameRequired)
	}
	if strings.Contains(name, "/") {
		return "", invalidRequest(op, ReasonNameSlash)
	}
	return name, nil
}

// isHTTPURL — абсолютный http(s) URL.
func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
