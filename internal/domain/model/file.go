// Пакет model — доменные модели cloudbox.
// FileRecord — маппинг таблицы files.
package model

import "time"

// FolderType — значение поля Type для папок.
const FolderType = "folder"

// FileRecord — запись файла или папки в каталоге пользователя.
type FileRecord struct {
	// ID — UUID записи (генерируется PostgreSQL)
	ID string
	// Name — отображаемое имя
	Name string
	// Path — логический путь в дереве владельца (/docs/report.pdf)
	Path string
	// Size — размер в байтах (0 для папок)
	Size int64
	// Type — MIME-тип файла или "folder"
	Type string
	// FileURL — ссылка на содержимое у внешнего медиа-хостинга
	FileURL string
	// ThumbnailURL — ссылка на превью (опционально)
	ThumbnailURL *string
	// UserID — владелец записи (sub из сессионного токена)
	UserID string
	// ParentID — родительская папка (nil — корень)
	ParentID *string
	IsFolder  bool
	IsStarred bool
	// IsTrash — запись в корзине (soft delete)
	IsTrash bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time
}

// OwnedBy сообщает, принадлежит ли запись пользователю userID.
func (f *FileRecord) OwnedBy(userID string) bool {
	return f != nil && userID != "" && f.UserID == userID
}
