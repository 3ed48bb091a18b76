// Пакет generated — типы и chi-маршрутизация HTTP API cloudbox
// по контракту openapi.yaml.
package generated

import "time"

// FileId — идентификатор файла из пути запроса.
// Строка, а не UUID: некорректный идентификатор означает «не найден», а не ошибку формата.
type FileId = string

// Error — тело ответа с ошибкой.
type Error struct {
	Error string `json:"error"`
}

// File — метаданные файла или папки.
type File struct {
	CreatedAt    time.Time `json:"createdAt"`
	FileUrl      string    `json:"fileUrl"`
	Id           string    `json:"id"`
	IsFolder     bool      `json:"isFolder"`
	IsStarred    bool      `json:"isStarred"`
	IsTrash      bool      `json:"isTrash"`
	Name         string    `json:"name"`
	ParentId     *string   `json:"parentId"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ThumbnailUrl *string   `json:"thumbnailUrl"`
	Type         string    `json:"type"`
	UpdatedAt    time.Time `json:"updatedAt"`
	UserId       string    `json:"userId"`
}

// FileList — список файлов.
type FileList struct {
	Files []File `json:"files"`
}

// EmptyTrashResponse — результат очистки корзины.
type EmptyTrashResponse struct {
	DeletedFiles *[]File `json:"deletedFiles,omitempty"`
	Message      string  `json:"message"`
}

// RegisterFileRequest — метаданные загруженного файла.
type RegisterFileRequest struct {
	FileUrl      string  `json:"fileUrl"`
	Name         string  `json:"name"`
	ParentId     *string `json:"parentId,omitempty"`
	Size         int64   `json:"size"`
	ThumbnailUrl *string `json:"thumbnailUrl,omitempty"`
	Type         string  `json:"type"`
}

// CreateFolderRequest — параметры новой папки.
type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentId *string `json:"parentId,omitempty"`
}

// ListFilesParams — query-параметры GET /api/files.
type ListFilesParams struct {
	ParentId *string `form:"parentId,omitempty" json:"parentId,omitempty"`
	All      *bool   `form:"all,omitempty" json:"all,omitempty"`
	Trash    *bool   `form:"trash,omitempty" json:"trash,omitempty"`
	Starred  *bool   `form:"starred,omitempty" json:"starred,omitempty"`
}

// RegisterFileJSONRequestBody — тело POST /api/files.
type RegisterFileJSONRequestBody = RegisterFileRequest

// CreateFolderJSONRequestBody — тело POST /api/folders.
type CreateFolderJSONRequestBody = CreateFolderRequest
