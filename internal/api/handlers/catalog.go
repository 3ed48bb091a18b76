// catalog.go — просмотр и пополнение каталога:
// GET/POST /api/files, GET /api/files/{fileId}, PATCH /api/files/{fileId}/star,
// POST /api/folders.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/bigkaa/cloudbox/internal/api/errors"
	"github.com/bigkaa/cloudbox/internal/api/generated"
	"github.com/bigkaa/cloudbox/internal/service"
)

const (
	msgListFailed     = "Failed to fetch files."
	msgRegisterFailed = "Failed to save file metadata."
	msgFolderFailed   = "Failed to create folder."
	msgGetFailed      = "Failed to fetch the file."
	msgStarFailed     = "Failed to update the file."
	msgInvalidBody    = "Invalid request body"
)

// ListFiles — GET /api/files.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request, params generated.ListFilesParams) {
	q := service.ListQuery{
		ParentID: params.ParentId,
		All:      params.All != nil && *params.All,
		Trash:    params.Trash != nil && *params.Trash,
		Starred:  params.Starred,
	}
	records, err := h.catalog.ListFiles(r.Context(), callerID(r), q)
	if err != nil {
		writeServiceError(w, err, msgListFailed)
		return
	}
	writeJSON(w, http.StatusOK, generated.FileList{Files: fileRecordsToAPI(records)})
}

// RegisterFile — POST /api/files. Сохраняет метаданные загруженного файла.
func (h *APIHandler) RegisterFile(w http.ResponseWriter, r *http.Request) {
	// Аутентификация проверяется до разбора тела
	caller := callerID(r)
	if caller == "" {
		apierrors.Unauthorized(w, apierrors.MsgUnauthorized)
		return
	}

	var body generated.RegisterFileJSONRequestBody
	if !decodeBody(w, r, &body) {
		return
	}

	record, err := h.catalog.RegisterFile(r.Context(), caller, service.RegisterFileInput{
		Name:         body.Name,
		Type:         body.Type,
		Size:         body.Size,
		FileURL:      body.FileUrl,
		ThumbnailURL: body.ThumbnailUrl,
		ParentID:     body.ParentId,
	})
	if err != nil {
		writeServiceError(w, err, msgRegisterFailed)
		return
	}
	writeJSON(w, http.StatusCreated, fileRecordToAPI(record))
}

// CreateFolder — POST /api/folders.
func (h *APIHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		apierrors.Unauthorized(w, apierrors.MsgUnauthorized)
		return
	}

	var body generated.CreateFolderJSONRequestBody
	if !decodeBody(w, r, &body) {
		return
	}

	record, err := h.catalog.CreateFolder(r.Context(), caller, service.CreateFolderInput{
		Name:     body.Name,
		ParentID: body.ParentId,
	})
	if err != nil {
		writeServiceError(w, err, msgFolderFailed)
		return
	}
	writeJSON(w, http.StatusCreated, fileRecordToAPI(record))
}

// GetFile — GET /api/files/{fileId}.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request, fileID generated.FileId) {
	record, err := h.catalog.GetFile(r.Context(), callerID(r), fileID)
	if err != nil {
		writeServiceError(w, err, msgGetFailed)
		return
	}
	writeJSON(w, http.StatusOK, fileRecordToAPI(record))
}

// ToggleFileStar — PATCH /api/files/{fileId}/star.
func (h *APIHandler) ToggleFileStar(w http.ResponseWriter, r *http.Request, fileID generated.FileId) {
	record, err := h.catalog.ToggleStar(r.Context(), callerID(r), fileID)
	if err != nil {
		writeServiceError(w, err, msgStarFailed)
		return
	}
	writeJSON(w, http.StatusOK, fileRecordToAPI(record))
}

// decodeBody разбирает JSON-тело запроса; при ошибке отвечает 400.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		apierrors.ValidationError(w, msgInvalidBody)
		return false
	}
	return true
}
