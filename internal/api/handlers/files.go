// files.go — операции жизненного цикла файла:
// PATCH/POST /api/files/{fileId}/trash, DELETE /api/files/{fileId}/delete,
// DELETE /api/files/empty-trash.
package handlers

import (
	"net/http"

	"github.com/bigkaa/cloudbox/internal/api/generated"
)

// Статические сообщения для 500 по операциям.
const (
	msgTrashFailed      = "Failed to move file to trash."
	msgRestoreFailed    = "Failed to restore the file."
	msgDeleteFailed     = "Failed to delete the file."
	msgEmptyTrashFailed = "Failed to empty trash."
)

// MoveFileToTrash — PATCH /api/files/{fileId}/trash.
func (h *APIHandler) MoveFileToTrash(w http.ResponseWriter, r *http.Request, fileID generated.FileId) {
	record, err := h.lifecycle.MoveToTrash(r.Context(), callerID(r), fileID)
	if err != nil {
		writeServiceError(w, err, msgTrashFailed)
		return
	}
	writeJSON(w, http.StatusOK, fileRecordToAPI(record))
}

// RestoreFileFromTrash — POST /api/files/{fileId}/trash.
func (h *APIHandler) RestoreFileFromTrash(w http.ResponseWriter, r *http.Request, fileID generated.FileId) {
	record, err := h.lifecycle.RestoreFromTrash(r.Context(), callerID(r), fileID)
	if err != nil {
		writeServiceError(w, err, msgRestoreFailed)
		return
	}
	writeJSON(w, http.StatusOK, fileRecordToAPI(record))
}

// DeleteFile — DELETE /api/files/{fileId}/delete.
// Возвращает удалённую запись.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request, fileID generated.FileId) {
	record, err := h.lifecycle.PermanentlyDelete(r.Context(), callerID(r), fileID)
	if err != nil {
		writeServiceError(w, err, msgDeleteFailed)
		return
	}
	writeJSON(w, http.StatusOK, fileRecordToAPI(record))
}

// EmptyTrash — DELETE /api/files/empty-trash.
// Пустая корзина — 200 с сообщением "No files in trash" без deletedFiles.
func (h *APIHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	result, err := h.lifecycle.EmptyTrash(r.Context(), callerID(r))
	if err != nil {
		writeServiceError(w, err, msgEmptyTrashFailed)
		return
	}

	resp := generated.EmptyTrashResponse{Message: result.Message()}
	if result.Count() > 0 {
		deleted := fileRecordsToAPI(result.Deleted)
		resp.DeletedFiles = &deleted
	}
	writeJSON(w, http.StatusOK, resp)
}
