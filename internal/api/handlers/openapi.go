package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/cloudbox/internal/api/errors"
	"github.com/bigkaa/cloudbox/internal/api/generated"
)

// GetOpenAPI — GET /api/openapi.json, контракт API в JSON.
func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	doc, err := generated.GetSwagger()
	if err != nil {
		h.logger.Error("Ошибка загрузки OpenAPI-документа", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Failed to load API description.")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
