// handler.go — основной обработчик API, реализующий generated.ServerInterface.
// Объединяет health, операции жизненного цикла и каталог.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/cloudbox/internal/api/errors"
	"github.com/bigkaa/cloudbox/internal/api/generated"
	"github.com/bigkaa/cloudbox/internal/api/middleware"
	"github.com/bigkaa/cloudbox/internal/domain/model"
	"github.com/bigkaa/cloudbox/internal/service"
)

// APIHandler — основной обработчик API cloudbox.
// Реализует generated.ServerInterface, делегируя запросы в сервисный слой.
type APIHandler struct {
	health    *HealthHandler
	lifecycle *service.LifecycleService
	catalog   *service.CatalogService
	logger    *slog.Logger
}

var _ generated.ServerInterface = (*APIHandler)(nil)

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	lifecycle *service.LifecycleService,
	catalog *service.CatalogService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		lifecycle: lifecycle,
		catalog:   catalog,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// callerID — идентификатор аутентифицированного пользователя.
// Пустая строка, если запрос не прошёл JWT middleware.
func callerID(r *http.Request) string {
	return middleware.SubjectFromContext(r.Context())
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError преобразует ошибку сервисного слоя в HTTP-ответ.
// internalMsg — статическое сообщение для 500; детали сбоя клиенту не отдаются.
func writeServiceError(w http.ResponseWriter, err error, internalMsg string) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		apierrors.Unauthorized(w, apierrors.MsgUnauthorized)
	case errors.Is(err, service.ErrInvalidRequest):
		msg := apierrors.MsgInvalidRequest
		var lerr *service.LifecycleError
		if errors.As(err, &lerr) && lerr.Reason != "" {
			msg = lerr.Reason
		}
		apierrors.ValidationError(w, msg)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, apierrors.MsgFileNotFound)
	default:
		apierrors.InternalError(w, internalMsg)
	}
}

// ParamErrorHandler — ответ на ошибку разбора параметров запроса.
// Отсутствующий fileId — 400 "File id is required!".
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var perr *generated.InvalidParamFormatError
	if errors.As(err, &perr) && perr.ParamName == "fileId" {
		apierrors.ValidationError(w, service.ReasonFileIDRequired)
		return
	}
	apierrors.ValidationError(w, apierrors.MsgInvalidRequest)
}

// fileRecordToAPI конвертирует доменную модель в API-тип.
func fileRecordToAPI(f *model.FileRecord) generated.File {
	return generated.File{
		Id:           f.ID,
		Name:         f.Name,
		Path:         f.Path,
		Size:         f.Size,
		Type:         f.Type,
		FileUrl:      f.FileURL,
		ThumbnailUrl: f.ThumbnailURL,
		UserId:       f.UserID,
		ParentId:     f.ParentID,
		IsFolder:     f.IsFolder,
		IsStarred:    f.IsStarred,
		IsTrash:      f.IsTrash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func fileRecordsToAPI(records []*model.FileRecord) []generated.File {
	files := make([]generated.File, 0, len(records))
	for _, f := range records {
		files = append(files, fileRecordToAPI(f))
	}
	return files
}
