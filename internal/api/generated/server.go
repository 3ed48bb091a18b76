package generated

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface — обработчики всех операций API.
type ServerInterface interface {
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// (GET /api/openapi.json)
	GetOpenAPI(w http.ResponseWriter, r *http.Request)
	// (GET /api/files)
	ListFiles(w http.ResponseWriter, r *http.Request, params ListFilesParams)
	// (POST /api/files)
	RegisterFile(w http.ResponseWriter, r *http.Request)
	// (DELETE /api/files/empty-trash)
	EmptyTrash(w http.ResponseWriter, r *http.Request)
	// (GET /api/files/{fileId})
	GetFile(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (PATCH /api/files/{fileId}/trash)
	MoveFileToTrash(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (POST /api/files/{fileId}/trash)
	RestoreFileFromTrash(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (DELETE /api/files/{fileId}/delete)
	DeleteFile(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (PATCH /api/files/{fileId}/star)
	ToggleFileStar(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (POST /api/folders)
	CreateFolder(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc — middleware, применяемая к отдельной операции.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper — разбор параметров запроса и вызов ServerInterface.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError — параметр запроса не удалось разобрать.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
	for _, middleware := range siw.HandlerMiddlewares {
		h = middleware(h)
	}
	h.ServeHTTP(w, r)
}

// bindFileID извлекает fileId из пути.
func (siw *ServerInterfaceWrapper) bindFileID(w http.ResponseWriter, r *http.Request) (FileId, bool) {
	var fileId FileId
	err := runtime.BindStyledParameterWithOptions("simple", "fileId", chi.URLParam(r, "fileId"), &fileId,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "fileId", Err: err})
		return "", false
	}
	return fileId, true
}

// HealthLive operation middleware
func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.HealthLive))
}

// HealthReady operation middleware
func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.HealthReady))
}

// GetMetrics operation middleware
func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.GetMetrics))
}

// GetOpenAPI operation middleware
func (siw *ServerInterfaceWrapper) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.GetOpenAPI))
}

// ListFiles operation middleware
func (siw *ServerInterfaceWrapper) ListFiles(w http.ResponseWriter, r *http.Request) {
	var params ListFilesParams
	query := r.URL.Query()

	bindings := []struct {
		name string
		dest any
	}{
		{"parentId", &params.ParentId},
		{"all", &params.All},
		{"trash", &params.Trash},
		{"starred", &params.Starred},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: b.name, Err: err})
			return
		}
	}

	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListFiles(w, r, params)
	}))
}

// RegisterFile operation middleware
func (siw *ServerInterfaceWrapper) RegisterFile(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.RegisterFile))
}

// EmptyTrash operation middleware
func (siw *ServerInterfaceWrapper) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.EmptyTrash))
}

// CreateFolder operation middleware
func (siw *ServerInterfaceWrapper) CreateFolder(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.CreateFolder))
}

// GetFile operation middleware
func (siw *ServerInterfaceWrapper) GetFile(w http.ResponseWriter, r *http.Request) {
	siw.withFileID(w, r, siw.Handler.GetFile)
}

// MoveFileToTrash operation middleware
func (siw *ServerInterfaceWrapper) MoveFileToTrash(w http.ResponseWriter, r *http.Request) {
	siw.withFileID(w, r, siw.Handler.MoveFileToTrash)
}

// RestoreFileFromTrash operation middleware
func (siw *ServerInterfaceWrapper) RestoreFileFromTrash(w http.ResponseWriter, r *http.Request) {
	siw.withFileID(w, r, siw.Handler.RestoreFileFromTrash)
}

// DeleteFile operation middleware
func (siw *ServerInterfaceWrapper) DeleteFile(w http.ResponseWriter, r *http.Request) {
	siw.withFileID(w, r, siw.Handler.DeleteFile)
}

// ToggleFileStar operation middleware
func (siw *ServerInterfaceWrapper) ToggleFileStar(w http.ResponseWriter, r *http.Request) {
	siw.withFileID(w, r, siw.Handler.ToggleFileStar)
}

func (siw *ServerInterfaceWrapper) withFileID(
	w http.ResponseWriter, r *http.Request,
	op func(http.ResponseWriter, *http.Request, FileId),
) {
	fileId, ok := siw.bindFileID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op(w, r, fileId)
	}))
}

// ChiServerOptions — параметры монтирования маршрутов.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler создаёт http.Handler с маршрутами на новом chi-роутере.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerFromMux монтирует маршруты на существующий роутер.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{BaseRouter: r})
}

// HandlerWithOptions монтирует маршруты с указанными параметрами.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	base := options.BaseURL
	r.Group(func(r chi.Router) {
		r.Get(base+"/health/live", wrapper.HealthLive)
		r.Get(base+"/health/ready", wrapper.HealthReady)
		r.Get(base+"/metrics", wrapper.GetMetrics)
		r.Get(base+"/api/openapi.json", wrapper.GetOpenAPI)

		r.Get(base+"/api/files", wrapper.ListFiles)
		r.Post(base+"/api/files", wrapper.RegisterFile)
		r.Delete(base+"/api/files/empty-trash", wrapper.EmptyTrash)
		r.Get(base+"/api/files/{fileId}", wrapper.GetFile)
		r.Patch(base+"/api/files/{fileId}/trash", wrapper.MoveFileToTrash)
		r.Post(base+"/api/files/{fileId}/trash", wrapper.RestoreFileFromTrash)
		r.Delete(base+"/api/files/{fileId}/delete", wrapper.DeleteFile)
		r.Patch(base+"/api/files/{fileId}/star", wrapper.ToggleFileStar)
		r.Post(base+"/api/folders", wrapper.CreateFolder)
	})

	return r
}
