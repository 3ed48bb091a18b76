// errors.go — ошибки операций над файлами.
//
// Каждая ошибка сервисного слоя — *LifecycleError с одним из видов
// (ErrUnauthenticated, ErrInvalidRequest, ErrNotFound, ErrInternal).
// Вид проверяется через errors.Is, причина хранилища — через errors.As/Unwrap.
package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Виды ошибок.
var (
	// ErrUnauthenticated — вызывающий не аутентифицирован.
	ErrUnauthenticated = errors.New("вызывающий не аутентифицирован")
	// ErrInvalidRequest — некорректные входные данные.
	ErrInvalidRequest = errors.New("некорректный запрос")
	// ErrNotFound — файл не найден или принадлежит другому пользователю.
	ErrNotFound = errors.New("файл не найден")
	// ErrInternal — сбой хранилища.
	ErrInternal = errors.New("внутренняя ошибка")
)

// Имена операций (используются в ошибках, логах и метриках).
const (
	OpMoveToTrash  = "move_to_trash"
	OpRestore      = "restore_from_trash"
	OpDelete       = "permanently_delete"
	OpEmptyTrash   = "empty_trash"
	OpRegisterFile = "register_file"
	OpCreateFolder = "create_folder"
	OpListFiles    = "list_files"
	OpGetFile      = "get_file"
	OpToggleStar   = "toggle_star"
)

// Тексты причин ErrInvalidRequest, отдаваемые клиенту.
const (
	ReasonFileIDRequired = "File id is required!"
	ReasonNameRequired   = "Name is required"
	ReasonNameSlash      = "Name must not contain '/'"
	ReasonTypeRequired   = "Type is required"
	ReasonFileURL        = "A valid fileUrl is required"
	ReasonNegativeSize   = "Size must not be negative"
	ReasonParentNotFound = "Parent folder not found"
	ReasonInvalidParent  = "Invalid parentId"
)

// LifecycleError — ошибка операции сервисного слоя.
type LifecycleError struct {
	// Op — имя операции (OpMoveToTrash и т.д.)
	Op string
	// Kind — вид ошибки
	Kind error
	// Reason — причина для клиента (только для ErrInvalidRequest)
	Reason string
	// Err — исходная ошибка (для ErrInternal)
	Err error
}

func (e *LifecycleError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap возвращает вид ошибки и исходную ошибку.
func (e *LifecycleError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func unauthenticated(op string) error {
	return &LifecycleError{Op: op, Kind: ErrUnauthenticated}
}

func invalidRequest(op, reason string) error {
	return &LifecycleError{Op: op, Kind: ErrInvalidRequest, Reason: reason}
}

func notFound(op string) error {
	return &LifecycleError{Op: op, Kind: ErrNotFound}
}

func internal(op string, err error) error {
	return &LifecycleError{Op: op, Kind: ErrInternal, Err: err}
}

// checkCaller проверяет, что вызывающий аутентифицирован.
func checkCaller(op, callerID string) error {
	if strings.TrimSpace(callerID) == "" {
		return unauthenticated(op)
	}
	return nil
}

// checkTarget проверяет вызывающего и идентификатор файла.
// Порядок проверок: аутентификация, наличие ID, формат ID.
// ID, не являющийся UUID, не может ссылаться на запись — это ErrNotFound
// без обращения к хранилищу.
func checkTarget(op, callerID, fileID string) error {
	if err := checkCaller(op, callerID); err != nil {
		return err
	}
	if strings.TrimSpace(fileID) == "" {
		return invalidRequest(op, ReasonFileIDRequired)
	}
	if _, err := uuid.Parse(fileID); err != nil {
		return notFound(op)
	}
	return nil
}
