// Пакет errors — конструкторы стандартных ошибок API хранилища документов.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // TODO: переименовать пакет errors, конфликт со stdlib

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeValidationError       = "VALIDATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeAuthorizationRequired = "AUTHORIZATION_REQUIRED"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodePermissionDenied      = "STORAGE_PERMISSION_DENIED"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeFileTooLarge          = "FILE_TOO_LARGE"
	CodeShareDisabled         = "SHARE_DISABLED"
	CodeReconcileInProgress   = "RECONCILE_IN_PROGRESS"
	CodeInternalError         = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 документ не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// AuthorizationRequired — 403 операция не подтверждена шлюзом авторизации.
func AuthorizationRequired(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeAuthorizationRequired, message)
}

// AlreadyExists — 409 имя занято.
func AlreadyExists(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeAlreadyExists, message)
}

// PermissionDenied — 403 хранилище отказало в доступе к файлу.
func PermissionDenied(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodePermissionDenied, message)
}

// InvalidTransition — 409 операция недопустима в текущем состоянии документа.
func InvalidTransition(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeInvalidTransition, message)
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// ShareDisabled — 503 выгрузка для обмена не настроена.
func ShareDisabled(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, CodeShareDisabled, message)
}

// ReconcileInProgress — 409 сверка уже выполняется.
func ReconcileInProgress(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeReconcileInProgress, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
