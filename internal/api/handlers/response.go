// response.go — общие функции ответа и разбора параметров handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/goartstore/docvault/internal/api/errors"
	"github.com/bigkaa/goartstore/docvault/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
	"github.com/bigkaa/goartstore/docvault/internal/service"
	"github.com/bigkaa/goartstore/docvault/internal/share"
	"github.com/bigkaa/goartstore/docvault/internal/storage/filestore"
)

// documentResponse — документ с коллекцией, в которой он находится.
type documentResponse struct {
	*model.Document
	Collection model.Collection `json:"collection"`
}

// documentListResponse — список документов.
type documentListResponse struct {
	Items []documentResponse `json:"items"`
	Total int                `json:"total"`
}

func newDocumentResponse(doc *model.Document, col model.Collection) documentResponse {
	return documentResponse{Document: doc, Collection: col}
}

func newDocumentList(docs []*model.Document, col model.Collection) documentListResponse {
	items := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, newDocumentResponse(d, col))
	}
	return documentListResponse{Items: items, Total: len(items)}
}

// writeJSON записывает JSON-ответ с заданным статусом.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// documentID извлекает и проверяет {id} из пути запроса.
// При ошибке пишет 400 и возвращает false.
func documentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Неверный формат параметра id: %s", err))
		return "", false
	}
	return id.String(), true
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
// ErrNotFound проверяется раньше TransitionError: операция над документом
// не из той коллекции для клиента равнозначна отсутствию документа.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var te *lifecycle.TransitionError
	switch {
	case errors.Is(err, share.ErrDisabled):
		apierrors.ShareDisabled(w, "Обмен документами не настроен")
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Документ не найден")
	case errors.As(err, &te):
		apierrors.InvalidTransition(w, te.Message)
	case errors.Is(err, service.ErrInvalidName), errors.Is(err, service.ErrInvalidSource):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, filestore.ErrAlreadyExists):
		apierrors.AlreadyExists(w, "Файл с таким именем уже существует")
	case errors.Is(err, filestore.ErrPermissionDenied):
		apierrors.PermissionDenied(w, "Нет доступа к файлу в хранилище")
	case errors.Is(err, filestore.ErrNotFound):
		apierrors.NotFound(w, "Файл документа отсутствует в хранилище")
	case errors.Is(err, filestore.ErrTooLarge):
		apierrors.FileTooLarge(w, err.Error())
	default:
		logger.Error("Внутренняя ошибка обработки запроса", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
