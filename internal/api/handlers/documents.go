// documents.go — HTTP handlers активных документов.
// List/Search, Upload, Get, Rename, Trash, Lock, Unlock, Content, Share.
// Шлюз авторизации для rename/trash/lock/unlock/share навешивается
// на маршруты; для content — только если документ защищён.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/bigkaa/goartstore/docvault/internal/api/errors"
	"github.com/bigkaa/goartstore/docvault/internal/api/middleware"
	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
	"github.com/bigkaa/goartstore/docvault/internal/service"
)

// Причина запроса к шлюзу при просмотре защищённого документа.
const ReasonViewLocked = "View locked document"

// multipartMemory — буфер multipart формы в памяти, остальное во временных файлах.
const multipartMemory = 32 << 20

// renameRequest — тело PATCH /api/v1/documents/{id}.
type renameRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// DocumentsHandler — обработчик endpoints активных документов.
type DocumentsHandler struct {
	manager  *service.Manager
	search   *service.SearchService
	upload   *service.UploadService
	view     *service.ViewService
	share    *service.ShareService
	gate     middleware.Authorizer
	validate *validator.Validate
	logger   *slog.Logger
}

// NewDocumentsHandler создаёт обработчик документов.
func NewDocumentsHandler(
	manager *service.Manager,
	search *service.SearchService,
	upload *service.UploadService,
	view *service.ViewService,
	shareSvc *service.ShareService,
	gate middleware.Authorizer,
	logger *slog.Logger,
) *DocumentsHandler {
	return &DocumentsHandler{
		manager:  manager,
		search:   search,
		upload:   upload,
		view:     view,
		share:    shareSvc,
		gate:     gate,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(slog.String("component", "documents_handler")),
	}
}

// ListDocuments обрабатывает GET /api/v1/documents.
// Параметры: q — подстрока имени, category — фильтр по категории.
func (h *DocumentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	rawCategory := r.URL.Query().Get("category")

	var category model.Category
	if rawCategory != "" {
		c, ok := model.ParseCategory(rawCategory)
		if !ok {
			apierrors.ValidationError(w, fmt.Sprintf("Неизвестная категория: %s", rawCategory))
			return
		}
		category = c
	}

	var docs []*model.Document
	if strings.TrimSpace(query) == "" && category == "" {
		docs = h.manager.ListActive()
	} else {
		docs = h.search.Search(query, category)
	}

	writeJSON(w, http.StatusOK, newDocumentList(docs, model.CollectionActive))
}

// UploadDocument обрабатывает POST /api/v1/documents.
// Multipart form: file (обязательно), name (опционально, имя без расширения).
func (h *DocumentsHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	doc, uploadErr := h.upload.Upload(service.UploadParams{
		Reader:        file,
		Filename:      header.Filename,
		SuggestedName: r.FormValue("name"),
	})
	if uploadErr != nil {
		apierrors.WriteError(w, uploadErr.StatusCode, uploadErr.Code, uploadErr.Message)
		return
	}

	h.logger.Info("Документ загружен",
		slog.String("id", doc.ID),
		slog.String("name", doc.DisplayName),
		slog.String("subject", middleware.SubjectFromContext(r.Context())),
	)
	writeJSON(w, http.StatusCreated, newDocumentResponse(doc, model.CollectionActive))
}

// GetDocument обрабатывает GET /api/v1/documents/{id}.
// Документ из корзины здесь не виден.
func (h *DocumentsHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, col, err := h.manager.Get(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if col != model.CollectionActive {
		apierrors.NotFound(w, "Документ не найден")
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc, col))
}

// RenameDocument обрабатывает PATCH /api/v1/documents/{id}.
// Тело: {"name": "..."}; расширение сохраняется.
func (h *DocumentsHandler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Невалидный JSON в теле запроса")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка валидации: %s", err.Error()))
		return
	}

	doc, err := h.manager.RenameDocument(id, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc, model.CollectionActive))
}

// TrashDocument обрабатывает DELETE /api/v1/documents/{id}.
func (h *DocumentsHandler) TrashDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.manager.MoveToTrash(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc, model.CollectionTrashed))
}

// LockDocument обрабатывает POST /api/v1/documents/{id}/lock.
func (h *DocumentsHandler) LockDocument(w http.ResponseWriter, r *http.Request) {
	h.setProtection(w, r, h.manager.LockDocument)
}

// UnlockDocument обрабатывает POST /api/v1/documents/{id}/unlock.
func (h *DocumentsHandler) UnlockDocument(w http.ResponseWriter, r *http.Request) {
	h.setProtection(w, r, h.manager.UnlockDocument)
}

func (h *DocumentsHandler) setProtection(
	w http.ResponseWriter,
	r *http.Request,
	apply func(id string) (*model.Document, error),
) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := apply(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc, model.CollectionActive))
}

// DocumentContent обрабатывает GET /api/v1/documents/{id}/content.
// Поддерживает Range requests. Защищённый документ требует шлюза и
// временно разблокируется на время чтения.
func (h *DocumentsHandler) DocumentContent(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	authorize := func() bool {
		return h.gate.Authorize(r.Context(), ReasonViewLocked)
	}
	if viewErr := h.view.Serve(w, r, id, authorize); viewErr != nil {
		apierrors.WriteError(w, viewErr.StatusCode, viewErr.Code, viewErr.Message)
	}
}

// ShareDocument обрабатывает POST /api/v1/documents/{id}/share.
func (h *DocumentsHandler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	link, err := h.share.Share(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}
