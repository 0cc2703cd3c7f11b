// trash.go — HTTP handlers корзины: просмотр, восстановление, удаление навсегда.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
	"github.com/bigkaa/goartstore/docvault/internal/service"
)

// TrashHandler — обработчик endpoints корзины.
type TrashHandler struct {
	manager *service.Manager
	logger  *slog.Logger
}

// NewTrashHandler создаёт обработчик корзины.
func NewTrashHandler(manager *service.Manager, logger *slog.Logger) *TrashHandler {
	return &TrashHandler{
		manager: manager,
		logger:  logger.With(slog.String("component", "trash_handler")),
	}
}

// ListTrash обрабатывает GET /api/v1/trash.
func (h *TrashHandler) ListTrash(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newDocumentList(h.manager.ListTrashed(), model.CollectionTrashed))
}

// RestoreDocument обрабатывает POST /api/v1/trash/{id}/restore.
func (h *TrashHandler) RestoreDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.manager.RestoreFromTrash(id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc, model.CollectionActive))
}

// DeleteForever обрабатывает DELETE /api/v1/trash/{id}.
func (h *TrashHandler) DeleteForever(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	if err := h.manager.PermanentlyDelete(id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
