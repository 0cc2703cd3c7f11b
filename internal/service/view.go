// view.go — сервис просмотра содержимого документа.
//
// Незащищённый документ отдаётся сразу. Защищённый — только после
// подтверждения шлюзом авторизации и через TemporaryUnlock: содержимое
// отдаётся внутри onReady, повторная блокировка планируется менеджером.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"

	apierrors "github.com/bigkaa/goartstore/docvault/internal/api/errors"
	"github.com/bigkaa/goartstore/docvault/internal/domain/classify"
	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
	"github.com/bigkaa/goartstore/docvault/internal/storage/filestore"
)

// Opener открывает файл документа для чтения.
type Opener interface {
	Open(path string) (*os.File, error)
}

// ViewService — сервис просмотра документов.
type ViewService struct {
	manager *Manager
	opener  Opener
	logger  *slog.Logger
}

// NewViewService создаёт сервис просмотра.
func NewViewService(manager *Manager, opener Opener, logger *slog.Logger) *ViewService {
	return &ViewService{
		manager: manager,
		opener:  opener,
		logger:  logger.With(slog.String("component", "view_service")),
	}
}

// ViewError — ошибка просмотра с HTTP-кодом.
type ViewError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ViewError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Serve отдаёт содержимое активного документа через http.ServeContent.
// authorize вызывается только для защищённого документа; отказ — 403.
func (s *ViewService) Serve(w http.ResponseWriter, r *http.Request, id string, authorize func() bool) *ViewError {
	doc, col, err := s.manager.Get(id)
	if err != nil || col != model.CollectionActive {
		return &ViewError{
			StatusCode: http.StatusNotFound,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("Документ %s не найден", id),
		}
	}

	if !doc.IsProtected {
		return s.present(w, r, *doc)
	}

	if authorize == nil || !authorize() {
		return &ViewError{
			StatusCode: http.StatusForbidden,
			Code:       apierrors.CodeAuthorizationRequired,
			Message:    fmt.Sprintf("Просмотр защищённого документа %s не подтверждён", doc.DisplayName),
		}
	}

	var viewErr *ViewError
	err = s.manager.TemporaryUnlock(id, func(d model.Document) {
		viewErr = s.present(w, r, d)
	})
	if err != nil {
		s.logger.Error("Ошибка временной разблокировки",
			slog.String("document_id", id),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, ErrNotFound) {
			return &ViewError{
				StatusCode: http.StatusNotFound,
				Code:       apierrors.CodeNotFound,
				Message:    fmt.Sprintf("Документ %s не найден", id),
			}
		}
		return &ViewError{
			StatusCode: http.StatusInternalServerError,
			Code:       apierrors.CodeInternalError,
			Message:    "Не удалось разблокировать документ",
		}
	}
	return viewErr
}

// present отдаёт файл документа. Поддерживает Range и If-Modified-Since.
func (s *ViewService) present(w http.ResponseWriter, r *http.Request, doc model.Document) *ViewError {
	file, err := s.opener.Open(doc.Location)
	if err != nil {
		s.logger.Error("Файл документа не открыт",
			slog.String("document_id", doc.ID),
			slog.String("path", doc.Location),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, filestore.ErrNotFound) {
			return &ViewError{
				StatusCode: http.StatusNotFound,
				Code:       apierrors.CodeNotFound,
				Message:    fmt.Sprintf("Файл документа %s не найден на диске", doc.ID),
			}
		}
		if errors.Is(err, filestore.ErrPermissionDenied) {
			return &ViewError{
				StatusCode: http.StatusForbidden,
				Code:       apierrors.CodePermissionDenied,
				Message:    fmt.Sprintf("Нет доступа к файлу документа %s", doc.ID),
			}
		}
		return &ViewError{
			StatusCode: http.StatusInternalServerError,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения файла",
		}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return &ViewError{
			StatusCode: http.StatusInternalServerError,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения файла",
		}
	}

	w.Header().Set("Content-Type", classify.ContentType(doc.DisplayName))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.DisplayName}))
	w.Header().Set("X-Document-Type", string(doc.TypeHint))
	w.Header().Set("Accept-Ranges", "bytes")

	http.ServeContent(w, r, doc.DisplayName, stat.ModTime(), file)

	s.logger.Debug("Документ открыт для просмотра",
		slog.String("document_id", doc.ID),
		slog.String("type", string(doc.TypeHint)),
		slog.Int64("size", stat.Size()),
	)
	return nil
}
