// Пакет service — бизнес-логика хранилища документов.
// upload.go — источник импорта для загрузок по HTTP.
//
// Тело загрузки сначала сохраняется в директорию загрузок (временный
// файл-источник), затем передаётся менеджеру через ImportDocument.
// Менеджер потребляет источник; остаток поддиректории удаляется здесь.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	apierrors "github.com/bigkaa/goartstore/docvault/internal/api/errors"
	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
	"github.com/bigkaa/goartstore/docvault/internal/storage/filestore"
)

// Stager сохраняет поток во временный файл-источник.
type Stager interface {
	Stage(r io.Reader, filename string, limit int64) (string, error)
	Unstage(path string)
}

// UploadParams — параметры загрузки документа.
type UploadParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// Filename — имя файла у клиента (даёт расширение)
	Filename string
	// SuggestedName — отображаемое имя без расширения (опционально)
	SuggestedName string
}

// UploadError — ошибка загрузки с HTTP-кодом.
type UploadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UploadService — сервис загрузки документов.
type UploadService struct {
	manager *Manager
	stager  Stager
	maxSize int64
	logger  *slog.Logger
}

// NewUploadService создаёт сервис загрузки.
// maxSize — максимальный размер файла в байтах.
func NewUploadService(manager *Manager, stager Stager, maxSize int64, logger *slog.Logger) *UploadService {
	return &UploadService{
		manager: manager,
		stager:  stager,
		maxSize: maxSize,
		logger:  logger.With(slog.String("component", "upload_service")),
	}
}

// Upload сохраняет поток и импортирует его как новый документ.
//
// Поток:
//  1. Stage (temp → fsync → rename, с ограничением размера)
//  2. ImportDocument (копирование в хранилище, классификация, каталог)
//  3. Unstage (удаление поддиректории загрузки)
func (s *UploadService) Upload(params UploadParams) (*model.Document, *UploadError) {
	if params.Reader == nil || params.Filename == "" {
		return nil, &UploadError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Файл не передан",
		}
	}

	staged, err := s.stager.Stage(params.Reader, params.Filename, s.maxSize)
	if err != nil {
		if errors.Is(err, filestore.ErrTooLarge) {
			return nil, &UploadError{
				StatusCode: 413,
				Code:       apierrors.CodeFileTooLarge,
				Message:    fmt.Sprintf("Размер файла превышает максимум %d байт", s.maxSize),
			}
		}
		s.logger.Error("Ошибка сохранения загрузки",
			slog.String("filename", params.Filename),
			slog.String("error", err.Error()),
		)
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка сохранения файла на диск",
		}
	}
	defer s.stager.Unstage(staged)

	doc, err := s.manager.ImportDocument(Source{Path: staged, SuggestedName: params.SuggestedName})
	if err != nil {
		s.logger.Error("Ошибка импорта загрузки",
			slog.String("filename", params.Filename),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, filestore.ErrPermissionDenied) {
			return nil, &UploadError{
				StatusCode: 403,
				Code:       apierrors.CodePermissionDenied,
				Message:    "Нет доступа к директории хранилища",
			}
		}
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка импорта документа",
		}
	}

	return doc, nil
}
