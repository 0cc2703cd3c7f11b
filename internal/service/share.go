// share.go — выгрузка документа для обмена.
// Защищённый документ читается через TemporaryUnlock.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bigkaa/goartstore/docvault/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
	"github.com/bigkaa/goartstore/docvault/internal/share"
)

// Uploader выгружает содержимое документа и возвращает ссылку.
type Uploader interface {
	Upload(ctx context.Context, doc model.Document, body io.Reader, size int64) (*share.Link, error)
}

// ShareService — сервис обмена документами.
type ShareService struct {
	manager  *Manager
	opener   Opener
	uploader Uploader
	logger   *slog.Logger
}

// NewShareService создаёт сервис обмена. uploader == nil — обмен отключён.
func NewShareService(manager *Manager, opener Opener, uploader Uploader, logger *slog.Logger) *ShareService {
	return &ShareService{
		manager:  manager,
		opener:   opener,
		uploader: uploader,
		logger:   logger.With(slog.String("component", "share_service")),
	}
}

// Enabled сообщает, настроен ли обмен.
func (s *ShareService) Enabled() bool {
	return s.uploader != nil
}

// Share выгружает активный документ и возвращает временную ссылку.
func (s *ShareService) Share(ctx context.Context, id string) (*share.Link, error) {
	if s.uploader == nil {
		return nil, share.ErrDisabled
	}

	doc, col, err := s.manager.Get(id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(lifecycle.StateOf(col), lifecycle.OpShare); err != nil {
		return nil, fmt.Errorf("документ %s: %w: %w", id, ErrNotFound, err)
	}

	var link *share.Link
	if !doc.IsProtected {
		link, err = s.upload(ctx, *doc)
	} else {
		var uploadErr error
		err = s.manager.TemporaryUnlock(id, func(d model.Document) {
			link, uploadErr = s.upload(ctx, d)
		})
		if err == nil {
			err = uploadErr
		}
	}

	s.manager.record(string(lifecycle.OpShare), err)
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *ShareService) upload(ctx context.Context, doc model.Document) (*share.Link, error) {
	file, err := s.opener.Open(doc.Location)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла документа %s: %w", doc.ID, err)
	}
	return s.uploader.Upload(ctx, doc, file, stat.Size())
}
