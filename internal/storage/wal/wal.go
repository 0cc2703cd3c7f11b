package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotPending — запись уже завершена (committed или rolled_back).
var ErrNotPending = errors.New("запись журнала не в статусе pending")

// WAL — файловый журнал намерений.
type WAL struct {
	dir    string
	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

// New создаёт журнал. Создаёт директорию и проверяет её доступность на запись.
func New(dir string, logger *slog.Logger) (*WAL, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию журнала %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".wal_write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o640); err != nil {
		return nil, fmt.Errorf("директория журнала %s недоступна для записи: %w", dir, err)
	}
	_ = os.Remove(probe)

	return &WAL{
		dir:    dir,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "wal")),
	}, nil
}

// Dir возвращает директорию журнала.
func (w *WAL) Dir() string {
	return w.dir
}

// Begin записывает намерение операции со статусом pending.
// Запись сохраняется атомарно до начала операции с файлами.
func (w *WAL) Begin(op OperationType, documentID, source, target string) (*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry := &Entry{
		TransactionID: uuid.New().String(),
		Operation:     op,
		Status:        StatusPending,
		DocumentID:    documentID,
		Source:        source,
		Target:        target,
		StartedAt:     w.now(),
	}
	if err := w.write(entry); err != nil {
		return nil, fmt.Errorf("не удалось создать запись журнала: %w", err)
	}

	w.logger.Debug("Транзакция начата",
		slog.String("tx_id", entry.TransactionID),
		slog.String("operation", string(op)),
		slog.String("document_id", documentID),
	)
	return entry, nil
}

// Commit помечает запись как успешно завершённую.
func (w *WAL) Commit(txID string) error {
	return w.finish(txID, StatusCommitted)
}

// Rollback помечает запись как отменённую.
func (w *WAL) Rollback(txID string) error {
	return w.finish(txID, StatusRolledBack)
}

// finish переводит pending запись в конечный статус.
func (w *WAL) finish(txID string, status TransactionStatus) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, err := w.read(txID)
	if err != nil {
		return fmt.Errorf("не удалось прочитать запись журнала %s: %w", txID, err)
	}
	if entry.Status != StatusPending {
		return fmt.Errorf("%s (%s): %w", txID, entry.Status, ErrNotPending)
	}

	now := w.now()
	entry.Status = status
	entry.CompletedAt = &now
	if err := w.write(entry); err != nil {
		return fmt.Errorf("не удалось обновить запись журнала %s: %w", txID, err)
	}

	w.logger.Debug("Транзакция завершена",
		slog.String("tx_id", txID),
		slog.String("status", string(status)),
		slog.Duration("duration", now.Sub(entry.StartedAt)),
	)
	return nil
}

// Get читает запись журнала по идентификатору транзакции.
func (w *WAL) Get(txID string) (*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.read(txID)
}

// Pending возвращает незавершённые записи в порядке начала.
// Нечитаемые записи пропускаются с предупреждением.
func (w *WAL) Pending() ([]*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	all, err := w.scan()
	if err != nil {
		return nil, err
	}

	var pending []*Entry
	for _, e := range all {
		if e.Status == StatusPending {
			pending = append(pending, e)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].StartedAt.Before(pending[j].StartedAt)
	})
	return pending, nil
}

// CleanCompleted удаляет завершённые записи. Возвращает число удалённых.
func (w *WAL) CleanCompleted() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	all, err := w.scan()
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, e := range all {
		if e.Status == StatusPending {
			continue
		}
		path := filepath.Join(w.dir, walFileName(e.TransactionID))
		if err := os.Remove(path); err != nil {
			w.logger.Warn("Не удалось удалить запись журнала",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		w.logger.Info("Очистка журнала завершена", slog.Int("cleaned", cleaned))
	}
	return cleaned, nil
}

// scan читает все записи директории журнала.
func (w *WAL) scan() ([]*Entry, error) {
	paths, err := filepath.Glob(filepath.Join(w.dir, "*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("не удалось сканировать директорию журнала: %w", err)
	}

	entries := make([]*Entry, 0, len(paths))
	for _, path := range paths {
		entry, err := w.read(strings.TrimSuffix(filepath.Base(path), fileSuffix))
		if err != nil {
			w.logger.Warn("Не удалось прочитать запись журнала",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// write атомарно сохраняет запись: temp файл → fsync → rename.
func (w *WAL) write(entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}

	target := filepath.Join(w.dir, walFileName(entry.TransactionID))
	tmp := target + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	if _, err = f.Write(data); err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

// read читает запись журнала из файла.
func (w *WAL) read(txID string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, walFileName(txID)))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("ошибка десериализации: %w", err)
	}
	return &entry, nil
}
