// recovery.go — разбор журнала намерений при старте.
//
// Выполняется до Reload. Каталог в памяти не хранится между запусками,
// поэтому восстановление приводит в порядок только файлы:
//   - import: цель существует → операция завершена, источник удаляется,
//     запись фиксируется; иначе запись откатывается
//   - rename: цель существует → перемещение завершено (остаток источника
//     после копирования между ФС удаляется), запись фиксируется;
//     иначе запись откатывается
//
// После разбора удаляются завершённые записи и временные файлы.
package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/goartstore/docvault/internal/storage/filestore"
	"github.com/bigkaa/goartstore/docvault/internal/storage/wal"
)

// RecoveryJournal — операции журнала, нужные при восстановлении.
type RecoveryJournal interface {
	Pending() ([]*wal.Entry, error)
	Commit(txID string) error
	Rollback(txID string) error
	CleanCompleted() (int, error)
}

// RecoveryStore — файловые операции, нужные при восстановлении.
type RecoveryStore interface {
	Exists(path string) bool
	Delete(path string) error
	CleanTemp() (int, error)
}

// RecoveryResult — итог восстановления.
type RecoveryResult struct {
	Committed   int
	RolledBack  int
	TempCleaned int
}

// RecoverJournal разбирает незавершённые записи журнала.
func RecoverJournal(journal RecoveryJournal, store RecoveryStore, logger *slog.Logger) (*RecoveryResult, error) {
	log := logger.With(slog.String("component", "recovery"))

	pending, err := journal.Pending()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала: %w", err)
	}

	result := &RecoveryResult{}
	for _, e := range pending {
		completed := store.Exists(e.Target)
		if completed && store.Exists(e.Source) {
			if delErr := store.Delete(e.Source); delErr != nil && !errors.Is(delErr, filestore.ErrNotFound) {
				log.Warn("Не удалось удалить источник завершённой операции",
					slog.String("tx_id", e.TransactionID),
					slog.String("path", e.Source),
					slog.String("error", delErr.Error()),
				)
			}
		}

		if completed {
			if err := journal.Commit(e.TransactionID); err != nil {
				return result, fmt.Errorf("ошибка фиксации записи %s: %w", e.TransactionID, err)
			}
			result.Committed++
		} else {
			if err := journal.Rollback(e.TransactionID); err != nil {
				return result, fmt.Errorf("ошибка отката записи %s: %w", e.TransactionID, err)
			}
			result.RolledBack++
		}

		log.Info("Запись журнала восстановлена",
			slog.String("tx_id", e.TransactionID),
			slog.String("operation", string(e.Operation)),
			slog.String("document_id", e.DocumentID),
			slog.Bool("completed", completed),
		)
	}

	if _, err := journal.CleanCompleted(); err != nil {
		log.Warn("Ошибка очистки журнала", slog.String("error", err.Error()))
	}

	cleaned, err := store.CleanTemp()
	if err != nil {
		log.Warn("Ошибка очистки временных файлов", slog.String("error", err.Error()))
	}
	result.TempCleaned = cleaned

	if len(pending) > 0 {
		log.Info("Восстановление журнала завершено",
			slog.Int("committed", result.Committed),
			slog.Int("rolled_back", result.RolledBack),
			slog.Int("temp_cleaned", result.TempCleaned),
		)
	}
	return result, nil
}
