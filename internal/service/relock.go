// relock.go — отложенная повторная блокировка после временной разблокировки.
//
// Задача хранится рядом с каталогом и привязана к id документа и токену
// конкретного запроса. Любая операция, меняющая состояние защиты, а также
// удаление в корзину, окончательное удаление и перезагрузка каталога
// отменяют задачу. Сработавший таймер повторно проверяет токен под
// блокировкой менеджера, поэтому запоздавший вызов ничего не меняет.
package service

import (
	"log/slog"
	"time"

	"github.com/bigkaa/goartstore/docvault/internal/api/middleware"
	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
)

// DefaultRelockDelay — задержка повторной блокировки по умолчанию.
const DefaultRelockDelay = 30 * time.Second

// Timer — запланированный вызов, который можно отменить.
type Timer interface {
	Stop() bool
}

// Scheduler планирует отложенные вызовы.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// clockScheduler — планировщик на time.AfterFunc.
type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// relockTask — запланированная повторная блокировка документа.
type relockTask struct {
	token uint64
	timer Timer
}

// scheduleRelock планирует блокировку документа id через relockDelay.
// Предыдущая задача для того же id отменяется. Вызывается под m.mu.
func (m *Manager) scheduleRelock(id string) {
	m.cancelRelock(id)

	m.relockSeq++
	token := m.relockSeq
	timer := m.scheduler.AfterFunc(m.relockDelay, func() {
		m.relock(id, token)
	})
	m.relocks[id] = &relockTask{token: token, timer: timer}
}

// cancelRelock отменяет задачу для id, если она есть. Вызывается под m.mu.
func (m *Manager) cancelRelock(id string) {
	task, ok := m.relocks[id]
	if !ok {
		return
	}
	task.timer.Stop()
	delete(m.relocks, id)
	middleware.RelocksTotal.WithLabelValues("cancelled").Inc()
}

// cancelAllRelocks отменяет все задачи. Вызывается под m.mu.
func (m *Manager) cancelAllRelocks() {
	for id := range m.relocks {
		m.cancelRelock(id)
	}
}

// hasRelock сообщает, ожидает ли документ повторной блокировки.
func (m *Manager) hasRelock(id string) bool {
	_, ok := m.relocks[id]
	return ok
}

// relock — обработчик сработавшего таймера.
func (m *Manager) relock(id string, token uint64) {
	m.mu.Lock()

	task, ok := m.relocks[id]
	if !ok || task.token != token {
		m.mu.Unlock()
		middleware.RelocksTotal.WithLabelValues("superseded").Inc()
		return
	}
	delete(m.relocks, id)

	doc, err := m.relockLocked(id)
	m.mu.Unlock()

	if err != nil {
		middleware.RelocksTotal.WithLabelValues("failed").Inc()
		m.logger.Error("Не удалось повторно заблокировать документ",
			slog.String("document_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	if doc == nil {
		middleware.RelocksTotal.WithLabelValues("skipped").Inc()
		return
	}

	middleware.RelocksTotal.WithLabelValues("relocked").Inc()
	m.logger.Debug("Документ повторно заблокирован", slog.String("document_id", id))
	m.observers.publish(Event{Type: EventDocumentUpdated, Document: doc, Collection: model.CollectionActive})
}

// relockLocked устанавливает защиту на активный незащищённый документ.
// Возвращает nil без ошибки, если делать нечего. Вызывается под m.mu.
func (m *Manager) relockLocked(id string) (*model.Document, error) {
	doc, ok := m.catalog.Lookup(id, model.CollectionActive)
	if !ok || doc.IsProtected {
		return nil, nil
	}
	if err := m.store.SetProtected(doc.Location, true); err != nil {
		return nil, err
	}
	doc.IsProtected = true
	return doc.Clone(), nil
}
