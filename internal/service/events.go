// events.go — уведомления об изменениях каталога.
// Подписчики вызываются синхронно после снятия блокировки менеджера,
// в порядке подписки.
package service

import (
	"sync"

	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
)

// EventType — тип изменения каталога.
type EventType string

const (
	EventDocumentAdded   EventType = "document_added"
	EventDocumentUpdated EventType = "document_updated"
	EventDocumentRemoved EventType = "document_removed"
	EventCatalogReloaded EventType = "catalog_reloaded"
)

// Event — изменение каталога.
// Document — копия документа после изменения (для removed — до удаления),
// nil для EventCatalogReloaded. Collection — коллекция, которой касается событие.
type Event struct {
	Type       EventType
	Document   *model.Document
	Collection model.Collection
}

type subscriber struct {
	id int
	fn func(Event)
}

// observers — список подписчиков.
type observers struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

// subscribe добавляет подписчика и возвращает функцию отписки.
func (o *observers) subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.next++
	id := o.next
	o.subs = append(o.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, s := range o.subs {
				if s.id == id {
					o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// publish доставляет события всем текущим подписчикам.
func (o *observers) publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	o.mu.Lock()
	subs := append([]subscriber(nil), o.subs...)
	o.mu.Unlock()

	for _, ev := range events {
		for _, s := range subs {
			s.fn(ev)
		}
	}
}
