// manager.go — менеджер жизненного цикла документов.
//
// Manager — единственный владелец каталога. Все публичные операции
// выполняются взаимоисключающе (sync.RWMutex): изменяющие берут Lock,
// читающие — RLock. Таймер повторной блокировки участвует в той же
// дисциплине. Изменение защиты сначала выполняется в хранилище, и
// только после успеха отражается в каталоге.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/docvault/internal/api/middleware"
	"github.com/bigkaa/goartstore/docvault/internal/domain/classify"
	"github.com/bigkaa/goartstore/docvault/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
	"github.com/bigkaa/goartstore/docvault/internal/domain/naming"
	"github.com/bigkaa/goartstore/docvault/internal/storage/catalog"
	"github.com/bigkaa/goartstore/docvault/internal/storage/filestore"
	"github.com/bigkaa/goartstore/docvault/internal/storage/wal"
)

var (
	// ErrNotFound — документа нет в требуемой коллекции.
	ErrNotFound = errors.New("документ не найден")
	// ErrInvalidName — имя пусто после нормализации.
	ErrInvalidName = errors.New("недопустимое имя документа")
	// ErrInvalidSource — источник импорта не задан.
	ErrInvalidSource = errors.New("источник импорта не задан")
)

// Store — файловые операции, которые нужны менеджеру.
type Store interface {
	Dir() string
	List(dir string) ([]filestore.Entry, error)
	Exists(path string) bool
	Copy(src, dst string) error
	Move(src, dst string) error
	Delete(path string) error
	SetProtected(path string, protected bool) error
	IsProtected(path string) (bool, error)
}

// Journal — журнал намерений для импорта и переименования.
type Journal interface {
	Begin(op wal.OperationType, documentID, source, target string) (*wal.Entry, error)
	Commit(txID string) error
	Rollback(txID string) error
}

// Source — временный файл, переданный источником импорта.
// Менеджер потребляет его ровно один раз: копирует и удаляет.
type Source struct {
	// Path — путь к временному файлу
	Path string
	// SuggestedName — предложенное имя без расширения (опционально)
	SuggestedName string
}

// Option — опция конструктора Manager.
type Option func(*Manager)

// WithScheduler задаёт планировщик отложенной блокировки.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

// WithRelockDelay задаёт задержку повторной блокировки.
func WithRelockDelay(d time.Duration) Option {
	return func(m *Manager) { m.relockDelay = d }
}

// WithJournal включает журнал намерений.
func WithJournal(j Journal) Option {
	return func(m *Manager) { m.journal = j }
}

// WithClock задаёт источник времени.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager — менеджер жизненного цикла документов.
type Manager struct {
	mu      sync.RWMutex
	store   Store
	journal Journal
	catalog *catalog.Catalog

	scheduler   Scheduler
	relockDelay time.Duration
	relocks     map[string]*relockTask
	relockSeq   uint64

	observers observers
	now       func() time.Time
	logger    *slog.Logger
}

// NewManager создаёт менеджер с пустым каталогом.
// Для заполнения каталога из директории вызовите Reload.
func NewManager(store Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		catalog:     catalog.New(),
		scheduler:   clockScheduler{},
		relockDelay: DefaultRelockDelay,
		relocks:     make(map[string]*relockTask),
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With(slog.String("component", "manager")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe регистрирует подписчика на изменения каталога.
// Возвращает функцию отписки.
func (m *Manager) Subscribe(fn func(Event)) func() {
	return m.observers.subscribe(fn)
}

// RelockDelay возвращает задержку повторной блокировки.
func (m *Manager) RelockDelay() time.Duration {
	return m.relockDelay
}

// ImportDocument копирует источник в хранилище и регистрирует документ
// в начале active. Имя: SuggestedName (после обрезки) или имя источника,
// расширение источника, коллизии разрешаются суффиксом " (n)".
// Ошибка копирования отменяет операцию целиком. Ошибка удаления
// источника после успешного импорта только логируется.
func (m *Manager) ImportDocument(src Source) (*model.Document, error) {
	if strings.TrimSpace(src.Path) == "" {
		return nil, ErrInvalidSource
	}

	m.mu.Lock()
	doc, err := m.importLocked(src)
	m.mu.Unlock()

	m.record("import", err)
	if err != nil {
		return nil, err
	}

	if delErr := m.store.Delete(src.Path); delErr != nil {
		m.logger.Warn("Не удалось удалить источник импорта",
			slog.String("path", src.Path),
			slog.String("error", delErr.Error()),
		)
	}

	m.logger.Info("Документ импортирован",
		slog.String("document_id", doc.ID),
		slog.String("name", doc.DisplayName),
		slog.String("category", string(doc.Category)),
	)
	m.observers.publish(Event{Type: EventDocumentAdded, Document: doc, Collection: model.CollectionActive})
	return doc, nil
}

func (m *Manager) importLocked(src Source) (*model.Document, error) {
	dir := m.store.Dir()
	final := naming.Resolve(naming.ImportName(src.SuggestedName, src.Path), m.existsIn(dir, ""))
	target := filepath.Join(dir, final)
	id := uuid.New().String()

	tx, err := m.begin(wal.OpImport, id, src.Path, target)
	if err != nil {
		return nil, err
	}

	if err := m.store.Copy(src.Path, target); err != nil {
		m.rollback(tx)
		return nil, fmt.Errorf("ошибка копирования %s: %w", final, err)
	}
	if err := m.store.SetProtected(target, false); err != nil {
		if delErr := m.store.Delete(target); delErr != nil {
			m.logger.Warn("Не удалось удалить скопированный файл",
				slog.String("path", target),
				slog.String("error", delErr.Error()),
			)
		}
		m.rollback(tx)
		return nil, fmt.Errorf("ошибка снятия защиты %s: %w", final, err)
	}

	hint, ok := classify.TypeHintFor(final)
	if !ok {
		hint = model.TypeGeneric
	}
	doc := &model.Document{
		ID:          id,
		DisplayName: final,
		Location:    target,
		TypeHint:    hint,
		IsProtected: false,
		AddedAt:     m.now(),
		Category:    classify.Classify(final),
	}
	if err := m.catalog.PushActive(doc); err != nil {
		// id новый, коллизия невозможна
		m.rollback(tx)
		return nil, err
	}
	m.commit(tx)
	m.updateGauges()

	return doc.Clone(), nil
}

// RenameDocument переименовывает активный документ с сохранением расширения.
// При ошибке перемещения файла каталог не меняется.
func (m *Manager) RenameDocument(id, newName string) (*model.Document, error) {
	m.mu.Lock()
	doc, changed, err := m.renameLocked(id, newName)
	m.mu.Unlock()

	m.record("rename", err)
	if err != nil {
		return nil, err
	}
	if changed {
		m.logger.Info("Документ переименован",
			slog.String("document_id", id),
			slog.String("name", doc.DisplayName),
		)
		m.observers.publish(Event{Type: EventDocumentUpdated, Document: doc, Collection: model.CollectionActive})
	}
	return doc, nil
}

func (m *Manager) renameLocked(id, newName string) (*model.Document, bool, error) {
	doc, _, err := m.lookup(id, lifecycle.OpRename)
	if err != nil {
		return nil, false, err
	}

	desired := naming.RenameName(newName, doc.DisplayName)
	if base, _ := naming.Split(desired); strings.TrimSpace(base) == "" {
		return nil, false, ErrInvalidName
	}

	dir := filepath.Dir(doc.Location)
	final := naming.Resolve(desired, m.existsIn(dir, doc.Location))
	if final == doc.DisplayName {
		return doc.Clone(), false, nil
	}
	target := filepath.Join(dir, final)

	tx, err := m.begin(wal.OpRename, id, doc.Location, target)
	if err != nil {
		return nil, false, err
	}
	if err := m.store.Move(doc.Location, target); err != nil {
		m.rollback(tx)
		return nil, false, fmt.Errorf("ошибка переименования документа %s: %w", id, err)
	}
	m.commit(tx)

	doc.DisplayName = final
	doc.Location = target
	doc.Category = classify.Classify(final)
	return doc.Clone(), true, nil
}

// LockDocument устанавливает защиту на файл документа.
func (m *Manager) LockDocument(id string) (*model.Document, error) {
	return m.setProtection(id, true, lifecycle.OpLock)
}

// UnlockDocument снимает защиту с файла документа.
func (m *Manager) UnlockDocument(id string) (*model.Document, error) {
	return m.setProtection(id, false, lifecycle.OpUnlock)
}

// setProtection — общая часть Lock и Unlock. Каталог обновляется только
// после успешного вызова хранилища. Успешное изменение отменяет
// ожидающую повторную блокировку.
func (m *Manager) setProtection(id string, protected bool, op lifecycle.Operation) (*model.Document, error) {
	m.mu.Lock()
	doc, err := m.setProtectionLocked(id, protected, op)
	m.mu.Unlock()

	m.record(string(op), err)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Защита документа изменена",
		slog.String("document_id", id),
		slog.Bool("protected", protected),
	)
	m.observers.publish(Event{Type: EventDocumentUpdated, Document: doc, Collection: model.CollectionActive})
	return doc, nil
}

func (m *Manager) setProtectionLocked(id string, protected bool, op lifecycle.Operation) (*model.Document, error) {
	doc, _, err := m.lookup(id, op)
	if err != nil {
		return nil, err
	}
	if err := m.store.SetProtected(doc.Location, protected); err != nil {
		return nil, fmt.Errorf("ошибка изменения защиты документа %s: %w", id, err)
	}
	doc.IsProtected = protected
	m.cancelRelock(id)
	return doc.Clone(), nil
}

// TemporaryUnlock снимает защиту, синхронно вызывает onReady и планирует
// повторную блокировку через RelockDelay от момента вызова.
//
// onReady вызывается без удержания блокировки менеджера, до возврата
// из TemporaryUnlock. Блокировка планируется всегда, в том числе для
// документа, который не был защищён: по истечении задержки он окажется
// защищён. Повторный вызов во время окна разблокировки перезапускает отсчёт.
func (m *Manager) TemporaryUnlock(id string, onReady func(model.Document)) error {
	m.mu.Lock()
	doc, changed, err := m.temporaryUnlockLocked(id)
	m.mu.Unlock()

	m.record(string(lifecycle.OpTemporaryUnlock), err)
	if err != nil {
		return err
	}
	if changed {
		m.logger.Debug("Документ временно разблокирован",
			slog.String("document_id", id),
			slog.Duration("relock_delay", m.relockDelay),
		)
		m.observers.publish(Event{Type: EventDocumentUpdated, Document: doc, Collection: model.CollectionActive})
	}
	if onReady != nil {
		onReady(*doc)
	}
	return nil
}

func (m *Manager) temporaryUnlockLocked(id string) (*model.Document, bool, error) {
	doc, _, err := m.lookup(id, lifecycle.OpTemporaryUnlock)
	if err != nil {
		return nil, false, err
	}

	if !doc.IsProtected {
		m.scheduleRelock(id)
		return doc.Clone(), false, nil
	}

	if err := m.store.SetProtected(doc.Location, false); err != nil {
		return nil, false, fmt.Errorf("ошибка временной разблокировки документа %s: %w", id, err)
	}
	doc.IsProtected = false
	m.scheduleRelock(id)
	return doc.Clone(), true, nil
}

// MoveToTrash переносит документ из active в trashed.
// Файл остаётся на месте. Повторный вызов — ErrNotFound.
func (m *Manager) MoveToTrash(id string) (*model.Document, error) {
	m.mu.Lock()
	doc, err := m.transition(id, lifecycle.OpTrash, func(d *model.Document) {
		now := m.now()
		d.Category = model.CategoryTrash
		d.TrashedAt = &now
	})
	m.mu.Unlock()

	m.record(string(lifecycle.OpTrash), err)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Документ перемещён в корзину", slog.String("document_id", id))
	m.observers.publish(
		Event{Type: EventDocumentRemoved, Document: doc, Collection: model.CollectionActive},
		Event{Type: EventDocumentAdded, Document: doc, Collection: model.CollectionTrashed},
	)
	return doc, nil
}

// RestoreFromTrash возвращает документ в active с пересчётом категории.
// Порядок active по AddedAt восстанавливается.
func (m *Manager) RestoreFromTrash(id string) (*model.Document, error) {
	m.mu.Lock()
	doc, err := m.transition(id, lifecycle.OpRestore, func(d *model.Document) {
		d.Category = classify.Classify(d.DisplayName)
		d.TrashedAt = nil
	})
	m.mu.Unlock()

	m.record(string(lifecycle.OpRestore), err)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Документ восстановлен из корзины", slog.String("document_id", id))
	m.observers.publish(
		Event{Type: EventDocumentRemoved, Document: doc, Collection: model.CollectionTrashed},
		Event{Type: EventDocumentAdded, Document: doc, Collection: model.CollectionActive},
	)
	return doc, nil
}

// transition переносит документ между коллекциями по переходу жизненного
// цикла op. mutate применяется к документу между удалением и вставкой.
// Вызывается под m.mu.
func (m *Manager) transition(id string, op lifecycle.Operation, mutate func(*model.Document)) (*model.Document, error) {
	_, col, err := m.lookup(id, op)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.Next(lifecycle.StateOf(col), op)
	if err != nil {
		return nil, fmt.Errorf("документ %s: %w", id, err)
	}

	doc, _ := m.catalog.Remove(id, col)
	m.cancelRelock(id)
	mutate(doc)

	switch next {
	case lifecycle.StateActive:
		err = m.catalog.InsertActive(doc)
	case lifecycle.StateTrashed:
		err = m.catalog.AppendTrashed(doc)
	}
	if err != nil {
		return nil, err
	}
	m.updateGauges()
	return doc.Clone(), nil
}

// PermanentlyDelete удаляет документ из корзины и его файл.
// Запись каталога удаляется в любом случае. Отсутствие файла не считается
// ошибкой; прочие ошибки хранилища возвращаются вызывающему.
func (m *Manager) PermanentlyDelete(id string) error {
	m.mu.Lock()
	res, err := m.purgeLocked(id)
	m.mu.Unlock()

	if err != nil {
		m.record(string(lifecycle.OpPurge), err)
		return err
	}
	doc, storeErr := res.doc, res.storeErr

	m.observers.publish(Event{Type: EventDocumentRemoved, Document: doc, Collection: model.CollectionTrashed})
	m.record(string(lifecycle.OpPurge), storeErr)
	if storeErr != nil {
		m.logger.Error("Ошибка удаления файла документа",
			slog.String("document_id", id),
			slog.String("path", doc.Location),
			slog.String("error", storeErr.Error()),
		)
		return fmt.Errorf("ошибка удаления файла документа %s: %w", id, storeErr)
	}
	m.logger.Info("Документ удалён безвозвратно", slog.String("document_id", id))
	return nil
}

// purgeResult — итог удаления под блокировкой: копия удалённой записи
// и ошибка хранилища, которую нужно вернуть вызывающему.
type purgeResult struct {
	doc      *model.Document
	storeErr error
}

func (m *Manager) purgeLocked(id string) (purgeResult, error) {
	doc, col, err := m.lookup(id, lifecycle.OpPurge)
	if err != nil {
		return purgeResult{}, err
	}
	if _, err := lifecycle.Next(lifecycle.StateOf(col), lifecycle.OpPurge); err != nil {
		return purgeResult{}, fmt.Errorf("документ %s: %w", id, err)
	}

	m.cancelRelock(id)
	storeErr := m.store.Delete(doc.Location)
	if errors.Is(storeErr, filestore.ErrNotFound) {
		m.logger.Warn("Файл документа уже отсутствует",
			slog.String("document_id", id),
			slog.String("path", doc.Location),
		)
		storeErr = nil
	}

	m.catalog.Remove(id, col)
	m.updateGauges()
	return purgeResult{doc: doc.Clone(), storeErr: storeErr}, nil
}

// Reload перестраивает active из содержимого директории хранилища.
//
// Каждый обычный нескрытый файл получает новый id, категорию по имени,
// признак защиты из атрибута файла и AddedAt по времени изменения файла.
// Файлы без сопоставимого расширения и файлы с нечитаемым атрибутом
// пропускаются с предупреждением. Документы корзины, чьи файлы ещё
// существуют, сохраняются; их файлы не попадают в active.
// Все ожидающие повторные блокировки отменяются.
func (m *Manager) Reload() error {
	m.mu.Lock()
	active, trashed, err := m.reloadLocked()
	m.mu.Unlock()

	m.record("reload", err)
	if err != nil {
		return err
	}
	m.logger.Info("Каталог перестроен",
		slog.Int("active", active),
		slog.Int("trashed", trashed),
		slog.String("dir", m.store.Dir()),
	)
	m.observers.publish(Event{Type: EventCatalogReloaded})
	return nil
}

func (m *Manager) reloadLocked() (int, int, error) {
	dir := m.store.Dir()
	entries, err := m.store.List(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка чтения директории хранилища: %w", err)
	}

	var trashed []*model.Document
	inTrash := make(map[string]bool)
	m.catalog.Each(model.CollectionTrashed, func(d *model.Document) {
		if !m.store.Exists(d.Location) {
			m.logger.Warn("Файл документа из корзины отсутствует, запись удалена",
				slog.String("document_id", d.ID),
				slog.String("path", d.Location),
			)
			return
		}
		c := d.Clone()
		if protected, err := m.store.IsProtected(c.Location); err == nil {
			c.IsProtected = protected
		}
		trashed = append(trashed, c)
		inTrash[c.Location] = true
	})

	active := make([]*model.Document, 0, len(entries))
	for _, e := range entries {
		if e.Hidden() || inTrash[e.Path] {
			continue
		}
		hint, ok := classify.TypeHintFor(e.Name)
		if !ok {
			m.logger.Warn("Файл пропущен: тип не определён по расширению",
				slog.String("name", e.Name),
			)
			continue
		}
		protected, err := m.store.IsProtected(e.Path)
		if err != nil {
			m.logger.Warn("Файл пропущен: не удалось прочитать атрибут защиты",
				slog.String("name", e.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		active = append(active, &model.Document{
			ID:          uuid.New().String(),
			DisplayName: e.Name,
			Location:    e.Path,
			TypeHint:    hint,
			IsProtected: protected,
			AddedAt:     e.ModTime.UTC(),
			Category:    classify.Classify(e.Name),
		})
	}

	if err := m.catalog.Replace(active, trashed); err != nil {
		return 0, 0, err
	}
	m.cancelAllRelocks()
	m.updateGauges()
	return len(active), len(trashed), nil
}

// Close отменяет таймеры и сразу блокирует документы, ожидающие
// повторной блокировки, чтобы они не остались открытыми после остановки.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.relocks))
	for id, task := range m.relocks {
		task.timer.Stop()
		ids = append(ids, id)
	}
	m.relocks = make(map[string]*relockTask)

	var updated []Event
	for _, id := range ids {
		doc, err := m.relockLocked(id)
		if err != nil {
			m.logger.Error("Не удалось заблокировать документ при остановке",
				slog.String("document_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if doc != nil {
			updated = append(updated, Event{Type: EventDocumentUpdated, Document: doc, Collection: model.CollectionActive})
		}
	}
	m.mu.Unlock()

	m.observers.publish(updated...)
}

// Get возвращает копию документа и его коллекцию.
func (m *Manager) Get(id string) (*model.Document, model.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, col, ok := m.catalog.Find(id)
	if !ok {
		return nil, "", fmt.Errorf("документ %s: %w", id, ErrNotFound)
	}
	return doc.Clone(), col, nil
}

// ListActive возвращает активные документы (новые первыми).
func (m *Manager) ListActive() []*model.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog.Active()
}

// ListTrashed возвращает документы корзины в порядке помещения.
func (m *Manager) ListTrashed() []*model.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog.Trashed()
}

// Search возвращает активные документы, в имени которых встречается
// query без учёта регистра. Пустой запрос — все активные документы.
func (m *Manager) Search(query string) []*model.Document {
	q := strings.ToLower(strings.TrimSpace(query))

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Document
	m.catalog.Each(model.CollectionActive, func(d *model.Document) {
		if q == "" || strings.Contains(strings.ToLower(d.DisplayName), q) {
			result = append(result, d.Clone())
		}
	})
	return result
}

// Counts возвращает число документов в active и trashed.
func (m *Manager) Counts() (active, trashed int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog.Count(model.CollectionActive), m.catalog.Count(model.CollectionTrashed)
}

// IsReady возвращает true после первого успешного Reload.
func (m *Manager) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog.IsReady()
}

// lookup находит документ и проверяет допустимость операции.
// Документ не в той коллекции считается отсутствующим. Вызывается под m.mu.
func (m *Manager) lookup(id string, op lifecycle.Operation) (*model.Document, model.Collection, error) {
	doc, col, ok := m.catalog.Find(id)
	if !ok {
		return nil, "", fmt.Errorf("документ %s: %w", id, ErrNotFound)
	}
	if err := lifecycle.Check(lifecycle.StateOf(col), op); err != nil {
		return nil, col, fmt.Errorf("документ %s: %w: %w", id, ErrNotFound, err)
	}
	return doc, col, nil
}

// existsIn возвращает проверку занятости имени в dir.
// Путь self считается свободным (собственный файл при переименовании).
func (m *Manager) existsIn(dir, self string) naming.ExistsFunc {
	return func(name string) bool {
		p := filepath.Join(dir, name)
		if self != "" && p == self {
			return false
		}
		return m.store.Exists(p)
	}
}

// begin открывает запись журнала, если журнал включён.
func (m *Manager) begin(op wal.OperationType, id, source, target string) (*wal.Entry, error) {
	if m.journal == nil {
		return nil, nil
	}
	tx, err := m.journal.Begin(op, id, source, target)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи журнала: %w", err)
	}
	return tx, nil
}

// commit фиксирует запись журнала. Ошибка только логируется:
// операция с файлом уже выполнена, а при старте запись будет разобрана.
func (m *Manager) commit(tx *wal.Entry) {
	if tx == nil {
		return
	}
	if err := m.journal.Commit(tx.TransactionID); err != nil {
		m.logger.Warn("Не удалось зафиксировать запись журнала",
			slog.String("tx_id", tx.TransactionID),
			slog.String("error", err.Error()),
		)
	}
}

// rollback отменяет запись журнала.
func (m *Manager) rollback(tx *wal.Entry) {
	if tx == nil {
		return
	}
	if err := m.journal.Rollback(tx.TransactionID); err != nil {
		m.logger.Warn("Не удалось отменить запись журнала",
			slog.String("tx_id", tx.TransactionID),
			slog.String("error", err.Error()),
		)
	}
}

// updateGauges обновляет метрики размера коллекций. Вызывается под m.mu.
func (m *Manager) updateGauges() {
	middleware.DocumentsTotal.WithLabelValues(string(model.CollectionActive)).Set(float64(m.catalog.Count(model.CollectionActive)))
	middleware.DocumentsTotal.WithLabelValues(string(model.CollectionTrashed)).Set(float64(m.catalog.Count(model.CollectionTrashed)))
}

// record учитывает результат операции в метриках.
func (m *Manager) record(op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	middleware.OperationsTotal.WithLabelValues(op, result).Inc()
}

// SyncProtection приводит isProtected активного документа к атрибуту файла.
// Возвращает true, если каталог изменён. Документ с ожидающей повторной
// блокировкой не трогается: его состояние ведёт таймер.
func (m *Manager) SyncProtection(id string) (bool, error) {
	m.mu.Lock()
	doc, ok := m.catalog.Lookup(id, model.CollectionActive)
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("документ %s: %w", id, ErrNotFound)
	}
	if m.hasRelock(id) {
		m.mu.Unlock()
		return false, nil
	}
	protected, err := m.store.IsProtected(doc.Location)
	if err != nil {
		m.mu.Unlock()
		return false, fmt.Errorf("ошибка чтения атрибута защиты документа %s: %w", id, err)
	}
	if protected == doc.IsProtected {
		m.mu.Unlock()
		return false, nil
	}
	doc.IsProtected = protected
	snapshot := doc.Clone()
	m.mu.Unlock()

	m.logger.Warn("Признак защиты синхронизирован с хранилищем",
		slog.String("document_id", id),
		slog.Bool("protected", protected),
	)
	m.observers.publish(Event{Type: EventDocumentUpdated, Document: snapshot, Collection: model.CollectionActive})
	return true, nil
}
