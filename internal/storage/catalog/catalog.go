// Пакет catalog — in-memory каталог документов.
//
// Каталог состоит из двух непересекающихся упорядоченных коллекций:
// active (новые первыми по AddedAt) и trashed (в порядке помещения в корзину).
// Идентификатор документа уникален в объединении коллекций.
//
// Не персистентный: при рестарте пересобирается из содержимого директории.
// Не потокобезопасен: единственный владелец (Manager) обеспечивает
// взаимное исключение операций.
package catalog

import (
	"fmt"
	"sort"

	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
)

// Catalog — каталог документов.
type Catalog struct {
	active  []*model.Document
	trashed []*model.Document
	// where — id → коллекция, в которой находится документ
	where map[string]model.Collection
	ready bool
}

// New создаёт пустой каталог. Для заполнения вызовите Replace.
func New() *Catalog {
	return &Catalog{
		where: make(map[string]model.Collection),
	}
}

// Replace полностью заменяет содержимое каталога.
// active сортируется по AddedAt (новые первыми). После вызова каталог готов.
func (c *Catalog) Replace(active, trashed []*model.Document) error {
	where := make(map[string]model.Collection, len(active)+len(trashed))
	for _, d := range active {
		if _, dup := where[d.ID]; dup {
			return fmt.Errorf("дублирующийся идентификатор документа %s", d.ID)
		}
		where[d.ID] = model.CollectionActive
	}
	for _, d := range trashed {
		if _, dup := where[d.ID]; dup {
			return fmt.Errorf("дублирующийся идентификатор документа %s", d.ID)
		}
		where[d.ID] = model.CollectionTrashed
	}

	c.active = append([]*model.Document(nil), active...)
	c.trashed = append([]*model.Document(nil), trashed...)
	c.where = where
	c.sortActive()
	c.ready = true
	return nil
}

// IsReady возвращает true, если каталог построен.
func (c *Catalog) IsReady() bool {
	return c.ready
}

// Find возвращает документ и его коллекцию. Возвращаемый указатель
// принадлежит каталогу: изменять его может только владелец.
func (c *Catalog) Find(id string) (*model.Document, model.Collection, bool) {
	col, ok := c.where[id]
	if !ok {
		return nil, "", false
	}
	list := c.active
	if col == model.CollectionTrashed {
		list = c.trashed
	}
	for _, d := range list {
		if d.ID == id {
			return d, col, true
		}
	}
	return nil, "", false
}

// Lookup возвращает документ, только если он находится в коллекции col.
func (c *Catalog) Lookup(id string, col model.Collection) (*model.Document, bool) {
	d, found, ok := c.Find(id)
	if !ok || found != col {
		return nil, false
	}
	return d, true
}

// PushActive вставляет документ в начало active.
func (c *Catalog) PushActive(d *model.Document) error {
	if _, dup := c.where[d.ID]; dup {
		return fmt.Errorf("документ %s уже есть в каталоге", d.ID)
	}
	c.active = append([]*model.Document{d}, c.active...)
	c.where[d.ID] = model.CollectionActive
	return nil
}

// InsertActive добавляет документ в active и восстанавливает порядок по AddedAt.
func (c *Catalog) InsertActive(d *model.Document) error {
	if _, dup := c.where[d.ID]; dup {
		return fmt.Errorf("документ %s уже есть в каталоге", d.ID)
	}
	c.active = append(c.active, d)
	c.where[d.ID] = model.CollectionActive
	c.sortActive()
	return nil
}

// AppendTrashed добавляет документ в конец trashed.
func (c *Catalog) AppendTrashed(d *model.Document) error {
	if _, dup := c.where[d.ID]; dup {
		return fmt.Errorf("документ %s уже есть в каталоге", d.ID)
	}
	c.trashed = append(c.trashed, d)
	c.where[d.ID] = model.CollectionTrashed
	return nil
}

// Remove удаляет документ из коллекции col.
// Возвращает удалённый документ или false, если его там нет.
func (c *Catalog) Remove(id string, col model.Collection) (*model.Document, bool) {
	if c.where[id] != col {
		return nil, false
	}

	list := &c.active
	if col == model.CollectionTrashed {
		list = &c.trashed
	}
	for i, d := range *list {
		if d.ID == id {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			delete(c.where, id)
			return d, true
		}
	}
	return nil, false
}

// Active возвращает копии документов active в порядке каталога.
func (c *Catalog) Active() []*model.Document {
	return cloneAll(c.active)
}

// Trashed возвращает копии документов trashed в порядке каталога.
func (c *Catalog) Trashed() []*model.Document {
	return cloneAll(c.trashed)
}

// Each вызывает fn для каждого документа коллекции без копирования.
// fn не должен изменять документы.
func (c *Catalog) Each(col model.Collection, fn func(*model.Document)) {
	list := c.active
	if col == model.CollectionTrashed {
		list = c.trashed
	}
	for _, d := range list {
		fn(d)
	}
}

// Count возвращает количество документов в коллекции.
func (c *Catalog) Count(col model.Collection) int {
	if col == model.CollectionTrashed {
		return len(c.trashed)
	}
	return len(c.active)
}

// sortActive сортирует active по AddedAt (новые первыми).
// Стабильная сортировка сохраняет порядок документов с одинаковым временем.
func (c *Catalog) sortActive() {
	sort.SliceStable(c.active, func(i, j int) bool {
		return c.active[i].AddedAt.After(c.active[j].AddedAt)
	})
}

// cloneAll возвращает независимые копии документов.
func cloneAll(list []*model.Document) []*model.Document {
	result := make([]*model.Document, len(list))
	for i, d := range list {
		result[i] = d.Clone()
	}
	return result
}
