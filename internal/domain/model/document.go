// Пакет model — доменные модели хранилища документов.
// Document — запись каталога; категория, тип и идентификатор не
// сохраняются на диск, а выводятся из имени файла при загрузке.
package model

import (
	"time"
)

// Category — смысловая категория документа.
type Category string

const (
	CategoryPassports    Category = "Passports & IDs"
	CategoryCertificates Category = "CVs & Certificates"
	CategoryTax          Category = "Tax & Receipts"
	CategoryDriver       Category = "Driver License"
	CategoryOther        Category = "Other"
	// CategoryTrash — служебная категория документа в корзине
	CategoryTrash Category = "Trash"
)

// Categories возвращает пользовательские категории (без Trash) в порядке отображения.
func Categories() []Category {
	return []Category{
		CategoryPassports,
		CategoryCertificates,
		CategoryTax,
		CategoryDriver,
		CategoryOther,
	}
}

// ParseCategory разбирает строку категории. Trash не принимается.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// TypeHint — тип содержимого, определённый по расширению файла.
type TypeHint string

const (
	TypePDF     TypeHint = "pdf"
	TypeImage   TypeHint = "image"
	TypeOffice  TypeHint = "office-document"
	TypeText    TypeHint = "text"
	TypeGeneric TypeHint = "generic"
)

// Collection — коллекция каталога, в которой находится документ.
type Collection string

const (
	CollectionActive  Collection = "active"
	CollectionTrashed Collection = "trashed"
)

// Document — запись каталога.
type Document struct {
	// ID — стабильный идентификатор, не меняется при переименовании
	ID string `json:"id"`

	// DisplayName — текущее имя файла с расширением
	DisplayName string `json:"display_name"`

	// Location — абсолютный путь к файлу в хранилище
	Location string `json:"-"`

	// TypeHint — тип содержимого, фиксируется при создании
	TypeHint TypeHint `json:"type_hint"`

	// IsProtected — на файле установлен атрибут защиты
	IsProtected bool `json:"is_protected"`

	// AddedAt — время добавления (UTC), порядок по умолчанию: новые первыми
	AddedAt time.Time `json:"added_at"`

	// Category — пересчитывается при каждом изменении имени
	Category Category `json:"category"`

	// TrashedAt — время перемещения в корзину, nil для активных
	TrashedAt *time.Time `json:"trashed_at,omitempty"`
}

// Clone возвращает независимую копию документа.
func (d *Document) Clone() *Document {
	c := *d
	if d.TrashedAt != nil {
		t := *d.TrashedAt
		c.TrashedAt = &t
	}
	return &c
}
