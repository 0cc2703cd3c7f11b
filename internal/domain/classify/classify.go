// Пакет classify — определение категории и типа содержимого документа по имени файла.
package classify

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
)

// rule — набор ключевых слов и категория, которая им соответствует.
type rule struct {
	keywords []string
	category model.Category
}

// rules — таблица правил в порядке приоритета. Первое совпадение побеждает.
var rules = []rule{
	{keywords: []string{"passport", "id", "identity"}, category: model.CategoryPassports},
	{keywords: []string{"cv", "resume", "certificate"}, category: model.CategoryCertificates},
	{keywords: []string{"tax", "receipt", "invoice"}, category: model.CategoryTax},
	{keywords: []string{"license", "driving"}, category: model.CategoryDriver},
}

// Classify возвращает категорию документа по имени файла.
// Сравнение — регистронезависимый поиск подстроки по полному имени (с расширением).
// Без совпадений — CategoryOther.
func Classify(name string) model.Category {
	lower := strings.ToLower(name)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.category
			}
		}
	}
	return model.CategoryOther
}

// typeHints — отображение расширения (в нижнем регистре, без точки) в тип содержимого.
var typeHints = map[string]model.TypeHint{
	"pdf": model.TypePDF,

	"jpg":  model.TypeImage,
	"jpeg": model.TypeImage,
	"png":  model.TypeImage,
	"gif":  model.TypeImage,
	"heic": model.TypeImage,
	"heif": model.TypeImage,
	"webp": model.TypeImage,
	"tif":  model.TypeImage,
	"tiff": model.TypeImage,
	"bmp":  model.TypeImage,

	"doc":  model.TypeOffice,
	"docx": model.TypeOffice,
	"xls":  model.TypeOffice,
	"xlsx": model.TypeOffice,
	"ppt":  model.TypeOffice,
	"pptx": model.TypeOffice,
	"odt":  model.TypeOffice,
	"ods":  model.TypeOffice,
	"odp":  model.TypeOffice,
	"key":  model.TypeOffice,

	"txt":  model.TypeText,
	"md":   model.TypeText,
	"rtf":  model.TypeText,
	"csv":  model.TypeText,
	"json": model.TypeText,
	"xml":  model.TypeText,
}

// TypeHintFor определяет тип содержимого по расширению имени файла.
// Известное расширение — соответствующий тип; неизвестное непустое — TypeGeneric.
// ok == false, если расширения нет вовсе: такой файл нельзя сопоставить с типом.
func TypeHintFor(name string) (model.TypeHint, bool) {
	ext := Extension(name)
	if ext == "" {
		return "", false
	}
	if hint, found := typeHints[strings.ToLower(ext)]; found {
		return hint, true
	}
	return model.TypeGeneric, true
}

// Extension возвращает расширение имени файла без точки.
// Для "archive.tar.gz" — "gz", для ".profile" и "README" — пустая строка.
func Extension(name string) string {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	if ext == base {
		// скрытый файл без расширения
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}

// contentTypes — MIME-типы для отдачи содержимого просмотрщику.
var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"heic": "image/heic",
	"heif": "image/heif",
	"webp": "image/webp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"txt":  "text/plain; charset=utf-8",
	"md":   "text/markdown; charset=utf-8",
	"rtf":  "application/rtf",
	"csv":  "text/csv; charset=utf-8",
	"json": "application/json",
	"xml":  "application/xml",
}

// ContentType возвращает MIME-тип для имени файла. Таблица contentTypes
// имеет приоритет, остальные расширения ищутся в системной базе mime.
// Неизвестные расширения — application/octet-stream.
func ContentType(name string) string {
	ext := strings.ToLower(Extension(name))
	if ext == "" {
		return "application/octet-stream"
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
