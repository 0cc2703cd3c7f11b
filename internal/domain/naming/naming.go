// Пакет naming — выбор имени файла в хранилище без коллизий.
//
// Правила:
//   - пустое имя после обрезки пробелов заменяется на "Untitled Document"
//   - при коллизии к базовому имени добавляется суффикс " (1)", " (2)", ...
//   - при переименовании расширение исходного файла сохраняется всегда
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultName — имя документа, если пользователь не задал своего.
const DefaultName = "Untitled Document"

// ExistsFunc сообщает, занято ли имя name в целевой директории.
type ExistsFunc func(name string) bool

// Resolve возвращает первое свободное имя для desired.
// Если desired свободно — возвращается без изменений. Иначе перебираются
// "base (1).ext", "base (2).ext", ... Счётчик не ограничен, а число
// записей в директории конечно, поэтому цикл завершается.
func Resolve(desired string, exists ExistsFunc) string {
	if !exists(desired) {
		return desired
	}

	base, ext := Split(desired)
	for n := 1; ; n++ {
		candidate := Join(fmt.Sprintf("%s (%d)", base, n), ext)
		if !exists(candidate) {
			return candidate
		}
	}
}

// Sanitize нормализует базовое имя (без расширения): обрезает пробелы,
// заменяет разделители пути, убирает ведущие точки.
// Пустой результат заменяется на DefaultName.
func Sanitize(base string) string {
	s := strings.TrimSpace(base)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '-'
		}
		return r
	}, s)
	s = strings.TrimLeft(s, ".")
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultName
	}
	return s
}

// ImportName вычисляет желаемое имя для импортируемого файла.
// Базовое имя — suggested (после обрезки), иначе имя исходного файла без расширения.
// Расширение всегда берётся у исходного файла.
func ImportName(suggested, sourceName string) string {
	srcBase, ext := Split(filepath.Base(sourceName))
	base := strings.TrimSpace(suggested)
	if base == "" {
		base = srcBase
	}
	return Join(Sanitize(base), ext)
}

// RenameName вычисляет новое имя при переименовании с сохранением
// расширения currentName. Если newName оканчивается тем же расширением
// (без учёта регистра), оно отбрасывается, чтобы не получить "a.pdf.pdf".
// Другое расширение считается частью базового имени.
func RenameName(newName, currentName string) string {
	_, ext := Split(currentName)
	base := strings.TrimSpace(newName)
	if ext != "" {
		suffix := "." + ext
		if len(base) >= len(suffix) && strings.EqualFold(base[len(base)-len(suffix):], suffix) {
			base = base[:len(base)-len(suffix)]
		}
	}
	return Join(Sanitize(base), ext)
}

// Split делит имя файла на базовое имя и расширение (без точки).
// "a.tar.gz" → ("a.tar", "gz"), ".env" → (".env", "").
func Split(name string) (base, ext string) {
	e := filepath.Ext(name)
	if e == "" || e == name {
		return name, ""
	}
	return strings.TrimSuffix(name, e), strings.TrimPrefix(e, ".")
}

// Join собирает имя файла из базового имени и расширения.
func Join(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + ext
}
