// Пакет attr — атрибут защиты файла в хранилище.
//
// Защита моделируется правами доступа: защищённый файл имеет режим 0000
// и недоступен для чтения, пока не снят атрибут. Права файла — единственный
// источник истины для признака защиты между перезапусками: отдельный файл
// метаданных не ведётся.
package attr

import (
	"fmt"
	"io/fs"
	"os"
)

const (
	// ProtectedPerm — права защищённого файла
	ProtectedPerm fs.FileMode = 0o000
	// UnprotectedPerm — права обычного файла в хранилище
	UnprotectedPerm fs.FileMode = 0o640
)

// Set устанавливает или снимает атрибут защиты файла.
func Set(path string, protected bool) error {
	perm := UnprotectedPerm
	if protected {
		perm = ProtectedPerm
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("ошибка установки атрибута защиты %s: %w", path, err)
	}
	return nil
}

// Get возвращает true, если на файле установлен атрибут защиты.
func Get(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("ошибка чтения атрибута защиты %s: %w", path, err)
	}
	return IsProtectedMode(info.Mode()), nil
}

// IsProtectedMode проверяет признак защиты по режиму файла.
// Защищённым считается файл без каких-либо прав доступа.
func IsProtectedMode(mode fs.FileMode) bool {
	return mode.Perm() == ProtectedPerm
}
