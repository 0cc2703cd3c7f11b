// Пакет vaultlock — эксклюзивное владение директорией хранилища.
//
// Каталог хранится только в памяти процесса, поэтому хранилищем может
// владеть ровно один процесс. Владение — flock() на файле блокировки
// рядом с хранилищем; в файл записывается владелец (host, pid, время),
// чтобы второй экземпляр мог сообщить, кто держит хранилище.
package vaultlock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

// FileName — имя файла блокировки.
const FileName = ".vault.lock"

// ErrLocked — хранилище уже занято другим процессом.
var ErrLocked = errors.New("хранилище занято другим процессом")

// Lock — захваченная блокировка хранилища.
type Lock struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// Acquire захватывает блокировку в директории dir без ожидания.
// Если блокировка занята, возвращает ошибку с ErrLocked и владельцем.
func Acquire(dir string, logger *slog.Logger) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть lock-файл %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (владелец: %s)", ErrLocked, Owner(dir))
		}
		return nil, fmt.Errorf("ошибка flock %s: %w", path, err)
	}

	l := &Lock{
		path:   path,
		file:   f,
		logger: logger.With(slog.String("component", "vaultlock")),
	}
	if err := l.writeOwner(); err != nil {
		l.logger.Warn("Не удалось записать владельца блокировки",
			slog.String("error", err.Error()),
		)
	}

	l.logger.Info("Хранилище захвачено", slog.String("lock", path))
	return l, nil
}

// Release снимает блокировку. Повторный вызов безопасен.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}
	_ = l.file.Truncate(0)
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
	l.logger.Info("Хранилище освобождено", slog.String("lock", l.path))
}

// Owner читает описание владельца из файла блокировки в dir.
// Пустой или отсутствующий файл — "неизвестен".
func Owner(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return "неизвестен"
	}
	owner := strings.TrimSpace(string(data))
	if owner == "" {
		return "неизвестен"
	}
	return owner
}

// writeOwner записывает host, pid и время захвата в файл блокировки.
// Файл перезаписывается на месте: переименование сбросило бы flock.
func (l *Lock) writeOwner() error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	info := fmt.Sprintf("%s pid=%d since=%s\n", hostname, os.Getpid(), time.Now().UTC().Format(time.RFC3339))

	if err := l.file.Truncate(0); err != nil {
		return err
	}
	if _, err := l.file.WriteAt([]byte(info), 0); err != nil {
		return err
	}
	return l.file.Sync()
}
