// Пакет filestore — операции с файлами документов на диске.
//
// Единственный компонент, который обращается к файловой системе.
// Состояния не хранит. Любая неудача возвращается как *StorageError.
// Copy и Move не оставляют частично записанный файл назначения:
// данные пишутся во временный скрытый файл и переименовываются.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/docvault/internal/storage/attr"
)

const (
	// tempPrefix и tempSuffix — маска временных файлов в директории хранилища
	tempPrefix = ".docvault-"
	tempSuffix = ".tmp"
)

// Entry — файл в директории хранилища.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	Mode    fs.FileMode
}

// Hidden возвращает true для скрытых файлов (в том числе временных).
func (e Entry) Hidden() bool {
	return strings.HasPrefix(e.Name, ".")
}

// FileStore — файловое хранилище документов.
type FileStore struct {
	// dir — директория документов (плоская)
	dir string
	// stagingDir — директория для загружаемых файлов до импорта
	stagingDir string
	logger     *slog.Logger
}

// New создаёт FileStore. Создаёт директории, если они не существуют.
func New(dir, stagingDir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища %s: %w", dir, err)
	}
	if err := os.MkdirAll(stagingDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию загрузок %s: %w", stagingDir, err)
	}

	return &FileStore{
		dir:        dir,
		stagingDir: stagingDir,
		logger:     logger.With(slog.String("component", "filestore")),
	}, nil
}

// Dir возвращает директорию хранилища.
func (s *FileStore) Dir() string {
	return s.dir
}

// StagingDir возвращает директорию загрузок.
func (s *FileStore) StagingDir() string {
	return s.stagingDir
}

// List возвращает обычные файлы директории dir (без поддиректорий).
func (s *FileStore) List(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wrapError("list", dir, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// файл удалён между ReadDir и Info
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, wrapError("list", filepath.Join(dir, de.Name()), err)
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Path:    filepath.Join(dir, de.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		})
	}
	return entries, nil
}

// Exists проверяет существование пути.
func (s *FileStore) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Stat возвращает информацию о файле.
func (s *FileStore) Stat(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, wrapError("stat", path, err)
	}
	return info, nil
}

// Copy копирует src в dst. dst не должен существовать.
//
// Паттерн: скрытый temp файл рядом с dst → запись → fsync → rename.
// При ошибке temp файл удаляется, dst не появляется.
func (s *FileStore) Copy(src, dst string) error {
	if s.Exists(dst) {
		return newError(KindAlreadyExists, "copy", dst, nil)
	}

	in, err := os.Open(src)
	if err != nil {
		return wrapError("copy", src, err)
	}
	defer in.Close()

	if err := s.writeAtomic(in, dst, -1); err != nil {
		return wrapError("copy", dst, err)
	}
	return nil
}

// Move перемещает src в dst. dst не должен существовать.
// В пределах одной файловой системы — атомарный rename; между
// файловыми системами — Copy и удаление src. Права файла сохраняются.
func (s *FileStore) Move(src, dst string) error {
	if src == dst {
		return nil
	}
	if s.Exists(dst) {
		return newError(KindAlreadyExists, "move", dst, nil)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return wrapError("move", src, err)
	}

	info, statErr := os.Stat(src)
	if statErr != nil {
		return wrapError("move", src, statErr)
	}
	if err := s.Copy(src, dst); err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		_ = os.Remove(dst)
		return wrapError("move", dst, err)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return wrapError("move", src, err)
	}
	return nil
}

// Delete удаляет файл. Отсутствующий файл — ошибка KindNotFound.
func (s *FileStore) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return wrapError("delete", path, err)
	}
	return nil
}

// SetProtected устанавливает или снимает атрибут защиты.
func (s *FileStore) SetProtected(path string, protected bool) error {
	return wrapError("set_protected", path, attr.Set(path, protected))
}

// IsProtected возвращает состояние атрибута защиты.
func (s *FileStore) IsProtected(path string) (bool, error) {
	protected, err := attr.Get(path)
	if err != nil {
		return false, wrapError("is_protected", path, err)
	}
	return protected, nil
}

// Open открывает файл для чтения. Вызывающий код обязан закрыть файл.
func (s *FileStore) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapError("open", path, err)
	}
	return f, nil
}

// Stage сохраняет загружаемые данные в директорию загрузок.
// Файл кладётся в отдельную поддиректорию с исходным именем, чтобы
// имя источника было доступно при импорте. limit — максимальный размер
// в байтах (<= 0 — без ограничения); при превышении возвращается ErrTooLarge.
func (s *FileStore) Stage(r io.Reader, filename string, limit int64) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == "/" || strings.HasPrefix(name, ".") || name == "" {
		name = "upload" + filepath.Ext(name)
	}

	dir := filepath.Join(s.stagingDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", wrapError("stage", dir, err)
	}

	path := filepath.Join(dir, name)
	if err := s.writeAtomic(r, path, limit); err != nil {
		_ = os.RemoveAll(dir)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", wrapError("stage", path, err)
	}
	return path, nil
}

// Unstage удаляет поддиректорию загрузки вместе с остатками файла.
func (s *FileStore) Unstage(path string) {
	dir := filepath.Dir(path)
	if filepath.Dir(dir) != filepath.Clean(s.stagingDir) {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn("Не удалось удалить директорию загрузки",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
	}
}

// CleanTemp удаляет временные файлы, оставшиеся после сбоя, и
// содержимое директории загрузок. Возвращает число удалённых объектов.
func (s *FileStore) CleanTemp() (int, error) {
	cleaned := 0

	matches, err := filepath.Glob(filepath.Join(s.dir, tempPrefix+"*"+tempSuffix))
	if err != nil {
		return 0, fmt.Errorf("ошибка сканирования директории хранилища: %w", err)
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Не удалось удалить временный файл",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		cleaned++
	}

	staged, err := os.ReadDir(s.stagingDir)
	if err != nil {
		return cleaned, wrapError("clean", s.stagingDir, err)
	}
	for _, e := range staged {
		path := filepath.Join(s.stagingDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn("Не удалось удалить загрузку",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		s.logger.Info("Временные файлы удалены", slog.Int("cleaned", cleaned))
	}
	return cleaned, nil
}

// writeAtomic записывает reader в path через временный файл.
// Паттерн: temp файл → запись → fsync → atomic rename.
func (s *FileStore) writeAtomic(r io.Reader, path string, limit int64) error {
	f, err := os.CreateTemp(filepath.Dir(path), tempPrefix+"*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpPath := f.Name()

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}

	size, err := io.Copy(f, src)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}
	if limit > 0 && size > limit {
		f.Close()
		os.Remove(tmpPath)
		return ErrTooLarge
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Chmod(tmpPath, attr.UnprotectedPerm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка установки прав: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}
