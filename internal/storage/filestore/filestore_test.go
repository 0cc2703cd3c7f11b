package filestore

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bigkaa/goartstore/docvault/internal/storage/attr"
)

// newTestStore создаёт FileStore во временной директории.
func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := New(filepath.Join(root, "vault"), filepath.Join(root, "staging"), logger)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	return s
}

// writeFile создаёт файл с содержимым.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("ошибка записи %s: %v", path, err)
	}
}

// TestNew_CreatesDirectories проверяет создание директорий.
func TestNew_CreatesDirectories(t *testing.T) {
	s := newTestStore(t)

	for _, dir := range []string{s.Dir(), s.StagingDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("директория %s не создана: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s не является директорией", dir)
		}
	}
}

// TestList проверяет, что возвращаются только обычные файлы.
func TestList(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, filepath.Join(s.Dir(), "a.pdf"), "a")
	writeFile(t, filepath.Join(s.Dir(), ".hidden"), "h")
	if err := os.Mkdir(filepath.Join(s.Dir(), "sub"), 0o750); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List(s.Dir())
	if err != nil {
		t.Fatalf("ошибка List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ожидалось 2 файла, получено %d", len(entries))
	}

	hidden := 0
	for _, e := range entries {
		if e.Hidden() {
			hidden++
		}
		if e.Name == "sub" {
			t.Error("поддиректория не должна попадать в список")
		}
	}
	if hidden != 1 {
		t.Errorf("ожидался 1 скрытый файл, получено %d", hidden)
	}
}

// TestList_MissingDir проверяет ошибку NotFound.
func TestList_MissingDir(t *testing.T) {
	s := newTestStore(t)
	_, err := s.List(filepath.Join(s.Dir(), "missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
}

// TestCopy проверяет копирование и отсутствие временных файлов.
func TestCopy(t *testing.T) {
	s := newTestStore(t)
	src := filepath.Join(t.TempDir(), "src.pdf")
	writeFile(t, src, "содержимое документа")
	dst := filepath.Join(s.Dir(), "dst.pdf")

	if err := s.Copy(src, dst); err != nil {
		t.Fatalf("ошибка Copy: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if string(data) != "содержимое документа" {
		t.Errorf("содержимое не совпадает: %q", data)
	}
	if !s.Exists(src) {
		t.Error("Copy не должен удалять источник")
	}

	matches, _ := filepath.Glob(filepath.Join(s.Dir(), tempPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("остались временные файлы: %v", matches)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("ошибка stat: %v", err)
	}
	if info.Mode().Perm() != attr.UnprotectedPerm {
		t.Errorf("права копии: ожидалось %v, получено %v", attr.UnprotectedPerm, info.Mode().Perm())
	}
}

// TestCopy_Errors проверяет классификацию ошибок Copy.
func TestCopy_Errors(t *testing.T) {
	s := newTestStore(t)
	src := filepath.Join(t.TempDir(), "src.pdf")
	writeFile(t, src, "x")
	existing := filepath.Join(s.Dir(), "existing.pdf")
	writeFile(t, existing, "старое")

	if err := s.Copy(src, existing); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("ожидалась ErrAlreadyExists, получено %v", err)
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "старое" {
		t.Error("существующий файл не должен перезаписываться")
	}

	err := s.Copy(filepath.Join(t.TempDir(), "missing.pdf"), filepath.Join(s.Dir(), "new.pdf"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
	if s.Exists(filepath.Join(s.Dir(), "new.pdf")) {
		t.Error("при ошибке файл назначения не должен появляться")
	}

	var se *StorageError
	if !errors.As(err, &se) || se.Op != "copy" {
		t.Errorf("ожидалась StorageError с op=copy, получено %v", err)
	}
}

// TestMove проверяет перемещение с сохранением прав.
func TestMove(t *testing.T) {
	s := newTestStore(t)
	src := filepath.Join(s.Dir(), "a.pdf")
	dst := filepath.Join(s.Dir(), "b.pdf")
	writeFile(t, src, "data")
	if err := s.SetProtected(src, true); err != nil {
		t.Fatal(err)
	}

	if err := s.Move(src, dst); err != nil {
		t.Fatalf("ошибка Move: %v", err)
	}
	if s.Exists(src) {
		t.Error("источник должен исчезнуть")
	}
	protected, err := s.IsProtected(dst)
	if err != nil || !protected {
		t.Errorf("атрибут защиты должен сохраниться: %v, %v", protected, err)
	}
}

// TestMove_Errors проверяет ошибки Move.
func TestMove_Errors(t *testing.T) {
	s := newTestStore(t)
	a := filepath.Join(s.Dir(), "a.pdf")
	b := filepath.Join(s.Dir(), "b.pdf")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	if err := s.Move(a, b); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("ожидалась ErrAlreadyExists, получено %v", err)
	}
	if err := s.Move(filepath.Join(s.Dir(), "missing.pdf"), filepath.Join(s.Dir(), "c.pdf")); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
	if err := s.Move(a, a); err != nil {
		t.Errorf("перемещение в тот же путь должно быть no-op: %v", err)
	}
}

// TestDelete проверяет удаление и NotFound для отсутствующего файла.
func TestDelete(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Dir(), "a.pdf")
	writeFile(t, path, "a")

	if err := s.Delete(path); err != nil {
		t.Fatalf("ошибка Delete: %v", err)
	}
	if s.Exists(path) {
		t.Error("файл должен быть удалён")
	}
	if err := s.Delete(path); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление: ожидалась ErrNotFound, получено %v", err)
	}
}

// TestProtection_MissingFile проверяет ошибки атрибута защиты.
func TestProtection_MissingFile(t *testing.T) {
	s := newTestStore(t)
	missing := filepath.Join(s.Dir(), "missing.pdf")

	if err := s.SetProtected(missing, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
	if _, err := s.IsProtected(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
}

// TestStage проверяет сохранение загрузки с исходным именем.
func TestStage(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Stage(strings.NewReader("scan"), "../../passport.jpg", 0)
	if err != nil {
		t.Fatalf("ошибка Stage: %v", err)
	}
	if filepath.Base(path) != "passport.jpg" {
		t.Errorf("ожидалось имя passport.jpg, получено %s", filepath.Base(path))
	}
	if filepath.Dir(filepath.Dir(path)) != filepath.Clean(s.StagingDir()) {
		t.Errorf("файл должен лежать в отдельной поддиректории загрузок: %s", path)
	}

	f, err := s.Open(path)
	if err != nil {
		t.Fatalf("ошибка Open: %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "scan" {
		t.Errorf("содержимое не совпадает: %q", data)
	}

	s.Unstage(path)
	if s.Exists(filepath.Dir(path)) {
		t.Error("директория загрузки должна быть удалена")
	}
}

// TestStage_HiddenName проверяет замену скрытого имени файла.
func TestStage_HiddenName(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Stage(strings.NewReader("x"), ".pdf", 0)
	if err != nil {
		t.Fatalf("ошибка Stage: %v", err)
	}
	if filepath.Base(path) != "upload.pdf" {
		t.Errorf("ожидалось имя upload.pdf, получено %s", filepath.Base(path))
	}
	s.Unstage(path)
}

// TestStage_TooLarge проверяет ограничение размера.
func TestStage_TooLarge(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Stage(bytes.NewReader(make([]byte, 11)), "big.bin", 10)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("ожидалась ErrTooLarge, получено %v", err)
	}

	entries, _ := os.ReadDir(s.StagingDir())
	if len(entries) != 0 {
		t.Errorf("после ошибки директория загрузок должна быть пустой, найдено %d", len(entries))
	}

	if _, err := s.Stage(bytes.NewReader(make([]byte, 10)), "ok.bin", 10); err != nil {
		t.Errorf("файл ровно в лимит должен приниматься: %v", err)
	}
}

// TestCleanTemp проверяет удаление временных файлов и загрузок.
func TestCleanTemp(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, filepath.Join(s.Dir(), tempPrefix+"abc"+tempSuffix), "partial")
	writeFile(t, filepath.Join(s.Dir(), "keep.pdf"), "keep")
	if _, err := s.Stage(strings.NewReader("x"), "a.pdf", 0); err != nil {
		t.Fatal(err)
	}

	cleaned, err := s.CleanTemp()
	if err != nil {
		t.Fatalf("ошибка CleanTemp: %v", err)
	}
	if cleaned != 2 {
		t.Errorf("ожидалось 2 удалённых объекта, получено %d", cleaned)
	}
	if !s.Exists(filepath.Join(s.Dir(), "keep.pdf")) {
		t.Error("обычный файл не должен удаляться")
	}
}

// TestStorageError_Is проверяет сопоставление по Kind.
func TestStorageError_Is(t *testing.T) {
	err := newError(KindPermissionDenied, "delete", "/x", os.ErrPermission)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("ожидалось совпадение с ErrPermissionDenied")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("не должно совпадать с ErrNotFound")
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("исходная ошибка должна быть доступна через Unwrap")
	}
	if wrapError("op", "/x", nil) != nil {
		t.Error("nil должен оставаться nil")
	}
}
