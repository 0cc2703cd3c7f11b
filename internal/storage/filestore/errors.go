package filestore

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind — категория ошибки хранилища.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindAlreadyExists    Kind = "already_exists"
	KindIO               Kind = "io_error"
)

// StorageError — ошибка операции с файлом. Операции хранилища не
// завершаются молча: любая неудача возвращается как StorageError.
type StorageError struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// Сравнение через errors.Is идёт по Kind.
var (
	ErrNotFound         = &StorageError{Kind: KindNotFound}
	ErrPermissionDenied = &StorageError{Kind: KindPermissionDenied}
	ErrAlreadyExists    = &StorageError{Kind: KindAlreadyExists}
	ErrIO               = &StorageError{Kind: KindIO}
)

// ErrTooLarge — загружаемый файл превышает лимит размера.
var ErrTooLarge = errors.New("файл превышает допустимый размер")

func (e *StorageError) Error() string {
	if e.Op == "" {
		return string(e.Kind)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с эталоном по Kind.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// newError создаёт StorageError заданной категории.
func newError(kind Kind, op, path string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Path: path, Err: err}
}

// wrapError классифицирует ошибку ОС.
// nil остаётся nil, уже классифицированная ошибка не оборачивается повторно.
func wrapError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return newError(KindNotFound, op, path, err)
	case errors.Is(err, fs.ErrPermission):
		return newError(KindPermissionDenied, op, path, err)
	case errors.Is(err, fs.ErrExist):
		return newError(KindAlreadyExists, op, path, err)
	default:
		return newError(KindIO, op, path, err)
	}
}
