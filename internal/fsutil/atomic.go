// Package fsutil provides crash-safe file writes: data goes to a temp file in
// the target directory, is fsynced, and only then becomes visible under its
// final name.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// TempPrefix starts every temporary file name; readers skip such files
const TempPrefix = ".tmp-"

// ErrExist is returned by CreateFile when the target already exists
var ErrExist = os.ErrExist

// WriteFile atomically creates or replaces path with data
func WriteFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return syncDir(filepath.Dir(path))
}

// CreateFile atomically creates path with data.
// Fails with an error wrapping ErrExist if path exists; the existing file is not touched
func CreateFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	// Временный файл удаляется всегда: после link на данные указывает path
	defer func() { _ = os.Remove(tmp) }()

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrExist)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	return syncDir(filepath.Dir(path))
}

// IsTemp reports whether a directory entry name belongs to an unfinished write
func IsTemp(name string) bool {
	return len(name) >= len(TempPrefix) && name[:len(TempPrefix)] == TempPrefix
}

// writeTemp пишет данные во временный файл рядом с path и делает fsync
func writeTemp(path string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, TempPrefix+uuid.NewString())

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm) // #nosec G304 имя строится внутри пакета
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return tmp, nil
}

// syncDir фиксирует запись каталога, чтобы rename/link пережил сбой питания
func syncDir(dir string) error {
	d, err := os.Open(dir) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open directory: %w", err)
	}
	defer func() { _ = d.Close() }()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync directory: %w", err)
	}
	return nil
}
