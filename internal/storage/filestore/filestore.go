// Package filestore implements storage.Store as a directory of
// <service_name>.json files, one file per record.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iudanet/otpkeeper/internal/fsutil"
	"github.com/iudanet/otpkeeper/internal/storage"
	"github.com/iudanet/otpkeeper/internal/validation"
)

const (
	recordExt = ".json"

	dirPerm  = 0700
	filePerm = 0600
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store keeps each record in its own file, so a damaged file only affects its record
type Store struct {
	dir string
}

// New opens the record directory, creating it with mode 0700 if missing
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory is not set", storage.ErrStorage)
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("%w: failed to create directory: %v", storage.ErrStorage, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorage, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", storage.ErrStorage, dir)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the record directory
func (s *Store) Dir() string {
	return s.dir
}

// path строит путь к файлу записи; имя должно быть предварительно проверено
func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+recordExt)
}

// Exists reports whether a record file exists for name
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := validation.ValidateServiceName(name); err != nil {
		return false, err
	}

	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", storage.ErrStorage, err)
}

// Create writes a new record file; the name is claimed by a hard link,
// so a concurrent or earlier file with the same name is never replaced
func (s *Store) Create(ctx context.Context, record *storage.Record) error {
	data, err := encode(record)
	if err != nil {
		return err
	}

	if err := fsutil.CreateFile(s.path(record.ServiceName), data, filePerm); err != nil {
		if errors.Is(err, fsutil.ErrExist) {
			return fmt.Errorf("%w: %s", storage.ErrServiceAlreadyExists, record.ServiceName)
		}
		return fmt.Errorf("%w: %v", storage.ErrStorage, err)
	}

	return nil
}

// Put writes a record file, replacing any existing one
func (s *Store) Put(ctx context.Context, record *storage.Record) error {
	data, err := encode(record)
	if err != nil {
		return err
	}

	if err := fsutil.WriteFile(s.path(record.ServiceName), data, filePerm); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorage, err)
	}

	return nil
}

// Get reads and decodes a record file
func (s *Store) Get(ctx context.Context, name string) (*storage.Record, error) {
	if err := validation.ValidateServiceName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name)) // #nosec G304 имя проверено
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrServiceNotFound, name)
		}
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrStorage, name, err)
	}

	return decode(name, data)
}

// Delete removes a record file
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := validation.ValidateServiceName(name); err != nil {
		return err
	}

	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", storage.ErrServiceNotFound, name)
		}
		return fmt.Errorf("%w: %s: %v", storage.ErrStorage, name, err)
	}

	return nil
}

// List returns the names of all record files, sorted
func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := s.names()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, storage.ErrNoRecords
	}
	return names, nil
}

// Scan reads every record file; unreadable files are reported in Failures
func (s *Store) Scan(ctx context.Context) (*storage.ScanResult, error) {
	names, err := s.names()
	if err != nil {
		return nil, err
	}

	res := &storage.ScanResult{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := s.Get(ctx, name)
		if err != nil {
			res.Failures = append(res.Failures, &storage.RecordError{ServiceName: name, Err: err})
			continue
		}
		res.Records = append(res.Records, rec)
	}

	return res, nil
}

// Close is a no-op: the store holds no open handles
func (s *Store) Close() error {
	return nil
}

// names читает каталог и возвращает отсортированные имена записей.
// Временные файлы, подкаталоги и файлы с недопустимыми именами пропускаются
func (s *Store) names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read directory: %v", storage.ErrStorage, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || fsutil.IsTemp(e.Name()) {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), recordExt)
		if !ok {
			continue
		}
		if validation.ValidateServiceName(name) != nil {
			continue
		}
		names = append(names, name)
	}

	storage.SortNames(names)
	return names, nil
}

func encode(record *storage.Record) ([]byte, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

// decode разбирает файл записи. Имя файла считается авторитетным:
// поле service_name внутри файла может отличаться после ручного переименования
func decode(name string, data []byte) (*storage.Record, error) {
	rec := &storage.Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrCorruptRecord, name, err)
	}

	rec.ServiceName = name
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrCorruptRecord, name, err)
	}

	return rec, nil
}
