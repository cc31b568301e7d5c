// Package boltdb implements storage.Store on a single bbolt database file.
// Every record is a JSON value under its service name in the records bucket.
package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/otpkeeper/internal/storage"
)

const (
	// SchemaVersion версия формата данных внутри файла
	SchemaVersion = 1

	keySchemaVersion = "schema_version"

	// lockTimeout ограничивает ожидание файловой блокировки другого процесса
	lockTimeout = time.Second
)

var (
	// BoltDB bucket names
	bucketRecords  = []byte("records")
	bucketMetadata = []byte("metadata")
)

// Ensure Storage implements storage.Store
var _ storage.Store = (*Storage)(nil)

// Storage represents BoltDB record storage
type Storage struct {
	db *bbolt.DB
}

// New opens or creates the database at dbPath.
// Fails after one second if another process holds the database lock
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open boltdb: %v", storage.ErrStorage, err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to initialize buckets: %v", storage.ErrStorage, err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает buckets и проверяет версию схемы
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return fmt.Errorf("failed to create records bucket: %w", err)
		}

		meta, err := tx.CreateBucketIfNotExists(bucketMetadata)
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}

		v, err := readSchemaVersion(meta)
		if err != nil {
			return err
		}
		if v == 0 {
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, SchemaVersion)
			return meta.Put([]byte(keySchemaVersion), buf)
		}
		if v > SchemaVersion {
			return fmt.Errorf("unsupported schema version %d", v)
		}

		return nil
	})
}

// readSchemaVersion читает версию схемы из bucket metadata; 0 - версия еще не записана
func readSchemaVersion(meta *bbolt.Bucket) (uint64, error) {
	raw := meta.Get([]byte(keySchemaVersion))
	if raw == nil {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("malformed schema version")
	}
	return binary.BigEndian.Uint64(raw), nil
}
