package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/otpkeeper/internal/storage"
	"github.com/iudanet/otpkeeper/internal/validation"
)

// errBucketNotFound возникает, если bucket удален извне
var errBucketNotFound = fmt.Errorf("%w: records bucket not found", storage.ErrStorage)

// Exists reports whether a record is stored under name
func (s *Storage) Exists(ctx context.Context, name string) (bool, error) {
	if err := validation.ValidateServiceName(name); err != nil {
		return false, err
	}

	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return errBucketNotFound
		}
		found = bucket.Get([]byte(name)) != nil
		return nil
	})
	if err != nil {
		return false, err
	}

	return found, nil
}

// Create stores a new record; fails if the name is taken
func (s *Storage) Create(ctx context.Context, record *storage.Record) error {
	data, err := encode(record)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return errBucketNotFound
		}

		key := []byte(record.ServiceName)
		if bucket.Get(key) != nil {
			return fmt.Errorf("%w: %s", storage.ErrServiceAlreadyExists, record.ServiceName)
		}

		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("%w: failed to save record: %v", storage.ErrStorage, err)
		}
		return nil
	})
}

// Put stores or replaces a record
func (s *Storage) Put(ctx context.Context, record *storage.Record) error {
	data, err := encode(record)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return errBucketNotFound
		}

		if err := bucket.Put([]byte(record.ServiceName), data); err != nil {
			return fmt.Errorf("%w: failed to save record: %v", storage.ErrStorage, err)
		}
		return nil
	})
}

// Get retrieves a record by name
func (s *Storage) Get(ctx context.Context, name string) (*storage.Record, error) {
	if err := validation.ValidateServiceName(name); err != nil {
		return nil, err
	}

	var record *storage.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return errBucketNotFound
		}

		data := bucket.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %s", storage.ErrServiceNotFound, name)
		}

		// Значение действительно только внутри транзакции, decode копирует его
		rec, err := decode(name, data)
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Delete removes a record
func (s *Storage) Delete(ctx context.Context, name string) error {
	if err := validation.ValidateServiceName(name); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return errBucketNotFound
		}

		key := []byte(name)
		if bucket.Get(key) == nil {
			return fmt.Errorf("%w: %s", storage.ErrServiceNotFound, name)
		}

		if err := bucket.Delete(key); err != nil {
			return fmt.Errorf("%w: failed to delete record: %v", storage.ErrStorage, err)
		}
		return nil
	})
}

// List returns all record names in key order
func (s *Storage) List(ctx context.Context) ([]string, error) {
	var names []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return errBucketNotFound
		}

		// Ключи в bbolt упорядочены побайтово
		return bucket.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		return nil, storage.ErrNoRecords
	}

	return names, nil
}

// Scan decodes every record; undecodable values are reported as failures
func (s *Storage) Scan(ctx context.Context) (*storage.ScanResult, error) {
	res := &storage.ScanResult{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return errBucketNotFound
		}

		return bucket.ForEach(func(k, v []byte) error {
			name := string(k)
			rec, err := decode(name, v)
			if err != nil {
				res.Failures = append(res.Failures, &storage.RecordError{ServiceName: name, Err: err})
				return nil
			}
			res.Records = append(res.Records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return res, nil
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
