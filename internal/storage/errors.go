package storage

import (
	"errors"
	"fmt"
)

// Common storage errors
var (
	// ErrServiceNotFound indicates that no record exists for the service
	ErrServiceNotFound = errors.New("service not found")

	// ErrServiceAlreadyExists indicates that a record with this service name already exists
	ErrServiceAlreadyExists = errors.New("service already exists")

	// ErrNoRecords indicates that the vault is empty
	ErrNoRecords = errors.New("no records found")

	// ErrStorage indicates that the persistence medium is unavailable or failed
	ErrStorage = errors.New("storage error")

	// ErrCorruptRecord indicates that a stored record cannot be decoded or is incomplete
	ErrCorruptRecord = fmt.Errorf("%w: corrupt record", ErrStorage)

	// ErrInvalidRecord indicates that a record passed to the store is incomplete
	ErrInvalidRecord = errors.New("invalid record")
)

// RecordError describes a failure bound to a single record during a read-many operation
type RecordError struct {
	Err         error
	ServiceName string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %v", e.ServiceName, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
