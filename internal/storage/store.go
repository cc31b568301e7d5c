package storage

import (
	"context"
	"slices"
	"strings"
)

//go:generate moq -out store_mock.go . Store

// Store persists OTP records keyed by service name.
// Every record is an independent durable unit, so a corrupt record
// does not make the rest of the store unreadable.
type Store interface {
	// Exists reports whether a record with the name exists
	Exists(ctx context.Context, name string) (bool, error)

	// Create persists a new record atomically
	// Returns ErrServiceAlreadyExists if the name is taken; the stored record is left untouched
	Create(ctx context.Context, record *Record) error

	// Put creates or overwrites a record atomically (bulk import)
	Put(ctx context.Context, record *Record) error

	// Get retrieves a record by name
	// Returns ErrServiceNotFound if it doesn't exist, ErrCorruptRecord if it cannot be decoded
	Get(ctx context.Context, name string) (*Record, error)

	// Delete removes a record
	// Returns ErrServiceNotFound if it doesn't exist
	Delete(ctx context.Context, name string) error

	// List returns all service names sorted lexicographically
	// Returns ErrNoRecords if the store is empty
	List(ctx context.Context) ([]string, error)

	// Scan reads every record; per-record failures are collected, not returned
	Scan(ctx context.Context) (*ScanResult, error)

	// Close releases resources held by the store
	Close() error
}

// SortNames сортирует имена лексикографически (побайтово)
func SortNames(names []string) {
	slices.SortFunc(names, strings.Compare)
}
