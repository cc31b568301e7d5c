// Package vault combines the record store, the cipher and the TOTP engine
// into the add / generate / delete / list operations of the tool.
package vault

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/iudanet/otpkeeper/internal/crypto"
	"github.com/iudanet/otpkeeper/internal/storage"
	"github.com/iudanet/otpkeeper/internal/totp"
	"github.com/iudanet/otpkeeper/internal/validation"
)

// Cipher шифрует и расшифровывает seed паролем
type Cipher interface {
	Encrypt(plaintext, password string) (string, error)
	Decrypt(blob, password string) (string, error)
}

// Code is a generated one-time code with its side outputs
type Code struct {
	Service   string
	Value     string
	URI       string
	Digits    int
	Period    int
	Remaining time.Duration
}

// Batch is the result of generating codes for the whole vault
type Batch struct {
	Codes    []*Code
	Failures []*storage.RecordError
}

// Service определяет операции над хранилищем OTP
type Service interface {
	// Add encrypts secret and stores a new record; nothing is stored on failure
	Add(ctx context.Context, name, secret string, digits, period int, password string) error

	// Generate decrypts one record and computes its code at the given time
	Generate(ctx context.Context, name, password string, at time.Time) (*Code, error)

	// GenerateAll computes codes for every record; a wrong password aborts the batch
	GenerateAll(ctx context.Context, password string, at time.Time) (*Batch, error)

	// CheckPassword verifies password against the first readable record.
	// An empty vault accepts any password
	CheckPassword(ctx context.Context, password string) error

	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Scan(ctx context.Context) (*storage.ScanResult, error)

	// IsEmpty reports whether the vault holds no records, readable or not
	IsEmpty(ctx context.Context) (bool, error)
}

type service struct {
	store  storage.Store
	cipher Cipher
}

// NewService creates a new vault service
func NewService(store storage.Store, cipher Cipher) Service {
	return &service{
		store:  store,
		cipher: cipher,
	}
}

// Add validates all input before encrypting, then creates the record
func (s *service) Add(ctx context.Context, name, secret string, digits, period int, password string) error {
	if err := validation.ValidateServiceName(name); err != nil {
		return err
	}

	if err := totp.ValidateParams(digits, period); err != nil {
		return err
	}

	// Seed проверяется до шифрования: в хранилище не попадает мусор
	if err := totp.ValidateSecret(secret); err != nil {
		return err
	}

	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check service: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", storage.ErrServiceAlreadyExists, name)
	}

	// Все записи хранилища шифруются одним паролем
	if err := s.CheckPassword(ctx, password); err != nil {
		return err
	}

	blob, err := s.cipher.Encrypt(totp.NormalizeSecret(secret), password)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %w", err)
	}

	record := &storage.Record{
		ServiceName:     name,
		EncryptedSecret: blob,
		Digits:          digits,
		Period:          period,
	}

	if err := s.store.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// Generate reads, decrypts and computes the code for one service
func (s *service) Generate(ctx context.Context, name, password string, at time.Time) (*Code, error) {
	record, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	return s.generate(record, password, at)
}

// GenerateAll computes codes for every readable record.
// Records that cannot be read or decoded are collected as failures
func (s *service) GenerateAll(ctx context.Context, password string, at time.Time) (*Batch, error) {
	res, err := s.store.Scan(ctx)
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		Codes:    make([]*Code, 0, len(res.Records)),
		Failures: res.Failures,
	}

	for _, record := range res.Records {
		code, err := s.generate(record, password, at)
		if err != nil {
			if errors.Is(err, crypto.ErrWrongPassword) || errors.Is(err, crypto.ErrEmptyPassword) {
				return nil, fmt.Errorf("%s: %w", record.ServiceName, err)
			}
			batch.Failures = append(batch.Failures, &storage.RecordError{ServiceName: record.ServiceName, Err: err})
			continue
		}
		batch.Codes = append(batch.Codes, code)
	}

	sortFailures(batch.Failures)
	return batch, nil
}

// CheckPassword decrypts the first record whose blob is structurally valid
func (s *service) CheckPassword(ctx context.Context, password string) error {
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	res, err := s.store.Scan(ctx)
	if err != nil {
		return err
	}

	for _, record := range res.Records {
		_, err := s.cipher.Decrypt(record.EncryptedSecret, password)
		if err == nil {
			return nil
		}
		if errors.Is(err, crypto.ErrMalformedCiphertext) {
			continue
		}
		return err
	}

	return nil
}

// Exists reports whether a record exists
func (s *service) Exists(ctx context.Context, name string) (bool, error) {
	return s.store.Exists(ctx, name)
}

// Delete removes a record
func (s *service) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

// List returns all service names, sorted
func (s *service) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// Scan reads every record
func (s *service) Scan(ctx context.Context) (*storage.ScanResult, error) {
	return s.store.Scan(ctx)
}

// IsEmpty reports whether the vault holds no records
func (s *service) IsEmpty(ctx context.Context) (bool, error) {
	_, err := s.store.List(ctx)
	if errors.Is(err, storage.ErrNoRecords) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *service) generate(record *storage.Record, password string, at time.Time) (*Code, error) {
	secret, err := s.cipher.Decrypt(record.EncryptedSecret, password)
	if err != nil {
		return nil, err
	}

	value, err := totp.Generate(secret, record.Digits, record.Period, at)
	if err != nil {
		return nil, err
	}

	return &Code{
		Service:   record.ServiceName,
		Value:     value,
		Digits:    record.Digits,
		Period:    record.Period,
		Remaining: totp.Remaining(record.Period, at),
		URI: totp.URI(totp.Params{
			Service: record.ServiceName,
			Secret:  secret,
			Digits:  record.Digits,
			Period:  record.Period,
		}),
	}, nil
}

// sortFailures упорядочивает ошибки по имени сервиса
func sortFailures(failures []*storage.RecordError) {
	slices.SortFunc(failures, func(a, b *storage.RecordError) int {
		return strings.Compare(a.ServiceName, b.ServiceName)
	})
}
