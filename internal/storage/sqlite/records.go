package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/iudanet/otpkeeper/internal/storage"
	"github.com/iudanet/otpkeeper/internal/validation"
)

// Exists reports whether a row exists for name
func (s *Storage) Exists(ctx context.Context, name string) (bool, error) {
	if err := validation.ValidateServiceName(name); err != nil {
		return false, err
	}

	var found int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM records WHERE service_name = ?)`, name,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check record: %v", storage.ErrStorage, err)
	}

	return found == 1, nil
}

// Create inserts a new row; the primary key makes the name check and insert one statement
func (s *Storage) Create(ctx context.Context, record *storage.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	now := s.now().Unix()
	query := `
		INSERT INTO records (service_name, otp_secret, otp_digit, otp_period, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(service_name) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		record.ServiceName,
		record.EncryptedSecret,
		record.Digits,
		record.Period,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert record: %v", storage.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %v", storage.ErrStorage, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", storage.ErrServiceAlreadyExists, record.ServiceName)
	}

	return nil
}

// Put inserts or replaces a row
func (s *Storage) Put(ctx context.Context, record *storage.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	now := s.now().Unix()
	query := `
		INSERT INTO records (service_name, otp_secret, otp_digit, otp_period, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(service_name) DO UPDATE SET
			otp_secret = excluded.otp_secret,
			otp_digit = excluded.otp_digit,
			otp_period = excluded.otp_period,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ServiceName,
		record.EncryptedSecret,
		record.Digits,
		record.Period,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert record: %v", storage.ErrStorage, err)
	}

	return nil
}

// Get retrieves a row by name
func (s *Storage) Get(ctx context.Context, name string) (*storage.Record, error) {
	if err := validation.ValidateServiceName(name); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT otp_secret, otp_digit, otp_period FROM records WHERE service_name = ?`, name,
	)

	var secret, digits, period sql.NullString
	if err := row.Scan(&secret, &digits, &period); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrServiceNotFound, name)
		}
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrStorage, name, err)
	}

	return decodeRow(name, secret, digits, period)
}

// Delete removes a row
func (s *Storage) Delete(ctx context.Context, name string) error {
	if err := validation.ValidateServiceName(name); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE service_name = ?`, name)
	if err != nil {
		return fmt.Errorf("%w: failed to delete record: %v", storage.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %v", storage.ErrStorage, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", storage.ErrServiceNotFound, name)
	}

	return nil
}

// List returns all names; BINARY collation orders them bytewise
func (s *Storage) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT service_name FROM records ORDER BY service_name`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list records: %v", storage.ErrStorage, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: failed to scan name: %v", storage.ErrStorage, err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration error: %v", storage.ErrStorage, err)
	}

	if len(names) == 0 {
		return nil, storage.ErrNoRecords
	}

	return names, nil
}

// Scan reads every row; rows that fail to decode or validate become failures
func (s *Storage) Scan(ctx context.Context) (*storage.ScanResult, error) {
	query := `SELECT service_name, otp_secret, otp_digit, otp_period FROM records ORDER BY service_name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan records: %v", storage.ErrStorage, err)
	}
	defer rows.Close()

	res := &storage.ScanResult{}
	for rows.Next() {
		var (
			name                   string
			secret, digits, period sql.NullString
		)
		if err := rows.Scan(&name, &secret, &digits, &period); err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %v", storage.ErrStorage, err)
		}

		rec, err := decodeRow(name, secret, digits, period)
		if err != nil {
			res.Failures = append(res.Failures, &storage.RecordError{ServiceName: name, Err: err})
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration error: %v", storage.ErrStorage, err)
	}

	return res, nil
}

// decodeRow собирает запись из колонок. SQLite не проверяет типы,
// поэтому числа читаются как текст и разбираются явно
func decodeRow(name string, secret, digits, period sql.NullString) (*storage.Record, error) {
	d, err := strconv.Atoi(digits.String)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: otp_digit: %v", storage.ErrCorruptRecord, name, err)
	}

	p, err := strconv.Atoi(period.String)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: otp_period: %v", storage.ErrCorruptRecord, name, err)
	}

	rec := &storage.Record{
		ServiceName:     name,
		EncryptedSecret: secret.String,
		Digits:          d,
		Period:          p,
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrCorruptRecord, name, err)
	}

	return rec, nil
}
