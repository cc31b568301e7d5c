package storage

import (
	"fmt"

	"github.com/iudanet/otpkeeper/internal/validation"
)

// Record is one persisted OTP entry.
// JSON keys match the per-service files of the original otp tool,
// so an existing OTP_DATA directory can be opened as a vault.
type Record struct {
	ServiceName     string `json:"service_name"`
	EncryptedSecret string `json:"otp_secret"`
	Digits          int    `json:"otp_digit"`
	Period          int    `json:"otp_period"`
}

// Validate проверяет структурную целостность записи.
// Содержимое EncryptedSecret хранилище не интерпретирует
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if err := validation.ValidateServiceName(r.ServiceName); err != nil {
		return err
	}
	if r.EncryptedSecret == "" {
		return fmt.Errorf("%w: %s: encrypted secret is empty", ErrInvalidRecord, r.ServiceName)
	}
	if r.Digits <= 0 {
		return fmt.Errorf("%w: %s: digit count must be positive", ErrInvalidRecord, r.ServiceName)
	}
	if r.Period <= 0 {
		return fmt.Errorf("%w: %s: period must be positive", ErrInvalidRecord, r.ServiceName)
	}
	return nil
}

// ScanResult is the outcome of reading every record of a store.
// Records are sorted by service name; unreadable records land in Failures.
type ScanResult struct {
	Records  []*Record
	Failures []*RecordError
}

// Names returns the names of all records the scan saw, readable or not, sorted
func (r *ScanResult) Names() []string {
	names := make([]string, 0, len(r.Records)+len(r.Failures))
	for _, rec := range r.Records {
		names = append(names, rec.ServiceName)
	}
	for _, f := range r.Failures {
		names = append(names, f.ServiceName)
	}
	SortNames(names)
	return names
}
