// Package transfer moves whole vaults in and out of a single JSON document,
// either with plaintext seeds or with the encrypted blobs copied unchanged.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/iudanet/otpkeeper/internal/storage"
	"github.com/iudanet/otpkeeper/internal/totp"
	"github.com/iudanet/otpkeeper/internal/validation"
)

// ErrMalformedTransferFile indicates that a transfer document is unreadable
// or an entry is missing required fields
var ErrMalformedTransferFile = errors.New("malformed transfer file")

// ErrUnknownMode indicates an unsupported transfer mode
var ErrUnknownMode = errors.New("unknown transfer mode")

// Mode selects whether seeds travel decrypted or as stored blobs
type Mode string

const (
	// ModePlaintext - seed расшифровывается при экспорте и шифруется заново при импорте
	ModePlaintext Mode = "plaintext"
	// ModeEncrypted - blob копируется без изменений, пароль не нужен
	ModeEncrypted Mode = "encrypted"
)

// Validate checks that the mode is known
func (m Mode) Validate() error {
	switch m {
	case ModePlaintext, ModeEncrypted:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, string(m))
	}
}

// Entry is one record inside a transfer document.
// Plaintext documents use otp_secret, the key the original tool exported;
// encrypted documents use otp_secret_encrypted so the two can never be confused.
type Entry struct {
	ServiceName     string `json:"service_name"`
	Secret          string `json:"otp_secret,omitempty"`
	EncryptedSecret string `json:"otp_secret_encrypted,omitempty"`
	Digits          int    `json:"otp_digit"`
	Period          int    `json:"otp_period"`
}

// Document maps service names to entries
type Document map[string]*Entry

// Names returns the document keys sorted
func (d Document) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	slices.SortFunc(names, strings.Compare)
	return names
}

// Marshal encodes the document as indented JSON; keys come out sorted
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return append(data, '\n'), nil
}

// ParseDocument decodes a transfer document
func ParseDocument(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: top level must be a JSON object", ErrMalformedTransferFile)
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransferFile, err)
	}

	return doc, nil
}

// ReadDocument reads and decodes a transfer document from path
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 путь задан пользователем
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer file: %w", err)
	}
	return ParseDocument(data)
}

// validateEntry проверяет одну запись документа для заданного режима.
// Seed и blob проверяются вызывающим кодом
func validateEntry(key string, entry *Entry, mode Mode) error {
	if entry == nil {
		return malformed(key, errors.New("entry is null"))
	}

	if entry.ServiceName == "" {
		return malformed(key, errors.New("service_name is missing"))
	}
	if entry.ServiceName != key {
		return malformed(key, fmt.Errorf("service_name %q does not match key", entry.ServiceName))
	}

	if err := validation.ValidateServiceName(key); err != nil {
		return malformed(key, err)
	}

	if err := totp.ValidateParams(entry.Digits, entry.Period); err != nil {
		return malformed(key, err)
	}

	switch mode {
	case ModePlaintext:
		if entry.Secret == "" {
			return malformed(key, errors.New("otp_secret is missing"))
		}
		if entry.EncryptedSecret != "" {
			return malformed(key, errors.New("otp_secret_encrypted found in a plaintext document"))
		}
	case ModeEncrypted:
		if entry.EncryptedSecret == "" {
			return malformed(key, errors.New("otp_secret_encrypted is missing"))
		}
		if entry.Secret != "" {
			return malformed(key, errors.New("otp_secret found in an encrypted document"))
		}
	}

	return nil
}

// malformed оборачивает причину в ErrMalformedTransferFile, сохраняя ее для errors.Is
func malformed(key string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformedTransferFile, key, cause)
}

// entryFromRecord переносит параметры записи в entry
func entryFromRecord(rec *storage.Record) *Entry {
	return &Entry{
		ServiceName: rec.ServiceName,
		Digits:      rec.Digits,
		Period:      rec.Period,
	}
}
