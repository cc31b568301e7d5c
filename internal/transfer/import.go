package transfer

import (
	"context"
	"fmt"

	"github.com/iudanet/otpkeeper/internal/storage"
	"github.com/iudanet/otpkeeper/internal/totp"
)

// ImportOptions controls an import
type ImportOptions struct {
	Mode     Mode
	Password string
	// Verify decrypts every encrypted blob with Password before anything is written
	Verify bool
}

// ImportResult describes a finished import
type ImportResult struct {
	Mode      Mode
	Processed int
	Written   int
}

// Import reads the document at path and merges it into the store
func (e *Engine) Import(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	if err := opts.Mode.Validate(); err != nil {
		return nil, err
	}

	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}

	return e.ImportDocument(ctx, doc, opts)
}

// ImportDocument validates the whole document, prepares every record and only
// then writes them. Existing records with the same name are overwritten
func (e *Engine) ImportDocument(ctx context.Context, doc Document, opts ImportOptions) (*ImportResult, error) {
	if err := opts.Mode.Validate(); err != nil {
		return nil, err
	}

	names := doc.Names()
	records := make([]*storage.Record, 0, len(names))

	// Первый проход: проверка всего документа без записи
	for _, name := range names {
		entry := doc[name]
		if err := validateEntry(name, entry, opts.Mode); err != nil {
			return nil, err
		}

		switch opts.Mode {
		case ModePlaintext:
			if err := totp.ValidateSecret(entry.Secret); err != nil {
				return nil, malformed(name, err)
			}
		case ModeEncrypted:
			if err := e.cipher.Validate(entry.EncryptedSecret); err != nil {
				return nil, malformed(name, err)
			}
		}
	}

	// Второй проход: шифрование или проверка пароля, все еще без записи
	for _, name := range names {
		entry := doc[name]
		rec := &storage.Record{
			ServiceName: name,
			Digits:      entry.Digits,
			Period:      entry.Period,
		}

		switch opts.Mode {
		case ModePlaintext:
			blob, err := e.cipher.Encrypt(totp.NormalizeSecret(entry.Secret), opts.Password)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			rec.EncryptedSecret = blob
		case ModeEncrypted:
			if opts.Verify {
				if _, err := e.cipher.Decrypt(entry.EncryptedSecret, opts.Password); err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
			}
			rec.EncryptedSecret = entry.EncryptedSecret
		}

		records = append(records, rec)
	}

	res := &ImportResult{Mode: opts.Mode, Processed: len(names)}
	for _, rec := range records {
		if err := e.store.Put(ctx, rec); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", rec.ServiceName, err)
		}
		res.Written++
	}

	e.logger.Info("vault imported", "mode", string(opts.Mode), "records", res.Written)

	return res, nil
}
