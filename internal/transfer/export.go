package transfer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/iudanet/otpkeeper/internal/fsutil"
	"github.com/iudanet/otpkeeper/internal/storage"
)

const (
	// timestampLayout - UTC, без двоеточий, чтобы имя файла было переносимым
	timestampLayout = "20060102T150405Z"

	// maxExportSuffix ограничивает число экспортов с одной меткой времени
	maxExportSuffix = 99
)

// ExportResult describes a finished export
type ExportResult struct {
	Path      string
	Mode      Mode
	Processed int
}

// TimestampedPath returns <base>-<UTC timestamp>.json, stripping a .json suffix from base first
func TimestampedPath(base string, at time.Time) string {
	base = strings.TrimSuffix(base, ".json")
	return base + "-" + at.UTC().Format(timestampLayout) + ".json"
}

// Snapshot builds the transfer document for every record in the store.
// Any unreadable record or failed decryption aborts the snapshot
func (e *Engine) Snapshot(ctx context.Context, mode Mode, password string) (Document, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	res, err := e.store.Scan(ctx)
	if err != nil {
		return nil, err
	}

	if len(res.Failures) > 0 {
		f := res.Failures[0]
		return nil, fmt.Errorf("cannot export %s: %w", f.ServiceName, f.Err)
	}

	doc := make(Document, len(res.Records))
	for _, rec := range res.Records {
		entry := entryFromRecord(rec)

		switch mode {
		case ModePlaintext:
			secret, err := e.cipher.Decrypt(rec.EncryptedSecret, password)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", rec.ServiceName, err)
			}
			entry.Secret = secret
		case ModeEncrypted:
			entry.EncryptedSecret = rec.EncryptedSecret
		}

		doc[rec.ServiceName] = entry
	}

	return doc, nil
}

// Export writes a snapshot to a new timestamped file next to base.
// Nothing is written unless the whole snapshot succeeded; an existing file is never replaced.
// Exports sharing a timestamp get a numeric suffix: backup-<ts>.json, backup-<ts>-1.json, ...
func (e *Engine) Export(ctx context.Context, base string, mode Mode, password string) (*ExportResult, error) {
	doc, err := e.Snapshot(ctx, mode, password)
	if err != nil {
		return nil, err
	}

	data, err := doc.Marshal()
	if err != nil {
		return nil, err
	}

	path, err := createExport(filepath.Clean(TimestampedPath(base, e.now())), data)
	if err != nil {
		return nil, err
	}

	e.logger.Info("vault exported", "mode", string(mode), "records", len(doc), "path", path)

	return &ExportResult{
		Path:      path,
		Mode:      mode,
		Processed: len(doc),
	}, nil
}

// createExport создает файл экспорта, не перезаписывая существующие.
// При совпадении имени пробуются суффиксы -1, -2, ...
func createExport(path string, data []byte) (string, error) {
	stem := strings.TrimSuffix(path, ".json")
	candidate := path
	for n := 1; ; n++ {
		err := fsutil.CreateFile(candidate, data, exportPerm)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fsutil.ErrExist) {
			return "", fmt.Errorf("%w: failed to write export: %v", storage.ErrStorage, err)
		}
		if n > maxExportSuffix {
			return "", fmt.Errorf("export file %s already exists: %w", path, err)
		}
		candidate = fmt.Sprintf("%s-%d.json", stem, n)
	}
}
