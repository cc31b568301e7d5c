package transfer

import (
	"io"
	"log/slog"
	"time"

	"github.com/iudanet/otpkeeper/internal/storage"
)

const exportPerm = 0600

// Cipher is the part of the cipher adapter the engine needs
type Cipher interface {
	Encrypt(plaintext, password string) (string, error)
	Decrypt(blob, password string) (string, error)
	Validate(blob string) error
}

// Engine exports and imports whole vaults
type Engine struct {
	store  storage.Store
	cipher Cipher
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates a transfer engine; a nil logger discards output
func NewEngine(store storage.Store, cipher Cipher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		store:  store,
		cipher: cipher,
		logger: logger,
		now:    time.Now,
	}
}
