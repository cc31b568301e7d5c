// Package cli implements the otpkeeper commands on top of the vault service
// and the transfer engine.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/iudanet/otpkeeper/internal/config"
	"github.com/iudanet/otpkeeper/internal/iocli"
	"github.com/iudanet/otpkeeper/internal/resolver"
	"github.com/iudanet/otpkeeper/internal/transfer"
	"github.com/iudanet/otpkeeper/internal/vault"
)

// ErrUsage indicates a malformed command line
var ErrUsage = errors.New("usage error")

// Transfer is the part of the transfer engine used by export and import
type Transfer interface {
	Export(ctx context.Context, base string, mode transfer.Mode, password string) (*transfer.ExportResult, error)
	Import(ctx context.Context, path string, opts transfer.ImportOptions) (*transfer.ImportResult, error)
}

// KeyStore saves the vault password in the OS keyring
type KeyStore interface {
	Store(password string) error
	Forget() error
}

// Options carries the collaborators of Cli
type Options struct {
	IO        iocli.IO
	Vault     vault.Service
	Transfer  Transfer
	Passwords resolver.Resolver
	Keyring   KeyStore
	Clipboard Clipboard
	QR        QRRenderer
	Config    *config.Config
	Logger    *slog.Logger
	Version   string
}

type Cli struct {
	io        iocli.IO
	vault     vault.Service
	transfer  Transfer
	passwords resolver.Resolver
	keyring   KeyStore
	clipboard Clipboard
	qr        QRRenderer
	cfg       *config.Config
	logger    *slog.Logger
	now       func() time.Time
	version   string
}

// New creates the command runner
func New(opts Options) *Cli {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cfg := opts.Config
	if cfg == nil {
		defaults := config.Defaults()
		cfg = &defaults
	}

	return &Cli{
		io:        opts.IO,
		vault:     opts.Vault,
		transfer:  opts.Transfer,
		passwords: opts.Passwords,
		keyring:   opts.Keyring,
		clipboard: opts.Clipboard,
		qr:        opts.QR,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		version:   opts.Version,
	}
}

// Run executes one command; args excludes the command name
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	c.logger.Debug("running command", "command", command)

	switch command {
	case "add":
		return c.runAdd(ctx, args)
	case "get":
		return c.runGet(ctx, args)
	case "delete":
		return c.runDelete(ctx, args)
	case "list":
		return c.runList(ctx, args)
	case "print":
		return c.runPrint(ctx, args)
	case "export":
		return c.runExport(ctx, args)
	case "import":
		return c.runImport(ctx, args)
	case "keyring":
		return c.runKeyring(ctx, args)
	case "version":
		c.io.Printf("otpkeeper %s\n", c.version)
		return nil
	case "help":
		PrintUsage(c.io)
		return nil
	default:
		return fmt.Errorf("%w: unknown command: %s", ErrUsage, command)
	}
}

// PrintUsage writes the help text
func PrintUsage(out io.Writer) {
	fmt.Fprintln(out, "otpkeeper - encrypted TOTP vault")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  otpkeeper [OPTIONS] COMMAND [ARGS]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Options:")
	fmt.Fprintln(out, "  --dir PATH             Vault directory (default: $XDG_DATA_HOME/otpkeeper)")
	fmt.Fprintln(out, "  --backend NAME         Storage backend: file, bolt or sqlite (default: file)")
	fmt.Fprintln(out, "  --password-file PATH   File containing the vault password")
	fmt.Fprintln(out, "  --password PASSWORD    Vault password (not recommended, use env var or file)")
	fmt.Fprintln(out, "  --log-level LEVEL      debug, info, warn or error (default: warn)")
	fmt.Fprintln(out, "  --version              Show version information")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Password Priority (highest to lowest):")
	fmt.Fprintln(out, "  1. --password (command line)")
	fmt.Fprintln(out, "  2. --password-file (file path)")
	fmt.Fprintln(out, "  3. OTP_PASSWORD environment variable")
	fmt.Fprintln(out, "  4. OS keyring (when use_keyring is enabled)")
	fmt.Fprintln(out, "  5. Interactive prompt (fallback)")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  add <name> [--digits N] [--period S]       Add a new OTP secret")
	fmt.Fprintln(out, "  get <name> [--copy] [--uri] [--qr]         Generate a code")
	fmt.Fprintln(out, "  delete <name> [--yes]                      Delete an OTP secret")
	fmt.Fprintln(out, "  list                                       List services")
	fmt.Fprintln(out, "  print                                      Print codes for every service")
	fmt.Fprintln(out, "  export <path> [--encrypted]                Export the vault")
	fmt.Fprintln(out, "  import <path> [--encrypted] [--verify]     Import a vault export")
	fmt.Fprintln(out, "  keyring set|forget                         Manage the password in the OS keyring")
	fmt.Fprintln(out, "  version                                    Show version information")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Examples:")
	fmt.Fprintln(out, "  otpkeeper add github --digits 6 --period 30")
	fmt.Fprintln(out, "  otpkeeper get github --copy")
	fmt.Fprintln(out, "  OTP_PASSWORD='secret' otpkeeper print")
	fmt.Fprintln(out, "  otpkeeper export backup --encrypted")
	fmt.Fprintln(out, "  otpkeeper import backup-20240101T120000Z.json --encrypted --verify")
}
