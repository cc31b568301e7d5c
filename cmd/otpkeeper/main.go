package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/skip2/go-qrcode"

	"github.com/iudanet/otpkeeper/internal/cli"
	"github.com/iudanet/otpkeeper/internal/config"
	"github.com/iudanet/otpkeeper/internal/crypto"
	"github.com/iudanet/otpkeeper/internal/iocli"
	"github.com/iudanet/otpkeeper/internal/resolver"
	"github.com/iudanet/otpkeeper/internal/storage"
	"github.com/iudanet/otpkeeper/internal/storage/boltdb"
	"github.com/iudanet/otpkeeper/internal/storage/filestore"
	"github.com/iudanet/otpkeeper/internal/storage/sqlite"
	"github.com/iudanet/otpkeeper/internal/transfer"
	"github.com/iudanet/otpkeeper/internal/vault"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	dir := flag.String("dir", "", "Vault directory")
	backend := flag.String("backend", "", "Storage backend: file, bolt or sqlite")
	passwordFile := flag.String("password-file", "", "Path to file containing the vault password")
	password := flag.String("password", "", "Vault password (not recommended)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error")

	flag.Usage = func() { cli.PrintUsage(os.Stderr) }
	flag.Parse()

	if *showVersion {
		printVersion()
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(os.Stderr)
		return 1
	}

	cfg, err := config.Load(config.Options{
		Overrides: config.Overrides{
			Dir:          *dir,
			Backend:      *backend,
			LogLevel:     *logLevel,
			PasswordFile: *passwordFile,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if *password != "" {
		logger.Warn("password passed on the command line; prefer OTP_PASSWORD or --password-file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open vault: %v\n", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close vault", "error", err)
		}
	}()

	logger.Debug("vault opened", "dir", cfg.Dir, "backend", cfg.Backend)

	cipher := crypto.New(cfg.Iterations, cfg.LegacyKDF)
	stdio := iocli.NewStdio()
	keyring := resolver.NewKeyring(cfg.VaultID)

	// Порядок источников пароля: флаг, файл, окружение, keyring, интерактивный ввод
	passwords := resolver.Chain{
		resolver.Static{Password: *password},
		resolver.File{Path: cfg.PasswordFile},
		resolver.NewEnv(resolver.EnvPassword),
	}
	if cfg.UseKeyring {
		passwords = append(passwords, keyring)
	}
	passwords = append(passwords, resolver.NewPrompt(stdio))

	c := cli.New(cli.Options{
		IO:        stdio,
		Vault:     vault.NewService(store, cipher),
		Transfer:  transfer.NewEngine(store, cipher, logger),
		Passwords: passwords,
		Keyring:   keyring,
		Clipboard: cli.SystemClipboard{},
		QR:        cli.TerminalQR{Level: qrcode.Medium},
		Config:    cfg,
		Logger:    logger,
		Version:   Version,
	})

	if err := c.Run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr)
			cli.PrintUsage(os.Stderr)
		}
		return 1
	}

	return 0
}

// openStore открывает хранилище выбранного типа, создавая каталог при первом запуске
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return filestore.New(cfg.Dir)
	case config.BackendBolt, config.BackendSQLite:
		if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create vault directory: %w", err)
		}
		if cfg.Backend == config.BackendBolt {
			return boltdb.New(ctx, cfg.DatabasePath())
		}
		return sqlite.New(ctx, cfg.DatabasePath())
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printVersion() {
	fmt.Printf("otpkeeper\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
