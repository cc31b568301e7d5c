// Package config builds the runtime configuration once at process start.
// Layers, lowest to highest: defaults, <Dir>/config.toml, .env, OTP_* environment, flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// EnvPrefix starts every environment variable read into Config
	EnvPrefix = "OTP_"

	// FileName is the optional config file inside the vault directory
	FileName = "config.toml"

	// DotenvFile is read from the working directory when present
	DotenvFile = ".env"

	appName = "otpkeeper"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// ErrInvalidConfig indicates that the merged configuration failed validation
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the merged runtime configuration
type Config struct {
	Dir           string `toml:"-" env:"DIR" validate:"required"`
	VaultID       string `toml:"vault_id" env:"VAULT_ID" validate:"required,max=64,excludesall=/\\"`
	Backend       string `toml:"backend" env:"BACKEND" validate:"oneof=file bolt sqlite"`
	ExportDir     string `toml:"export_dir" env:"EXPORT_DIR"`
	PasswordFile  string `toml:"password_file" env:"PASSWORD_FILE"`
	LogLevel      string `toml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Iterations    int    `toml:"iterations" env:"ITERATIONS" validate:"gte=1000"`
	DefaultDigits int    `toml:"default_digits" env:"DEFAULT_DIGITS" validate:"min=1,max=10"`
	DefaultPeriod int    `toml:"default_period" env:"DEFAULT_PERIOD" validate:"min=1,max=86400"`
	LegacyKDF     bool   `toml:"legacy_kdf" env:"LEGACY_KDF"`
	UseKeyring    bool   `toml:"use_keyring" env:"USE_KEYRING"`
}

// Defaults returns the built-in configuration; Dir is left empty
func Defaults() Config {
	return Config{
		VaultID:       "default",
		Backend:       BackendFile,
		LogLevel:      "warn",
		Iterations:    10000,
		DefaultDigits: 6,
		DefaultPeriod: 30,
		LegacyKDF:     true,
	}
}

// Overrides carries values set by command-line flags; empty fields are ignored
type Overrides struct {
	Dir          string
	Backend      string
	LogLevel     string
	PasswordFile string
}

// Options controls where Load looks for its inputs
type Options struct {
	// Environ is the process environment; nil means os.Environ
	Environ map[string]string
	// DotenvPath defaults to .env in the working directory
	DotenvPath string
	Overrides  Overrides
}

// Load merges every configuration layer and validates the result
func Load(opts Options) (*Config, error) {
	environ := opts.Environ
	if environ == nil {
		environ = environMap(os.Environ())
	}

	dotenvPath := opts.DotenvPath
	if dotenvPath == "" {
		dotenvPath = DotenvFile
	}

	environ, err := withDotenv(environ, dotenvPath)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()

	// Каталог нужен раньше остальных слоев: в нем лежит config.toml
	cfg.Dir = opts.Overrides.Dir
	if cfg.Dir == "" {
		cfg.Dir = environ[EnvPrefix+"DIR"]
	}
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir(environ)
	}

	if err := cfg.loadFile(filepath.Join(cfg.Dir, FileName)); err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg.apply(opts.Overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DatabasePath returns the database file for the bolt and sqlite backends
func (c *Config) DatabasePath() string {
	switch c.Backend {
	case BackendBolt:
		return filepath.Join(c.Dir, "vault.db")
	case BackendSQLite:
		return filepath.Join(c.Dir, "vault.sqlite")
	default:
		return ""
	}
}

// ExportBase resolves an export path: relative paths go to ExportDir when it is set
func (c *Config) ExportBase(path string) string {
	if c.ExportDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ExportDir, path)
}

// DefaultDir returns $XDG_DATA_HOME/otpkeeper or ~/.local/share/otpkeeper
func DefaultDir(environ map[string]string) string {
	if xdg := environ["XDG_DATA_HOME"]; xdg != "" {
		return filepath.Join(xdg, appName)
	}

	home := environ["HOME"]
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}
	return filepath.Join(home, ".local", "share", appName)
}

// loadFile читает config.toml; отсутствие файла не ошибка
func (c *Config) loadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("%w: %s: unknown keys: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}

	return nil
}

func (c *Config) apply(o Overrides) {
	if o.Dir != "" {
		c.Dir = o.Dir
	}
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.PasswordFile != "" {
		c.PasswordFile = o.PasswordFile
	}
}

// withDotenv добавляет значения из .env, не перекрывая реальное окружение.
// Окружение процесса не изменяется
func withDotenv(environ map[string]string, path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return environ, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	merged := make(map[string]string, len(environ)+len(values))
	for k, v := range values {
		merged[k] = v
	}
	for k, v := range environ {
		merged[k] = v
	}
	return merged, nil
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}
