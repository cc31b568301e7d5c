package resolver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/otpkeeper/internal/validation"
)

// Static returns a fixed password, typically from a command-line flag
type Static struct {
	Password string
}

// Resolve implements Resolver
func (s Static) Resolve(ctx context.Context, purpose Purpose) (string, error) {
	if s.Password == "" {
		return "", ErrNoPassword
	}
	if err := validation.ValidatePassword(s.Password); err != nil {
		return "", err
	}
	return s.Password, nil
}

// Env reads the password from an environment variable
type Env struct {
	lookup func(string) (string, bool)
	Name   string
}

// NewEnv creates an Env source for the variable name
func NewEnv(name string) *Env {
	return &Env{Name: name, lookup: os.LookupEnv}
}

// Resolve implements Resolver; an unset or empty variable yields ErrNoPassword
func (e *Env) Resolve(ctx context.Context, purpose Purpose) (string, error) {
	password, ok := e.lookup(e.Name)
	if !ok || password == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNoPassword, e.Name)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("%s: %w", e.Name, err)
	}
	return password, nil
}

// File reads the password from the first line of a file
type File struct {
	Path string
}

// Resolve implements Resolver. An explicitly configured file that cannot be
// read is an error, not a missing password
func (f File) Resolve(ctx context.Context, purpose Purpose) (string, error) {
	if f.Path == "" {
		return "", ErrNoPassword
	}

	data, err := os.ReadFile(f.Path) // #nosec G304 путь задан пользователем
	if err != nil {
		return "", fmt.Errorf("failed to read password file: %w", err)
	}

	line, err := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("password file %s is empty: %w", f.Path, validation.ErrInvalidPassword)
	}

	password := strings.TrimRight(line, "\r\n")
	if err := validation.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("password file %s: %w", f.Path, err)
	}

	return password, nil
}
