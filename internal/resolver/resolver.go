// Package resolver obtains the vault password from the configured sources.
package resolver

import (
	"context"
	"errors"
)

// EnvPassword is the environment variable read by the Env source
const EnvPassword = "OTP_PASSWORD"

var (
	// ErrNoPassword indicates that a source has no password to offer
	ErrNoPassword = errors.New("no password available")

	// ErrPasswordMismatch indicates that the confirmation did not match
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Purpose tells a source why the password is needed
type Purpose int

const (
	// PurposeUnlock - пароль для существующего хранилища
	PurposeUnlock Purpose = iota
	// PurposeCreate - пароль для нового хранилища, интерактивный ввод требует подтверждения
	PurposeCreate
)

func (p Purpose) String() string {
	switch p {
	case PurposeUnlock:
		return "unlock"
	case PurposeCreate:
		return "create"
	default:
		return "unknown"
	}
}

// Resolver returns the vault password.
// Sources without a password return an error wrapping ErrNoPassword
type Resolver interface {
	Resolve(ctx context.Context, purpose Purpose) (string, error)
}

// Chain tries each resolver in order and returns the first password found
type Chain []Resolver

// Resolve implements Resolver
func (c Chain) Resolve(ctx context.Context, purpose Purpose) (string, error) {
	for _, r := range c {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		password, err := r.Resolve(ctx, purpose)
		if err == nil {
			return password, nil
		}
		if !errors.Is(err, ErrNoPassword) {
			return "", err
		}
	}

	return "", ErrNoPassword
}
