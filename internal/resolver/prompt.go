package resolver

import (
	"context"
	"fmt"

	"github.com/iudanet/otpkeeper/internal/iocli"
	"github.com/iudanet/otpkeeper/internal/validation"
)

// DefaultAttempts ограничивает число попыток ввода с подтверждением
const DefaultAttempts = 3

// Prompt asks the user on the terminal
type Prompt struct {
	IO       iocli.IO
	Attempts int
}

// NewPrompt creates an interactive source
func NewPrompt(io iocli.IO) *Prompt {
	return &Prompt{IO: io, Attempts: DefaultAttempts}
}

// Resolve implements Resolver. PurposeCreate asks twice and retries on mismatch
func (p *Prompt) Resolve(ctx context.Context, purpose Purpose) (string, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var lastErr error
	for range attempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		password, err := p.IO.ReadPassword("Insert the password: ")
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		if err := validation.ValidatePassword(password); err != nil {
			lastErr = err
			p.IO.Println("Password cannot be empty")
			continue
		}

		if purpose != PurposeCreate {
			return password, nil
		}

		confirm, err := p.IO.ReadPassword("Confirm the password: ")
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		if confirm == password {
			return password, nil
		}

		lastErr = ErrPasswordMismatch
		p.IO.Println("Passwords do not match")
	}

	return "", lastErr
}
