package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/otpkeeper/internal/resolver"
	"github.com/iudanet/otpkeeper/internal/validation"
)

// resolvePassword получает пароль для операции.
// Для пустого хранилища пароль задается впервые и требует подтверждения
func (c *Cli) resolvePassword(ctx context.Context) (string, error) {
	empty, err := c.vault.IsEmpty(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read vault: %w", err)
	}

	purpose := resolver.PurposeUnlock
	if empty {
		purpose = resolver.PurposeCreate
	}

	password, err := c.passwords.Resolve(ctx, purpose)
	if err != nil {
		return "", fmt.Errorf("failed to get password: %w", err)
	}

	if err := validation.ValidatePassword(password); err != nil {
		return "", err
	}

	c.logger.Debug("password resolved", "purpose", purpose.String())
	return password, nil
}

// unlock получает пароль и сверяет его с записями хранилища
func (c *Cli) unlock(ctx context.Context) (string, error) {
	password, err := c.resolvePassword(ctx)
	if err != nil {
		return "", err
	}

	if err := c.vault.CheckPassword(ctx, password); err != nil {
		return "", err
	}
	return password, nil
}
