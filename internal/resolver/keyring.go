package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/iudanet/otpkeeper/internal/validation"
)

// KeyringService is the service name under which passwords are stored in the OS keyring
const KeyringService = "otpkeeper"

// Keyring reads the password from the OS keyring, keyed by vault id
type Keyring struct {
	VaultID string
}

// NewKeyring creates a keyring source for the vault
func NewKeyring(vaultID string) *Keyring {
	return &Keyring{VaultID: vaultID}
}

// Resolve implements Resolver. A missing entry or an unavailable keyring
// yields ErrNoPassword so the chain falls through to the next source
func (k *Keyring) Resolve(ctx context.Context, purpose Purpose) (string, error) {
	password, err := keyring.Get(KeyringService, k.VaultID)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: no keyring entry for %s", ErrNoPassword, k.VaultID)
		}
		return "", fmt.Errorf("%w: keyring unavailable: %v", ErrNoPassword, err)
	}
	return password, nil
}

// Store saves the password in the keyring
func (k *Keyring) Store(password string) error {
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}
	if err := keyring.Set(KeyringService, k.VaultID, password); err != nil {
		return fmt.Errorf("failed to store password in keyring: %w", err)
	}
	return nil
}

// Forget removes the password from the keyring; a missing entry is not an error
func (k *Keyring) Forget() error {
	err := keyring.Delete(KeyringService, k.VaultID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete password from keyring: %w", err)
	}
	return nil
}
