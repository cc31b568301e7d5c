package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/otpkeeper/internal/storage"
)

const addUsage = "add <name> [--digits N] [--period S]"

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	digits := fs.Int("digits", c.cfg.DefaultDigits, "Number of digits of the code")
	period := fs.Int("period", c.cfg.DefaultPeriod, "Time step in seconds")

	args, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs(args, 1, addUsage); err != nil {
		return err
	}
	name := args[0]

	// Проверяем заранее, чтобы не запрашивать seed и пароль впустую
	exists, err := c.vault.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check service: %w", err)
	}
	if exists {
		return fmt.Errorf("%s already exists: %w", name, storage.ErrServiceAlreadyExists)
	}

	secret, err := c.io.ReadPassword("Enter the OTP secret: ")
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}
	secret = strings.TrimSpace(secret)

	password, err := c.resolvePassword(ctx)
	if err != nil {
		return err
	}

	if err := c.vault.Add(ctx, name, secret, *digits, *period, password); err != nil {
		if errors.Is(err, storage.ErrServiceAlreadyExists) {
			return fmt.Errorf("%s already exists: %w", name, err)
		}
		return fmt.Errorf("failed to add %s: %w", name, err)
	}

	c.logger.Info("record added", "service", name, "digits", *digits, "period", *period)
	c.io.Printf("Item %s saved successfully\n", name)
	return nil
}
