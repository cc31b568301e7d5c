package cli

import (
	"context"
	"fmt"
)

const keyringUsage = "keyring set|forget"

func (c *Cli) runKeyring(ctx context.Context, args []string) error {
	args, err := parseArgs(newFlagSet("keyring"), args)
	if err != nil {
		return err
	}
	if err := exactArgs(args, 1, keyringUsage); err != nil {
		return err
	}

	switch args[0] {
	case "set":
		// Пароль проверяется до сохранения: в keyring не попадает чужой пароль
		password, err := c.unlock(ctx)
		if err != nil {
			return err
		}
		if err := c.keyring.Store(password); err != nil {
			return fmt.Errorf("failed to store password: %w", err)
		}
		c.io.Println("Password stored in the OS keyring")
		if !c.cfg.UseKeyring {
			c.io.Println("Set use_keyring = true in config.toml to read it automatically")
		}
	case "forget":
		if err := c.keyring.Forget(); err != nil {
			return fmt.Errorf("failed to remove password: %w", err)
		}
		c.io.Println("Password removed from the OS keyring")
	default:
		return fmt.Errorf("%w: unknown keyring action: %s. Usage: otpkeeper %s", ErrUsage, args[0], keyringUsage)
	}

	return nil
}
