package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/otpkeeper/internal/storage"
)

const deleteUsage = "delete <name> [--yes]"

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	yes := fs.Bool("yes", false, "Do not ask for confirmation")

	args, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs(args, 1, deleteUsage); err != nil {
		return err
	}
	name := args[0]

	exists, err := c.vault.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check service: %w", err)
	}
	if !exists {
		return fmt.Errorf("%s does not exist: %w", name, storage.ErrServiceNotFound)
	}

	if !*yes {
		answer, err := c.io.ReadInput(fmt.Sprintf("Are you sure you want to delete %s? (yes/no): ", name))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}

		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "yes" && answer != "y" {
			c.io.Println("Deletion cancelled.")
			return nil
		}
	}

	if err := c.vault.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}

	c.logger.Info("record deleted", "service", name)
	c.io.Printf("Item %s deleted successfully\n", name)
	return nil
}
