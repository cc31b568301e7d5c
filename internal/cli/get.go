package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/otpkeeper/internal/storage"
)

const getUsage = "get <name> [--copy] [--uri] [--qr]"

func (c *Cli) runGet(ctx context.Context, args []string) error {
	fs := newFlagSet("get")
	copyCode := fs.Bool("copy", false, "Copy the code to the clipboard")
	showURI := fs.Bool("uri", false, "Print the otpauth:// URI")
	showQR := fs.Bool("qr", false, "Print the URI as a QR code")

	args, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs(args, 1, getUsage); err != nil {
		return err
	}
	name := args[0]

	// Несуществующий сервис не требует пароля
	exists, err := c.vault.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check service: %w", err)
	}
	if !exists {
		return fmt.Errorf("%s does not exist: %w", name, storage.ErrServiceNotFound)
	}

	password, err := c.resolvePassword(ctx)
	if err != nil {
		return err
	}

	code, err := c.vault.Generate(ctx, name, password, c.now())
	if err != nil {
		return fmt.Errorf("failed to generate code for %s: %w", name, err)
	}

	c.io.Println(code.Value)

	if *showURI {
		c.io.Println(code.URI)
	}

	if *showQR {
		qr, err := c.qr.Render(code.URI)
		if err != nil {
			return err
		}
		c.io.Printf("%s", qr)
	}

	if *copyCode {
		if err := c.clipboard.WriteAll(code.Value); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		c.io.Printf("Copied to clipboard, valid for %ds\n", int(code.Remaining.Seconds()))
	}

	return nil
}
