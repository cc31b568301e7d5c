package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/otpkeeper/internal/transfer"
)

const (
	exportUsage = "export <path> [--encrypted]"
	importUsage = "import <path> [--encrypted] [--verify]"
)

func (c *Cli) runExport(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	encrypted := fs.Bool("encrypted", false, "Keep secrets encrypted in the export")

	args, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs(args, 1, exportUsage); err != nil {
		return err
	}

	mode := transfer.ModePlaintext
	var password string
	if *encrypted {
		// Зашифрованные блобы копируются как есть, пароль не нужен
		mode = transfer.ModeEncrypted
	} else {
		password, err = c.resolvePassword(ctx)
		if err != nil {
			return err
		}
	}

	res, err := c.transfer.Export(ctx, c.cfg.ExportBase(args[0]), mode, password)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	c.io.Printf("Exported %d items to %s\n", res.Processed, res.Path)
	if res.Mode == transfer.ModePlaintext {
		c.io.Println("Warning: the export contains unencrypted secrets")
	}
	return nil
}

func (c *Cli) runImport(ctx context.Context, args []string) error {
	fs := newFlagSet("import")
	encrypted := fs.Bool("encrypted", false, "The file holds encrypted secrets")
	verify := fs.Bool("verify", false, "Decrypt every encrypted secret before importing")

	args, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs(args, 1, importUsage); err != nil {
		return err
	}
	if *verify && !*encrypted {
		return fmt.Errorf("%w: --verify requires --encrypted", ErrUsage)
	}

	opts := transfer.ImportOptions{Mode: transfer.ModePlaintext, Verify: *verify}
	if *encrypted {
		opts.Mode = transfer.ModeEncrypted
	}

	// Пароль нужен для шифрования открытых секретов или для проверки блобов
	if opts.Mode == transfer.ModePlaintext || opts.Verify {
		opts.Password, err = c.unlock(ctx)
		if err != nil {
			return err
		}
	}

	res, err := c.transfer.Import(ctx, args[0], opts)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	c.io.Printf("Imported %d items\n", res.Written)
	return nil
}
