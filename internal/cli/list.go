package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runList(ctx context.Context, args []string) error {
	args, err := parseArgs(newFlagSet("list"), args)
	if err != nil {
		return err
	}
	if err := exactArgs(args, 0, "list"); err != nil {
		return err
	}

	res, err := c.vault.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}

	names := res.Names()
	if len(names) == 0 {
		c.io.Println("No OTP found")
		return nil
	}

	// Нечитаемая запись помечается, остальной список выводится
	failed := make(map[string]error, len(res.Failures))
	for _, f := range res.Failures {
		failed[f.ServiceName] = f.Err
	}

	for _, name := range names {
		if err, ok := failed[name]; ok {
			c.io.Printf("%s (unreadable: %v)\n", name, err)
			continue
		}
		c.io.Println(name)
	}

	return nil
}

func (c *Cli) runPrint(ctx context.Context, args []string) error {
	args, err := parseArgs(newFlagSet("print"), args)
	if err != nil {
		return err
	}
	if err := exactArgs(args, 0, "print"); err != nil {
		return err
	}

	empty, err := c.vault.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to read vault: %w", err)
	}
	if empty {
		c.io.Println("No OTP found")
		return nil
	}

	password, err := c.resolvePassword(ctx)
	if err != nil {
		return err
	}

	batch, err := c.vault.GenerateAll(ctx, password, c.now())
	if err != nil {
		return fmt.Errorf("failed to generate codes: %w", err)
	}

	for _, code := range batch.Codes {
		c.io.Printf("%s: %s\n", code.Service, code.Value)
	}
	for _, f := range batch.Failures {
		c.io.Printf("%s: error: %v\n", f.ServiceName, f.Err)
	}

	if len(batch.Failures) > 0 {
		c.logger.Warn("some records could not be read", "failed", len(batch.Failures))
	}
	return nil
}
