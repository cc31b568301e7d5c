package cli

import (
	"flag"
	"fmt"
	"io"
)

// newFlagSet создает набор флагов подкоманды; ошибки разбора возвращаются, а не печатаются
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseArgs разбирает флаги, разрешая им стоять после позиционных аргументов.
// Все после "--" считается позиционными аргументами
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
		}

		rest := fs.Args()
		if n := len(args) - len(rest); n > 0 && args[n-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}

		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// exactArgs проверяет количество позиционных аргументов
func exactArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("%w: Usage: otpkeeper %s", ErrUsage, usage)
	}
	return nil
}
