// Package iocli abstracts terminal input and output for the commands.
package iocli

//go:generate moq -out io_mock.go . IO

// IO is the console seen by the commands.
// Output goes to stdout; prompts go to stderr so piped output stays clean
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
