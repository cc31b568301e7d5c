package iocli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio реализует IO поверх стандартных потоков процесса
type Stdio struct {
	in     *os.File
	reader *bufio.Reader
	out    io.Writer
	prompt io.Writer
}

// NewStdio returns IO bound to os.Stdin, os.Stdout and os.Stderr
func NewStdio() IO {
	return newStdio(os.Stdin, os.Stdout, os.Stderr)
}

func newStdio(in *os.File, out, prompt io.Writer) *Stdio {
	return &Stdio{
		in:     in,
		reader: bufio.NewReader(in),
		out:    out,
		prompt: prompt,
	}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// ReadInput печатает prompt и читает одну строку.
// Один буферизованный reader на все вызовы: иначе прочитанные вперед строки теряются
func (s *Stdio) ReadInput(prompt string) (string, error) {
	_, _ = fmt.Fprint(s.prompt, prompt)
	return s.readLine()
}

// ReadPassword читает строку без эха, если stdin - терминал.
// При вводе из pipe строка читается как есть
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	_, _ = fmt.Fprint(s.prompt, prompt)

	fd := int(s.in.Fd())
	if !term.IsTerminal(fd) {
		return s.readLine()
	}

	pwBytes, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(s.prompt)
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}

func (s *Stdio) readLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		// Последняя строка без перевода строки тоже считается вводом
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
