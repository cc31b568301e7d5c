package cli

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/skip2/go-qrcode"
)

// Clipboard receives a finished code
type Clipboard interface {
	WriteAll(text string) error
}

// QRRenderer turns an OTP URI into a printable QR code
type QRRenderer interface {
	Render(uri string) (string, error)
}

// SystemClipboard writes to the OS clipboard
type SystemClipboard struct{}

// WriteAll implements Clipboard
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not supported on this system")
	}
	return clipboard.WriteAll(text)
}

// TerminalQR renders QR codes with half-block characters
type TerminalQR struct {
	Level qrcode.RecoveryLevel
}

// Render implements QRRenderer
func (q TerminalQR) Render(uri string) (string, error) {
	code, err := qrcode.New(uri, q.Level)
	if err != nil {
		return "", fmt.Errorf("failed to build QR code: %w", err)
	}
	return code.ToSmallString(false), nil
}
