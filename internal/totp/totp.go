// Package totp computes RFC 6238 time-based one-time passwords (HMAC-SHA1)
// and builds otpauth:// URIs for authenticator apps.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidSecretEncoding indicates that the seed is not valid base32
	ErrInvalidSecretEncoding = errors.New("invalid base32 secret")

	// ErrInvalidDigits indicates that the digit count is out of range
	ErrInvalidDigits = errors.New("invalid digit count")

	// ErrInvalidPeriod indicates that the time step is out of range
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidTime indicates a timestamp before the Unix epoch
	ErrInvalidTime = errors.New("time before unix epoch")
)

const (
	// DefaultDigits - длина кода по умолчанию
	DefaultDigits = 6
	// DefaultPeriod - шаг времени по умолчанию в секундах
	DefaultPeriod = 30

	// MinDigits / MaxDigits - допустимая длина кода.
	// 31-битное значение после усечения дает не более 10 значащих цифр
	MinDigits = 1
	MaxDigits = 10

	// MaxPeriod - сутки
	MaxPeriod = 86400
)

// Generate returns the TOTP code for secret at the given time.
// The result always has exactly digits characters, leading zeros included.
func Generate(secret string, digits, period int, at time.Time) (string, error) {
	if err := ValidateParams(digits, period); err != nil {
		return "", err
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}

	unix := at.Unix()
	if unix < 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalidTime, at.UTC().Format(time.RFC3339))
	}

	counter := uint64(unix) / uint64(period)
	return hotp(key, counter, digits), nil
}

// Remaining возвращает время до смены текущего кода
func Remaining(period int, at time.Time) time.Duration {
	if period <= 0 {
		return 0
	}
	p := int64(period)
	elapsed := at.Unix() % p
	if elapsed < 0 {
		elapsed += p
	}
	return time.Duration(p-elapsed) * time.Second
}

// ValidateParams проверяет длину кода и шаг времени
func ValidateParams(digits, period int) error {
	if digits < MinDigits || digits > MaxDigits {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidDigits, digits, MinDigits, MaxDigits)
	}
	if period < 1 || period > MaxPeriod {
		return fmt.Errorf("%w: %d (must be between 1 and %d seconds)", ErrInvalidPeriod, period, MaxPeriod)
	}
	return nil
}

// NormalizeSecret приводит seed к каноничному виду:
// без пробелов и дефисов, в верхнем регистре
func NormalizeSecret(secret string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, secret)
}

// DecodeSecret decodes a base32 seed. Padding is optional, but when present
// it must be canonical.
func DecodeSecret(secret string) ([]byte, error) {
	normalized := NormalizeSecret(secret)
	if normalized == "" {
		return nil, fmt.Errorf("%w: secret is empty", ErrInvalidSecretEncoding)
	}

	encoding := base32.StdEncoding
	if !strings.Contains(normalized, "=") {
		encoding = base32.StdEncoding.WithPadding(base32.NoPadding)
	}

	key, err := encoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretEncoding, err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: secret decodes to zero bytes", ErrInvalidSecretEncoding)
	}

	return key, nil
}

// ValidateSecret проверяет, что seed декодируется из base32
func ValidateSecret(secret string) error {
	_, err := DecodeSecret(secret)
	return err
}

// hotp - RFC 4226: HMAC-SHA1 от счетчика и динамическое усечение (§5.3)
func hotp(key []byte, counter uint64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := uint64(binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff)

	mod := uint64(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, value%mod)
}
