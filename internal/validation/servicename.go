package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxServiceNameLen максимальная длина имени сервиса в байтах
	MaxServiceNameLen = 128
)

var (
	// ErrInvalidServiceName indicates that a service name cannot be used as a storage key
	ErrInvalidServiceName = errors.New("invalid service name")

	// ErrInvalidPassword indicates that a vault password does not meet the requirements
	ErrInvalidPassword = errors.New("invalid password")
)

// ValidateServiceName проверяет, что имя сервиса можно использовать как ключ хранилища.
// Имя становится именем файла, поэтому запрещены разделители путей,
// управляющие символы и ведущая точка (точка зарезервирована для временных файлов)
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidServiceName)
	}

	if len(name) > MaxServiceNameLen {
		return fmt.Errorf("%w: name must not exceed %d bytes", ErrInvalidServiceName, MaxServiceNameLen)
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: name must be valid UTF-8", ErrInvalidServiceName)
	}

	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: name cannot start with '.'", ErrInvalidServiceName)
	}

	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: name cannot start or end with whitespace", ErrInvalidServiceName)
	}

	for _, r := range name {
		if r == '/' || r == '\\' {
			return fmt.Errorf("%w: name cannot contain path separators", ErrInvalidServiceName)
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: name cannot contain control characters", ErrInvalidServiceName)
		}
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю хранилища.
// Длина не ограничивается: пароли существующих хранилищ должны открываться
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrInvalidPassword)
	}

	if strings.ContainsAny(password, "\r\n") {
		return fmt.Errorf("%w: password cannot contain line breaks", ErrInvalidPassword)
	}

	return nil
}
