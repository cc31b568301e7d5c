package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" // #nosec G501 только для чтения legacy блобов openssl
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"
	"unicode"
	"unicode/utf8"
)

// saltedMagic - заголовок формата openssl enc
var saltedMagic = []byte("Salted__")

// headerLen - magic (8 bytes) + salt (8 bytes)
const headerLen = 8 + SaltSize

// legacyDigests - дайджесты EVP_BytesToKey в порядке проверки
var legacyDigests = []func() hash.Hash{sha256.New, md5.New}

// Cipher encrypts short strings (OTP seeds) with a password.
//
// Blob format: base64("Salted__" || salt(8) || AES-256-CBC(PKCS#7)),
// byte-compatible with `openssl enc -aes-256-cbc -a -A -salt -pbkdf2 -iter N -md sha256`.
type Cipher struct {
	// Iterations - количество итераций PBKDF2
	Iterations int
	// Legacy включает fallback на EVP_BytesToKey (sha256, затем md5) при расшифровке
	// (блобы, созданные `openssl enc -salt` без -pbkdf2)
	Legacy bool
}

// New creates a Cipher. iterations <= 0 selects DefaultIterations.
func New(iterations int, legacy bool) *Cipher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Cipher{Iterations: iterations, Legacy: legacy}
}

// Encrypt шифрует plaintext паролем со свежей случайной солью
func (c *Cipher) Encrypt(plaintext, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}

	key, iv := DeriveKey(password, salt, c.iterations())

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	// Формируем результат: magic + salt + ciphertext
	blob := make([]byte, 0, headerLen+len(ciphertext))
	blob = append(blob, saltedMagic...)
	blob = append(blob, salt...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt расшифровывает blob, созданный Encrypt (или openssl).
// Returns ErrWrongPassword when the password does not match and
// ErrMalformedCiphertext when the blob itself is broken.
func (c *Cipher) Decrypt(blob, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt, ciphertext, err := parseBlob(blob)
	if err != nil {
		return "", err
	}

	key, iv := DeriveKey(password, salt, c.iterations())
	plaintext, err := decryptCBC(ciphertext, key, iv)
	if err == nil {
		return plaintext, nil
	}

	if c.Legacy {
		for _, digest := range legacyDigests {
			key, iv = DeriveLegacyKey(password, salt, digest)
			if legacyPlaintext, legacyErr := decryptCBC(ciphertext, key, iv); legacyErr == nil {
				return legacyPlaintext, nil
			}
		}
	}

	return "", err
}

// Validate проверяет структуру blob без пароля
func (c *Cipher) Validate(blob string) error {
	_, _, err := parseBlob(blob)
	return err
}

func (c *Cipher) iterations() int {
	if c.Iterations <= 0 {
		return DefaultIterations
	}
	return c.Iterations
}

// parseBlob декодирует base64 и разбирает заголовок openssl
func parseBlob(blob string) (salt, ciphertext []byte, err error) {
	// openssl -a переносит строки каждые 64 символа
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, blob)
	if compact == "" {
		return nil, nil, fmt.Errorf("%w: empty blob", ErrMalformedCiphertext)
	}

	raw, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to decode base64: %v", ErrMalformedCiphertext, err)
	}

	if len(raw) < headerLen+aes.BlockSize || !bytes.HasPrefix(raw, saltedMagic) {
		return nil, nil, fmt.Errorf("%w: missing salted header", ErrMalformedCiphertext)
	}

	ciphertext = raw[headerLen:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrMalformedCiphertext)
	}

	return raw[len(saltedMagic):headerLen], ciphertext, nil
}

func decryptCBC(ciphertext, key, iv []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, ok := pkcs7Unpad(padded, aes.BlockSize)
	if !ok {
		return "", ErrWrongPassword
	}

	// CBC без MAC: неверный ключ иногда дает корректный padding,
	// поэтому дополнительно требуем валидный UTF-8
	if !utf8.Valid(plaintext) {
		return "", ErrWrongPassword
	}

	return string(plaintext), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append(make([]byte, 0, len(data)+n), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
