package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

// Параметры деривации ключа, совместимые с `openssl enc -aes-256-cbc -pbkdf2 -md sha256`
const (
	// SaltSize - размер соли в заголовке openssl (8 bytes)
	SaltSize = 8
	// KeyLen - длина ключа AES-256
	KeyLen = 32
	// IVLen - длина вектора инициализации CBC
	IVLen = 16
	// DefaultIterations - количество итераций PBKDF2 (значение openssl по умолчанию для -pbkdf2)
	DefaultIterations = 10000
)

// GenerateSalt генерирует криптографически случайную соль
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives the AES key and CBC IV from the password with PBKDF2-HMAC-SHA256.
// One 48-byte output is split into key (32) and iv (16), the same way openssl does it.
func DeriveKey(password string, salt []byte, iterations int) (key, iv []byte) {
	material := pbkdf2.Key([]byte(password), salt, iterations, KeyLen+IVLen, sha256.New)
	return material[:KeyLen], material[KeyLen:]
}

// DeriveLegacyKey реализует EVP_BytesToKey(digest, 1 итерация) -
// деривацию `openssl enc -salt` без флага -pbkdf2.
// OpenSSL >= 1.1.0 использует sha256, более старые версии и LibreSSL - md5
func DeriveLegacyKey(password string, salt []byte, digest func() hash.Hash) (key, iv []byte) {
	var (
		material []byte
		prev     []byte
	)
	for len(material) < KeyLen+IVLen {
		h := digest()
		h.Write(prev)
		h.Write([]byte(password))
		h.Write(salt)
		prev = h.Sum(nil)
		material = append(material, prev...)
	}
	return material[:KeyLen], material[KeyLen : KeyLen+IVLen]
}
