package crypto

import "errors"

var (
	// ErrWrongPassword indicates that the blob could not be decrypted with the given password
	// (bad PKCS#7 padding or non UTF-8 plaintext after decryption)
	ErrWrongPassword = errors.New("wrong password")

	// ErrMalformedCiphertext indicates that the blob is not a valid openssl "Salted__" envelope
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// ErrEmptyPassword indicates that an empty password was supplied
	ErrEmptyPassword = errors.New("password cannot be empty")
)
