// Package crypto seals short text messages under a password.
//
// A sealed message is self-describing:
//
//	salt (16) | nonce (12) | ciphertext | GCM tag (16)
//
// The key is derived with PBKDF2-HMAC-SHA256 (100 000 iterations, 32 bytes)
// from the password and the salt, and the message is encrypted with
// AES-256-GCM without additional data. Every call to Encrypt draws a fresh
// salt and nonce, so no nonce is ever used twice under the same key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation and cipher parameters.
const (
	SaltSize   = 16
	NonceSize  = 12
	KeySize    = 32
	TagSize    = 16
	Iterations = 100000

	// MinPayloadSize is the smallest buffer Decrypt will try to open.
	MinPayloadSize = SaltSize + NonceSize
)

var (
	// ErrAuthentication is returned when the GCM tag does not verify. A wrong
	// password and a tampered payload are deliberately indistinguishable.
	ErrAuthentication = errors.New("crypto: message authentication failed")

	// ErrMalformedPayload is returned for payloads shorter than MinPayloadSize.
	ErrMalformedPayload = errors.New("crypto: malformed payload")
)

// Payload is a sealed message: salt, nonce, then ciphertext with its tag.
type Payload []byte

// Salt returns the key derivation salt.
func (p Payload) Salt() []byte { return p[:SaltSize] }

// Nonce returns the GCM nonce.
func (p Payload) Nonce() []byte { return p[SaltSize:MinPayloadSize] }

// Ciphertext returns the encrypted message followed by the tag.
func (p Payload) Ciphertext() []byte { return p[MinPayloadSize:] }

// DeriveKey stretches password into an AES-256 key.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

// KeyFunc derives a key from a password and salt. [DeriveKey] is the only
// implementation that interoperates; others wrap it, e.g. to time it.
type KeyFunc func(password string, salt []byte) []byte

// Encrypt seals plaintext under password.
func Encrypt(plaintext, password string) (Payload, error) {
	return EncryptWith(plaintext, password, DeriveKey)
}

// EncryptWith is [Encrypt] with the key derived by kdf.
func EncryptWith(plaintext, password string, kdf KeyFunc) (Payload, error) {
	out := make([]byte, MinPayloadSize, MinPayloadSize+len(plaintext)+TagSize)
	if _, err := rand.Read(out[:SaltSize]); err != nil {
		return nil, fmt.Errorf("crypto: generate salt: %w", err)
	}
	if _, err := rand.Read(out[SaltSize:MinPayloadSize]); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	gcm, err := newGCM(kdf(password, out[:SaltSize]))
	if err != nil {
		return nil, err
	}
	return gcm.Seal(out, out[SaltSize:MinPayloadSize], []byte(plaintext), nil), nil
}

// Decrypt opens a payload sealed by Encrypt.
func Decrypt(p Payload, password string) (string, error) {
	return DecryptWith(p, password, DeriveKey)
}

// DecryptWith is [Decrypt] with the key derived by kdf.
func DecryptWith(p Payload, password string, kdf KeyFunc) (string, error) {
	if len(p) < MinPayloadSize {
		return "", fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedPayload, len(p), MinPayloadSize)
	}
	gcm, err := newGCM(kdf(password, p.Salt()))
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, p.Nonce(), p.Ciphertext(), nil)
	if err != nil {
		return "", ErrAuthentication
	}
	return string(plain), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: create GCM: %w", err)
	}
	return gcm, nil
}
