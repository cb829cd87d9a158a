// Package sealx provides authenticated encryption for small payloads that
// leave the process, such as persisted session snapshots. A payload that
// fails to open was tampered with or corrupted; callers treat that the same
// as the payload being absent.
package sealx

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealBroken reports a payload that failed authentication or decoding.
var ErrSealBroken = errors.New("sealx: seal broken")

// KeySize is the required key length in bytes.
const KeySize = chacha20poly1305.KeySize

// Sealer seals and opens payloads with XChaCha20-Poly1305.
type Sealer struct {
	aead cipher.AEAD
}

// New builds a Sealer from a raw 32-byte key.
func New(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("sealx: key must be %d bytes, got %d", KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealx: init aead: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// ParseKey decodes a hex-encoded 32-byte key.
func ParseKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("sealx: decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("sealx: key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// NewRandomKey generates a fresh random key. Useful for ephemeral setups and
// tests; a production deployment configures a stable key so snapshots survive
// restarts.
func NewRandomKey() []byte {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		// rand.Read only fails when the OS entropy source is broken.
		panic("sealx: entropy source unavailable: " + err.Error())
	}
	return key
}

// Seal encrypts the payload and returns a base64 token of nonce||ciphertext.
func (s *Sealer) Seal(plaintext []byte) string {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		panic("sealx: entropy source unavailable: " + err.Error())
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed)
}

// Open authenticates and decrypts a token produced by Seal. Any decode or
// authentication failure yields ErrSealBroken.
func (s *Sealer) Open(token string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrSealBroken
	}
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrSealBroken
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealBroken
	}
	return plaintext, nil
}
