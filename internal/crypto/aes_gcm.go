package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidKeySize       = errors.New("invalid AES key size (must be 16, 24, or 32 bytes)")
	ErrInvalidCiphertext    = errors.New("ciphertext too short to contain nonce")
	ErrAuthenticationFailed = errors.New("ciphertext authentication failed")
)

// envelopeMagic marks payloads sealed by Sealer so stores can hold a mix of
// sealed and plain payloads (for example after a key is introduced).
var envelopeMagic = []byte("vtx1:")

// Sealer encrypts payloads with AES-GCM, binding each one to a caller-supplied
// label (the share id) as additional authenticated data.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a Sealer from a 16, 24 or 32 byte key.
func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns magic || nonce || ciphertext. A payload sealed for one label
// cannot be opened under another.
func (s *Sealer) Seal(label string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(envelopeMagic)+len(nonce)+len(plaintext)+s.aead.Overhead())
	out = append(out, envelopeMagic...)
	out = append(out, nonce...)
	return s.aead.Seal(out, nonce, plaintext, []byte(label)), nil
}

// Open reverses Seal. Payloads without the envelope marker are returned unchanged.
func (s *Sealer) Open(label string, payload []byte) ([]byte, error) {
	if !IsSealed(payload) {
		return payload, nil
	}
	body := payload[len(envelopeMagic):]

	nonceSize := s.aead.NonceSize()
	if len(body) < nonceSize {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := s.aead.Open(nil, body[:nonceSize], body[nonceSize:], []byte(label))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return plaintext, nil
}

// IsSealed reports whether payload carries the envelope marker.
func IsSealed(payload []byte) bool {
	return bytes.HasPrefix(payload, envelopeMagic)
}
