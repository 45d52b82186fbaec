// Package cryptobox is the symmetric crypto module for behavioral payloads.
// It wraps an authenticated construction (XChaCha20-Poly1305) so tampering is
// detected as a decryption failure rather than silently accepted.
package cryptobox

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required length of per-user key material.
const KeySize = chacha20poly1305.KeySize

// NonceSize is the length of the nonce returned by Seal.
const NonceSize = chacha20poly1305.NonceSizeX

var (
	// ErrInvalidKeyLength is returned when key material is not KeySize bytes.
	ErrInvalidKeyLength = errors.New("key must be 32 bytes")
	// ErrDecryptFailed is returned when authentication fails. The AEAD does
	// not distinguish a wrong key from tampered ciphertext or a corrupted
	// nonce, so callers get one failure mode.
	ErrDecryptFailed = errors.New("decryption failed")
)

// Seal encrypts plaintext with the per-user key. A fresh random nonce is
// drawn on every call; reusing a returned nonce under the same key is a
// caller contract violation this module cannot detect.
func Seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open decrypts and authenticates a ciphertext produced by Seal.
func Open(ciphertext, nonce, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, ErrDecryptFailed
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// NewKey generates fresh 32-byte key material.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Wipe zeroes a buffer holding sensitive bytes. The analysis pipeline calls
// this on every decrypted payload before dropping its references.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	return chacha20poly1305.NewX(key)
}
