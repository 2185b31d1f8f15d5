// Package store - at-rest encryption for memory content.
//
// When enabled, memory and visual-memory values are sealed with AES-256-GCM
// using a key derived from the operator's passphrase via PBKDF2-SHA256. The
// salt is generated once per store and kept under the metadata key.
// Embeddings, histories, and graph structure stay in the clear: they are
// derived data the engine needs to scan, and the content they could reveal
// is sealed.
package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 210_000
	keyBytes         = 32
	saltBytes        = 16
)

var errCiphertextShort = errors.New("store: ciphertext shorter than nonce")

// boxer seals and opens values with AES-256-GCM. A nil boxer is a passthrough.
type boxer struct {
	aead cipher.AEAD
}

func newBoxer(passphrase string, salt []byte) (*boxer, error) {
	if passphrase == "" {
		return nil, ErrNoEncryptKey
	}
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keyBytes, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("deriving cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wrapping GCM: %w", err)
	}
	return &boxer{aead: aead}, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltBytes)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// seal encrypts plaintext with a fresh random nonce prepended.
func (b *boxer) seal(plaintext []byte) ([]byte, error) {
	if b == nil {
		return plaintext, nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return b.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a value sealed by seal.
func (b *boxer) open(ciphertext []byte) ([]byte, error) {
	if b == nil {
		return ciphertext, nil
	}
	if len(ciphertext) < b.aead.NonceSize() {
		return nil, errCiphertextShort
	}
	nonce, payload := ciphertext[:b.aead.NonceSize()], ciphertext[b.aead.NonceSize():]
	plaintext, err := b.aead.Open(nil, nonce, payload, nil)
	if err != nil {
		return nil, fmt.Errorf("opening sealed value: %w", err)
	}
	return plaintext, nil
}
