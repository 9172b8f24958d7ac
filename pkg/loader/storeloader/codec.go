package storeloader

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher algorithms accepted by NewCipher.
const (
	CipherAESGCM   = "aes-gcm"
	CipherChaCha20 = "chacha20-poly1305"
)

// ErrDecrypt is returned when a sealed document cannot be opened.
var ErrDecrypt = errors.New("store: decryption failed - wrong key or corrupted data")

// documentAD binds sealed payloads to the document format.
var documentAD = []byte("confkit/document/v1")

// NewCipher returns an AEAD for algorithm. An empty algorithm picks AES-GCM
// where the CPU accelerates it and ChaCha20-Poly1305 elsewhere.
func NewCipher(algorithm string, key []byte) (cipher.AEAD, error) {
	if algorithm == "" {
		algorithm = CipherChaCha20
		if hasAESNI() {
			algorithm = CipherAESGCM
		}
	}

	switch algorithm {
	case CipherAESGCM:
		switch len(key) {
		case 16, 24, 32:
		default:
			return nil, errors.New("invalid key size for AES-GCM: must be 16, 24, or 32 bytes")
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case CipherChaCha20:
		if len(key) != chacha20poly1305.KeySize {
			return nil, errors.New("invalid key size for ChaCha20-Poly1305: must be 32 bytes")
		}
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("unknown cipher: %s", algorithm)
	}
}

// Go uses AES instructions on amd64 and arm64.
func hasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}

// Codec serializes documents as JSON, optionally sealed with an AEAD.
// The zero value writes plain JSON.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec returns a codec sealing with aead. A nil aead writes plain JSON.
func NewCodec(aead cipher.AEAD) Codec {
	return Codec{aead: aead}
}

// Sealed reports whether the codec encrypts.
func (c Codec) Sealed() bool {
	return c.aead != nil
}

// Encode serializes doc. A sealed payload is nonce || ciphertext.
func (c Codec) Encode(doc *Document) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if c.aead == nil {
		return b, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, b, documentAD), nil
}

// Decode parses a payload written by Encode.
func (c Codec) Decode(b []byte) (*Document, error) {
	if c.aead != nil {
		ns := c.aead.NonceSize()
		if len(b) < ns {
			return nil, ErrDecrypt
		}
		plain, err := c.aead.Open(nil, b[:ns], b[ns:], documentAD)
		if err != nil {
			return nil, ErrDecrypt
		}
		b = plain
	}

	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Data == nil {
		doc.Data = make(map[string]string)
	}
	return &doc, nil
}
