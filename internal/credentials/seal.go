package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var ErrEncryptionKeyNotSet = errors.New("credential encryption key is not set")

const KeySize = 32

// ParseKey decodes a 32 byte AES-256 key given as base64 or hex. An empty
// string yields a nil key, every store operation then fails with
// ErrEncryptionKeyNotSet.
func ParseKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	if key, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(key) == KeySize {
		return key, nil
	}
	if key, err := hex.DecodeString(encoded); err == nil && len(key) == KeySize {
		return key, nil
	}
	return nil, fmt.Errorf("secret key must be %d bytes encoded as base64 or hex", KeySize)
}

// seal encrypts plaintext with AES-256-GCM, the result is the base64 of
// nonce || ciphertext || tag.
func seal(key, plaintext []byte) (string, error) {
	if key == nil {
		return "", ErrEncryptionKeyNotSet
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func open(key []byte, encoded string) ([]byte, error) {
	if key == nil {
		return nil, ErrEncryptionKeyNotSet
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
