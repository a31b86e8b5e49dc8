// Package secrets seals portal passwords before they are stored, using NaCl
// secretbox (XSalsa20 and Poly1305).
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sb1:"
	keySize      = 32
	nonceSize    = 24
)

var (
	ErrInvalidKey = errors.New("secret key must be 32 bytes of base64")
	ErrNoKey      = errors.New("value is sealed but no secret key is configured")
	ErrCorrupt    = errors.New("sealed value is corrupt or was sealed with another key")
)

// Sealer seals and opens values with one key. The zero Sealer has no key, it stores
// values as they are.
type Sealer struct {
	key *[keySize]byte
}

// NewSealer decodes a base64 key, an empty key gives a Sealer without one.
func NewSealer(key string) (Sealer, error) {
	if key == "" {
		return Sealer{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != keySize {
		return Sealer{}, ErrInvalidKey
	}
	var out [keySize]byte
	copy(out[:], raw)
	return Sealer{key: &out}, nil
}

// GenerateKey returns a random key in the form NewSealer accepts.
func GenerateKey() (string, error) {
	var key [keySize]byte
	_, err := rand.Read(key[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

func (s Sealer) Enabled() bool {
	return s.key != nil
}

func (s Sealer) Seal(plaintext string) (string, error) {
	if s.key == nil {
		return plaintext, nil
	}
	var nonce [nonceSize]byte
	_, err := rand.Read(nonce[:])
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values stored before a key was configured have no prefix and
// are returned as they are.
func (s Sealer) Open(value string) (string, error) {
	encoded, sealed := strings.CutPrefix(value, sealedPrefix)
	if !sealed {
		return value, nil
	}
	if s.key == nil {
		return "", ErrNoKey
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, s.key)
	if !ok {
		return "", ErrCorrupt
	}
	return string(plaintext), nil
}
