package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrSealed is returned when a sealed token cannot be opened, either because
// it was tampered with or because the key changed.
var ErrSealed = errors.New("cannot open sealed token")

// Key is a secretbox key.
type Key [32]byte

// ParseKey decodes a hex-encoded 32-byte key.
func ParseKey(s string) (Key, error) {
	var k Key
	raw, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("decoding key: %w", err)
	}
	if len(raw) != len(k) {
		return k, fmt.Errorf("key must be %d bytes, got %d", len(k), len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

// SealToken encrypts a backend token. The nonce is prepended to the box.
func SealToken(key Key, token string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	k := [32]byte(key)
	return secretbox.Seal(nonce[:], []byte(token), &nonce, &k), nil
}

// OpenToken decrypts a token produced by SealToken.
func OpenToken(key Key, sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrSealed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	k := [32]byte(key)
	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &k)
	if !ok {
		return "", ErrSealed
	}
	return string(out), nil
}
