package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// Derive32ByteKey stretches the configured seal secret into a fixed-size key.
func Derive32ByteKey(secret string) *[32]byte {
	sum := sha256.Sum256([]byte(secret))
	var key [32]byte
	copy(key[:], sum[:])
	return &key
}

// SealString encrypts plaintext with secretbox under key. The random nonce is
// prepended so the output is self-contained.
func SealString(key *[32]byte, plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// OpenString reverses SealString. A key mismatch or truncated payload fails
// without distinguishing the two.
func OpenString(key *[32]byte, sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	if len(raw) < 24 {
		return "", fmt.Errorf("invalid sealed payload")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, key)
	if !ok {
		return "", fmt.Errorf("invalid sealed payload")
	}
	return string(plain), nil
}
