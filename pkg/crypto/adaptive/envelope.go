package adaptive

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
)

// magic prefixes every sealed payload; the following byte names the cipher.
var magic = []byte("SHD1")

const (
	tagAESGCM   byte = 1
	tagChaCha20 byte = 2
)

// ErrNotSealed is returned by Open for data without an envelope header.
var ErrNotSealed = errors.New("adaptive: data is not sealed")

// KeyFromHex decodes a 64 character hex key.
func KeyFromHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if len(key) != KeySize {
		return nil, errKeySize
	}
	return key, nil
}

// IsSealed reports whether data starts with an envelope header.
func IsSealed(data []byte) bool {
	return len(data) > len(magic) && bytes.HasPrefix(data, magic)
}

// Seal encrypts plaintext with the machine's preferred cipher and wraps it
// in an envelope.
func Seal(key, plaintext, additionalData []byte) ([]byte, error) {
	c, err := New(key)
	if err != nil {
		return nil, err
	}
	body, err := c.Encrypt(plaintext, additionalData)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(magic)+1+len(body))
	out = append(out, magic...)
	out = append(out, typeTag(c.Type()))
	return append(out, body...), nil
}

// Open decrypts an envelope produced by Seal on any machine.
func Open(key, sealed, additionalData []byte) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, ErrNotSealed
	}
	var typ CipherType
	switch sealed[len(magic)] {
	case tagAESGCM:
		typ = CipherAESGCM
	case tagChaCha20:
		typ = CipherChaCha20
	default:
		return nil, errors.New("adaptive: unknown envelope cipher")
	}
	c, err := NewWithType(key, typ)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(sealed[len(magic)+1:], additionalData)
}

func typeTag(t CipherType) byte {
	if t == CipherChaCha20 {
		return tagChaCha20
	}
	return tagAESGCM
}
