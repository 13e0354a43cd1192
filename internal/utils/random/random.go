// Package random provides cryptographically secure random string helpers.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// CharsetAlphanumeric is the default charset for random strings.
const CharsetAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Hex generates a cryptographically secure random hex string.
// The output length is twice the input length (each byte = 2 hex chars).
func Hex(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// String generates a random string from the given charset.
func String(length int, charset string) (string, error) {
	if length <= 0 {
		return "", nil
	}
	if charset == "" {
		charset = CharsetAlphanumeric
	}

	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("generate random index: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// Suffix generates a short alphanumeric suffix for filenames. Independent
// calls return distinct values even within the same clock tick.
func Suffix(length int) string {
	s, err := String(length, CharsetAlphanumeric)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// a hex fallback keeps filenames collision resistant.
		h, _ := Hex((length + 1) / 2)
		return h[:length]
	}
	return s
}
