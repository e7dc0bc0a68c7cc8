// Package sharecode generates and validates the six-character alphanumeric
// tokens that grant anonymous read access to a published list.
package sharecode

import "crypto/rand"

// Length is the fixed share-code length.
const Length = 6

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a random six-character code of [A-Za-z0-9].
// Uniqueness is NOT guaranteed here — callers must check the store and
// retry on collision.
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// Valid reports whether code is exactly six characters of [A-Za-z0-9].
// Malformed codes are rejected before any store access.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
