package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data. Used for API keys and session
// signing secrets.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// MustRandomHex is RandomHex for callers that cannot proceed without
// entropy (tests, fixtures). It panics on failure.
func MustRandomHex(n int) string {
	s, err := RandomHex(n)
	if err != nil {
		panic(err)
	}
	return s
}

// NewAPIKey generates the per-user API key assigned at account creation:
// 32 random bytes, 64 hex characters.
func NewAPIKey() (string, error) { return RandomHex(32) }
