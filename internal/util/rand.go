package util

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomToken returns a URL-safe token built from n bytes of entropy. Used
// for invite tokens.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
