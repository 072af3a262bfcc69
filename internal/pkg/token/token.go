package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewSessionID generates a cryptographically random 64-character hex token
// (256 bits of entropy). Session IDs are opaque bearer secrets; they carry
// no structure a client could decode or forge.
func NewSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
