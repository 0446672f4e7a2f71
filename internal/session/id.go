package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateID creates a unique session ID in ses-xxxxxxxx format (8-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate ID: %w", err)
	}
	return "ses-" + hex.EncodeToString(b), nil
}
