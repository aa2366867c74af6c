// Package idgen produces random identifiers for sessions and cheat items.
//
// Both are lowercase hex of crypto/rand bytes: session tokens must be
// unguessable, and item ids appear in URLs so they should not leak creation
// order or count.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	SessionTokenBytes = 32 // 64 hex chars
	ItemIDBytes       = 9  // 18 hex chars
)

// Hex returns n random bytes encoded as lowercase hex.
func Hex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("idgen: reading random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func SessionToken() (string, error) { return Hex(SessionTokenBytes) }

func ItemID() (string, error) { return Hex(ItemIDBytes) }
