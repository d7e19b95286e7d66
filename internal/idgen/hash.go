// Package idgen generates hash-based item IDs.
//
// Task IDs are prefix-hash (tf-a3f8e9); subtask IDs are hierarchical,
// parentID.n (tf-a3f8e9.1). Base36 encoding (0-9, a-z) keeps IDs short
// while staying easy to type.
package idgen

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// DefaultPrefix is the ID prefix used when none is configured.
const DefaultPrefix = "tf"

// DefaultLength is the hash portion length of generated task IDs.
const DefaultLength = 6

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// EncodeBase36 converts a byte slice to a base36 string of the given length.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)

	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var result strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		result.WriteByte(chars[i])
	}

	str := result.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

// GenerateTaskID creates a hash-based ID for a task. nonce handles the
// rare collision: callers retry with nonce+1 when the store already has
// the ID.
func GenerateTaskID(prefix, title, creator string, timestamp time.Time, nonce int) string {
	content := fmt.Sprintf("%s|%s|%d|%d", title, creator, timestamp.UnixNano(), nonce)
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s-%s", prefix, EncodeBase36(hash[:4], DefaultLength))
}

// GenerateSubtaskID creates a hierarchical child ID: parentID.n where n is
// one past the current child count.
func GenerateSubtaskID(parentID string, existingChildren int) string {
	return fmt.Sprintf("%s.%d", parentID, existingChildren+1)
}

// ParentID extracts the parent task ID from a subtask ID, or returns the
// input unchanged when it has no dotted suffix.
func ParentID(id string) string {
	if i := strings.Index(id, "."); i >= 0 {
		return id[:i]
	}
	return id
}
