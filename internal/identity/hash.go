package identity

import (
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Digest returns the lowercase hex SHA3-256 digest of the UTF-8 bytes of value.
func Digest(value string) string {
	sum := sha3.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// EncodeCharCodes replaces every character by its decimal code point and
// concatenates the results without separator ("a1" -> "9749").
func EncodeCharCodes(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for _, r := range s {
		b.WriteString(strconv.Itoa(int(r)))
	}
	return b.String()
}

// Pseudonym returns the digit-only replacement for an identifying value:
// the char-code encoding of its SHA3-256 hex digest. It is deterministic and
// cannot be reversed past the digest.
func Pseudonym(value string) string {
	return EncodeCharCodes(Digest(value))
}
