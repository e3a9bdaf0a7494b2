package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest is the content fingerprint: SHA-256 over the UTF-8 text, hex
// encoded. Deliberately conservative; whitespace differences count as
// changes. Must stay stable across restarts, so no randomized hashing.
func Digest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ItemKey derives the persisted identity of a node from its identity path
// (course URL; + section name; + activity text). Identity is content-derived,
// never index-derived, so sibling reordering cannot fake a change.
func ItemKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
