// Package cache stores converted output keyed by source content and the
// options that produced it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key identifies one conversion result.
type Key [sha256.Size]byte

// NewKey digests the options fingerprint and the source text.
func NewKey(fingerprint string, src []byte) Key {
	hasher := sha256.New()

	hasher.Write([]byte(fingerprint))
	hasher.Write([]byte{0})
	hasher.Write(src)

	var key Key

	copy(key[:], hasher.Sum(nil))

	return key
}

// String returns the lowercase hex digest.
func (key Key) String() string {
	return hex.EncodeToString(key[:])
}
