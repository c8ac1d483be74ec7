// Package cryptox holds the content hashing used to address theme versions.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the lowercase hex SHA-256 of data. No normalization is
// applied, so any byte difference yields a different digest.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestString is Digest over the UTF-8 bytes of s.
func DigestString(s string) string {
	return Digest([]byte(s))
}

// Verify reports whether data hashes to want.
func Verify(data []byte, want string) bool {
	return want != "" && Digest(data) == want
}
