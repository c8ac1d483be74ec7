package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// versionHashLen is how many hex chars of the content hash go into an id.
const versionHashLen = 12

// SanitizeSegment replaces every character outside [A-Za-z0-9_-] with '_'.
func SanitizeSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// userDigestLen is how many hex chars of the raw id digest follow the
// sanitized id in a storage segment.
const userDigestLen = 8

// UserSegment names a user's storage namespace. Sanitizing alone maps
// distinct ids such as "a@b" and "a_b" to the same name, so a digest of
// the raw id is appended.
func UserSegment(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return SanitizeSegment(userID) + "-" + hex.EncodeToString(sum[:])[:userDigestLen]
}

// VersionID derives the version identifier for a user's content hash.
func VersionID(userID, hash string) string {
	h := hash
	if len(h) > versionHashLen {
		h = h[:versionHashLen]
	}
	return SanitizeSegment(userID) + "-" + h
}

// OwnedBy reports whether version belongs to userID by its prefix.
func OwnedBy(version, userID string) bool {
	return strings.HasPrefix(version, SanitizeSegment(userID)+"-")
}

// ContentURL is the path from which a version's bytes are served.
func ContentURL(version string) string {
	return ContentPathPrefix + version
}

// StyleID is the element id under which a version is injected.
func StyleID(version string) string {
	return StyleIDPrefix + version
}
