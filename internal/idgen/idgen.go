// Package idgen generates record identifiers and derives slug codes from
// human-readable names.
//
// Identifiers are opaque 12-byte values: a 4-byte big-endian Unix-seconds
// seed followed by 8 random bytes. The wire form is the 24-character hex
// encoding. The time seed keeps ids roughly insertion-ordered without
// making any ordering promise.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// IDLength is the length of an identifier in its hex wire form.
const IDLength = 24

// New returns a fresh identifier in wire form.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a fresh identifier seeded from the given time.
// Exposed for tests that need deterministic ordering.
func NewAt(t time.Time) string {
	var raw [12]byte
	binary.BigEndian.PutUint32(raw[:4], uint32(t.Unix()))
	if _, err := rand.Read(raw[4:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("idgen: reading random bytes: %v", err))
	}
	return hex.EncodeToString(raw[:])
}

// IsValid reports whether s is a well-formed identifier: exactly 24 hex
// characters. Nothing else is accepted, so the check doubles as input
// sanitisation for list filters.
func IsValid(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// Parse validates s and returns it in canonical (lowercase) form.
func Parse(s string) (string, error) {
	if !IsValid(s) {
		return "", fmt.Errorf("invalid id: %q", s)
	}
	return strings.ToLower(s), nil
}

// Slugify derives a code from a name: lowercase, trimmed, with every run
// of whitespace collapsed to a single hyphen. Codes exist only for
// sibling-uniqueness checks under unique indexes; they are not reversible.
// Slugify is idempotent.
func Slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(name))
	inGap := false
	for _, r := range name {
		if unicode.IsSpace(r) {
			inGap = true
			continue
		}
		if inGap {
			b.WriteByte('-')
			inGap = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
