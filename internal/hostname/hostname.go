// Package hostname implements the syntactic gate that stands between raw
// caller input and the job launcher. Validation is purely lexical (RFC 1123
// label rules); it deliberately performs no DNS resolution: the
// orchestration backend is trusted to fail on hosts it does not know.
package hostname

import (
	"errors"
	"regexp"
	"strings"
)

// Rejection reasons. The HTTP layer collapses all of them into a single
// generic message so anonymous callers learn nothing about which rule fired.
var (
	ErrEmpty             = errors.New("hostname is empty")
	ErrTooShort          = errors.New("hostname below minimum length")
	ErrTooLong           = errors.New("hostname exceeds maximum length")
	ErrInvalidCharacters = errors.New("hostname contains invalid characters")
	ErrInvalidFormat     = errors.New("hostname violates RFC 1123 format")
)

const maxLabelLen = 63

// rfc1123Pattern matches a full hostname: dot-separated labels, each starting
// and ending with an alphanumeric, hyphens only in the interior, 63 chars max.
var rfc1123Pattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

// Sanitize trims, lowercases and validates a raw hostname. It returns the
// normalized value or a rejection reason. Sanitize is idempotent: feeding an
// accepted value back in yields the same value.
func Sanitize(raw string, minLen, maxLen int) (string, error) {
	h := strings.ToLower(strings.TrimSpace(raw))
	if h == "" {
		return "", ErrEmpty
	}
	if len(h) < minLen {
		return "", ErrTooShort
	}
	if len(h) > maxLen {
		return "", ErrTooLong
	}

	for _, r := range h {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '.' {
			return "", ErrInvalidCharacters
		}
	}

	if strings.HasPrefix(h, "-") || strings.HasSuffix(h, "-") ||
		strings.HasPrefix(h, ".") || strings.HasSuffix(h, ".") ||
		strings.Contains(h, "..") {
		return "", ErrInvalidFormat
	}

	// Per-label checks; the pattern enforces the same rules but keeping the
	// explicit scan catches label-length violations with a precise reason.
	for _, label := range strings.Split(h, ".") {
		if label == "" || len(label) > maxLabelLen {
			return "", ErrInvalidFormat
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "", ErrInvalidFormat
		}
	}

	if !rfc1123Pattern.MatchString(h) {
		return "", ErrInvalidFormat
	}

	return h, nil
}
