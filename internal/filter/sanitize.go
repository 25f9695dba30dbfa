package filter

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitizer cleans raw request values before they reach a query.
type Sanitizer interface {
	// Name reduces s to an identifier token, or "" if nothing remains.
	Name(s string) string
	// Text returns single-line free text.
	Text(s string) string
	// Int parses s, returning 0 for anything that is not an integer.
	Int(s string) int
}

// maxNameLen and maxTextLen bound sanitized values.
const (
	maxNameLen = 128
	maxTextLen = 255
)

// DefaultSanitizer is the sanitizer used when none is injected.
type DefaultSanitizer struct{}

var _ Sanitizer = DefaultSanitizer{}

// Name keeps ASCII letters, digits, '_' and '-'. Other characters are dropped.
// Leading characters that are not letters or '_' are trimmed.
func (DefaultSanitizer) Name(s string) string {
	var b strings.Builder

	for _, r := range strings.TrimSpace(s) {
		if b.Len() >= maxNameLen {
			break
		}

		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case (r >= '0' && r <= '9') || r == '-':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		}
	}

	return b.String()
}

// Text strips control characters, collapses whitespace runs and truncates to
// a fixed number of runes.
func (DefaultSanitizer) Text(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder

	space := false
	n := 0

	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}

		if unicode.IsControl(r) {
			continue
		}

		sep := space && b.Len() > 0

		need := 1
		if sep {
			need = 2
		}

		if n+need > maxTextLen {
			break
		}

		if sep {
			b.WriteByte(' ')
			n++
		}

		space = false

		b.WriteRune(r)
		n++
	}

	return b.String()
}

// Int parses a base-10 integer, ignoring surrounding whitespace.
func (DefaultSanitizer) Int(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}

	return n
}
