// Package slug derives URL-safe identifiers from post titles.
package slug

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds every generated slug.
const MaxLength = 200

// Fallback is used when a title contains no usable characters.
const Fallback = "post"

// reserved slugs collide with fixed routes and are never handed out.
var reserved = map[string]struct{}{
	"create":   {},
	"my-posts": {},
	"login":    {},
	"logout":   {},
	"register": {},
	"profile":  {},
	"admin":    {},
	"api":      {},
	"static":   {},
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(slug string) (bool, error)

// IsReserved reports whether s names a fixed route.
func IsReserved(s string) bool {
	_, ok := reserved[strings.ToLower(s)]
	return ok
}

// Make lower-cases title and collapses every run of non-alphanumeric
// characters into a single hyphen. Accents are folded to ASCII. The result
// may be empty.
func Make(title string) string {
	var b strings.Builder
	pending := false
	for _, r := range norm.NFKD.String(title) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return truncate(b.String(), MaxLength)
}

// Allocate returns the first free slug for title: the bare base, then
// base-1, base-2 and so on. Reserved slugs count as taken.
func Allocate(title string, exists ExistsFunc) (string, error) {
	base := Make(title)
	if base == "" {
		base = Fallback
	}

	free, err := available(base, exists)
	if err != nil {
		return "", err
	}
	if free {
		return base, nil
	}

	for n := 1; ; n++ {
		suffix := "-" + strconv.Itoa(n)
		candidate := truncate(base, MaxLength-len(suffix)) + suffix
		free, err := available(candidate, exists)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
}

func available(candidate string, exists ExistsFunc) (bool, error) {
	if IsReserved(candidate) {
		return false, nil
	}
	taken, err := exists(candidate)
	if err != nil {
		return false, fmt.Errorf("checking slug %q: %w", candidate, err)
	}
	return !taken, nil
}

// truncate cuts s to at most n bytes without leaving a trailing hyphen.
// Slugs are pure ASCII, so byte and rune counts agree.
func truncate(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.TrimRight(s, "-")
}
