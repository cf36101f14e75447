// Package slug derives URL slugs from display names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	disallowedRegexp = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRunRegexp  = regexp.MustCompile(`-{2,}`)
)

// Generate creates a URL-friendly slug from the given name.
// Latin letters lose their diacritics first; anything that is still outside
// [a-z0-9-] afterwards is dropped, so non-Latin scripts disappear entirely.
// The result may be empty.
//
// Examples:
//   - "Tops & T-Shirts (تيشرتات)" → "tops-t-shirts"
//   - "Café  Crème" → "cafe-creme"
//   - "!!!" → ""
func Generate(name string) string {
	s := strings.ToLower(stripMarks(name))
	// unicode.IsSpace also covers \v, NBSP and the other Zs separators RE2's \s misses
	s = strings.Join(strings.FieldsFunc(s, unicode.IsSpace), "-")
	s = disallowedRegexp.ReplaceAllString(s, "")
	s = hyphenRunRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
