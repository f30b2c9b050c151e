package news

import (
	"strings"
	"unicode"
)

// SectorSlug normalizes a sector name for use in object names and keys.
// Letters and digits of any script are kept and lowercased; separators
// become underscores and other punctuation is dropped, so the slug never
// contains a path separator. Sectors that differ only in case or
// punctuation share a slug.
func SectorSlug(sector string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			return unicode.ToLower(r)
		case r == '_', r == '-':
			return r
		case unicode.IsSpace(r), r == '/', r == '&':
			return '_'
		}
		return -1
	}, strings.TrimSpace(sector))
	return strings.Trim(s, "_-")
}
