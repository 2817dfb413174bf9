package grants

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var slugFolder = cases.Lower(language.Und)

// Slugify normalizes a display name into a stable identifier: case-folded,
// non-alphanumeric runs collapsed to single hyphens.
func Slugify(name string) string {
	lowered := slugFolder.String(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(lowered))
	pendingHyphen := false
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
