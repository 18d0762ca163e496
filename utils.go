package clientvault

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeFileName reduces a caller-supplied filename to a form that is safe
// to embed in an object key. It:
//   - keeps only the final path element (strips directories, forward or back slash)
//   - replaces whitespace runs with a single underscore
//   - drops control characters, DEL, and the characters \ / ? # ~ %
//   - returns "file" when nothing usable remains or the input is not valid UTF-8
func SanitizeFileName(name string) string {
	if !utf8.ValidString(name) {
		return "file"
	}

	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case r == 0 || r < 0x20 || r == 0x7f:
			// drop
		case strings.ContainsRune(`\/?#~%`, r):
			// drop
		default:
			b.WriteRune(r)
			lastUnderscore = false
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" || out == "." || out == ".." {
		return "file"
	}
	return out
}
