// Package sanitize cleans operator-supplied text before it becomes a file
// name or a URL:
//   - invisible Unicode characters (zero-width spaces, BOM, etc.) are removed
//   - path separators and shell-hostile characters become "_"
//   - surrounding whitespace is trimmed
package sanitize

import (
	"regexp"
	"strings"
)

// Characters that are unsafe in a file name on at least one platform.
var unsafeNameChars = regexp.MustCompile(`[\\/*?:"<>|\x00-\x1f]`)

// invisible characters stripped from all input
var invisibleChars = strings.NewReplacer(
	"\u200B", "", // Zero-width space
	"\u200C", "", // Zero-width non-joiner
	"\u200D", "", // Zero-width joiner
	"\uFEFF", "", // Zero-width no-break space (BOM)
	"\u00AD", "", // Soft hyphen
	"\u2060", "", // Word joiner
	"\u180E", "", // Mongolian vowel separator
)

// FileName makes name safe to use as the last element of a staging path.
// The result never contains a path separator and is never "." or "..".
// An empty result means the caller must synthesize a name.
func FileName(name string) string {
	name = invisibleChars.Replace(name)
	name = strings.TrimSpace(name)
	name = unsafeNameChars.ReplaceAllString(name, "_")

	if name == "." || name == ".." {
		return ""
	}
	return name
}

// Text removes invisible characters and surrounding whitespace from a
// message body.
func Text(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(invisibleChars.Replace(s))
}
