// Package naming canonicalizes raw table and column identifiers into entity and property names.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var separators = strings.NewReplacer(
	" ", "_",
	`\`, "_",
	"'", "_",
	"/", "-",
)

// letters that do not decompose into an ASCII base plus combining marks
var ligatures = map[rune]string{
	'ß': "ss", 'æ': "ae", 'Æ': "AE", 'œ': "oe", 'Œ': "OE",
	'ø': "o", 'Ø': "O", 'đ': "d", 'Đ': "D", 'ł': "l", 'Ł': "L",
	'þ': "th", 'Þ': "Th", 'ð': "d", 'Ð': "D", 'ı': "i",
}

// Normalize transliterates raw to ASCII, trims it, replaces separators and strips a trailing "_fk".
// Characters with no known transliteration pass through unchanged.
func Normalize(raw string) string {
	s := strings.TrimSpace(Transliterate(raw))
	s = separators.Replace(s)
	return strings.TrimSuffix(s, "_fk")
}

// Transliterate removes diacritics and expands common ligatures
func Transliterate(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}

	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
			continue
		}
		if repl, ok := ligatures[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
