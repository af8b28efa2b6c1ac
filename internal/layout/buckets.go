package layout

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// UnknownDecade is the bucket for dates without a leading 4-digit year.
	UnknownDecade = "-Unknown-"

	defaultSkipChars = "\"'`([{<*_.¡¿"
)

// AlphaBucket returns the alphabetic bucket label for value.
//
// boxSize is the number of letters per bucket: 1 gives single letter buckets
// ("-A-"), 4 gives "-ABCD-", "-EFGH-" and so on, and a size of 0 or 26 and
// above puts everything in the "-all-" bucket. Leading digits land in
// "-0-9-", any other leading character in "-^&#'-", and an empty value in
// "-?-". Diacritics are removed and letters are compared as ASCII, so the
// result does not depend on the locale.
func AlphaBucket(value string, boxSize int, divider string) string {
	return alphaBucket(value, boxSize, divider, defaultSkipChars)
}

func alphaBucket(value string, boxSize int, divider, skip string) string {
	r, ok := leadingRune(value, skip)
	if !ok {
		return divider + "?" + divider
	}
	if boxSize <= 0 || boxSize >= len(alphabet) {
		return divider + "all" + divider
	}
	switch {
	case r >= 'A' && r <= 'Z':
		idx := int(r - 'A')
		start := idx / boxSize * boxSize
		end := min(start+boxSize, len(alphabet))
		return divider + alphabet[start:end] + divider
	case r >= '0' && r <= '9':
		return divider + "0-9" + divider
	default:
		return divider + "^&#'" + divider
	}
}

// Initial returns the single-character index of value without dividers:
// an uppercase letter, "0-9", "^&#'" or "?" for an empty value.
func Initial(value string) string {
	return initial(value, defaultSkipChars)
}

func initial(value, skip string) string {
	r, ok := leadingRune(value, skip)
	switch {
	case !ok:
		return "?"
	case r >= 'A' && r <= 'Z':
		return string(r)
	case r >= '0' && r <= '9':
		return "0-9"
	default:
		return "^&#'"
	}
}

// leadingRune returns the first significant rune of value, folded to plain
// ASCII uppercase where possible.
func leadingRune(value, skip string) (rune, bool) {
	value = strings.TrimLeftFunc(value, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(skip, r)
	})
	if value == "" {
		return 0, false
	}
	for _, r := range fold(value) {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		return r, true
	}
	return 0, false
}

// fold strips combining marks, so "Émile" sorts with "E".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// DecadeBucket returns "2010 - 2019" style labels for dates starting with a
// 4-digit year, and UnknownDecade for anything else.
func DecadeBucket(date string) string {
	y, ok := parseYear(date)
	if !ok {
		return UnknownDecade
	}
	start := y - y%10
	return fmt.Sprintf("%d - %d", start, start+9)
}

// Year returns the leading 4-digit year of a date such as "2018-01-01".
func Year(date string) (string, bool) {
	if _, ok := parseYear(date); !ok {
		return "", false
	}
	return strings.TrimSpace(date)[:4], true
}

func parseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	for i := 0; i < 4; i++ {
		if date[i] < '0' || date[i] > '9' {
			return 0, false
		}
	}
	if len(date) > 4 && date[4] >= '0' && date[4] <= '9' {
		return 0, false
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}
