// Package levelkey turns level labels into stable slug keys and matches
// levels across legacy key spellings.
package levelkey

import (
	"strings"
	"unicode"
)

// MaxLength caps a normalized key, in runes.
const MaxLength = 64

// legacySuffixes are trailing words older content appended to level keys.
var legacySuffixes = []string{"-level", "-content", "-task", "-tasks"}

// Keyed is anything addressable by a level key and label.
type Keyed interface {
	Key() string
	Label() string
}

// Normalize lowercases s and collapses every run of non-alphanumeric
// characters into one hyphen, trimming hyphens at both ends.
func Normalize(s string) string {
	var b strings.Builder
	n := 0
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && n > 0 {
				if n+1 >= MaxLength {
					break
				}
				b.WriteByte('-')
				n++
			}
			pendingHyphen = false
			b.WriteRune(r)
			n++
			if n >= MaxLength {
				break
			}
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// VariantsOf returns the normalized key followed by the key with each legacy
// suffix stripped. The normalized form is always first.
func VariantsOf(key string) []string {
	base := Normalize(key)
	variants := []string{base}
	for _, suffix := range legacySuffixes {
		if strings.HasSuffix(base, suffix) && len(base) > len(suffix) {
			v := strings.TrimSuffix(base, suffix)
			if !contains(variants, v) {
				variants = append(variants, v)
			}
		}
	}
	return variants
}

// Matches reports whether two keys refer to the same level under variant matching.
func Matches(a, b string) bool {
	if Normalize(a) == "" || Normalize(b) == "" {
		return false
	}
	for _, va := range VariantsOf(a) {
		if contains(VariantsOf(b), va) {
			return true
		}
	}
	return false
}

// FindLevelByKey returns the first level whose key or label normalizes to a
// variant of requested. When nothing matches that way, a second pass also
// strips legacy suffixes from the stored side, so a stored "mild-level"
// answers a request for "mild".
func FindLevelByKey[L Keyed](levels []L, requested string) (L, int, bool) {
	var zero L
	variants := VariantsOf(requested)
	if variants[0] == "" {
		return zero, -1, false
	}
	for i, l := range levels {
		if contains(variants, Normalize(l.Key())) || contains(variants, Normalize(l.Label())) {
			return l, i, true
		}
	}
	for i, l := range levels {
		if Matches(l.Key(), requested) || Matches(l.Label(), requested) {
			return l, i, true
		}
	}
	return zero, -1, false
}

func contains(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
