package utils

import (
	"sort"
	"strings"
	"unicode"
)

// ParseCodes splits a raw code list on the given separator, trims each
// entry and drops empties. The portals send newline-separated lists for
// upload/edit/search and comma-separated lists for highlighting.
func ParseCodes(raw, sep string) []string {
	parts := strings.Split(raw, sep)
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			codes = append(codes, p)
		}
	}
	return codes
}

// SortCodesNatural sorts codes in place using case-insensitive natural
// order ("a2" before "a10"). The ordering is purely for stable display.
func SortCodesNatural(codes []string) {
	sort.SliceStable(codes, func(i, j int) bool {
		return NaturalLess(codes[i], codes[j])
	})
}

// NaturalLess compares two strings case-insensitively, treating runs of
// digits as numbers rather than character sequences.
func NaturalLess(a, b string) bool {
	ra, rb := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		ca, cb := ra[i], rb[j]
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			// Compare the full digit runs numerically.
			si, sj := i, j
			for i < len(ra) && unicode.IsDigit(ra[i]) {
				i++
			}
			for j < len(rb) && unicode.IsDigit(rb[j]) {
				j++
			}
			na := strings.TrimLeft(string(ra[si:i]), "0")
			nb := strings.TrimLeft(string(rb[sj:j]), "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(ra)-i < len(rb)-j
}
