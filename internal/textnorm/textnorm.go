// Package textnorm folds spreadsheet labels and identifiers into comparable keys.
package textnorm

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, removes diacritics and drops everything that is not
// an ASCII letter or digit. "Código SKU" and "codigo_sku" both fold to
// "codigosku".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		stripped = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SKU canonicalises an article identifier: trimmed, integral floats
// rendered without decimals, leading zeros removed. Identifiers made
// only of zeros collapse to "".
func SKU(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) && strings.Contains(s, ".") {
		s = strconv.FormatInt(int64(f), 10)
	}
	return strings.TrimLeft(s, "0")
}

// IsNullToken reports whether s is one of the textual null markers that
// spreadsheet exports leave behind.
func IsNullToken(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NAN", "NONE", "NAT", "N/A", "NULL":
		return true
	}
	return false
}
