package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// IgnoredDetailPrefixes are rejection reasons that are never stored.
// They are compared after NormalizeDetail, so accents and casing don't matter.
var IgnoredDetailPrefixes = []string{
	"En la fecha de resumen del reporte la condición de emisor electrónico no estaba vigente",
}

// NormalizeDetail folds text for comparison: NFD decomposition, combining
// marks removed, lower-cased and trimmed.
func NormalizeDetail(text string) string {
	if text == "" {
		return ""
	}
	// A transform.Chain holds state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}
	return strings.TrimSpace(strings.ToLower(stripped))
}

// PrefixMatcher reports whether normalized detail text starts with one of
// a set of prefixes.
type PrefixMatcher struct {
	prefixes []string
}

// NewPrefixMatcher normalizes raw prefixes once. Blank entries are dropped.
func NewPrefixMatcher(raw []string) *PrefixMatcher {
	m := &PrefixMatcher{}
	for _, p := range raw {
		if n := NormalizeDetail(p); n != "" {
			m.prefixes = append(m.prefixes, n)
		}
	}
	return m
}

// Match expects an already normalized string.
func (m *PrefixMatcher) Match(normalized string) bool {
	for _, p := range m.prefixes {
		if strings.HasPrefix(normalized, p) {
			return true
		}
	}
	return false
}
