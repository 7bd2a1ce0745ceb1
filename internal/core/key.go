package core

import (
	"regexp"
	"strings"
)

// KeyDelimiter joins field values into an identity key.
const KeyDelimiter = "||"

// BuildKey joins the six trimmed field values. Records whose fields are all
// blank have no identity and get an empty key.
func BuildKey(r Record) string {
	f := r.Fields()
	blank := true
	for i := range f {
		f[i] = strings.TrimSpace(f[i])
		if f[i] != "" {
			blank = false
		}
	}
	if blank {
		return ""
	}
	return strings.Join(f[:], KeyDelimiter)
}

var repDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ExtractRepDate returns the first ten characters of a report date when they
// have the exact YYYY-MM-DD shape, or "" otherwise. DD/MM/YYYY and other
// formats yield "".
func ExtractRepDate(repFecha string) string {
	chars := []rune(strings.TrimSpace(repFecha))
	if len(chars) < 10 {
		return ""
	}
	candidate := string(chars[:10])
	if !repDatePattern.MatchString(candidate) {
		return ""
	}
	return candidate
}
