package core

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// mojibakeMarkers are characters left behind when UTF-8 text was decoded
// as Latin-1 (Ã, Â) or lost bytes in a lossy round-trip (?, U+FFFD).
const mojibakeMarkers = "?ÃÂ�"

// RepairText is a best-effort heuristic that undoes one UTF-8 -> Latin-1
// mis-decode. When a marker is present the string is re-encoded as Latin-1
// and the resulting bytes are read back as UTF-8.
//
// There is no guarantee of recovery. If the text cannot be represented in
// Latin-1, or the recovered bytes are not valid UTF-8, the input is returned
// unchanged. It never fails.
func RepairText(value string) string {
	if value == "" {
		return ""
	}
	if !strings.ContainsAny(value, mojibakeMarkers) {
		return value
	}

	raw, err := charmap.ISO8859_1.NewEncoder().String(value)
	if err != nil {
		return value
	}
	if !utf8.ValidString(raw) {
		return value
	}
	return raw
}

// repairRecord applies RepairText to every field.
func repairRecord(r Record) Record {
	f := r.Fields()
	for i := range f {
		f[i] = RepairText(f[i])
	}
	return recordFromFields(f)
}
