package core

import (
	"strings"
	"unicode/utf8"
)

// Layout holds the start offset, in characters, of every column.
type Layout [NumColumns]int

// FallbackLayout is used when no usable header has been seen.
var FallbackLayout = Layout{0, 12, 124, 165, 189, 209}

// LayoutSource tells whether a layout came from a header or the fallback.
type LayoutSource int

const (
	LayoutFallback LayoutSource = iota
	LayoutDetected
)

func (s LayoutSource) String() string {
	if s == LayoutDetected {
		return "detected"
	}
	return "fallback"
}

// DetectedLayout is the tagged result of DetectLayout.
type DetectedLayout struct {
	Layout Layout
	Source LayoutSource
}

// DetectLayout finds each column label in a header line. If any label is
// missing the whole result is the fallback layout; partial detections are
// never mixed with fallback offsets.
func DetectLayout(header string) DetectedLayout {
	var l Layout
	for i, label := range Columns {
		idx := strings.Index(header, label)
		if idx < 0 {
			return DetectedLayout{Layout: FallbackLayout, Source: LayoutFallback}
		}
		l[i] = utf8.RuneCountInString(header[:idx])
	}
	return DetectedLayout{Layout: l, Source: LayoutDetected}
}
