package core

import "strings"

// separatorPrefix marks the dashed rule under a report header.
const separatorPrefix = "---"

// ParseResult is the output of ParseReport.
type ParseResult struct {
	// Records are candidate rows in file order, not deduplicated.
	Records []Record
	// Headers counts header lines; LastLayout is the layout in effect at EOF.
	Headers    int
	LastLayout DetectedLayout
	// Dropped counts data lines whose first column was empty.
	Dropped int
}

// ParseReport splits a fixed-width report into records.
//
// Header lines (starting with the first column label) switch the current
// layout; separator lines and blank lines are skipped. Data lines seen before
// any header use FallbackLayout. Malformed lines never produce an error: out
// of range slices become empty fields, and lines with an empty first field
// are dropped.
func ParseReport(content string) ParseResult {
	res := ParseResult{LastLayout: DetectedLayout{Layout: FallbackLayout, Source: LayoutFallback}}
	if content == "" {
		return res
	}

	layout := res.LastLayout
	for _, raw := range splitLines(content) {
		line := strings.ReplaceAll(raw, "\x00", "")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, ColEmpRUC):
			layout = DetectLayout(line)
			res.Headers++
			continue
		case strings.HasPrefix(trimmed, separatorPrefix):
			continue
		}

		rec, ok := ParseLine(line, layout.Layout)
		if !ok {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, rec)
	}

	res.LastLayout = layout
	return res
}

// ParseLine slices one data line using layout. Each field is trimmed and
// passed through RepairText. ok is false when the first field is empty.
func ParseLine(line string, layout Layout) (Record, bool) {
	chars := []rune(line)
	n := len(chars)

	var values [NumColumns]string
	for i, start := range layout {
		end := n
		if i+1 < len(layout) {
			end = min(layout[i+1], n)
		}
		if start < 0 || start >= n || end <= start {
			continue
		}
		values[i] = RepairText(strings.TrimSpace(string(chars[start:end])))
	}

	if values[0] == "" {
		return Record{}, false
	}
	return recordFromFields(values), true
}

// splitLines splits on \n, \r\n and bare \r.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}
