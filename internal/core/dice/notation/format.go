package notation

import "strings"

// Format renders segments in canonical notation without whitespace.
// Parsing the output yields the same segments.
func Format(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.Notation())
	}
	return b.String()
}

// FormatGroups renders several groups separated by a single space.
func FormatGroups(groups [][]Segment) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, Format(g))
	}
	return strings.Join(parts, " ")
}
