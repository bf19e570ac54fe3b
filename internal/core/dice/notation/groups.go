package notation

import (
	"strings"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
)

// groupPattern matches the shortest run ending in a digit that is followed
// by whitespace and another digit, or by the end of input.
var groupPattern = func() *regexp2.Regexp {
	re := regexp2.MustCompile(`(.*?\d)(?=(?:\s+\d)|$)`, regexp2.Singleline)
	re.MatchTimeout = time.Second
	return re
}()

// ParseGroups parses input holding one or more independent expressions
// separated by whitespace, e.g. "3d6 5d20". A term that starts with a digit
// after whitespace begins a new group, so "3d6 + 2" stays one group.
// Malformed notation errors report positions within input.
func ParseGroups(input string) ([][]Segment, error) {
	spans, err := splitGroups(input)
	if err != nil {
		return nil, err
	}
	groups := make([][]Segment, 0, len(spans))
	for _, span := range spans {
		segments, err := Parse(span.text)
		if err != nil {
			return nil, rebase(err, input, span.offset)
		}
		groups = append(groups, segments)
	}
	return groups, nil
}

// SplitGroups returns the expression text of each group. Text the pattern
// cannot attribute to a group is returned as a final group so parsing
// reports it.
func SplitGroups(input string) ([]string, error) {
	spans, err := splitGroups(input)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(spans))
	for i, span := range spans {
		out[i] = span.text
	}
	return out, nil
}

// groupSpan is one group's text and its byte offset in the input.
type groupSpan struct {
	text   string
	offset int
}

func splitGroups(input string) ([]groupSpan, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, malformed(input, 0, "notation is empty")
	}
	base := len(input) - len(strings.TrimLeftFunc(input, unicode.IsSpace))

	runes := []rune(trimmed)
	// regexp2 reports rune indexes.
	byteOffset := func(runeIndex int) int {
		return base + len(string(runes[:runeIndex]))
	}
	span := func(raw string, runeIndex int) (groupSpan, bool) {
		text := strings.TrimSpace(raw)
		lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
		return groupSpan{text: text, offset: byteOffset(runeIndex) + lead}, text != ""
	}

	var spans []groupSpan
	end := 0
	match, err := groupPattern.FindRunesMatch(runes)
	for err == nil && match != nil {
		g := match.GroupByNumber(1)
		if s, ok := span(g.String(), g.Index); ok {
			spans = append(spans, s)
		}
		end = match.Index + match.Length
		match, err = groupPattern.FindNextMatch(match)
	}
	if err != nil {
		return nil, malformed(input, 0, "notation is too complex")
	}
	if s, ok := span(string(runes[end:]), end); ok {
		spans = append(spans, s)
	}
	return spans, nil
}

// rebase moves a malformed notation error from a group onto input.
func rebase(err error, input string, offset int) error {
	pos, ok := ErrorPosition(err)
	if !ok {
		return err
	}
	return malformed(input, offset+pos, apperrors.GetMetadata(err)["Reason"])
}
