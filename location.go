package ritual

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultTabSize is the number of columns a tab character expands to
// when reporting locations.
const DefaultTabSize = 4

// LocationInfo is a position within a text, made readable.
type LocationInfo struct {
	// Line is 1-based
	Line int

	// Column is 0-based, with tabs expanded
	Column int

	// Character is the quoted codepoint at the position, or
	// `<EOS>` past the end of the text
	Character string

	// Text is the line the position is at, with tabs expanded and
	// without the line terminator
	Text string

	// Arrow is a run of spaces ending with a caret pointing at
	// Column underneath Text
	Arrow string
}

// Message formats the location for a failure in `scope`
func (l LocationInfo) Message(scope string) string {
	return fmt.Sprintf("%d:%d @ %s (%s)\n%s\n%s", l.Line, l.Column, l.Character, scope, l.Text, l.Arrow)
}

// lineIndex maps positions within a text to lines
type lineIndex struct {
	text []rune

	// lineStart holds 0-based positions of each line start
	lineStart []int
}

func newLineIndex(text []rune) *lineIndex {
	// Always include line 1 starting at position 0
	lineStart := make([]int, 1, 64)
	for i, c := range text {
		if c == '\n' {
			lineStart = append(lineStart, i+1)
		}
	}
	return &lineIndex{text: text, lineStart: lineStart}
}

// locate extracts the location info of `pos`, which must be within
// [0, len(text)].
func (li *lineIndex) locate(pos, tabSize int) LocationInfo {
	pos = max(0, min(pos, len(li.text)))

	// Find first lineStart > pos, then step back one
	line := sort.Search(len(li.lineStart), func(i int) bool {
		return li.lineStart[i] > pos
	}) - 1

	start := li.lineStart[line]
	end := len(li.text)
	if line+1 < len(li.lineStart) {
		end = li.lineStart[line+1] - 1
	}

	tabs := 0
	for _, c := range li.text[start:pos] {
		if c == '\t' {
			tabs++
		}
	}
	column := pos - start + tabs*(tabSize-1)

	character := "<EOS>"
	if pos < len(li.text) {
		character = quoteRune(li.text[pos])
	}

	return LocationInfo{
		Line:      line + 1,
		Column:    column,
		Character: character,
		Text:      strings.ReplaceAll(string(li.text[start:end]), "\t", strings.Repeat(" ", tabSize)),
		Arrow:     strings.Repeat(" ", column) + "^",
	}
}

// quoteRune renders a codepoint as a single quoted literal with
// escapes for anything not printable
func quoteRune(r rune) string {
	if r == '\'' {
		return `"'"`
	}
	return strconv.QuoteRune(r)
}
