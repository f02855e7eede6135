package ritual

import (
	"fmt"
	"sort"
)

// NoLoc is the location of diagnostics not tied to any source
const NoLoc = -1

// Diagnostic is an error reported while compiling a grammar
type Diagnostic struct {
	Message string

	// Located is false for diagnostics reported with NoLoc, in
	// which case none of the fields below are set
	Located  bool
	Filename string
	Pos      int
	Location LocationInfo
}

func (d Diagnostic) String() string {
	if !d.Located {
		return "error: " + d.Message
	}
	return fmt.Sprintf("%s:%d:%d: error: %s\n%s\n%s",
		d.Filename, d.Location.Line, d.Location.Column, d.Message,
		d.Location.Text, d.Location.Arrow)
}

type source struct {
	filename string
	begin    int
	end      int
	index    *lineIndex
}

// Status collects the diagnostics of a compilation.  Sources are
// registered to a single position space so a location alone is
// enough to find the file, line and column it refers to.
type Status struct {
	sources     []source
	next        int
	tabSize     int
	diagnostics []Diagnostic
}

func NewStatus() *Status {
	return &Status{tabSize: DefaultTabSize}
}

// SetTabSize sets how many columns tabs expand to in diagnostics
func (s *Status) SetTabSize(n int) { s.tabSize = n }

// AddSource registers a text and returns the offset its positions
// start at.  Each source takes one position more than its length so
// the end of a source never collides with the beginning of the next.
func (s *Status) AddSource(filename, text string) int {
	runes := []rune(text)
	begin := s.next
	s.sources = append(s.sources, source{
		filename: filename,
		begin:    begin,
		end:      begin + len(runes),
		index:    newLineIndex(runes),
	})
	s.next = begin + len(runes) + 1
	return begin
}

// Errorf records a diagnostic at the absolute location `loc`, which
// can be NoLoc.
func (s *Status) Errorf(loc int, format string, args ...any) {
	d := Diagnostic{Message: fmt.Sprintf(format, args...)}
	if src := s.find(loc); src != nil {
		d.Located = true
		d.Filename = src.filename
		d.Pos = loc
		d.Location = src.index.locate(loc-src.begin, s.tabSize)
	}
	s.diagnostics = append(s.diagnostics, d)
}

func (s *Status) find(loc int) *source {
	if loc < 0 {
		return nil
	}
	i := sort.Search(len(s.sources), func(i int) bool {
		return s.sources[i].end >= loc
	})
	if i < len(s.sources) && s.sources[i].begin <= loc {
		return &s.sources[i]
	}
	return nil
}

// Diagnostics returns every diagnostic recorded so far
func (s *Status) Diagnostics() []Diagnostic { return s.diagnostics }

// Errors returns how many diagnostics were recorded so far
func (s *Status) Errors() int { return len(s.diagnostics) }

// HaltIfErrors returns a *HaltError if any diagnostic was recorded
func (s *Status) HaltIfErrors() error {
	if len(s.diagnostics) == 0 {
		return nil
	}
	return &HaltError{Count: len(s.diagnostics)}
}
