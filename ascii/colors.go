// Package ascii provides semantic names for terminal colors so they
// can be grouped in themes.  Colors are degraded to what the terminal
// supports, and dropped entirely when it supports none.
package ascii

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Theme defines semantic color mappings.  Values are termenv color
// specs: ANSI indexes ("1") or hex ("#ff8700").
type Theme struct {
	// Diagnostic levels
	Error   string
	Warning string
	Info    string
	Hint    string

	// UI elements
	Muted   string // secondary/dimmed text
	Accent  string // highlighted/emphasized text
	Success string

	// Syntax highlighting for the tree printers
	Operator string
	Operand  string
	Literal  string
	Span     string
}

// DefaultTheme provides a sensible default color mapping.
var DefaultTheme = Theme{
	Error:   "9",
	Warning: "11",
	Info:    "14",
	Hint:    "8",

	Muted:   "8",
	Accent:  "14",
	Success: "10",

	Operator: "99",
	Operand:  "127",
	Literal:  "245",
	Span:     "208",
}

// Painter applies a Theme to text written to a given output
type Painter struct {
	Theme Theme
	out   *termenv.Output
}

// ColorMode says when a Painter emits escape codes
type ColorMode int

const (
	// ColorAuto colors output only when it goes to a terminal
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode reads one of "auto", "always" or "never"
func ParseColorMode(name string) (ColorMode, error) {
	switch name {
	case "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	}
	return ColorAuto, fmt.Errorf("unknown color mode `%s`", name)
}

// NewPainter detects the color support of `w` unless `mode` forces
// colors on or off.
func NewPainter(w io.Writer, theme Theme, mode ColorMode) *Painter {
	var opts []termenv.OutputOption
	switch mode {
	case ColorAlways:
		opts = append(opts, termenv.WithProfile(termenv.ANSI256))
	case ColorNever:
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	return &Painter{Theme: theme, out: termenv.NewOutput(w, opts...)}
}

// Color paints the formatted text with `color`
func (p *Painter) Color(color, format string, args ...any) string {
	s := fmt.Sprintf(format, args...)
	if color == "" {
		return s
	}
	return p.out.String(s).Foreground(p.out.Color(color)).String()
}

// Bold paints the formatted text with `color` in bold
func (p *Painter) Bold(color, format string, args ...any) string {
	s := fmt.Sprintf(format, args...)
	style := p.out.String(s).Bold()
	if color != "" {
		style = style.Foreground(p.out.Color(color))
	}
	return style.String()
}

func (p *Painter) Error(format string, args ...any) string {
	return p.Bold(p.Theme.Error, format, args...)
}

func (p *Painter) Warning(format string, args ...any) string {
	return p.Bold(p.Theme.Warning, format, args...)
}

func (p *Painter) Muted(format string, args ...any) string {
	return p.Color(p.Theme.Muted, format, args...)
}

func (p *Painter) Accent(format string, args ...any) string {
	return p.Color(p.Theme.Accent, format, args...)
}

func (p *Painter) Success(format string, args ...any) string {
	return p.Color(p.Theme.Success, format, args...)
}
