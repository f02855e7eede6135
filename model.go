package ritual

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// MaxCodepoint is the upper bound of the codepoint domain character
// classes are expressed in.
const MaxCodepoint = unicode.MaxRune

// Token is an identifier as found in the grammar source, along with
// the absolute position it was found at.
type Token struct {
	Pos  int
	Text string
}

// Range is an inclusive interval of codepoints.
type Range struct{ Lower, Upper rune }

// NewRange validates that `lower <= upper` and that both ends are
// within the codepoint domain.
func NewRange(lower, upper rune) (Range, error) {
	if lower < 0 || upper > MaxCodepoint || lower > upper {
		return Range{}, fmt.Errorf("%w: range %s-%s", ErrMalformedMatcher, quoteRune(lower), quoteRune(upper))
	}
	return Range{Lower: lower, Upper: upper}, nil
}

func (r Range) String() string {
	if r.Lower == r.Upper {
		return escapeClassRune(r.Lower)
	}
	return escapeClassRune(r.Lower) + "-" + escapeClassRune(r.Upper)
}

// Matcher is a node of a grammar expression tree.  The set of
// implementations is closed, every pass switches over all of them.
type Matcher interface {
	String() string
	isMatcher()
}

// Node Type: Sequence

type Sequence struct{ Children []Matcher }

// NewSequence returns a sequence of the given children, none of which
// may be nil.
func NewSequence(children []Matcher) (*Sequence, error) {
	if err := checkChildren("sequence", children); err != nil {
		return nil, err
	}
	return &Sequence{Children: children}, nil
}

func (m *Sequence) String() string { return "(" + matchersString(m.Children, "; ") + ")" }

// Node Type: Choice

type Choice struct {
	Children []Matcher

	// Disjoint is set by the optimizer when every alternative
	// always consumes and no two alternatives can start with the
	// same codepoint.
	Disjoint bool
}

func NewChoice(children []Matcher) (*Choice, error) {
	if err := checkChildren("choice", children); err != nil {
		return nil, err
	}
	return &Choice{Children: children}, nil
}

func (m *Choice) String() string { return "(" + matchersString(m.Children, " | ") + ")" }

// Node Type: Repeat

// Repeat matches Expr at least Min times and at most Max times.  A
// Max of zero means there is no upper bound.
type Repeat struct {
	Expr     Matcher
	Min, Max int
}

func NewRepeat(expr Matcher, min, max int) (*Repeat, error) {
	if expr == nil {
		return nil, fmt.Errorf("%w: repeat without expression", ErrMalformedMatcher)
	}
	if min < 0 || max < 0 || (max > 0 && max < min) {
		return nil, fmt.Errorf("%w: repeat bounds {%d,%d}", ErrMalformedMatcher, min, max)
	}
	return &Repeat{Expr: expr, Min: min, Max: max}, nil
}

func (m *Repeat) String() string {
	switch {
	case m.Min == 0 && m.Max == 0:
		return m.Expr.String() + "*"
	case m.Min == 1 && m.Max == 0:
		return m.Expr.String() + "+"
	case m.Min == 0 && m.Max == 1:
		return m.Expr.String() + "?"
	}
	return fmt.Sprintf("%s{%d,%d}", m.Expr, m.Min, m.Max)
}

// Node Type: Character

type Character struct {
	Loc    int
	Ranges []Range
	Invert bool

	set *charset
}

// NewCharacter validates every range and precomputes the set used to
// test membership while matching.
func NewCharacter(loc int, ranges []Range, invert bool) (*Character, error) {
	for _, r := range ranges {
		if _, err := NewRange(r.Lower, r.Upper); err != nil {
			return nil, err
		}
	}
	c := &Character{Loc: loc, Ranges: ranges, Invert: invert}
	c.set = newCharset(ranges)
	return c, nil
}

// contains tells if `r` is within one of the ranges, regardless of
// the Invert flag.
func (m *Character) contains(r rune) bool {
	if m.set != nil {
		return m.set.has(r)
	}
	for _, rg := range m.Ranges {
		if rg.Lower <= r && r <= rg.Upper {
			return true
		}
	}
	return false
}

func (m *Character) String() string {
	var s strings.Builder
	s.WriteString("[")
	if m.Invert {
		s.WriteString("^")
	}
	for _, r := range m.Ranges {
		s.WriteString(r.String())
	}
	s.WriteString("]")
	return s.String()
}

// Node Type: MatchValue

type MatchValue struct {
	Loc  int
	Expr Matcher
}

func (m *MatchValue) String() string {
	if lit, ok := m.Expr.(*StringLiteral); ok {
		return lit.String()
	}
	return "$" + m.Expr.String()
}

// Node Type: Slice

type Slice struct {
	Loc  int
	Expr Matcher
}

func (m *Slice) String() string { return "<" + m.Expr.String() + ">" }

// Node Type: Lookahead

type Lookahead struct {
	Loc    int
	Expr   Matcher
	Invert bool
}

func (m *Lookahead) String() string {
	if m.Invert {
		return "!" + m.Expr.String()
	}
	return "&" + m.Expr.String()
}

// Node Type: Call

type Call struct {
	Loc  int
	Expr Matcher
	Args []Matcher
}

func (m *Call) String() string { return m.Expr.String() + "(" + matchersString(m.Args, ", ") + ")" }

// Node Type: DirectCall

// DirectCall is a Call whose callee was resolved to a global rule or
// extern by the semantic pass.
type DirectCall struct {
	Loc    int
	Name   string
	Target TypeID
	Args   []Matcher
}

func (m *DirectCall) String() string { return m.Name + "(" + matchersString(m.Args, ", ") + ")" }

// Node Type: Get

type Get struct{ Name Token }

func (m *Get) String() string { return m.Name.Text }

// Node Type: GetLocal

type GetLocal struct {
	Loc   int
	Local *Local
}

func (m *GetLocal) String() string { return m.Local.Name }

// Node Type: Set

type Set struct {
	Expr Matcher
	Name Token
}

func (m *Set) String() string { return m.Name.Text + "=" + m.Expr.String() }

// Node Type: SetLocal

type SetLocal struct {
	Expr  Matcher
	Local *Local
}

func (m *SetLocal) String() string { return m.Local.Name + "=" + m.Expr.String() }

// Node Type: Append

type Append struct {
	Expr Matcher
	Name Token
}

func (m *Append) String() string { return m.Name.Text + "<<" + m.Expr.String() }

// Node Type: AppendLocal

type AppendLocal struct {
	Expr  Matcher
	Local *Local
}

func (m *AppendLocal) String() string { return m.Local.Name + "<<" + m.Expr.String() }

// Node Type: ListLiteral

type ListLiteral struct {
	Loc  int
	Type TypeRef
	Args []Matcher
}

func (m *ListLiteral) String() string {
	return "[]" + typeRefString(m.Type) + "{" + matchersString(m.Args, ", ") + "}"
}

// Node Type: StructLiteral

type StructLiteral struct {
	Loc  int
	Type TypeRef
	Args []Matcher
}

func (m *StructLiteral) String() string {
	return typeRefString(m.Type) + "{" + matchersString(m.Args, ", ") + "}"
}

// Node Type: StringLiteral

type StringLiteral struct {
	Loc   int
	Value string
}

func (m *StringLiteral) String() string { return strconv.Quote(m.Value) }

// Node Type: RuneLiteral

type RuneLiteral struct {
	Loc   int
	Value rune
}

func (m *RuneLiteral) String() string { return strconv.QuoteRune(m.Value) }

// Node Type: IntLiteral

type IntLiteral struct {
	Loc   int
	Value int
}

func (m *IntLiteral) String() string { return strconv.Itoa(m.Value) }

// Node Type: BoolLiteral

type BoolLiteral struct {
	Loc   int
	Value bool
}

func (m *BoolLiteral) String() string { return strconv.FormatBool(m.Value) }

// Node Type: Location

type Location struct{ Loc int }

func (m *Location) String() string { return "loc()" }

func (*Sequence) isMatcher()      {}
func (*Choice) isMatcher()        {}
func (*Repeat) isMatcher()        {}
func (*Character) isMatcher()     {}
func (*MatchValue) isMatcher()    {}
func (*Slice) isMatcher()         {}
func (*Lookahead) isMatcher()     {}
func (*Call) isMatcher()          {}
func (*DirectCall) isMatcher()    {}
func (*Get) isMatcher()           {}
func (*GetLocal) isMatcher()      {}
func (*Set) isMatcher()           {}
func (*SetLocal) isMatcher()      {}
func (*Append) isMatcher()        {}
func (*AppendLocal) isMatcher()   {}
func (*ListLiteral) isMatcher()   {}
func (*StructLiteral) isMatcher() {}
func (*StringLiteral) isMatcher() {}
func (*RuneLiteral) isMatcher()   {}
func (*IntLiteral) isMatcher()    {}
func (*BoolLiteral) isMatcher()   {}
func (*Location) isMatcher()      {}

// Local is a name scoped to one rule invocation.  Its type may widen
// while the rule body is resolved.
type Local struct {
	Loc  int
	Name string
	Type TypeID
}

// Type references, as written in the source (NameRef, ListRef) or
// after resolution (DirectRef)

type TypeRef interface {
	String() string
	isTypeRef()
}

type NameRef struct{ Name Token }

type ListRef struct{ Ref TypeRef }

type DirectRef struct {
	Loc  int
	Name string
	Type TypeID
}

func (r *NameRef) String() string   { return r.Name.Text }
func (r *ListRef) String() string   { return "[]" + r.Ref.String() }
func (r *DirectRef) String() string { return r.Name }

func (*NameRef) isTypeRef()   {}
func (*ListRef) isTypeRef()   {}
func (*DirectRef) isTypeRef() {}

// Declarations

type Decl interface {
	DeclName() Token
	Attributes() []*Attribute
}

type Attribute struct{ Name Token }

type FieldDecl struct {
	Name Token
	Type TypeRef
}

type StructDecl struct {
	Name   Token
	Fields []*FieldDecl
	Attrs  []*Attribute
}

type UnionDecl struct {
	Name  Token
	Refs  []TypeRef
	Attrs []*Attribute
}

type ExternDecl struct {
	Name   Token
	Params []TypeRef
	Return TypeRef
	Attrs  []*Attribute
}

type Param struct {
	Name Token
	Type TypeRef
}

type RuleDecl struct {
	Name   Token
	Params []*Param
	Return TypeRef
	Body   Matcher
	Attrs  []*Attribute
}

// File is the root of a parsed grammar declaration file
type File struct{ Decls []Decl }

func (d *StructDecl) DeclName() Token { return d.Name }
func (d *UnionDecl) DeclName() Token  { return d.Name }
func (d *ExternDecl) DeclName() Token { return d.Name }
func (d *RuleDecl) DeclName() Token   { return d.Name }

func (d *StructDecl) Attributes() []*Attribute { return d.Attrs }
func (d *UnionDecl) Attributes() []*Attribute  { return d.Attrs }
func (d *ExternDecl) Attributes() []*Attribute { return d.Attrs }
func (d *RuleDecl) Attributes() []*Attribute   { return d.Attrs }

// HasAttribute tells if the declaration was tagged with `name`
func HasAttribute(d Decl, name string) bool {
	for _, attr := range d.Attributes() {
		if attr.Name.Text == name {
			return true
		}
	}
	return false
}

// Helpers

func checkChildren(kind string, children []Matcher) error {
	for i, child := range children {
		if child == nil {
			return fmt.Errorf("%w: %s child %d is nil", ErrMalformedMatcher, kind, i)
		}
	}
	return nil
}

func matchersString(items []Matcher, sep string) string {
	var (
		s  strings.Builder
		ln = len(items) - 1
	)
	for i, child := range items {
		s.WriteString(child.String())
		if i < ln {
			s.WriteString(sep)
		}
	}
	return s.String()
}

func typeRefString(r TypeRef) string {
	if r == nil {
		return "?"
	}
	return r.String()
}

func escapeClassRune(r rune) string {
	switch r {
	case '\\', '^', '-', ']', '[':
		return `\` + string(r)
	}
	q := strconv.QuoteRune(r)
	return q[1 : len(q)-1]
}
