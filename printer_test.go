package ritual

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMatcher(t *testing.T) {
	for _, test := range []struct {
		Name     string
		Matcher  Matcher
		Expected string
	}{
		{
			Name: "sequence",
			Matcher: &Sequence{Children: []Matcher{
				&MatchValue{Loc: 4, Expr: &StringLiteral{Loc: 4, Value: "a"}},
				&Repeat{Expr: &Character{Loc: 5, Ranges: rs('0', '9')}},
			}},
			Expected: "Sequence\n" +
				"├── MatchValue (4)\n" +
				"│   └── Literal \"a\"\n" +
				"└── Repeat 0 *\n" +
				"    └── Character [0-9] (5)",
		},
		{
			Name: "disjoint choice",
			Matcher: &Choice{Disjoint: true, Children: []Matcher{
				&DirectCall{Loc: NoLoc, Name: "a"},
				&Lookahead{Loc: 2, Invert: true, Expr: &Location{Loc: 3}},
			}},
			Expected: "Choice disjoint\n" +
				"├── Call a\n" +
				"└── Not (2)\n" +
				"    └── Location (3)",
		},
		{
			Name:     "bounded repeat",
			Matcher:  &Repeat{Min: 2, Max: 3, Expr: &Get{Name: Token{Pos: NoLoc, Text: "x"}}},
			Expected: "Repeat 2 3\n└── Get x",
		},
	} {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Expected, FormatMatcher(test.Matcher, nil))
		})
	}
}

func TestFormatTokens(t *testing.T) {
	format := func(input string, token FormatToken) string {
		return fmt.Sprintf("%d{%s}", token, input)
	}
	m := &Repeat{Min: 1, Expr: &Character{Loc: 7, Ranges: rs('a', 'a')}}
	assert.Equal(t, "1{Repeat} 2{1} 2{*}\n└── 1{Character} 3{[a]} 4{(7)}", FormatMatcher(m, format))
}

func TestFormatRule(t *testing.T) {
	rule := &RuleDecl{
		Name: Token{Pos: 5, Text: "word"},
		Body: &Slice{Loc: 20, Expr: &Repeat{Min: 1, Expr: &Character{Loc: 21, Ranges: rs('a', 'z')}}},
	}
	assert.Equal(t,
		"Rule word (5)\n"+
			"└── Slice (20)\n"+
			"    └── Repeat 1 *\n"+
			"        └── Character [a-z] (21)",
		FormatRule(rule, PlainFormat))
}

func TestFormatValue(t *testing.T) {
	for _, test := range []struct {
		Name     string
		Value    any
		Expected string
	}{
		{Name: "void", Value: nil, Expected: "void"},
		{Name: "string", Value: "a\tb", Expected: `"a\tb"`},
		{Name: "rune", Value: 'x', Expected: "'x'"},
		{Name: "int", Value: 42, Expected: "42"},
		{Name: "bool", Value: false, Expected: "false"},
		{Name: "callable", Value: &Rule{Name: "digit"}, Expected: "Callable digit"},
		{Name: "empty list", Value: NewList(), Expected: "List (0)"},
		{
			Name: "tree",
			Value: NewList("a", &Node{Type: "Pair", Fields: []NodeField{
				{Name: "key", Value: "k"},
				{Value: NewList(1)},
			}}),
			Expected: "List (2)\n" +
				"├── \"a\"\n" +
				"└── Pair\n" +
				"    ├── key: \"k\"\n" +
				"    └── List (1)\n" +
				"        └── 1",
		},
		{
			Name: "file",
			Value: &File{Decls: []Decl{
				&ExternDecl{Name: Token{Pos: 7, Text: "chr"}},
				&RuleDecl{Name: Token{Pos: 30, Text: "r"}, Body: &Location{Loc: NoLoc}},
			}},
			Expected: "File\n" +
				"├── ExternDecl chr (7)\n" +
				"└── Rule r (30)\n" +
				"    └── Location",
		},
	} {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Expected, FormatValue(test.Value, nil))
		})
	}
}
