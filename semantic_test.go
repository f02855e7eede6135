package ritual

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSource(src string, opts ...Option) (*Grammar, *Status, error) {
	status := NewStatus()
	g, err := NewCompiler(opts...).Compile(status, "test.ritual", src)
	return g, status, err
}

func diagnosticMessages(status *Status) []string {
	var messages []string
	for _, d := range status.Diagnostics() {
		messages = append(messages, d.Message)
	}
	return messages
}

func TestResolveValid(t *testing.T) {
	for _, test := range []struct {
		Name    string
		Grammar string
	}{
		{
			Name: "union inferred from alternatives",
			Grammar: `
struct A { v: string }
struct B { v: string }
union U = A | B;

[export]
func pick(): U {
	A{<"a">} | B{<"b">}
}`,
		},
		{
			Name: "locals widen to a union",
			Grammar: `
struct A { v: string }
struct B { v: string }
union U = A | B;

func any(): U {
	B{<"b">}
}

[export]
func last(): U {
	x = A{<"a">}; (x = any())?; x
}`,
		},
		{
			Name: "lists and appends",
			Grammar: `
[export]
func digits(): []string {
	l = []string{}; (l << <[0-9]>)+; l
}`,
		},
		{
			Name: "rule parameters",
			Grammar: `
func keyword(k: string): void {
	$k; ![a-z]
}

[export]
func statement(): bool {
	keyword("if"); true
	| keyword("else"); false
}`,
		},
		{
			Name: "externs",
			Grammar: `
extern dec_to_int(string): int

[export]
func number(): int {
	dec_to_int(<[0-9]+>)
}`,
		},
		{
			Name: "alternatives of different types when unused",
			Grammar: `
func a(): string { <"a"> }
func b(): int { 1 }

[export]
func skip(): void {
	(a() | b())*
}`,
		},
	} {
		t.Run(test.Name, func(t *testing.T) {
			g, status, err := compileSource(test.Grammar)
			require.NoError(t, err, "%v", diagnosticMessages(status))
			assert.Empty(t, status.Diagnostics())
			assert.NotNil(t, g)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	for _, test := range []struct {
		Name     string
		Grammar  string
		Expected []string
	}{
		{
			Name: "return type mismatch",
			Grammar: `
struct A { v: string }

[export]
func r(): A {
	<"x">
}`,
			Expected: []string{"Expected return type of A, got string instead."},
		},
		{
			Name: "unused global",
			Grammar: `
[export]
func r(): string { <"x"> }

func helper(): string { <"y"> }`,
			Expected: []string{`Unused global "helper"`},
		},
		{
			Name: "unused local",
			Grammar: `
[export]
func r(): string { x = <"a">; <"b"> }`,
			Expected: []string{`Unused local "x"`},
		},
		{
			Name: "unused parameter",
			Grammar: `
func p(x: string): void { "a" }

[export]
func r(): void { p("x") }`,
			Expected: []string{`Unused local "x"`},
		},
		{
			Name: "suggestion",
			Grammar: `
[export]
func number(): string { <[0-9]+> }

[export]
func r(): string { numbr() }`,
			Expected: []string{`Cannot resolve "numbr", did you mean "number"?`},
		},
		{
			Name: "type suggestion",
			Grammar: `
[export]
func r(): strin { <"a"> }`,
			Expected: []string{`Cannot resolve type "strin", did you mean "string"?`},
		},
		{
			Name: "redefinition",
			Grammar: `
[export]
func r(): void { "a" }

func r(): void { "b" }`,
			Expected: []string{`Tried to redefine "r"`},
		},
		{
			Name: "builtin redefinition",
			Grammar: `
struct string { }`,
			Expected: []string{`"string" is a builtin type and can't be redefined`},
		},
		{
			Name: "unknown attribute",
			Grammar: `
[inline]
func r(): void { "a" }`,
			Expected: []string{`Unknown attribute "inline"`},
		},
		{
			Name: "union of intrinsics",
			Grammar: `
union U = string;`,
			Expected: []string{"Union U can only hold structs and unions, not string"},
		},
		{
			Name: "cannot unify",
			Grammar: `
[export]
func r(): string { <"a"> | 'c' }`,
			Expected: []string{"Cannot unify types [string rune]"},
		},
		{
			Name: "discarded literal",
			Grammar: `
[export]
func r(): string { "a"; 'x'; <"b"> }`,
			Expected: []string{"Unused literal."},
		},
		{
			Name: "discarded slice",
			Grammar: `
[export]
func r(): void { <"a">; "b" }`,
			Expected: []string{"Unused slice."},
		},
		{
			Name: "wrong argument count",
			Grammar: `
func p(x: string): string { x }

[export]
func r(): string { p() }`,
			Expected: []string{"p takes 1 arguments, got 0"},
		},
		{
			Name: "wrong argument type",
			Grammar: `
func p(x: string): string { x }

[export]
func r(): string { p(1) }`,
			Expected: []string{"Argument 1 of p expects string, got int"},
		},
		{
			Name: "struct arity",
			Grammar: `
struct A { v: string }

[export]
func r(): A { A{} }`,
			Expected: []string{"Struct A has 1 fields, got 0 arguments"},
		},
		{
			Name: "append to a global",
			Grammar: `
[export]
func r(): void { r << "a" }`,
			Expected: []string{`"r" is not a local`},
		},
		{
			Name: "assign a callable",
			Grammar: `
[export]
func r(): void { x = r; "a" }`,
			Expected: []string{`Cannot assign callable func r() void to "x"`},
		},
		{
			Name: "assign from an unresolved call",
			Grammar: `
[export]
func r(): string { x = undefined_rule(); x }`,
			Expected: []string{`Cannot resolve "undefined_rule"`},
		},
		{
			Name: "assign void",
			Grammar: `
func v(): void { "a" }

[export]
func r(): string { x = v(); x }`,
			Expected: []string{`Cannot assign void to "x"`},
		},
		{
			Name: "structs sharing two unions",
			Grammar: `
struct A { v: string }
struct B { v: string }
union U = A | B;
union V = A | B;

[export]
func pick(): U { A{<"a">} | B{<"b">} }`,
			Expected: []string{"Cannot unify types [A B]"},
		},
		{
			Name: "union is not the declared struct",
			Grammar: `
struct A { }
struct B { }
union U = A | B;

[export]
func r(): A { A{} | B{} }`,
			Expected: []string{"Expected return type of A, got U instead."},
		},
		{
			Name: "conflicting local types",
			Grammar: `
[export]
func r(): string { x = <"a">; x = 1; x }`,
			Expected: []string{`Attempted to redefine "x" (string vs. int)`},
		},
		{
			Name: "call something that isn't callable",
			Grammar: `
[export]
func r(): string { x = <"a">; x() }`,
			Expected: []string{"Cannot call string"},
		},
	} {
		t.Run(test.Name, func(t *testing.T) {
			_, status, err := compileSource(test.Grammar)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrHalted))
			assert.Equal(t, test.Expected, diagnosticMessages(status))
		})
	}
}

func TestResolveRewrites(t *testing.T) {
	g, status, err := compileSource(`
extern dec_to_int(string): int

[export]
func number(): int {
	s = <[0-9]+>; dec_to_int(s)
}`, WithConfig(optimizerDisabled()))
	require.NoError(t, err, "%v", diagnosticMessages(status))

	rules := g.Rules()
	require.Len(t, rules, 1)
	body, ok := rules[0].Body.(*Sequence)
	require.True(t, ok)
	require.Len(t, body.Children, 2)

	set, ok := body.Children[0].(*SetLocal)
	require.True(t, ok, "%T", body.Children[0])
	assert.Equal(t, "s", set.Local.Name)
	assert.Equal(t, g.Types.String, set.Local.Type)

	call, ok := body.Children[1].(*DirectCall)
	require.True(t, ok, "%T", body.Children[1])
	assert.Equal(t, "dec_to_int", call.Name)
	get, ok := call.Args[0].(*GetLocal)
	require.True(t, ok)
	assert.Same(t, set.Local, get.Local)

	ret, ok := rules[0].Return.(*DirectRef)
	require.True(t, ok)
	assert.Equal(t, g.Types.Int, ret.Type)
}

func TestResolveDiagnosticLocation(t *testing.T) {
	_, status, err := compileSource("[export]\nfunc r(): string {\n\tx = <\"a\">; <\"b\">\n}")
	require.Error(t, err)
	require.Len(t, status.Diagnostics(), 1)
	d := status.Diagnostics()[0]
	assert.Equal(t, "test.ritual:3:4: error: Unused local \"x\"\n    x = <\"a\">; <\"b\">\n    ^", d.String())
}

func TestResolveUnusedCheckDisabled(t *testing.T) {
	cfg := NewConfig()
	cfg.SetBool("semantic.check_unused", false)
	_, status, err := compileSource(`
func r(): string { x = <"a">; <"b"> }`, WithConfig(cfg))
	require.NoError(t, err, "%v", diagnosticMessages(status))
}

func optimizerDisabled() *Config {
	cfg := NewConfig()
	cfg.SetBool("optimizer.enabled", false)
	return cfg
}

func TestResolveEmptyChoice(t *testing.T) {
	f := &File{Decls: []Decl{&RuleDecl{
		Name:   Token{Text: "r"},
		Return: &NameRef{Name: Token{Text: "string"}},
		Body:   &Choice{},
		Attrs:  []*Attribute{{Name: Token{Text: "export"}}},
	}}}
	status := NewStatus()
	err := Resolve(f, NewTypes(), status)
	require.Error(t, err)
	assert.Equal(t, []string{"Expected return type of string, got void instead."}, diagnosticMessages(status))
}
