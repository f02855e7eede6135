package ritual

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncbray/ritual/grammars"
)

func parseWith(t *testing.T, c *Compiler, src string) *File {
	t.Helper()
	status := NewStatus()
	f, err := c.ParseFile(status, "ritual.ritual", src)
	require.NoError(t, err, "%v", diagnosticMessages(status))
	return f
}

func TestSelfHostedFrontEnd(t *testing.T) {
	selfHosted, err := NewSelfHostedCompiler()
	require.NoError(t, err)

	for _, test := range []struct {
		Name string
		Src  string
	}{
		{Name: "own grammar", Src: grammars.Ritual},
		{Name: "choices", Src: choicesGrammar},
		{Name: "declarations", Src: `
// comment
struct Pair { key: string value: int }
union Value = Pair | []Value | string;
extern dec_to_int(string): int

[export, inline]
func pair(sep: rune): Pair {
	k = <[a-z]+>; $sep; v = dec_to_int(<[0-9]+>);
	Pair{k, v}
}

func values(): []Value {
	l = []Value{"x", 0x1F, '\n', true, loc()};
	(l << pair(':') | !"]"; l << <[^\]]>)*;
	&"]"; l
}
`},
	} {
		t.Run(test.Name, func(t *testing.T) {
			expected := parseWith(t, NewCompiler(), test.Src)
			assert.Equal(t, expected, parseWith(t, selfHosted, test.Src))
		})
	}
}

func TestSelfHostedFixedPoint(t *testing.T) {
	selfHosted, err := NewSelfHostedCompiler()
	require.NoError(t, err)

	status := NewStatus()
	g, err := selfHosted.Compile(status, "ritual.ritual", grammars.Ritual)
	require.NoError(t, err, "%v", diagnosticMessages(status))

	frontend, err := g.NewParser(StandardExterns(), WithNodeFactory(NewModelFactory()))
	require.NoError(t, err)
	second := newCompiler(frontend, nil)

	assert.Equal(t,
		parseWith(t, NewCompiler(), grammars.Ritual),
		parseWith(t, second, grammars.Ritual))
}

func TestCompileParseError(t *testing.T) {
	for _, test := range []struct {
		Name     string
		Compiler func() (*Compiler, error)
	}{
		{Name: "bootstrap", Compiler: func() (*Compiler, error) { return NewCompiler(), nil }},
		{Name: "self hosted", Compiler: func() (*Compiler, error) { return NewSelfHostedCompiler() }},
	} {
		t.Run(test.Name, func(t *testing.T) {
			c, err := test.Compiler()
			require.NoError(t, err)

			status := NewStatus()
			_, err = c.Compile(status, "test.ritual", "func x(): string {\n  \"a\" @\n}\n")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrHalted))

			diagnostics := status.Diagnostics()
			require.Len(t, diagnostics, 1)
			d := diagnostics[0]
			assert.Contains(t, d.Message, "Unexpected '@' while parsing ")
			assert.Equal(t, 2, d.Location.Line)
			assert.Equal(t, 6, d.Location.Column)
			assert.Equal(t, `  "a" @`, d.Location.Text)
		})
	}
}

func TestCompileReversedRange(t *testing.T) {
	for _, test := range []struct {
		Name     string
		Compiler func() (*Compiler, error)
	}{
		{Name: "bootstrap", Compiler: func() (*Compiler, error) { return NewCompiler(), nil }},
		{Name: "self hosted", Compiler: func() (*Compiler, error) { return NewSelfHostedCompiler() }},
	} {
		t.Run(test.Name, func(t *testing.T) {
			c, err := test.Compiler()
			require.NoError(t, err)

			status := NewStatus()
			_, err = c.Compile(status, "test.ritual", "[export]\nfunc r(): rune { [z-a] }\n")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrHalted))

			diagnostics := status.Diagnostics()
			require.Len(t, diagnostics, 1)
			d := diagnostics[0]
			assert.Equal(t, "malformed matcher: range 'z'-'a'", d.Message)
			assert.Equal(t, 2, d.Location.Line)
			assert.Equal(t, "func r(): rune { [z-a] }", d.Location.Text)
		})
	}
}

func TestCompileSecondSource(t *testing.T) {
	status := NewStatus()
	status.AddSource("first.ritual", "func a(): void { \"a\" }\n")

	c := NewCompiler()
	_, err := c.Compile(status, "second.ritual", "func b(): string { x }\n")
	require.Error(t, err)

	diagnostics := status.Diagnostics()
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "second.ritual:1:19: error: Cannot resolve \"x\"\nfunc b(): string { x }\n                   ^",
		diagnostics[0].String())
}

func TestCompileError(t *testing.T) {
	status := NewStatus()
	status.Errorf(NoLoc, "first")
	status.Errorf(NoLoc, "second")

	err := withDiagnostics(status.HaltIfErrors(), status)
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Len(t, compileErr.Diagnostics, 2)
	assert.Equal(t, "halting due to 2 errors\nerror: first\nerror: second", err.Error())
	assert.True(t, errors.Is(err, ErrHalted))

	plain := errors.New("boom")
	assert.Same(t, plain, withDiagnostics(plain, status))
}

func TestCompileWithoutOptimizer(t *testing.T) {
	cfg := NewConfig()
	cfg.SetBool("optimizer.enabled", false)
	g, status, err := compileSource(choicesGrammar, WithConfig(cfg))
	require.NoError(t, err, "%v", diagnosticMessages(status))
	assert.True(t, g.Report.Converged)
	assert.Zero(t, g.Report.Iterations)
	assert.Nil(t, g.Report.Prefixes)
}
