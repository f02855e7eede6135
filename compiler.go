package ritual

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ncbray/ritual/grammars"
)

// fileRule is the rule of a grammar parser that reads a whole file
const fileRule = "file"

// Compiler turns grammar files into Grammars.  Its front end is a
// Parser whose `file` rule yields a *File: the bootstrap parser by
// default, or a parser built from a grammar file (see
// NewSelfHostedCompiler).
type Compiler struct {
	frontend *Parser
	config   *Config
	logger   *slog.Logger
	opts     []Option
}

// NewCompiler returns a compiler whose front end is the bootstrap
// parser.
func NewCompiler(opts ...Option) *Compiler {
	return newCompiler(NewBootstrapParser(opts...), opts)
}

func newCompiler(frontend *Parser, opts []Option) *Compiler {
	o := buildOptions(opts)
	return &Compiler{frontend: frontend, config: o.config, logger: o.logger, opts: opts}
}

// NewSelfHostedCompiler compiles the grammar of grammar files with
// the bootstrap compiler, and returns a compiler whose front end is
// the result.
func NewSelfHostedCompiler(opts ...Option) (*Compiler, error) {
	status := NewStatus()
	g, err := NewCompiler(opts...).Compile(status, "ritual.ritual", grammars.Ritual)
	if err != nil {
		return nil, withDiagnostics(err, status)
	}
	frontend, err := g.NewParser(StandardExterns(), WithNodeFactory(NewModelFactory()))
	if err != nil {
		return nil, err
	}
	return newCompiler(frontend, opts), nil
}

// ParseFile runs the front end over `src` and returns the parsed
// declarations, without resolving them.  `src` is registered to
// `status` under `filename`, and parse failures are reported there.
func (c *Compiler) ParseFile(status *Status, filename, src string) (*File, error) {
	offset := status.AddSource(filename, src)
	result, err := c.frontend.Parse(fileRule, nil, src, offset, true)
	var ie *InternalError
	if errors.As(err, &ie) && errors.Is(err, ErrMalformedMatcher) {
		status.Errorf(offset+ie.Pos, "%v", ie.Err)
		return nil, status.HaltIfErrors()
	}
	if err != nil {
		status.Errorf(NoLoc, "%s: %v", filename, err)
		return nil, err
	}
	if !result.OK {
		status.Errorf(offset+result.Error.Pos, "Unexpected %s while parsing %s",
			result.Error.Location.Character, result.Error.Scope)
		return nil, status.HaltIfErrors()
	}
	f, ok := result.Value.(*File)
	if !ok {
		err := fmt.Errorf("%s: front end produced %T instead of a file", filename, result.Value)
		status.Errorf(NoLoc, "%v", err)
		return nil, err
	}
	return f, nil
}

// Compile parses, resolves and optimizes the grammar in `src`.
// Diagnostics are reported to `status`, and the returned error is a
// *HaltError when there were any.
func (c *Compiler) Compile(status *Status, filename, src string) (*Grammar, error) {
	status.SetTabSize(c.config.GetInt("diagnostics.tab_size"))
	f, err := c.ParseFile(status, filename, src)
	if err != nil {
		return nil, err
	}
	types := NewTypes()
	if err := Resolve(f, types, status, c.opts...); err != nil {
		return nil, err
	}
	report := &OptimizationReport{Converged: true}
	if c.config.GetBool("optimizer.enabled") {
		report = Optimize(f, types, c.opts...)
		c.logger.Debug("optimized", "file", filename,
			"iterations", report.Iterations,
			"choices", report.Choices,
			"disjoint", report.DisjointChoices)
	}
	return newGrammar(f, types, report, c.opts), nil
}

// CompileError carries the diagnostics of a failed compilation for
// callers that don't keep the Status around.
type CompileError struct {
	Err         error
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	msg := e.Err.Error()
	for _, d := range e.Diagnostics {
		msg += "\n" + d.String()
	}
	return msg
}

func (e *CompileError) Unwrap() error { return e.Err }

func withDiagnostics(err error, status *Status) error {
	var halt *HaltError
	if errors.As(err, &halt) {
		return &CompileError{Err: err, Diagnostics: status.Diagnostics()}
	}
	return err
}
