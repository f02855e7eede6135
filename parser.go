package ritual

import (
	"fmt"
	"log/slog"
)

// ParseResult is the outcome of a parse that ran to completion,
// successfully or not.
type ParseResult struct {
	// OK is true when the rule matched (and, if asked for, the
	// whole text was consumed)
	OK bool

	// Value is what the rule produced.  Only meaningful when OK.
	Value any

	// End is the position the cursor stopped at, relative to the
	// text given to the parser
	End int

	// Error describes the furthest failure when not OK
	Error *ParseError
}

// Err returns the parse error as an error value, or nil on success
func (r *ParseResult) Err() error {
	if r.OK {
		return nil
	}
	return r.Error
}

// Message formats the furthest failure as
// `<line>:<column> @ <character> (<scope>)` followed by the offending
// line and a caret underneath it.  Empty on success.
func (r *ParseResult) Message() string {
	if r.OK {
		return ""
	}
	return r.Error.Error()
}

type frame struct {
	name  string
	scope map[string]any
}

// Parser evaluates matcher trees against text.  A parser holds the
// state of one parse at a time and must not be shared between
// goroutines while a parse is running.
type Parser struct {
	rules   map[string]*Rule
	natives map[string]*Native
	factory NodeFactory
	logger  *slog.Logger
	trace   bool
	tabSize int

	// state of the current parse
	stream      []rune
	index       *lineIndex
	pos         int
	offset      int
	ok          bool
	deepest     int
	deepestName string
	frames      []frame
}

// NewParser creates a parser without rules.  WithNodeFactory sets
// what struct literals evaluate to, and WithConfig the `vm.*` and
// `diagnostics.*` settings.
func NewParser(opts ...Option) *Parser {
	o := buildOptions(opts)
	return &Parser{
		rules:   map[string]*Rule{},
		natives: map[string]*Native{},
		factory: o.factory,
		logger:  o.logger,
		trace:   o.config.GetBool("vm.trace"),
		tabSize: o.config.GetInt("diagnostics.tab_size"),
	}
}

// AddRule registers a rule under its name.  Names are shared by
// rules and natives.
func (p *Parser) AddRule(r *Rule) error {
	if p.callable(r.Name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateCallable, r.Name)
	}
	p.rules[r.Name] = r
	return nil
}

// AddNative registers a host function under its name.
func (p *Parser) AddNative(n *Native) error {
	if p.callable(n.Name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateCallable, n.Name)
	}
	p.natives[n.Name] = n
	return nil
}

// Rule returns the rule registered under `name`, if any
func (p *Parser) Rule(name string) (*Rule, bool) {
	r, ok := p.rules[name]
	return r, ok
}

func (p *Parser) callable(name string) Callable {
	if r, ok := p.rules[name]; ok {
		return r
	}
	if n, ok := p.natives[name]; ok {
		return n
	}
	return nil
}

// Parse invokes the rule `name` with `args` against `text`.
// Locations produced by the grammar are shifted by `offset`, which
// allows several texts to share one position space.  When
// `mustConsumeAll` is set, a match that doesn't reach the end of the
// text is reported as a failure at the position it stopped.
//
// A failed match isn't an error: it's reported by the returned
// ParseResult.  Errors are reserved for defects, like an unknown rule
// or a misbehaving native (*InternalError).
func (p *Parser) Parse(name string, args []any, text string, offset int, mustConsumeAll bool) (result *ParseResult, err error) {
	rule, ok := p.rules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, name)
	}
	p.reset(text, offset)
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InternalError)
			if !ok {
				panic(r)
			}
			result, err = nil, ie
		}
		p.frames = p.frames[:0]
	}()

	value := rule.call(p, args)
	if p.ok && mustConsumeAll && p.pos < len(p.stream) {
		p.fail()
	}
	if !p.ok {
		if p.index == nil {
			p.index = newLineIndex(p.stream)
		}
		return &ParseResult{
			End: p.pos,
			Error: &ParseError{
				Scope:    p.deepestName,
				Pos:      p.deepest,
				Location: p.index.locate(p.deepest, p.tabSize),
			},
		}, nil
	}
	return &ParseResult{OK: true, Value: value, End: p.pos}, nil
}

func (p *Parser) reset(text string, offset int) {
	p.stream = []rune(text)
	p.index = nil
	p.pos = 0
	p.offset = offset
	p.ok = true
	p.deepest = 0
	p.deepestName = "<EOS>"
	p.frames = p.frames[:0]
}

func (p *Parser) push(name string, scope map[string]any) {
	p.frames = append(p.frames, frame{name: name, scope: scope})
}

func (p *Parser) pop() {
	p.frames = p.frames[:len(p.frames)-1]
}

func (p *Parser) scopeName() string {
	if len(p.frames) == 0 {
		return "<EOS>"
	}
	return p.frames[len(p.frames)-1].name
}

// fail marks the current match as failed, and records the position
// if it's past the furthest one seen so far.  Ties keep the name
// already recorded, so failures at the start of the input are
// reported against "<EOS>".
func (p *Parser) fail() {
	if p.pos > p.deepest {
		p.deepest = p.pos
		p.deepestName = p.scopeName()
	}
	p.ok = false
}

// backtrack rewinds the cursor and clears the failure flag
func (p *Parser) backtrack(pos int) {
	p.pos = pos
	p.ok = true
}

func (p *Parser) internalError(err error, format string, args ...any) {
	panic(newInternalError(p.scopeName(), p.pos, err, format, args...))
}

func (p *Parser) lookup(name string) any {
	if len(p.frames) > 0 {
		if v, ok := p.frames[len(p.frames)-1].scope[name]; ok {
			return v
		}
	}
	if c := p.callable(name); c != nil {
		return c
	}
	p.internalError(nil, "unbound name %q", name)
	return nil
}

func (p *Parser) assign(name string, v any) {
	if _, ok := v.(Callable); ok {
		p.internalError(nil, "can't assign callable to local %q", name)
	}
	p.frames[len(p.frames)-1].scope[name] = v
}

func (p *Parser) appendTo(name string, v any) {
	target, ok := p.lookup(name).(*List)
	if !ok {
		p.internalError(nil, "can't append to %q, not a list", name)
	}
	target.Append(v)
}

func (p *Parser) evalArgs(args []Matcher) []any {
	values := make([]any, 0, len(args))
	for _, arg := range args {
		v := p.eval(arg)
		if !p.ok {
			return nil
		}
		values = append(values, v)
	}
	return values
}

// eval runs a matcher against the stream at the cursor.  On return
// `p.ok` tells if it matched.  Values of failed matches are
// meaningless.
func (p *Parser) eval(m Matcher) any {
	switch m := m.(type) {
	case *Sequence:
		var result any
		for _, child := range m.Children {
			result = p.eval(child)
			if !p.ok {
				return nil
			}
		}
		return result

	case *Choice:
		pos := p.pos
		for _, child := range m.Children {
			result := p.eval(child)
			if p.ok {
				return result
			}
			p.backtrack(pos)
		}
		p.fail()
		return nil

	case *Repeat:
		var (
			result any
			count  int
		)
		for m.Max == 0 || count < m.Max {
			pos := p.pos
			v := p.eval(m.Expr)
			if !p.ok {
				p.backtrack(pos)
				break
			}
			result = v
			count++
			// an iteration that doesn't consume would match
			// forever
			if p.pos == pos && m.Max == 0 {
				break
			}
		}
		if count < m.Min {
			p.fail()
			return nil
		}
		return result

	case *Character:
		if p.pos < len(p.stream) {
			c := p.stream[p.pos]
			if m.contains(c) != m.Invert {
				p.pos++
				return c
			}
		}
		p.fail()
		return nil

	case *MatchValue:
		v := p.eval(m.Expr)
		if !p.ok {
			return nil
		}
		expected, ok := v.(string)
		if !ok {
			p.internalError(nil, "can't match value of type %T", v)
		}
		for _, c := range expected {
			if p.pos >= len(p.stream) || p.stream[p.pos] != c {
				p.fail()
				return nil
			}
			p.pos++
		}
		return expected

	case *Slice:
		start := p.pos
		p.eval(m.Expr)
		if !p.ok {
			return nil
		}
		return string(p.stream[start:p.pos])

	case *Lookahead:
		pos, deepest, deepestName := p.pos, p.deepest, p.deepestName
		v := p.eval(m.Expr)
		matched := p.ok
		p.pos, p.deepest, p.deepestName = pos, deepest, deepestName
		p.ok = true
		if matched == m.Invert {
			p.fail()
			return nil
		}
		if m.Invert {
			return nil
		}
		return v

	case *Call:
		target := p.eval(m.Expr)
		if !p.ok {
			return nil
		}
		callee, ok := target.(Callable)
		if !ok {
			p.internalError(nil, "can't call value of type %T", target)
		}
		args := p.evalArgs(m.Args)
		if !p.ok {
			return nil
		}
		return callee.call(p, args)

	case *DirectCall:
		callee := p.callable(m.Name)
		if callee == nil {
			p.internalError(nil, "unbound callable %q", m.Name)
		}
		args := p.evalArgs(m.Args)
		if !p.ok {
			return nil
		}
		return callee.call(p, args)

	case *Get:
		return p.lookup(m.Name.Text)

	case *GetLocal:
		v, ok := p.frames[len(p.frames)-1].scope[m.Local.Name]
		if !ok {
			p.internalError(nil, "local %q read before being set", m.Local.Name)
		}
		return v

	case *Set:
		v := p.eval(m.Expr)
		if p.ok {
			p.assign(m.Name.Text, v)
		}
		return v

	case *SetLocal:
		v := p.eval(m.Expr)
		if p.ok {
			p.assign(m.Local.Name, v)
		}
		return v

	case *Append:
		v := p.eval(m.Expr)
		if p.ok {
			p.appendTo(m.Name.Text, v)
		}
		return v

	case *AppendLocal:
		v := p.eval(m.Expr)
		if p.ok {
			p.appendTo(m.Local.Name, v)
		}
		return v

	case *ListLiteral:
		items := p.evalArgs(m.Args)
		if !p.ok {
			return nil
		}
		return &List{Items: items}

	case *StructLiteral:
		fields := p.evalArgs(m.Args)
		if !p.ok {
			return nil
		}
		name := typeRefString(m.Type)
		node, err := p.factory.NewNode(name, fields)
		if err != nil {
			p.internalError(err, "can't build %s", name)
		}
		return node

	case *StringLiteral:
		return m.Value
	case *RuneLiteral:
		return m.Value
	case *IntLiteral:
		return m.Value
	case *BoolLiteral:
		return m.Value
	case *Location:
		return p.pos + p.offset
	}
	p.internalError(nil, "unknown matcher %T", m)
	return nil
}
