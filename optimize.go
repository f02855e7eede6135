package ritual

import (
	"log/slog"
	"slices"
)

// Consumption tells whether a matcher consumes input when it succeeds
type Consumption uint8

const (
	// ConsumesNo never consumes input
	ConsumesNo Consumption = iota
	// ConsumesMay might consume input
	ConsumesMay
	// ConsumesMust always consumes at least one codepoint
	ConsumesMust
)

func (c Consumption) String() string {
	return map[Consumption]string{
		ConsumesNo:   "no",
		ConsumesMay:  "may",
		ConsumesMust: "must",
	}[c]
}

// Prefix is the set of codepoints a matcher can start a match with,
// along with whether it consumes at all.  The set is meaningless when
// Mode is ConsumesNo.
type Prefix struct {
	Ranges []Range
	Mode   Consumption
}

func (p Prefix) equal(o Prefix) bool {
	return p.Mode == o.Mode && slices.Equal(p.Ranges, o.Ranges)
}

var (
	noPrefix   = Prefix{Mode: ConsumesNo}
	anyPrefix  = Prefix{Ranges: FullRanges, Mode: ConsumesMay}
	seedPrefix = anyPrefix
)

// OptimizationReport summarizes what the optimizer found
type OptimizationReport struct {
	// Iterations is how many rounds the first set fixpoint took
	Iterations int

	// Converged is false when the fixpoint hit the iteration cap,
	// in which case Prefixes holds the last, still conservative,
	// estimates
	Converged bool

	Choices         int
	DisjointChoices int

	// Prefixes maps rule names to their first sets
	Prefixes map[string]Prefix
}

// Optimize simplifies the rule bodies of a resolved file and
// computes the first set of every rule.  Choices whose alternatives
// always consume and start with disjoint codepoints are flagged.
// Nothing here changes what a grammar matches or produces.
func Optimize(f *File, types *Types, opts ...Option) *OptimizationReport {
	o := buildOptions(opts)
	opt := &optimizer{
		types:    types,
		logger:   o.logger,
		prefixes: map[string]Prefix{},
		report:   &OptimizationReport{Converged: true, Prefixes: map[string]Prefix{}},
	}
	var rules []*RuleDecl
	for _, decl := range f.Decls {
		if rule, ok := decl.(*RuleDecl); ok {
			rules = append(rules, rule)
		}
	}
	if o.config.GetBool("optimizer.simplify") {
		for _, rule := range rules {
			rule.Body = opt.simplify(rule.Body)
		}
	}
	if o.config.GetBool("optimizer.first_sets") {
		opt.firstSets(rules, o.config.GetInt("optimizer.max_iterations"))
		for _, rule := range rules {
			opt.markDisjoint(rule.Body)
		}
		opt.report.Prefixes = opt.prefixes
	}
	return opt.report
}

type optimizer struct {
	types    *Types
	logger   *slog.Logger
	prefixes map[string]Prefix
	report   *OptimizationReport
}

func isEmptySequence(m Matcher) bool {
	seq, ok := m.(*Sequence)
	return ok && len(seq.Children) == 0
}

// simplify canonicalizes character classes and flattens nested
// sequences and choices.  Alternatives after one that matches nothing
// can never be tried and are dropped.  An empty sequence or choice
// only survives where there is no parent to absorb it.
func (o *optimizer) simplify(m Matcher) Matcher {
	switch m := m.(type) {
	case *Sequence:
		var children []Matcher
		for _, child := range m.Children {
			child = o.simplify(child)
			if nested, ok := child.(*Sequence); ok {
				children = append(children, nested.Children...)
				continue
			}
			children = append(children, child)
		}
		if len(children) == 1 {
			return children[0]
		}
		m.Children = children
		return m

	case *Choice:
		var children []Matcher
		for _, child := range m.Children {
			child = o.simplify(child)
			if nested, ok := child.(*Choice); ok {
				children = append(children, nested.Children...)
			} else {
				children = append(children, child)
			}
			if n := len(children); n > 0 && isEmptySequence(children[n-1]) {
				break
			}
		}
		if len(children) == 1 {
			return children[0]
		}
		m.Children = children
		return m

	case *Character:
		ranges, invert := classRanges(characterRanges(m.Ranges, m.Invert))
		c, err := NewCharacter(m.Loc, ranges, invert)
		if err != nil {
			// canonical ranges are always valid
			panic(err)
		}
		return c

	case *Repeat:
		m.Expr = o.simplify(m.Expr)
	case *MatchValue:
		m.Expr = o.simplify(m.Expr)
	case *Slice:
		m.Expr = o.simplify(m.Expr)
	case *Lookahead:
		m.Expr = o.simplify(m.Expr)
	case *SetLocal:
		m.Expr = o.simplify(m.Expr)
	case *AppendLocal:
		m.Expr = o.simplify(m.Expr)
	case *Set:
		m.Expr = o.simplify(m.Expr)
	case *Append:
		m.Expr = o.simplify(m.Expr)
	case *Call:
		m.Expr = o.simplify(m.Expr)
		o.simplifyAll(m.Args)
	case *DirectCall:
		o.simplifyAll(m.Args)
	case *ListLiteral:
		o.simplifyAll(m.Args)
	case *StructLiteral:
		o.simplifyAll(m.Args)
	}
	return m
}

func (o *optimizer) simplifyAll(ms []Matcher) {
	for i, m := range ms {
		ms[i] = o.simplify(m)
	}
}

// firstSets computes the prefix of every rule as a greatest fixpoint:
// every rule starts at the most conservative estimate and estimates
// only shrink from there.  Left recursion and mutual recursion settle
// because a rule's body is evaluated against the previous round's
// estimates of the rules it calls.
func (o *optimizer) firstSets(rules []*RuleDecl, maxIterations int) {
	for _, rule := range rules {
		o.prefixes[rule.Name.Text] = seedPrefix
	}
	for {
		if o.report.Iterations >= maxIterations {
			o.report.Converged = false
			o.logger.Warn("first set computation didn't converge",
				"iterations", o.report.Iterations)
			return
		}
		o.report.Iterations++
		changed := false
		for _, rule := range rules {
			p := o.prefix(rule.Body)
			if !p.equal(o.prefixes[rule.Name.Text]) {
				o.prefixes[rule.Name.Text] = p
				changed = true
			}
		}
		if !changed {
			o.logger.Debug("first sets converged", "iterations", o.report.Iterations)
			return
		}
	}
}

// mergePrefix computes the prefix of `a` followed by `b`
func mergePrefix(a, b Prefix) Prefix {
	switch {
	case a.Mode == ConsumesMust:
		return a
	case a.Mode == ConsumesNo:
		return b
	case b.Mode == ConsumesNo:
		return a
	}
	return Prefix{Ranges: UnionRanges(a.Ranges, b.Ranges), Mode: b.Mode}
}

func (o *optimizer) mergeSequence(ms []Matcher) Prefix {
	result := noPrefix
	for _, m := range ms {
		result = mergePrefix(result, o.prefix(m))
		if result.Mode == ConsumesMust {
			break
		}
	}
	return result
}

func (o *optimizer) prefix(m Matcher) Prefix {
	switch m := m.(type) {
	case *Sequence:
		return o.mergeSequence(m.Children)

	case *Choice:
		if len(m.Children) == 0 {
			return noPrefix
		}
		var (
			ranges  []Range
			allMust = true
			anyMode = false
		)
		for _, child := range m.Children {
			p := o.prefix(child)
			if p.Mode != ConsumesMust {
				allMust = false
			}
			if p.Mode != ConsumesNo {
				anyMode = true
				ranges = UnionRanges(ranges, p.Ranges)
			}
		}
		switch {
		case allMust:
			return Prefix{Ranges: ranges, Mode: ConsumesMust}
		case anyMode:
			return Prefix{Ranges: ranges, Mode: ConsumesMay}
		}
		return noPrefix

	case *Repeat:
		p := o.prefix(m.Expr)
		if p.Mode == ConsumesMust && m.Min == 0 {
			p.Mode = ConsumesMay
		}
		return p

	case *Character:
		return Prefix{Ranges: characterRanges(m.Ranges, m.Invert), Mode: ConsumesMust}

	case *MatchValue:
		if lit, ok := m.Expr.(*StringLiteral); ok {
			for _, c := range lit.Value {
				return Prefix{Ranges: []Range{{Lower: c, Upper: c}}, Mode: ConsumesMust}
			}
			return noPrefix
		}
		return mergePrefix(o.prefix(m.Expr), anyPrefix)

	case *Slice:
		return o.prefix(m.Expr)
	case *SetLocal:
		return o.prefix(m.Expr)
	case *AppendLocal:
		return o.prefix(m.Expr)
	case *Set:
		return o.prefix(m.Expr)
	case *Append:
		return o.prefix(m.Expr)

	case *Lookahead:
		return noPrefix

	case *ListLiteral:
		return o.mergeSequence(m.Args)
	case *StructLiteral:
		return o.mergeSequence(m.Args)

	case *DirectCall:
		p := o.mergeSequence(m.Args)
		if p.Mode == ConsumesMust || o.types.Kind(m.Target) != KindRule {
			return p
		}
		rule, ok := o.prefixes[m.Name]
		if !ok {
			rule = anyPrefix
		}
		return mergePrefix(p, rule)

	case *Call:
		return mergePrefix(o.mergeSequence(m.Args), anyPrefix)
	}
	return noPrefix
}

// markDisjoint flags every choice whose alternatives always consume
// and don't share any starting codepoint
func (o *optimizer) markDisjoint(m Matcher) {
	switch m := m.(type) {
	case *Choice:
		o.report.Choices++
		m.Disjoint = o.isDisjoint(m)
		if m.Disjoint {
			o.report.DisjointChoices++
		}
		for _, child := range m.Children {
			o.markDisjoint(child)
		}
	case *Sequence:
		for _, child := range m.Children {
			o.markDisjoint(child)
		}
	case *Repeat:
		o.markDisjoint(m.Expr)
	case *MatchValue:
		o.markDisjoint(m.Expr)
	case *Slice:
		o.markDisjoint(m.Expr)
	case *Lookahead:
		o.markDisjoint(m.Expr)
	case *SetLocal:
		o.markDisjoint(m.Expr)
	case *AppendLocal:
		o.markDisjoint(m.Expr)
	case *Set:
		o.markDisjoint(m.Expr)
	case *Append:
		o.markDisjoint(m.Expr)
	case *Call:
		o.markDisjoint(m.Expr)
		o.markDisjointAll(m.Args)
	case *DirectCall:
		o.markDisjointAll(m.Args)
	case *ListLiteral:
		o.markDisjointAll(m.Args)
	case *StructLiteral:
		o.markDisjointAll(m.Args)
	}
}

func (o *optimizer) markDisjointAll(ms []Matcher) {
	for _, m := range ms {
		o.markDisjoint(m)
	}
}

func (o *optimizer) isDisjoint(c *Choice) bool {
	if len(c.Children) < 2 {
		return false
	}
	prefixes := make([]Prefix, len(c.Children))
	for i, child := range c.Children {
		prefixes[i] = o.prefix(child)
		if prefixes[i].Mode != ConsumesMust {
			return false
		}
	}
	for i := range prefixes {
		for j := i + 1; j < len(prefixes); j++ {
			if RangesIntersect(prefixes[i].Ranges, prefixes[j].Ranges) {
				return false
			}
		}
	}
	return true
}
