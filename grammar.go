package ritual

import (
	"fmt"
	"slices"
	"strings"
)

// Grammar is a compiled grammar file: resolved declarations, the
// type arena they refer to, and what the optimizer found.
type Grammar struct {
	File   *File
	Types  *Types
	Report *OptimizationReport

	rules   []*RuleDecl
	externs []*ExternDecl
	structs []*StructDecl
	unions  []*UnionDecl
	opts    []Option
}

func newGrammar(f *File, types *Types, report *OptimizationReport, opts []Option) *Grammar {
	g := &Grammar{File: f, Types: types, Report: report, opts: opts}
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *RuleDecl:
			g.rules = append(g.rules, d)
		case *ExternDecl:
			g.externs = append(g.externs, d)
		case *StructDecl:
			g.structs = append(g.structs, d)
		case *UnionDecl:
			g.unions = append(g.unions, d)
		}
	}
	return g
}

// Rules lists the rules of the grammar in declaration order
func (g *Grammar) Rules() []*RuleDecl { return g.rules }

// Externs lists the host functions the grammar expects
func (g *Grammar) Externs() []*ExternDecl { return g.externs }

// DefaultRule is the first exported rule, or the first rule when
// nothing is exported.  It's empty for a grammar without rules.
func (g *Grammar) DefaultRule() string {
	for _, rule := range g.rules {
		if HasAttribute(rule, AttrExport) {
			return rule.Name.Text
		}
	}
	if len(g.rules) > 0 {
		return g.rules[0].Name.Text
	}
	return ""
}

// NewParser builds a parser running the rules of the grammar.  Every
// extern the grammar declares must be found in `externs`, functions
// the grammar doesn't declare are ignored.  Struct literals build
// *Node values with named fields unless a NodeFactory is given.
func (g *Grammar) NewParser(externs map[string]NativeFunc, opts ...Option) (*Parser, error) {
	all := []Option{WithNodeFactory(newSchemaFactory(g.structs))}
	all = append(all, g.opts...)
	all = append(all, opts...)
	p := NewParser(all...)
	for _, decl := range g.externs {
		fn, ok := externs[decl.Name.Text]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingExtern, decl.Name.Text)
		}
		params := make([]string, len(decl.Params))
		for i, ref := range decl.Params {
			params[i] = typeRefString(ref)
		}
		if err := p.AddNative(&Native{Name: decl.Name.Text, Params: params, Func: fn}); err != nil {
			return nil, err
		}
	}
	for _, decl := range g.rules {
		params := make([]string, len(decl.Params))
		for i, param := range decl.Params {
			params[i] = param.Name.Text
		}
		if err := p.AddRule(&Rule{Name: decl.Name.Text, Params: params, Body: decl.Body}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Summary is a serializable description of a compiled grammar
type Summary struct {
	Rules     []RuleSummary    `yaml:"rules"`
	Externs   []string         `yaml:"externs,omitempty"`
	Structs   []string         `yaml:"structs,omitempty"`
	Unions    []string         `yaml:"unions,omitempty"`
	Optimizer OptimizerSummary `yaml:"optimizer"`
}

type RuleSummary struct {
	Name      string `yaml:"name"`
	Signature string `yaml:"signature"`
	Exported  bool   `yaml:"exported,omitempty"`
	Consumes  string `yaml:"consumes,omitempty"`
	FirstSet  string `yaml:"first_set,omitempty"`
	Body      string `yaml:"body"`
}

type OptimizerSummary struct {
	Iterations      int  `yaml:"iterations"`
	Converged       bool `yaml:"converged"`
	Choices         int  `yaml:"choices"`
	DisjointChoices int  `yaml:"disjoint_choices"`
}

// Summary describes the grammar: its declarations with their
// resolved signatures and the first set of every rule.
func (g *Grammar) Summary() *Summary {
	s := &Summary{
		Optimizer: OptimizerSummary{
			Iterations:      g.Report.Iterations,
			Converged:       g.Report.Converged,
			Choices:         g.Report.Choices,
			DisjointChoices: g.Report.DisjointChoices,
		},
	}
	for _, rule := range g.rules {
		rs := RuleSummary{
			Name:      rule.Name.Text,
			Signature: ruleSignature(rule),
			Exported:  HasAttribute(rule, AttrExport),
			Body:      rule.Body.String(),
		}
		if prefix, ok := g.Report.Prefixes[rule.Name.Text]; ok {
			rs.Consumes = prefix.Mode.String()
			if prefix.Mode != ConsumesNo {
				rs.FirstSet = prefixString(prefix)
			}
		}
		s.Rules = append(s.Rules, rs)
	}
	for _, decl := range g.externs {
		params := make([]string, len(decl.Params))
		for i, ref := range decl.Params {
			params[i] = typeRefString(ref)
		}
		s.Externs = append(s.Externs, fmt.Sprintf("func %s(%s): %s",
			decl.Name.Text, strings.Join(params, ", "), typeRefString(decl.Return)))
	}
	for _, decl := range g.structs {
		fields := make([]string, len(decl.Fields))
		for i, field := range decl.Fields {
			fields[i] = field.Name.Text + ": " + typeRefString(field.Type)
		}
		s.Structs = append(s.Structs, fmt.Sprintf("struct %s {%s}", decl.Name.Text, strings.Join(fields, ", ")))
	}
	for _, decl := range g.unions {
		refs := make([]string, len(decl.Refs))
		for i, ref := range decl.Refs {
			refs[i] = typeRefString(ref)
		}
		s.Unions = append(s.Unions, fmt.Sprintf("union %s = %s", decl.Name.Text, strings.Join(refs, " | ")))
	}
	return s
}

func ruleSignature(rule *RuleDecl) string {
	params := make([]string, len(rule.Params))
	for i, param := range rule.Params {
		params[i] = param.Name.Text + ": " + typeRefString(param.Type)
	}
	sig := fmt.Sprintf("func %s(%s)", rule.Name.Text, strings.Join(params, ", "))
	if rule.Return != nil {
		sig += ": " + typeRefString(rule.Return)
	}
	return sig
}

// prefixString renders a first set as a character class
func prefixString(p Prefix) string {
	if slices.Equal(p.Ranges, FullRanges) {
		return "any"
	}
	ranges, invert := classRanges(p.Ranges)
	return (&Character{Ranges: ranges, Invert: invert}).String()
}
