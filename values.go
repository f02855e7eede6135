package ritual

import (
	"fmt"
	"slices"
)

// Values produced while matching are plain Go values: `string`,
// `rune`, `int` (also used for locations), `bool`, `*List`, whatever
// the NodeFactory returns for struct literals, and Callables.  A nil
// value is void.

// List is a mutable list of values.  Lists are shared by reference:
// appending to a list through a local is visible through every other
// reference to it.
type List struct {
	Items []any
}

func NewList(items ...any) *List { return &List{Items: items} }

func (l *List) Append(v any) { l.Items = append(l.Items, v) }

func (l *List) Len() int { return len(l.Items) }

// NodeFactory builds values for struct literals, given the struct
// type name and the field values in declaration order.
type NodeFactory interface {
	NewNode(typeName string, fields []any) (any, error)
}

// NodeFactoryFunc adapts a function to the NodeFactory interface
type NodeFactoryFunc func(typeName string, fields []any) (any, error)

func (f NodeFactoryFunc) NewNode(typeName string, fields []any) (any, error) {
	return f(typeName, fields)
}

// Node is the generic struct value built when the host doesn't bring
// its own NodeFactory.
type Node struct {
	Type   string
	Fields []NodeField
}

type NodeField struct {
	Name  string
	Value any
}

// Get returns the value of the field `name`
func (n *Node) Get(name string) (any, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// schemaFactory builds *Node values checking field counts against the
// struct types declared by a grammar.
type schemaFactory struct {
	fields map[string][]string
}

func newSchemaFactory(structs []*StructDecl) *schemaFactory {
	f := &schemaFactory{fields: make(map[string][]string, len(structs))}
	for _, decl := range structs {
		names := make([]string, len(decl.Fields))
		for i, field := range decl.Fields {
			names[i] = field.Name.Text
		}
		f.fields[decl.Name.Text] = names
	}
	return f
}

func (f *schemaFactory) NewNode(typeName string, values []any) (any, error) {
	names, ok := f.fields[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown struct type %q", typeName)
	}
	if len(names) != len(values) {
		return nil, fmt.Errorf("struct %s has %d fields, got %d values", typeName, len(names), len(values))
	}
	node := &Node{Type: typeName, Fields: make([]NodeField, len(names))}
	for i, name := range names {
		node.Fields[i] = NodeField{Name: name, Value: values[i]}
	}
	return node, nil
}

// Callable is a value that can be invoked with arguments: rules of
// the grammar and natives supplied by the host.
type Callable interface {
	CallableName() string
	call(p *Parser, args []any) any
}

// Rule is a named matcher with parameters bound as locals on entry.
type Rule struct {
	Name   string
	Params []string
	Body   Matcher
}

func (r *Rule) CallableName() string { return r.Name }

func (r *Rule) call(p *Parser, args []any) any {
	if len(args) != len(r.Params) {
		p.internalError(nil, "rule %s takes %d arguments, got %d", r.Name, len(r.Params), len(args))
	}
	scope := make(map[string]any, len(r.Params))
	for i, name := range r.Params {
		scope[name] = args[i]
	}
	p.push(r.Name, scope)
	start := p.pos
	if p.trace {
		p.logger.Debug("enter", "rule", r.Name, "pos", start)
	}
	result := p.eval(r.Body)
	if p.trace {
		p.logger.Debug("leave", "rule", r.Name, "pos", p.pos, "ok", p.ok)
	}
	p.pop()
	return result
}

// NativeFunc is a host function invoked with already evaluated
// arguments.  Returning an error aborts the parse.
type NativeFunc func(args []any) (any, error)

// Native is a host function exposed to a grammar
type Native struct {
	Name   string
	Params []string
	Func   NativeFunc
}

func (n *Native) CallableName() string { return n.Name }

func (n *Native) call(p *Parser, args []any) (result any) {
	if len(args) != len(n.Params) {
		p.internalError(nil, "native %s takes %d arguments, got %d", n.Name, len(n.Params), len(args))
	}
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*InternalError); ok {
				panic(ie)
			}
			p.internalError(fmt.Errorf("%v", r), "native %s panicked", n.Name)
		}
	}()
	result, err := n.Func(slices.Clone(args))
	if err != nil {
		p.internalError(err, "native %s failed", n.Name)
	}
	return result
}
