package ritual

import (
	"fmt"
	"sort"
	"strconv"
)

// modelCtor builds one node of the grammar model out of the values
// a grammar produced
type modelCtor struct {
	params []string
	build  func(args []any) (any, error)
}

// ModelFactory builds grammar model nodes (matchers, type references
// and declarations) by name.  It serves as the NodeFactory of a
// grammar written in its own notation, and its constructors are also
// exposed as natives to the bootstrap grammar.
type ModelFactory struct {
	ctors map[string]modelCtor
}

func NewModelFactory() *ModelFactory {
	f := &ModelFactory{ctors: map[string]modelCtor{}}
	f.register()
	return f
}

// NewNode builds the model node `typeName` from its fields
func (f *ModelFactory) NewNode(typeName string, fields []any) (any, error) {
	ctor, ok := f.ctors[typeName]
	if !ok {
		return nil, fmt.Errorf("no model node named %q", typeName)
	}
	if len(fields) != len(ctor.params) {
		return nil, fmt.Errorf("%s takes %d fields, got %d", typeName, len(ctor.params), len(fields))
	}
	return ctor.build(fields)
}

// Natives exposes every constructor as a native function, sorted by
// name
func (f *ModelFactory) Natives() []*Native {
	names := make([]string, 0, len(f.ctors))
	for name := range f.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	natives := make([]*Native, 0, len(names))
	for _, name := range names {
		ctor := f.ctors[name]
		natives = append(natives, &Native{Name: name, Params: ctor.params, Func: ctor.build})
	}
	return natives
}

func (f *ModelFactory) add(name string, params []string, build func(a *args) (any, error)) {
	f.ctors[name] = modelCtor{
		params: params,
		build: func(values []any) (any, error) {
			a := &args{name: name, values: values}
			v, err := build(a)
			if err == nil {
				err = a.err
			}
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

func (f *ModelFactory) register() {
	// Tokens and type references

	f.add("Token", []string{"pos", "text"}, func(a *args) (any, error) {
		return Token{Pos: a.int(0), Text: a.string(1)}, nil
	})
	f.add("NameRef", []string{"name"}, func(a *args) (any, error) {
		return &NameRef{Name: a.token(0)}, nil
	})
	f.add("ListRef", []string{"ref"}, func(a *args) (any, error) {
		return &ListRef{Ref: a.typeRef(0)}, nil
	})

	// Matchers

	f.add("Range", []string{"lower", "upper"}, func(a *args) (any, error) {
		return NewRange(a.rune(0), a.rune(1))
	})
	f.add("Character", []string{"loc", "ranges", "invert"}, func(a *args) (any, error) {
		var ranges []Range
		for i, item := range a.list(1) {
			r, ok := item.(Range)
			if !ok {
				return nil, fmt.Errorf("Character: range %d is %T", i, item)
			}
			ranges = append(ranges, r)
		}
		return NewCharacter(a.int(0), ranges, a.bool(2))
	})
	f.add("Sequence", []string{"children"}, func(a *args) (any, error) {
		return NewSequence(a.matchers(0))
	})
	f.add("Choice", []string{"children"}, func(a *args) (any, error) {
		return NewChoice(a.matchers(0))
	})
	f.add("Repeat", []string{"expr", "min", "max"}, func(a *args) (any, error) {
		return NewRepeat(a.matcher(0), a.int(1), a.int(2))
	})
	f.add("MatchValue", []string{"loc", "expr"}, func(a *args) (any, error) {
		return &MatchValue{Loc: a.int(0), Expr: a.matcher(1)}, nil
	})
	f.add("Slice", []string{"loc", "expr"}, func(a *args) (any, error) {
		return &Slice{Loc: a.int(0), Expr: a.matcher(1)}, nil
	})
	f.add("Lookahead", []string{"loc", "expr", "invert"}, func(a *args) (any, error) {
		return &Lookahead{Loc: a.int(0), Expr: a.matcher(1), Invert: a.bool(2)}, nil
	})
	f.add("Call", []string{"loc", "expr", "args"}, func(a *args) (any, error) {
		return &Call{Loc: a.int(0), Expr: a.matcher(1), Args: a.matchers(2)}, nil
	})
	f.add("Get", []string{"name"}, func(a *args) (any, error) {
		return &Get{Name: a.token(0)}, nil
	})
	f.add("Set", []string{"expr", "name"}, func(a *args) (any, error) {
		return &Set{Expr: a.matcher(0), Name: a.token(1)}, nil
	})
	f.add("Append", []string{"expr", "name"}, func(a *args) (any, error) {
		return &Append{Expr: a.matcher(0), Name: a.token(1)}, nil
	})
	f.add("ListLiteral", []string{"loc", "type", "args"}, func(a *args) (any, error) {
		return &ListLiteral{Loc: a.int(0), Type: a.typeRef(1), Args: a.matchers(2)}, nil
	})
	f.add("StructLiteral", []string{"loc", "type", "args"}, func(a *args) (any, error) {
		return &StructLiteral{Loc: a.int(0), Type: a.typeRef(1), Args: a.matchers(2)}, nil
	})
	f.add("StringLiteral", []string{"loc", "value"}, func(a *args) (any, error) {
		return &StringLiteral{Loc: a.int(0), Value: a.string(1)}, nil
	})
	f.add("RuneLiteral", []string{"loc", "value"}, func(a *args) (any, error) {
		return &RuneLiteral{Loc: a.int(0), Value: a.rune(1)}, nil
	})
	f.add("IntLiteral", []string{"loc", "value"}, func(a *args) (any, error) {
		return &IntLiteral{Loc: a.int(0), Value: a.int(1)}, nil
	})
	f.add("BoolLiteral", []string{"loc", "value"}, func(a *args) (any, error) {
		return &BoolLiteral{Loc: a.int(0), Value: a.bool(1)}, nil
	})
	f.add("Location", []string{"loc"}, func(a *args) (any, error) {
		return &Location{Loc: a.int(0)}, nil
	})

	// Declarations

	f.add("Attribute", []string{"name"}, func(a *args) (any, error) {
		return &Attribute{Name: a.token(0)}, nil
	})
	f.add("Param", []string{"name", "type"}, func(a *args) (any, error) {
		return &Param{Name: a.token(0), Type: a.typeRef(1)}, nil
	})
	f.add("FieldDecl", []string{"name", "type"}, func(a *args) (any, error) {
		return &FieldDecl{Name: a.token(0), Type: a.typeRef(1)}, nil
	})
	f.add("StructDecl", []string{"name", "fields", "attrs"}, func(a *args) (any, error) {
		d := &StructDecl{Name: a.token(0), Attrs: a.attributes(2)}
		for i, item := range a.list(1) {
			field, ok := item.(*FieldDecl)
			if !ok {
				return nil, fmt.Errorf("StructDecl: field %d is %T", i, item)
			}
			d.Fields = append(d.Fields, field)
		}
		return d, nil
	})
	f.add("UnionDecl", []string{"name", "refs", "attrs"}, func(a *args) (any, error) {
		return &UnionDecl{Name: a.token(0), Refs: a.typeRefs(1), Attrs: a.attributes(2)}, nil
	})
	f.add("ExternDecl", []string{"name", "params", "ret", "attrs"}, func(a *args) (any, error) {
		return &ExternDecl{Name: a.token(0), Params: a.typeRefs(1), Return: a.typeRef(2), Attrs: a.attributes(3)}, nil
	})
	f.add("RuleDecl", []string{"name", "params", "ret", "body", "attrs"}, func(a *args) (any, error) {
		d := &RuleDecl{Name: a.token(0), Return: a.typeRef(2), Body: a.matcher(3), Attrs: a.attributes(4)}
		for i, item := range a.list(1) {
			param, ok := item.(*Param)
			if !ok {
				return nil, fmt.Errorf("RuleDecl: param %d is %T", i, item)
			}
			d.Params = append(d.Params, param)
		}
		return d, nil
	})
	f.add("File", []string{"decls"}, func(a *args) (any, error) {
		file := &File{}
		for i, item := range a.list(0) {
			decl, ok := item.(Decl)
			if !ok {
				return nil, fmt.Errorf("File: decl %d is %T", i, item)
			}
			file.Decls = append(file.Decls, decl)
		}
		return file, nil
	})
}

// args reads typed values out of the argument list of a constructor.
// The first conversion failure is kept in `err`, and zero values are
// returned from then on.
type args struct {
	name   string
	values []any
	err    error
}

func (a *args) fail(i int, want string) {
	if a.err == nil {
		a.err = fmt.Errorf("%s: argument %d should be %s, got %T", a.name, i, want, a.values[i])
	}
}

func (a *args) int(i int) int {
	v, ok := a.values[i].(int)
	if !ok {
		a.fail(i, "int")
	}
	return v
}

func (a *args) rune(i int) rune {
	v, ok := a.values[i].(rune)
	if !ok {
		a.fail(i, "rune")
	}
	return v
}

func (a *args) bool(i int) bool {
	v, ok := a.values[i].(bool)
	if !ok {
		a.fail(i, "bool")
	}
	return v
}

func (a *args) string(i int) string {
	v, ok := a.values[i].(string)
	if !ok {
		a.fail(i, "string")
	}
	return v
}

func (a *args) token(i int) Token {
	v, ok := a.values[i].(Token)
	if !ok {
		a.fail(i, "Token")
	}
	return v
}

func (a *args) list(i int) []any {
	v, ok := a.values[i].(*List)
	if !ok {
		a.fail(i, "list")
		return nil
	}
	return v.Items
}

func (a *args) matcher(i int) Matcher {
	v, ok := a.values[i].(Matcher)
	if !ok {
		a.fail(i, "Matcher")
	}
	return v
}

func (a *args) matchers(i int) []Matcher {
	var ms []Matcher
	for j, item := range a.list(i) {
		m, ok := item.(Matcher)
		if !ok {
			if a.err == nil {
				a.err = fmt.Errorf("%s: item %d of argument %d should be Matcher, got %T", a.name, j, i, item)
			}
			return nil
		}
		ms = append(ms, m)
	}
	return ms
}

func (a *args) typeRef(i int) TypeRef {
	v, ok := a.values[i].(TypeRef)
	if !ok {
		a.fail(i, "TypeRef")
	}
	return v
}

func (a *args) typeRefs(i int) []TypeRef {
	var refs []TypeRef
	for j, item := range a.list(i) {
		r, ok := item.(TypeRef)
		if !ok {
			if a.err == nil {
				a.err = fmt.Errorf("%s: item %d of argument %d should be TypeRef, got %T", a.name, j, i, item)
			}
			return nil
		}
		refs = append(refs, r)
	}
	return refs
}

func (a *args) attributes(i int) []*Attribute {
	var attrs []*Attribute
	for j, item := range a.list(i) {
		attr, ok := item.(*Attribute)
		if !ok {
			if a.err == nil {
				a.err = fmt.Errorf("%s: item %d of argument %d should be Attribute, got %T", a.name, j, i, item)
			}
			return nil
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

// Standard externs

// StandardExterns returns the host functions grammars written in
// their own notation rely on: `chr(int): rune`,
// `hex_to_int(string): int`, `dec_to_int(string): int` and
// `chars_to_string([]rune): string`.
func StandardExterns() map[string]NativeFunc {
	return map[string]NativeFunc{
		"chr": func(args []any) (any, error) {
			n, ok := args[0].(int)
			if !ok {
				return nil, fmt.Errorf("chr expects int, got %T", args[0])
			}
			if n < 0 || n > MaxCodepoint {
				return nil, fmt.Errorf("chr: %d is not a codepoint", n)
			}
			return rune(n), nil
		},
		"hex_to_int": parseIntExtern("hex_to_int", 16),
		"dec_to_int": parseIntExtern("dec_to_int", 10),
		"chars_to_string": func(args []any) (any, error) {
			l, ok := args[0].(*List)
			if !ok {
				return nil, fmt.Errorf("chars_to_string expects a list, got %T", args[0])
			}
			runes := make([]rune, 0, l.Len())
			for i, item := range l.Items {
				r, ok := item.(rune)
				if !ok {
					return nil, fmt.Errorf("chars_to_string: item %d is %T", i, item)
				}
				runes = append(runes, r)
			}
			return string(runes), nil
		},
	}
}

func parseIntExtern(name string, base int) NativeFunc {
	return func(args []any) (any, error) {
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s expects string, got %T", name, args[0])
		}
		n, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return int(n), nil
	}
}

var standardExternParams = map[string][]string{
	"chr":             {"value"},
	"hex_to_int":      {"text"},
	"dec_to_int":      {"text"},
	"chars_to_string": {"chars"},
}
