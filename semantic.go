package ritual

import (
	"sort"
	"strconv"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Known declaration attributes
const (
	// AttrExport marks a declaration as used from outside the
	// grammar
	AttrExport = "export"
)

var knownAttributes = map[string]struct{}{AttrExport: {}}

// Resolve runs the semantic passes over a parsed file: declarations
// are indexed, signatures and struct fields are typed, rule bodies
// are type checked and rewritten with resolved nodes, and finally
// unused names are reported.  Diagnostics go to `status` and the
// first phase that reports any halts the process with a *HaltError.
func Resolve(f *File, types *Types, status *Status, opts ...Option) error {
	o := buildOptions(opts)
	r := &resolver{
		status:      status,
		types:       types,
		globals:     map[string]TypeID{},
		globalRefs:  map[string]struct{}{},
		checkUnused: o.config.GetBool("semantic.check_unused"),
	}
	for _, phase := range []func(*File){
		r.indexGlobals,
		r.checkSignatures,
		r.checkRules,
		r.checkUsed,
	} {
		phase(f)
		if err := status.HaltIfErrors(); err != nil {
			return err
		}
	}
	return nil
}

type resolver struct {
	status *Status
	types  *Types

	globals     map[string]TypeID
	globalOrder []Decl
	globalRefs  map[string]struct{}

	// per rule state
	rule      TypeID
	locals    map[string]*Local
	localRefs map[*Local]struct{}

	checkUnused bool
}

// Phase 1: index every global name

func (r *resolver) indexGlobals(f *File) {
	for _, decl := range f.Decls {
		name := decl.DeclName()
		for _, attr := range decl.Attributes() {
			if _, ok := knownAttributes[attr.Name.Text]; !ok {
				r.status.Errorf(attr.Name.Pos, "Unknown attribute %q", attr.Name.Text)
			}
		}
		if _, ok := r.types.Intrinsic(name.Text); ok {
			r.status.Errorf(name.Pos, "%q is a builtin type and can't be redefined", name.Text)
			continue
		}
		if _, ok := r.globals[name.Text]; ok {
			r.status.Errorf(name.Pos, "Tried to redefine %q", name.Text)
			continue
		}
		var id TypeID
		switch decl.(type) {
		case *StructDecl:
			id = r.types.NewStruct(name.Text)
		case *UnionDecl:
			id = r.types.NewUnion(name.Text)
		case *ExternDecl:
			id = r.types.NewExtern(name.Text)
		case *RuleDecl:
			id = r.types.NewRule(name.Text)
		}
		r.globals[name.Text] = id
		r.globalOrder = append(r.globalOrder, decl)
		if HasAttribute(decl, AttrExport) {
			r.globalRefs[name.Text] = struct{}{}
		}
	}
}

// Phase 2: type struct fields, union members and signatures

func (r *resolver) checkSignatures(f *File) {
	for _, decl := range r.globalOrder {
		id := r.globals[decl.DeclName().Text]
		switch decl := decl.(type) {
		case *StructDecl:
			seen := map[string]struct{}{}
			for _, field := range decl.Fields {
				if _, ok := seen[field.Name.Text]; ok {
					r.status.Errorf(field.Name.Pos, "Duplicate field %q in struct %s", field.Name.Text, decl.Name.Text)
				}
				seen[field.Name.Text] = struct{}{}
				ft := r.resolveTypeRef(&field.Type)
				r.types.AddField(id, field.Name.Text, ft)
			}
		case *UnionDecl:
			seen := map[TypeID]struct{}{}
			for i := range decl.Refs {
				loc := typeRefLoc(decl.Refs[i])
				mt := r.resolveTypeRef(&decl.Refs[i])
				if r.types.IsPoison(mt) {
					continue
				}
				if k := r.types.Kind(mt); k != KindStruct && k != KindUnion {
					r.status.Errorf(loc, "Union %s can only hold structs and unions, not %s", decl.Name.Text, r.types.Name(mt))
					continue
				}
				if mt == id {
					r.status.Errorf(loc, "Union %s can't contain itself", decl.Name.Text)
					continue
				}
				if _, ok := seen[mt]; ok {
					r.status.Errorf(loc, "Duplicate member %s in union %s", r.types.Name(mt), decl.Name.Text)
					continue
				}
				seen[mt] = struct{}{}
				r.types.AddMember(id, mt)
			}
		case *ExternDecl:
			params := make([]TypeID, len(decl.Params))
			for i := range decl.Params {
				params[i] = r.resolveTypeRef(&decl.Params[i])
			}
			r.types.SetSignature(id, params, r.resolveTypeRef(&decl.Return))
		case *RuleDecl:
			params := make([]TypeID, len(decl.Params))
			for i, param := range decl.Params {
				params[i] = r.resolveTypeRef(&param.Type)
			}
			r.types.SetSignature(id, params, r.resolveTypeRef(&decl.Return))
		}
	}
}

// resolveTypeRef replaces the reference with a DirectRef and returns
// the type it points to, or poison if it can't be resolved.
func (r *resolver) resolveTypeRef(ref *TypeRef) TypeID {
	switch tr := (*ref).(type) {
	case *DirectRef:
		return tr.Type
	case *ListRef:
		elem := r.resolveTypeRef(&tr.Ref)
		if r.types.IsPoison(elem) {
			return elem
		}
		if !r.isValue(elem) {
			r.status.Errorf(typeRefLoc(tr), "Can't make a list of %s", r.types.Name(elem))
			return r.types.Poison
		}
		id := r.types.ListOf(elem)
		*ref = &DirectRef{Loc: typeRefLoc(tr), Name: r.types.Name(id), Type: id}
		return id
	case *NameRef:
		name := tr.Name.Text
		id, ok := r.types.Intrinsic(name)
		if !ok {
			if name == "void" {
				id, ok = r.types.Void, true
			} else {
				id, ok = r.globals[name]
				if ok {
					r.globalRefs[name] = struct{}{}
				}
			}
		}
		if !ok {
			r.status.Errorf(tr.Name.Pos, "Cannot resolve type %q%s", name, r.suggest(name))
			return r.types.Poison
		}
		if r.types.IsCallable(id) {
			r.status.Errorf(tr.Name.Pos, "%q is not a type", name)
			return r.types.Poison
		}
		*ref = &DirectRef{Loc: tr.Name.Pos, Name: name, Type: id}
		return id
	}
	return r.types.Poison
}

// isValue tells if values of the type can be stored in locals,
// fields and lists
func (r *resolver) isValue(id TypeID) bool {
	switch r.types.Kind(id) {
	case KindVoid, KindRule, KindExtern:
		return false
	}
	return true
}

// Phase 3: type check and rewrite rule bodies

func (r *resolver) checkRules(f *File) {
	for _, decl := range r.globalOrder {
		rule, ok := decl.(*RuleDecl)
		if !ok {
			continue
		}
		r.checkRule(rule)
	}
}

func (r *resolver) checkRule(rule *RuleDecl) {
	r.rule = r.globals[rule.Name.Text]
	r.locals = map[string]*Local{}
	r.localRefs = map[*Local]struct{}{}

	params, expected, _ := r.types.Signature(r.rule)
	for i, param := range rule.Params {
		if _, ok := r.locals[param.Name.Text]; ok {
			r.status.Errorf(param.Name.Pos, "Duplicate parameter %q", param.Name.Text)
			continue
		}
		if !r.isValue(params[i]) {
			r.status.Errorf(param.Name.Pos, "Parameter %q can't be of type %s", param.Name.Text, r.types.Name(params[i]))
		}
		r.defineLocal(param.Name, params[i])
	}

	body, actual := r.check(rule.Body, expected != r.types.Void)
	rule.Body = body
	if expected != r.types.Void && !r.types.CanHold(expected, actual) {
		r.status.Errorf(rule.Name.Pos, "Expected return type of %s, got %s instead.",
			r.types.Name(expected), r.types.Name(actual))
	}

	if r.checkUnused {
		for _, l := range r.types.Locals(r.rule) {
			if _, ok := r.localRefs[l]; !ok && !r.types.IsPoison(l.Type) {
				r.status.Errorf(l.Loc, "Unused local %q", l.Name)
			}
		}
	}
}

func (r *resolver) defineLocal(name Token, t TypeID) *Local {
	l := &Local{Loc: name.Pos, Name: name.Text, Type: t}
	r.locals[name.Text] = l
	r.types.AddLocal(r.rule, l)
	return l
}

// setLocal finds or creates the local `name` able to hold `t`.  An
// existing local widens to `t` when `t` can hold its current type.
func (r *resolver) setLocal(name Token, t TypeID) *Local {
	l, ok := r.locals[name.Text]
	if !ok {
		return r.defineLocal(name, t)
	}
	switch {
	case r.types.CanHold(l.Type, t):
	case r.types.CanHold(t, l.Type):
		l.Type = t
	default:
		r.status.Errorf(name.Pos, "Attempted to redefine %q (%s vs. %s)",
			name.Text, r.types.Name(l.Type), r.types.Name(t))
		l.Type = r.types.Poison
	}
	return l
}

func (r *resolver) checkArgs(args []Matcher) []TypeID {
	types := make([]TypeID, len(args))
	for i, arg := range args {
		args[i], types[i] = r.check(arg, true)
		if types[i] == r.types.Void {
			r.status.Errorf(matcherLoc(args[i]), "Argument %d has no value", i+1)
			types[i] = r.types.Poison
		}
	}
	return types
}

// check type checks `m` and returns its replacement, with calls,
// names and type references resolved, along with its type.  `used`
// tells if something consumes the value produced by `m`.
func (r *resolver) check(m Matcher, used bool) (Matcher, TypeID) {
	switch m := m.(type) {
	case *Sequence:
		if len(m.Children) == 0 {
			return m, r.types.Void
		}
		if len(m.Children) == 1 {
			return r.check(m.Children[0], used)
		}
		t := r.types.Void
		last := len(m.Children) - 1
		for i, child := range m.Children {
			m.Children[i], t = r.check(child, used && i == last)
		}
		return m, t

	case *Choice:
		if len(m.Children) == 0 {
			return m, r.types.Void
		}
		if len(m.Children) == 1 {
			return r.check(m.Children[0], used)
		}
		types := make([]TypeID, len(m.Children))
		for i, child := range m.Children {
			m.Children[i], types[i] = r.check(child, used)
		}
		guess := types[0]
		for _, t := range types[1:] {
			unified, ok := r.types.Unify(guess, t)
			if !ok {
				if !used {
					return m, r.types.Void
				}
				names := make([]string, len(types))
				for i, t := range types {
					names[i] = r.types.Name(t)
				}
				r.status.Errorf(matcherLoc(m), "Cannot unify types %v", names)
				return m, r.types.Poison
			}
			guess = unified
		}
		return m, guess

	case *Repeat:
		expr, t := r.check(m.Expr, used)
		m.Expr = expr
		if m.Min == 0 {
			return m, r.types.Void
		}
		return m, t

	case *Character:
		return m, r.types.Rune

	case *MatchValue:
		expr, t := r.check(m.Expr, true)
		m.Expr = expr
		if !r.types.CanHold(r.types.String, t) {
			r.status.Errorf(m.Loc, "Cannot match a value of type %s", r.types.Name(t))
		}
		return m, r.types.String

	case *Slice:
		expr, _ := r.check(m.Expr, false)
		m.Expr = expr
		if !used {
			r.status.Errorf(m.Loc, "Unused slice.")
		}
		return m, r.types.String

	case *Lookahead:
		expr, t := r.check(m.Expr, used && !m.Invert)
		m.Expr = expr
		if m.Invert {
			return m, r.types.Void
		}
		return m, t

	case *Call:
		_, t := r.check(m.Expr, true)
		argTypes := r.checkArgs(m.Args)
		if r.types.IsPoison(t) {
			return m, t
		}
		if !r.types.IsCallable(t) {
			r.status.Errorf(m.Loc, "Cannot call %s", r.types.Name(t))
			return m, r.types.Poison
		}
		return r.checkCall(&DirectCall{
			Loc:    m.Loc,
			Name:   r.types.BaseName(t),
			Target: t,
			Args:   m.Args,
		}, argTypes)

	case *DirectCall:
		return r.checkCall(m, r.checkArgs(m.Args))

	case *Get:
		name := m.Name.Text
		if !used {
			r.status.Errorf(m.Name.Pos, "Unused get.")
		}
		if l, ok := r.locals[name]; ok {
			r.localRefs[l] = struct{}{}
			return &GetLocal{Loc: m.Name.Pos, Local: l}, l.Type
		}
		if t, ok := r.globals[name]; ok {
			r.globalRefs[name] = struct{}{}
			return m, t
		}
		r.status.Errorf(m.Name.Pos, "Cannot resolve %q%s", name, r.suggest(name))
		return m, r.types.Poison

	case *GetLocal:
		r.localRefs[m.Local] = struct{}{}
		return m, m.Local.Type

	case *Set:
		expr, t := r.check(m.Expr, true)
		t = r.assignable(m.Name, t)
		return &SetLocal{Expr: expr, Local: r.setLocal(m.Name, t)}, t

	case *SetLocal:
		expr, t := r.check(m.Expr, true)
		m.Expr = expr
		return m, t

	case *Append:
		expr, t := r.check(m.Expr, true)
		l, ok := r.locals[m.Name.Text]
		if !ok {
			if _, global := r.globals[m.Name.Text]; global {
				r.status.Errorf(m.Name.Pos, "%q is not a local", m.Name.Text)
			} else {
				r.status.Errorf(m.Name.Pos, "Cannot resolve %q%s", m.Name.Text, r.suggest(m.Name.Text))
			}
			return &Append{Expr: expr, Name: m.Name}, r.types.Poison
		}
		r.localRefs[l] = struct{}{}
		r.checkAppend(m.Name.Pos, l, t)
		return &AppendLocal{Expr: expr, Local: l}, t

	case *AppendLocal:
		expr, t := r.check(m.Expr, true)
		m.Expr = expr
		r.localRefs[m.Local] = struct{}{}
		r.checkAppend(matcherLoc(m), m.Local, t)
		return m, t

	case *ListLiteral:
		if !used {
			r.status.Errorf(m.Loc, "Unused literal.")
		}
		t := r.resolveTypeRef(&m.Type)
		argTypes := r.checkArgs(m.Args)
		if r.types.IsPoison(t) {
			return m, t
		}
		if !r.isValue(t) {
			r.status.Errorf(m.Loc, "Can't make a list of %s", r.types.Name(t))
			return m, r.types.Poison
		}
		for i, at := range argTypes {
			if !r.types.CanHold(t, at) {
				r.status.Errorf(matcherLoc(m.Args[i]), "Can't put %s in a list of %s", r.types.Name(at), r.types.Name(t))
			}
		}
		return m, r.types.ListOf(t)

	case *StructLiteral:
		if !used {
			r.status.Errorf(m.Loc, "Unused literal.")
		}
		t := r.resolveTypeRef(&m.Type)
		argTypes := r.checkArgs(m.Args)
		if r.types.IsPoison(t) {
			return m, t
		}
		if r.types.Kind(t) != KindStruct {
			r.status.Errorf(m.Loc, "%s is not a struct", r.types.Name(t))
			return m, r.types.Poison
		}
		fields := r.types.Fields(t)
		if len(fields) != len(argTypes) {
			r.status.Errorf(m.Loc, "Struct %s has %d fields, got %d arguments", r.types.Name(t), len(fields), len(argTypes))
			return m, t
		}
		for i, field := range fields {
			if !r.types.CanHold(field.Type, argTypes[i]) {
				r.status.Errorf(matcherLoc(m.Args[i]), "Field %s of %s expects %s, got %s",
					field.Name, r.types.Name(t), r.types.Name(field.Type), r.types.Name(argTypes[i]))
			}
		}
		return m, t

	case *StringLiteral:
		r.unusedLiteral(m.Loc, used)
		return m, r.types.String
	case *RuneLiteral:
		r.unusedLiteral(m.Loc, used)
		return m, r.types.Rune
	case *IntLiteral:
		r.unusedLiteral(m.Loc, used)
		return m, r.types.Int
	case *BoolLiteral:
		r.unusedLiteral(m.Loc, used)
		return m, r.types.Bool
	case *Location:
		if !used {
			r.status.Errorf(m.Loc, "Unused location.")
		}
		return m, r.types.Loc
	}
	r.status.Errorf(matcherLoc(m), "Unknown matcher %T", m)
	return m, r.types.Poison
}

func (r *resolver) checkCall(call *DirectCall, argTypes []TypeID) (Matcher, TypeID) {
	params, ret, _ := r.types.Signature(call.Target)
	if len(params) != len(argTypes) {
		r.status.Errorf(call.Loc, "%s takes %d arguments, got %d", call.Name, len(params), len(argTypes))
		return call, ret
	}
	for i, param := range params {
		if !r.types.CanHold(param, argTypes[i]) {
			r.status.Errorf(matcherLoc(call.Args[i]), "Argument %d of %s expects %s, got %s",
				i+1, call.Name, r.types.Name(param), r.types.Name(argTypes[i]))
		}
	}
	return call, ret
}

// assignable returns the type a local takes when assigned a value of
// type `t`.  Values that can't be stored poison the local instead.
func (r *resolver) assignable(name Token, t TypeID) TypeID {
	switch {
	case t == r.types.Void:
		r.status.Errorf(name.Pos, "Cannot assign void to %q", name.Text)
		return r.types.Poison
	case r.types.IsCallable(t):
		r.status.Errorf(name.Pos, "Cannot assign callable %s to %q", r.types.Name(t), name.Text)
		return r.types.Poison
	}
	return t
}

func (r *resolver) checkAppend(loc int, l *Local, t TypeID) {
	if r.types.IsPoison(l.Type) || r.types.IsPoison(t) {
		return
	}
	elem := r.types.Elem(l.Type)
	if elem == NoType {
		r.status.Errorf(loc, "Cannot append to %q of type %s", l.Name, r.types.Name(l.Type))
		return
	}
	if !r.types.CanHold(elem, t) {
		r.status.Errorf(loc, "Cannot append %s to %q of type %s", r.types.Name(t), l.Name, r.types.Name(l.Type))
	}
}

func (r *resolver) unusedLiteral(loc int, used bool) {
	if !used {
		r.status.Errorf(loc, "Unused literal.")
	}
}

// Phase 4: report globals nothing refers to

func (r *resolver) checkUsed(f *File) {
	if !r.checkUnused {
		return
	}
	for _, decl := range r.globalOrder {
		name := decl.DeclName()
		if _, ok := r.globalRefs[name.Text]; !ok {
			r.status.Errorf(name.Pos, "Unused global %q", name.Text)
		}
	}
}

// suggest returns a "did you mean" hint with the closest known names
func (r *resolver) suggest(name string) string {
	type candidate struct {
		name  string
		score float64
	}
	var (
		metric     = metrics.NewLevenshtein()
		candidates []candidate
	)
	consider := func(known string) {
		if score := strutil.Similarity(name, known, metric); score >= 0.5 {
			candidates = append(candidates, candidate{known, score})
		}
	}
	for known := range r.locals {
		consider(known)
	}
	for known := range r.globals {
		consider(known)
	}
	for known := range r.types.intrinsics {
		consider(known)
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})
	return ", did you mean " + strconv.Quote(candidates[0].name) + "?"
}

// matcherLoc returns the best source location available for `m`
func matcherLoc(m Matcher) int {
	switch m := m.(type) {
	case *Sequence:
		for _, child := range m.Children {
			if loc := matcherLoc(child); loc != NoLoc {
				return loc
			}
		}
	case *Choice:
		for _, child := range m.Children {
			if loc := matcherLoc(child); loc != NoLoc {
				return loc
			}
		}
	case *Repeat:
		return matcherLoc(m.Expr)
	case *Character:
		return m.Loc
	case *MatchValue:
		return m.Loc
	case *Slice:
		return m.Loc
	case *Lookahead:
		return m.Loc
	case *Call:
		return m.Loc
	case *DirectCall:
		return m.Loc
	case *Get:
		return m.Name.Pos
	case *GetLocal:
		return m.Loc
	case *Set:
		return m.Name.Pos
	case *SetLocal:
		return m.Local.Loc
	case *Append:
		return m.Name.Pos
	case *AppendLocal:
		return m.Local.Loc
	case *ListLiteral:
		return m.Loc
	case *StructLiteral:
		return m.Loc
	case *StringLiteral:
		return m.Loc
	case *RuneLiteral:
		return m.Loc
	case *IntLiteral:
		return m.Loc
	case *BoolLiteral:
		return m.Loc
	case *Location:
		return m.Loc
	}
	return NoLoc
}

func typeRefLoc(ref TypeRef) int {
	switch ref := ref.(type) {
	case *NameRef:
		return ref.Name.Pos
	case *ListRef:
		return typeRefLoc(ref.Ref)
	case *DirectRef:
		return ref.Loc
	}
	return NoLoc
}
