package ritual

import (
	"slices"
	"strings"
)

// TypeID is a handle into a Types arena.  Handles are only
// meaningful for the arena that issued them.
type TypeID int32

// NoType is the invalid handle, returned when a lookup finds nothing.
const NoType TypeID = -1

type TypeKind uint8

const (
	KindVoid TypeKind = iota
	KindPoison
	KindIntrinsic
	KindStruct
	KindUnion
	KindList
	KindRule
	KindExtern
)

func (k TypeKind) String() string {
	return map[TypeKind]string{
		KindVoid:      "void",
		KindPoison:    "poison",
		KindIntrinsic: "intrinsic",
		KindStruct:    "struct",
		KindUnion:     "union",
		KindList:      "list",
		KindRule:      "rule",
		KindExtern:    "extern",
	}[k]
}

// Field is a named, typed slot of a struct type.
type Field struct {
	Name string
	Type TypeID
}

type typeEntry struct {
	kind TypeKind
	name string

	// struct fields
	fields []Field
	// union members
	members []TypeID
	// unions a struct or union belongs to
	unions []TypeID
	// list element
	elem TypeID
	// cached list of this type
	listOf TypeID
	// rule and extern signature
	params []TypeID
	ret    TypeID
	hasSig bool
	locals []*Local
}

// Types owns every type created while compiling a grammar.  Types
// reference each other through TypeID handles so the graph (union
// membership in particular) can be cyclic without pointer cycles.
type Types struct {
	entries []typeEntry

	Void   TypeID
	Poison TypeID
	String TypeID
	Rune   TypeID
	Bool   TypeID
	Int    TypeID
	Loc    TypeID

	intrinsics map[string]TypeID
}

// NewTypes creates an arena primed with void, poison and the
// intrinsics `string`, `rune`, `bool`, `int` and `location`.
func NewTypes() *Types {
	t := &Types{intrinsics: map[string]TypeID{}}
	t.Void = t.add(typeEntry{kind: KindVoid, name: "void"})
	t.Poison = t.add(typeEntry{kind: KindPoison, name: "<poison>"})
	t.String = t.intrinsic("string")
	t.Rune = t.intrinsic("rune")
	t.Bool = t.intrinsic("bool")
	t.Int = t.intrinsic("int")
	t.Loc = t.intrinsic("location")
	return t
}

func (t *Types) add(e typeEntry) TypeID {
	e.listOf = NoType
	if e.elem == 0 && e.kind != KindList {
		e.elem = NoType
	}
	t.entries = append(t.entries, e)
	return TypeID(len(t.entries) - 1)
}

func (t *Types) intrinsic(name string) TypeID {
	id := t.add(typeEntry{kind: KindIntrinsic, name: name})
	t.intrinsics[name] = id
	return id
}

func (t *Types) entry(id TypeID) *typeEntry { return &t.entries[id] }

// Intrinsic looks up one of the built-in types by name.
func (t *Types) Intrinsic(name string) (TypeID, bool) {
	id, ok := t.intrinsics[name]
	return id, ok
}

func (t *Types) NewStruct(name string) TypeID {
	return t.add(typeEntry{kind: KindStruct, name: name})
}

func (t *Types) NewUnion(name string) TypeID {
	return t.add(typeEntry{kind: KindUnion, name: name})
}

func (t *Types) NewRule(name string) TypeID {
	return t.add(typeEntry{kind: KindRule, name: name})
}

func (t *Types) NewExtern(name string) TypeID {
	return t.add(typeEntry{kind: KindExtern, name: name})
}

func (t *Types) Kind(id TypeID) TypeKind { return t.entry(id).kind }

// IsCallable tells if values of the type can be invoked.
func (t *Types) IsCallable(id TypeID) bool {
	k := t.Kind(id)
	return k == KindRule || k == KindExtern
}

// IsPoison tells if the type stands for an already reported error.
func (t *Types) IsPoison(id TypeID) bool { return t.Kind(id) == KindPoison }

// Name renders the type the way it would be written in a grammar.
func (t *Types) Name(id TypeID) string {
	e := t.entry(id)
	switch e.kind {
	case KindList:
		return "[]" + t.Name(e.elem)
	case KindRule, KindExtern:
		var s strings.Builder
		s.WriteString("func ")
		s.WriteString(e.name)
		s.WriteString("(")
		for i, p := range e.params {
			if i > 0 {
				s.WriteString(", ")
			}
			s.WriteString(t.Name(p))
		}
		s.WriteString(")")
		if e.hasSig {
			s.WriteString(" ")
			s.WriteString(t.Name(e.ret))
		}
		return s.String()
	}
	return e.name
}

// BaseName is the declared name of the type, without signature.
func (t *Types) BaseName(id TypeID) string { return t.entry(id).name }

// Struct fields

func (t *Types) AddField(id TypeID, name string, ft TypeID) {
	e := t.entry(id)
	e.fields = append(e.fields, Field{Name: name, Type: ft})
}

func (t *Types) Fields(id TypeID) []Field { return t.entry(id).fields }

// Union members

// AddMember places `member` inside the union `id` and records the
// reverse membership on the member.
func (t *Types) AddMember(id, member TypeID) {
	t.entry(id).members = append(t.entry(id).members, member)
	m := t.entry(member)
	m.unions = append(m.unions, id)
}

func (t *Types) Members(id TypeID) []TypeID { return t.entry(id).members }

// Unions lists the unions `id` was declared a member of.
func (t *Types) Unions(id TypeID) []TypeID { return t.entry(id).unions }

// Lists

// ListOf returns the list type of `elem`, creating it on first use.
// A given element type always yields the same handle.
func (t *Types) ListOf(elem TypeID) TypeID {
	if cached := t.entry(elem).listOf; cached != NoType {
		return cached
	}
	id := t.add(typeEntry{kind: KindList, elem: elem})
	t.entry(elem).listOf = id
	return id
}

// Elem returns the element type of a list, NoType for anything else
func (t *Types) Elem(id TypeID) TypeID {
	e := t.entry(id)
	if e.kind != KindList {
		return NoType
	}
	return e.elem
}

// Signatures

func (t *Types) SetSignature(id TypeID, params []TypeID, ret TypeID) {
	e := t.entry(id)
	e.params = params
	e.ret = ret
	e.hasSig = true
}

// Signature returns the parameters and the return type of a callable
// type.  `ok` is false until SetSignature was called.
func (t *Types) Signature(id TypeID) (params []TypeID, ret TypeID, ok bool) {
	e := t.entry(id)
	return e.params, e.ret, e.hasSig
}

// Rule locals

func (t *Types) AddLocal(rule TypeID, l *Local) {
	e := t.entry(rule)
	e.locals = append(e.locals, l)
}

// Locals lists every local of a rule in definition order, parameters
// first.
func (t *Types) Locals(rule TypeID) []*Local { return t.entry(rule).locals }

// CanHold tells if a slot of type `general` can hold a value of type
// `specific`: either they're the same type or `specific` is reachable
// from `general` through union membership.  Poison fits anywhere so
// a single error doesn't cascade.
func (t *Types) CanHold(general, specific TypeID) bool {
	if general == specific || t.IsPoison(general) || t.IsPoison(specific) {
		return true
	}
	return t.canHold(general, specific, map[TypeID]struct{}{})
}

func (t *Types) canHold(general, specific TypeID, seen map[TypeID]struct{}) bool {
	if general == specific {
		return true
	}
	if _, ok := seen[specific]; ok {
		return false
	}
	seen[specific] = struct{}{}
	for _, u := range t.entry(specific).unions {
		if t.canHold(general, u, seen) {
			return true
		}
	}
	return false
}

// Unify returns the most specific type able to hold every value of
// `a` and `b`: one of them if it can hold the other, or else the
// union two structs have in common.  Structs sharing no union, or
// more than one, don't unify.
func (t *Types) Unify(a, b TypeID) (TypeID, bool) {
	switch {
	case t.CanHold(a, b):
		return a, true
	case t.CanHold(b, a):
		return b, true
	case t.Kind(a) != KindStruct || t.Kind(b) != KindStruct:
		return NoType, false
	}
	common := NoType
	for _, u := range t.entry(a).unions {
		if !slices.Contains(t.entry(b).unions, u) {
			continue
		}
		if common != NoType {
			return NoType, false
		}
		common = u
	}
	return common, common != NoType
}

// Len is the number of types in the arena
func (t *Types) Len() int { return len(t.entries) }
