package ritual

import "fmt"

// NewBootstrapParser returns a parser for grammar files built out of
// matchers directly, with no grammar file involved.  Its `file` rule
// yields a *File.  It recognizes the same language as the grammar
// embedded in the `grammars` package, and produces the same model.
func NewBootstrapParser(opts ...Option) *Parser {
	p := NewParser(opts...)
	for _, n := range NewModelFactory().Natives() {
		mustAdd(p.AddNative(n))
	}
	for name, fn := range StandardExterns() {
		mustAdd(p.AddNative(&Native{Name: name, Params: standardExternParams[name], Func: fn}))
	}
	for _, r := range bootstrapRules() {
		mustAdd(p.AddRule(r))
	}
	return p
}

func mustAdd(err error) {
	if err != nil {
		panic(err)
	}
}

// Combinators used to spell the bootstrap grammar

func seq(ms ...Matcher) Matcher  { return &Sequence{Children: ms} }
func alt(ms ...Matcher) Matcher  { return &Choice{Children: ms} }
func star(m Matcher) Matcher     { return &Repeat{Expr: m} }
func plus(m Matcher) Matcher     { return &Repeat{Expr: m, Min: 1} }
func opt(m Matcher) Matcher      { return &Repeat{Expr: m, Max: 1} }
func text(s string) Matcher      { return &MatchValue{Expr: &StringLiteral{Value: s}} }
func match(m Matcher) Matcher    { return &MatchValue{Expr: m} }
func slice(m Matcher) Matcher    { return &Slice{Expr: m} }
func not(m Matcher) Matcher      { return &Lookahead{Expr: m, Invert: true} }
func and(m Matcher) Matcher      { return &Lookahead{Expr: m} }
func get(name string) Matcher    { return &Get{Name: Token{Text: name}} }
func list(ms ...Matcher) Matcher { return &ListLiteral{Args: ms} }
func str(s string) Matcher       { return &StringLiteral{Value: s} }
func num(n int) Matcher          { return &IntLiteral{Value: n} }
func boolean(v bool) Matcher     { return &BoolLiteral{Value: v} }
func loc() Matcher               { return &Location{} }

func call(name string, args ...Matcher) Matcher {
	return &Call{Expr: get(name), Args: args}
}

func set(name string, m Matcher) Matcher {
	return &Set{Expr: m, Name: Token{Text: name}}
}

func push(name string, m Matcher) Matcher {
	return &Append{Expr: m, Name: Token{Text: name}}
}

func span(lower, upper rune) Range { return Range{Lower: lower, Upper: upper} }
func single(r rune) Range          { return Range{Lower: r, Upper: r} }

func class(invert bool, ranges ...Range) Matcher {
	c, err := NewCharacter(0, ranges, invert)
	if err != nil {
		panic(fmt.Sprintf("bootstrap: %v", err))
	}
	return c
}

// ws is the call to the rule that skips blanks and comments
func ws() Matcher { return call("S") }

func bootstrapRules() []*Rule {
	var (
		identStart = class(false, span('a', 'z'), span('A', 'Z'), single('_'))
		identChar  = func() Matcher {
			return class(false, span('a', 'z'), span('A', 'Z'), single('_'), span('0', '9'))
		}
		escaped = func(s string, code int) Matcher {
			return seq(text(s), call("chr", num(code)))
		}
	)
	return []*Rule{
		// Lexical rules
		{Name: "S", Body: star(alt(
			class(false, single(' '), single('\t'), single('\r'), single('\n')),
			seq(text("//"), star(class(true, single('\n')))),
		))},
		{Name: "keyword", Params: []string{"k"}, Body: seq(match(get("k")), not(identChar()))},
		{Name: "ident", Body: call("Token", loc(), slice(seq(identStart, star(identChar()))))},
		{Name: "hex_digit", Body: class(false, span('0', '9'), span('a', 'f'), span('A', 'F'))},
		{Name: "escape_char", Body: seq(text(`\`), alt(
			escaped("n", '\n'),
			escaped("r", '\r'),
			escaped("t", '\t'),
			escaped("0", 0),
			escaped(`\`, '\\'),
			escaped(`"`, '"'),
			escaped("'", '\''),
			seq(text("x"), call("chr", call("hex_to_int", slice(seq(call("hex_digit"), call("hex_digit")))))),
			seq(text("u{"), set("c", call("chr", call("hex_to_int", slice(plus(call("hex_digit")))))), text("}"), get("c")),
		))},
		{Name: "string_value", Body: seq(
			text(`"`),
			set("c", list()),
			star(push("c", alt(call("escape_char"), class(true, single('"'), single('\\'))))),
			text(`"`),
			call("chars_to_string", get("c")),
		)},
		{Name: "rune_value", Body: seq(
			text("'"),
			set("c", alt(call("escape_char"), class(true, single('\''), single('\\')))),
			text("'"),
			get("c"),
		)},
		{Name: "int_value", Body: alt(
			seq(text("0x"), call("hex_to_int", slice(plus(call("hex_digit"))))),
			call("dec_to_int", slice(plus(class(false, span('0', '9'))))),
		)},
		{Name: "class_char", Body: alt(
			call("escape_char"),
			seq(text(`\`), class(false, single('\\'), single('^'), single('-'), single(']'), single('['))),
			class(true, single('\\'), single(']'), single('-'), single('^'), single('[')),
		)},
		{Name: "char_range", Body: seq(
			set("a", call("class_char")),
			set("b", get("a")),
			opt(seq(text("-"), set("b", call("class_char")))),
			call("Range", get("a"), get("b")),
		)},
		{Name: "char_match", Body: seq(
			set("l", loc()),
			text("["),
			set("invert", alt(seq(text("^"), boolean(true)), boolean(false))),
			set("ranges", list()),
			star(push("ranges", call("char_range"))),
			text("]"),
			call("Character", get("l"), get("ranges"), get("invert")),
		)},
		{Name: "type_ref", Body: alt(
			seq(text("[]"), call("ListRef", call("type_ref"))),
			call("NameRef", call("ident")),
		)},

		// Expressions
		{Name: "arg", Body: alt(
			seq(
				set("l", loc()),
				set("s", call("string_value")),
				ws(),
				and(class(false, single(','), single(')'), single('}'))),
				call("StringLiteral", get("l"), get("s")),
			),
			call("expr"),
		)},
		{Name: "arg_list", Body: seq(
			set("args", list()),
			opt(seq(
				ws(),
				push("args", call("arg")),
				star(seq(ws(), text(","), ws(), push("args", call("arg")))),
			)),
			ws(),
			get("args"),
		)},
		{Name: "atom", Body: alt(
			seq(text("("), ws(), set("e", call("expr")), ws(), text(")"), get("e")),
			seq(set("l", loc()), text("<"), ws(), set("e", call("expr")), ws(), text(">"),
				call("Slice", get("l"), get("e"))),
			seq(set("l", loc()), text("[]"), set("t", call("type_ref")), ws(), text("{"),
				set("args", call("arg_list")), text("}"),
				call("ListLiteral", get("l"), get("t"), get("args"))),
			call("char_match"),
			seq(set("l", loc()), set("s", call("string_value")),
				call("MatchValue", get("l"), call("StringLiteral", get("l"), get("s")))),
			seq(set("l", loc()), set("r", call("rune_value")),
				call("RuneLiteral", get("l"), get("r"))),
			seq(set("l", loc()), call("keyword", str("true")),
				call("BoolLiteral", get("l"), boolean(true))),
			seq(set("l", loc()), call("keyword", str("false")),
				call("BoolLiteral", get("l"), boolean(false))),
			seq(set("l", loc()), call("keyword", str("loc")), ws(), text("("), ws(), text(")"),
				call("Location", get("l"))),
			seq(set("l", loc()), set("i", call("int_value")),
				call("IntLiteral", get("l"), get("i"))),
			seq(set("l", loc()), set("name", call("ident")), ws(), text("{"),
				set("args", call("arg_list")), text("}"),
				call("StructLiteral", get("l"), call("NameRef", get("name")), get("args"))),
			call("Get", call("ident")),
		)},
		{Name: "call", Body: seq(
			set("e", call("atom")),
			star(seq(ws(), set("l", loc()), text("("), set("args", call("arg_list")), text(")"),
				set("e", call("Call", get("l"), get("e"), get("args"))))),
			get("e"),
		)},
		{Name: "repeat", Body: seq(
			set("e", call("call")),
			star(seq(ws(), alt(
				seq(text("*"), set("e", call("Repeat", get("e"), num(0), num(0)))),
				seq(text("+"), set("e", call("Repeat", get("e"), num(1), num(0)))),
				seq(text("?"), set("e", call("Repeat", get("e"), num(0), num(1)))),
			))),
			get("e"),
		)},
		{Name: "prefix", Body: alt(
			seq(set("l", loc()), text("!"), ws(), call("Lookahead", get("l"), call("prefix"), boolean(true))),
			seq(set("l", loc()), text("&"), ws(), call("Lookahead", get("l"), call("prefix"), boolean(false))),
			seq(set("l", loc()), text("$"), ws(), call("MatchValue", get("l"), call("prefix"))),
			call("repeat"),
		)},
		{Name: "assign", Body: alt(
			seq(set("name", call("ident")), ws(), alt(
				seq(text("="), ws(), call("Set", call("prefix"), get("name"))),
				seq(text("<<"), ws(), call("Append", call("prefix"), get("name"))),
			)),
			call("prefix"),
		)},
		{Name: "sequence", Body: seq(
			set("e", call("assign")),
			opt(seq(
				set("es", list(get("e"))),
				plus(seq(ws(), text(";"), ws(), push("es", call("assign")))),
				set("e", call("Sequence", get("es"))),
			)),
			get("e"),
		)},
		{Name: "choice", Body: seq(
			set("e", call("sequence")),
			opt(seq(
				set("es", list(get("e"))),
				plus(seq(ws(), text("|"), ws(), push("es", call("sequence")))),
				set("e", call("Choice", get("es"))),
			)),
			get("e"),
		)},
		{Name: "expr", Body: call("choice")},

		// Declarations
		{Name: "attribute", Body: call("Attribute", call("ident"))},
		{Name: "attributes", Body: seq(
			set("attrs", list()),
			opt(seq(
				text("["), ws(),
				push("attrs", call("attribute")),
				star(seq(ws(), text(","), ws(), push("attrs", call("attribute")))),
				ws(), text("]"), ws(),
			)),
			get("attrs"),
		)},
		{Name: "param", Body: seq(
			set("name", call("ident")), ws(), text(":"), ws(),
			call("Param", get("name"), call("type_ref")),
		)},
		{Name: "rule_decl", Params: []string{"attrs"}, Body: seq(
			call("keyword", str("func")), ws(), set("name", call("ident")), ws(),
			text("("), ws(),
			set("params", list()),
			opt(seq(
				push("params", call("param")),
				star(seq(ws(), text(","), ws(), push("params", call("param")))),
			)),
			ws(), text(")"), ws(), text(":"), ws(),
			set("ret", call("type_ref")), ws(),
			text("{"), ws(), set("body", call("expr")), ws(), text("}"),
			call("RuleDecl", get("name"), get("params"), get("ret"), get("body"), get("attrs")),
		)},
		{Name: "field_decl", Body: seq(
			set("name", call("ident")), ws(), text(":"), ws(),
			call("FieldDecl", get("name"), call("type_ref")),
		)},
		{Name: "struct_decl", Params: []string{"attrs"}, Body: seq(
			call("keyword", str("struct")), ws(), set("name", call("ident")), ws(),
			text("{"),
			set("fields", list()),
			star(seq(ws(), push("fields", call("field_decl")))),
			ws(), text("}"),
			call("StructDecl", get("name"), get("fields"), get("attrs")),
		)},
		{Name: "union_decl", Params: []string{"attrs"}, Body: seq(
			call("keyword", str("union")), ws(), set("name", call("ident")), ws(), text("="), ws(),
			set("refs", list(call("type_ref"))),
			star(seq(ws(), text("|"), ws(), push("refs", call("type_ref")))),
			ws(), text(";"),
			call("UnionDecl", get("name"), get("refs"), get("attrs")),
		)},
		{Name: "extern_decl", Params: []string{"attrs"}, Body: seq(
			call("keyword", str("extern")), ws(), set("name", call("ident")), ws(),
			text("("), ws(),
			set("params", list()),
			opt(seq(
				push("params", call("type_ref")),
				star(seq(ws(), text(","), ws(), push("params", call("type_ref")))),
			)),
			ws(), text(")"), ws(), text(":"), ws(),
			call("ExternDecl", get("name"), get("params"), call("type_ref"), get("attrs")),
		)},
		{Name: "decl", Body: seq(
			set("attrs", call("attributes")),
			alt(
				call("rule_decl", get("attrs")),
				call("extern_decl", get("attrs")),
				call("struct_decl", get("attrs")),
				call("union_decl", get("attrs")),
			),
		)},
		{Name: "file", Body: seq(
			set("decls", list()),
			star(seq(ws(), push("decls", call("decl")))),
			ws(),
			call("File", get("decls")),
		)},
	}
}
