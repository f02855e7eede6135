package ritual

import (
	"fmt"
	"strconv"
	"strings"
)

type FormatToken int

const (
	FormatNone FormatToken = iota
	FormatOperator
	FormatOperand
	FormatLiteral
	FormatSpan
)

// FormatFunc decorates a piece of printed output, typically with
// terminal colors
type FormatFunc func(input string, token FormatToken) string

// PlainFormat leaves the output undecorated
func PlainFormat(input string, _ FormatToken) string { return input }

type treePrinter struct {
	padStr []string
	output strings.Builder
	format FormatFunc
}

func newTreePrinter(format FormatFunc) *treePrinter {
	if format == nil {
		format = PlainFormat
	}
	return &treePrinter{format: format}
}

func (tp *treePrinter) indent(s string) { tp.padStr = append(tp.padStr, s) }

func (tp *treePrinter) unindent() { tp.padStr = tp.padStr[:len(tp.padStr)-1] }

func (tp *treePrinter) padding() {
	for _, item := range tp.padStr {
		tp.write(item)
	}
}

func (tp *treePrinter) write(s string) { tp.output.WriteString(s) }

func (tp *treePrinter) pwrite(s string) {
	tp.padding()
	tp.write(s)
}

func (tp *treePrinter) writeOperator(op string, operands ...string) {
	tp.write(tp.format(op, FormatOperator))
	for _, rand := range operands {
		tp.write(" ")
		tp.write(tp.format(rand, FormatOperand))
	}
}

func (tp *treePrinter) writeLiteral(s string) {
	tp.write(" ")
	tp.write(tp.format(s, FormatLiteral))
}

func (tp *treePrinter) writeSpan(pos int) {
	if pos == NoLoc {
		return
	}
	tp.write(" ")
	tp.write(tp.format(fmt.Sprintf("(%d)", pos), FormatSpan))
}

// children prints one subtree per item, connecting them to the
// current node with box drawing characters.
func (tp *treePrinter) children(n int, print func(i int)) {
	for i := 0; i < n; i++ {
		tp.write("\n")
		if i == n-1 {
			tp.pwrite("└── ")
			tp.indent("    ")
		} else {
			tp.pwrite("├── ")
			tp.indent("│   ")
		}
		print(i)
		tp.unindent()
	}
}

func (tp *treePrinter) matchers(ms []Matcher) {
	tp.children(len(ms), func(i int) { tp.matcher(ms[i]) })
}

func (tp *treePrinter) matcher(m Matcher) {
	switch m := m.(type) {
	case *Sequence:
		tp.writeOperator("Sequence")
		tp.matchers(m.Children)
	case *Choice:
		if m.Disjoint {
			tp.writeOperator("Choice", "disjoint")
		} else {
			tp.writeOperator("Choice")
		}
		tp.matchers(m.Children)
	case *Repeat:
		max := "*"
		if m.Max > 0 {
			max = strconv.Itoa(m.Max)
		}
		tp.writeOperator("Repeat", strconv.Itoa(m.Min), max)
		tp.matchers([]Matcher{m.Expr})
	case *Character:
		tp.writeOperator("Character")
		tp.writeLiteral(m.String())
		tp.writeSpan(m.Loc)
	case *MatchValue:
		tp.writeOperator("MatchValue")
		tp.writeSpan(m.Loc)
		tp.matchers([]Matcher{m.Expr})
	case *Slice:
		tp.writeOperator("Slice")
		tp.writeSpan(m.Loc)
		tp.matchers([]Matcher{m.Expr})
	case *Lookahead:
		if m.Invert {
			tp.writeOperator("Not")
		} else {
			tp.writeOperator("And")
		}
		tp.writeSpan(m.Loc)
		tp.matchers([]Matcher{m.Expr})
	case *Call:
		tp.writeOperator("Call")
		tp.writeSpan(m.Loc)
		tp.matchers(append([]Matcher{m.Expr}, m.Args...))
	case *DirectCall:
		tp.writeOperator("Call", m.Name)
		tp.writeSpan(m.Loc)
		tp.matchers(m.Args)
	case *Get:
		tp.writeOperator("Get", m.Name.Text)
		tp.writeSpan(m.Name.Pos)
	case *GetLocal:
		tp.writeOperator("GetLocal", m.Local.Name)
		tp.writeSpan(m.Loc)
	case *Set:
		tp.writeOperator("Set", m.Name.Text)
		tp.writeSpan(m.Name.Pos)
		tp.matchers([]Matcher{m.Expr})
	case *SetLocal:
		tp.writeOperator("SetLocal", m.Local.Name)
		tp.matchers([]Matcher{m.Expr})
	case *Append:
		tp.writeOperator("Append", m.Name.Text)
		tp.writeSpan(m.Name.Pos)
		tp.matchers([]Matcher{m.Expr})
	case *AppendLocal:
		tp.writeOperator("AppendLocal", m.Local.Name)
		tp.matchers([]Matcher{m.Expr})
	case *ListLiteral:
		tp.writeOperator("List", typeRefString(m.Type))
		tp.writeSpan(m.Loc)
		tp.matchers(m.Args)
	case *StructLiteral:
		tp.writeOperator("Struct", typeRefString(m.Type))
		tp.writeSpan(m.Loc)
		tp.matchers(m.Args)
	case *StringLiteral, *RuneLiteral, *IntLiteral, *BoolLiteral:
		tp.writeOperator("Literal")
		tp.writeLiteral(m.String())
	case *Location:
		tp.writeOperator("Location")
		tp.writeSpan(m.Loc)
	default:
		tp.writeOperator(fmt.Sprintf("%T", m))
	}
}

func (tp *treePrinter) value(v any) {
	switch v := v.(type) {
	case nil:
		tp.writeOperator("void")
	case string:
		tp.write(tp.format(strconv.Quote(v), FormatLiteral))
	case rune:
		tp.write(tp.format(strconv.QuoteRune(v), FormatLiteral))
	case int:
		tp.write(tp.format(strconv.Itoa(v), FormatLiteral))
	case bool:
		tp.write(tp.format(strconv.FormatBool(v), FormatLiteral))
	case *List:
		tp.writeOperator("List", fmt.Sprintf("(%d)", v.Len()))
		tp.children(v.Len(), func(i int) { tp.value(v.Items[i]) })
	case *Node:
		tp.writeOperator(v.Type)
		tp.children(len(v.Fields), func(i int) {
			if name := v.Fields[i].Name; name != "" {
				tp.write(tp.format(name, FormatOperand))
				tp.write(": ")
			}
			tp.value(v.Fields[i].Value)
		})
	case Callable:
		tp.writeOperator("Callable", v.CallableName())
	case Matcher:
		tp.matcher(v)
	case *File:
		tp.writeOperator("File")
		tp.children(len(v.Decls), func(i int) { tp.value(v.Decls[i]) })
	case *RuleDecl:
		tp.writeOperator("Rule", v.Name.Text)
		tp.writeSpan(v.Name.Pos)
		tp.children(1, func(int) { tp.matcher(v.Body) })
	case Decl:
		tp.writeOperator(strings.TrimPrefix(fmt.Sprintf("%T", v), "*ritual."), v.DeclName().Text)
		tp.writeSpan(v.DeclName().Pos)
	default:
		tp.write(fmt.Sprintf("%v", v))
	}
}

// FormatMatcher prints a matcher tree, one node per line
func FormatMatcher(m Matcher, format FormatFunc) string {
	tp := newTreePrinter(format)
	tp.matcher(m)
	return tp.output.String()
}

// FormatRule prints a rule declaration and the tree of its body
func FormatRule(rule *RuleDecl, format FormatFunc) string {
	tp := newTreePrinter(format)
	tp.value(rule)
	return tp.output.String()
}

// FormatValue prints a value produced by a parse.  Lists and nodes
// are printed as trees.
func FormatValue(v any, format FormatFunc) string {
	tp := newTreePrinter(format)
	tp.value(v)
	return tp.output.String()
}
