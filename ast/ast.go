// Package ast holds the syntax tree produced by the parser and walked by eval.
package ast

import (
	"fmt"
	"strconv"
	"strings"

	"grol.io/rhai/token"
)

type Node interface {
	Position() token.Position
	String() string // normalized string representation of the expression/statement.
}

type Expr interface {
	Node
	exprNode()
}

type Stmt interface {
	Node
	stmtNode()
}

// Common to all nodes, holds the source position.
type Base struct {
	Pos token.Position
}

func (b *Base) Position() token.Position {
	return b.Pos
}

func WriteStrings[T fmt.Stringer](out *strings.Builder, list []T, sep string) {
	for i, p := range list {
		if i > 0 {
			out.WriteString(sep)
		}
		out.WriteString(p.String())
	}
}

// Ident is a name with its position, used for declarations.
type Ident struct {
	Name string
	Pos  token.Position
}

func (i Ident) String() string {
	return i.Name
}

// Namespace is the `a::b::` prefix of qualified variables and calls.
// Index is the parse time offset hint into the imports stack (1 based, 0 = none).
type Namespace struct {
	Path  []Ident
	Index int
}

func (n *Namespace) Names() []string {
	res := make([]string, len(n.Path))
	for i, p := range n.Path {
		res[i] = p.Name
	}
	return res
}

func (n *Namespace) Root() Ident {
	return n.Path[0]
}

func (n *Namespace) String() string {
	out := strings.Builder{}
	for _, p := range n.Path {
		out.WriteString(p.Name)
		out.WriteString("::")
	}
	return out.String()
}

// --- Expressions.

type Unit struct{ Base }

type BoolLit struct {
	Base
	Val bool
}

type IntLit struct {
	Base
	Val int64
}

type FloatLit struct {
	Base
	Val float64
}

type CharLit struct {
	Base
	Val rune
}

type StringLit struct {
	Base
	Val string
}

// InterpolatedString is a backtick string with ${} sections, evaluated
// piecewise and concatenated.
type InterpolatedString struct {
	Base
	Parts []Expr
}

type ArrayLit struct {
	Base
	Elements []Expr
}

type MapLit struct {
	Base
	Keys   []Ident
	Values []Expr
}

// Variable access. Index is the offset from the top of the scope stack
// computed at parse time (1 based, 0 when unknown or not trusted).
type Variable struct {
	Base
	Name      string
	Index     int
	Namespace *Namespace // nil when unqualified.
	Hash      uint64     // qualified variable hash, when Namespace is set.
}

// Property is the `.name` link of a dot chain, with its pre computed
// getter/setter names and hashes.
type Property struct {
	Base
	Name       string
	Getter     string
	Setter     string
	GetterHash uint64
	SetterHash uint64
}

// StmtExpr is a `{ ... }` block used as an expression.
type StmtExpr struct {
	Base
	Block *Block
}

// FnHashes holds the call hashes. Script is 0 for native only calls
// (operators), Native is the name+arity hash the argument types are
// combined with at run time.
type FnHashes struct {
	Script uint64
	Native uint64
}

func (h FnHashes) IsNativeOnly() bool {
	return h.Script == 0
}

type FnCall struct {
	Base
	Name      string
	Namespace *Namespace
	Args      []Expr
	Hashes    FnHashes
	Capture   bool // fn!() style call sharing the caller's scope.
	Operator  bool // call created from an operator, printed infix.
}

func (f *FnCall) IsQualified() bool {
	return f.Namespace != nil
}

// Dot is `lhs.rhs`. Chains are nested to the right: a.b.c is Dot(a, Dot(b, c)).
type Dot struct {
	Base
	Lhs, Rhs Expr
}

// Index is `lhs[rhs]`, nested to the right like Dot: a[1].b is Index(a, Dot(1, b)).
// Terminate stops the chain walk at this level (used for `(a[1])[2]`).
type Index struct {
	Base
	Lhs, Rhs  Expr
	Terminate bool
}

type And struct {
	Base
	Lhs, Rhs Expr
}

type Or struct {
	Base
	Lhs, Rhs Expr
}

// Custom is a custom syntax invocation: the parsed keyword expressions and the
// actual tokens seen, the first of which is the syntax key.
type Custom struct {
	Base
	Keywords          []Expr
	Tokens            []string
	ScopeMayBeChanged bool
	SelfTerminated    bool
}

// FnPtrLit is a closure or `Fn("name")` with a literal name, resolved at parse time.
type FnPtrLit struct {
	Base
	Name string
}

func (*Unit) exprNode()               {}
func (*BoolLit) exprNode()            {}
func (*IntLit) exprNode()             {}
func (*FloatLit) exprNode()           {}
func (*CharLit) exprNode()            {}
func (*StringLit) exprNode()          {}
func (*InterpolatedString) exprNode() {}
func (*ArrayLit) exprNode()           {}
func (*MapLit) exprNode()             {}
func (*Variable) exprNode()           {}
func (*Property) exprNode()           {}
func (*StmtExpr) exprNode()           {}
func (*FnCall) exprNode()             {}
func (*Dot) exprNode()                {}
func (*Index) exprNode()              {}
func (*And) exprNode()                {}
func (*Or) exprNode()                 {}
func (*Custom) exprNode()             {}
func (*FnPtrLit) exprNode()           {}

func (*Unit) String() string { return "()" }

func (b *BoolLit) String() string { return strconv.FormatBool(b.Val) }

func (i *IntLit) String() string { return strconv.FormatInt(i.Val, 10) }

func (f *FloatLit) String() string {
	s := strconv.FormatFloat(f.Val, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") { // keep 1.0 a float, not NaN/Inf.
		s += ".0"
	}
	return s
}

func (c *CharLit) String() string { return strconv.QuoteRune(c.Val) }

func (s *StringLit) String() string { return strconv.Quote(s.Val) }

func (s *InterpolatedString) String() string {
	out := strings.Builder{}
	out.WriteString("`")
	for _, p := range s.Parts {
		if lit, ok := p.(*StringLit); ok {
			out.WriteString(lit.Val)
			continue
		}
		out.WriteString("${")
		out.WriteString(p.String())
		out.WriteString("}")
	}
	out.WriteString("`")
	return out.String()
}

func (al *ArrayLit) String() string {
	out := strings.Builder{}
	out.WriteString("[")
	WriteStrings(&out, al.Elements, ", ")
	out.WriteString("]")
	return out.String()
}

func (m *MapLit) String() string {
	out := strings.Builder{}
	out.WriteString("#{")
	for i, k := range m.Keys {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(k.Name)
		out.WriteString(": ")
		out.WriteString(m.Values[i].String())
	}
	out.WriteString("}")
	return out.String()
}

func (v *Variable) String() string {
	if v.Namespace != nil {
		return v.Namespace.String() + v.Name
	}
	return v.Name
}

func (p *Property) String() string { return p.Name }

func (s *StmtExpr) String() string { return s.Block.String() }

func (f *FnCall) String() string {
	out := strings.Builder{}
	if f.Operator {
		switch len(f.Args) {
		case 1:
			out.WriteString("(")
			out.WriteString(f.Name)
			out.WriteString(f.Args[0].String())
			out.WriteString(")")
			return out.String()
		case 2:
			out.WriteString("(")
			out.WriteString(f.Args[0].String())
			out.WriteString(" ")
			out.WriteString(f.Name)
			out.WriteString(" ")
			out.WriteString(f.Args[1].String())
			out.WriteString(")")
			return out.String()
		}
	}
	if f.Namespace != nil {
		out.WriteString(f.Namespace.String())
	}
	out.WriteString(f.Name)
	if f.Capture {
		out.WriteString("!")
	}
	out.WriteString("(")
	WriteStrings(&out, f.Args, ", ")
	out.WriteString(")")
	return out.String()
}

func (d *Dot) String() string {
	return d.Lhs.String() + chainTail(d.Rhs, false)
}

func (ie *Index) String() string {
	return ie.Lhs.String() + chainTail(ie.Rhs, true)
}

// chainTail prints the right nested rest of a chain back in source order.
func chainTail(rhs Expr, index bool) string {
	var link, rest string
	switch r := rhs.(type) {
	case *Index:
		link, rest = r.Lhs.String(), chainTail(r.Rhs, true)
	case *Dot:
		link, rest = r.Lhs.String(), chainTail(r.Rhs, false)
	default:
		link = rhs.String()
	}
	if index {
		return "[" + link + "]" + rest
	}
	return "." + link + rest
}

func (a *And) String() string {
	return "(" + a.Lhs.String() + " && " + a.Rhs.String() + ")"
}

func (o *Or) String() string {
	return "(" + o.Lhs.String() + " || " + o.Rhs.String() + ")"
}

func (c *Custom) String() string {
	return strings.Join(c.Tokens, " ")
}

func (f *FnPtrLit) String() string {
	return "Fn(" + strconv.Quote(f.Name) + ")"
}

// --- Statements.

type Block struct {
	Base // holds {
	Stmts []Stmt
}

func (b *Block) String() string {
	if len(b.Stmts) == 0 {
		return "{}"
	}
	out := strings.Builder{}
	out.WriteString("{\n")
	for _, s := range b.Stmts {
		for _, line := range strings.Split(s.String(), "\n") {
			out.WriteString("\t")
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	out.WriteString("}")
	return out.String()
}

type Noop struct{ Base }

type ExprStmt struct {
	Base
	Expr Expr
}

type If struct {
	Base
	Cond Expr
	Then *Block
	Else *Block // nil when absent.
}

type SwitchCase struct {
	Condition Expr // optional `if` guard, nil when absent.
	Body      Stmt
}

// Switch cases are keyed by the hash of their constant value.
type Switch struct {
	Base
	Expr    Expr
	Cases   map[uint64]*SwitchCase
	Order   []Expr // case values in source order, for printing.
	Default Stmt   // nil when absent.
}

// While with a nil Cond is `loop`.
type While struct {
	Base
	Cond Expr
	Body *Block
}

// Do is `do { } while cond` or `do { } until cond`.
type Do struct {
	Base
	Body  *Block
	Cond  Expr
	Until bool
}

type For struct {
	Base
	Iterable Expr
	Var      Ident
	Counter  *Ident
	Body     *Block
}

type Var struct {
	Base
	Name     Ident
	Value    Expr
	Constant bool
	Exported bool
}

// OpAssign is the compound part of an assignment, e.g `+=` backed by `+`.
type OpAssign struct {
	Op         string // "+=".
	BaseOp     string // "+".
	HashOp     uint64 // native hash of the 2 args op assign function.
	HashBaseOp uint64 // same for the plain operator.
	Pos        token.Position
}

type Assignment struct {
	Base
	Lhs Expr
	Op  *OpAssign // nil for plain `=`.
	Rhs Expr
}

type BlockStmt struct {
	Base
	Block *Block
}

type TryCatch struct {
	Base
	Try      *Block
	CatchVar *Ident
	Catch    *Block
}

type Continue struct{ Base }

type Break struct{ Base }

type Return struct {
	Base
	Value Expr // nil when absent.
	Throw bool
}

type Import struct {
	Base
	Path  Expr
	Alias *Ident
}

type ExportItem struct {
	Name  Ident
	Alias Ident
}

type Export struct {
	Base
	Items []ExportItem
}

// Share converts a scope variable into a shared value, emitted before
// closures capturing it.
type Share struct {
	Base
	Name string
}

func (*Noop) stmtNode()       {}
func (*ExprStmt) stmtNode()   {}
func (*If) stmtNode()         {}
func (*Switch) stmtNode()     {}
func (*While) stmtNode()      {}
func (*Do) stmtNode()         {}
func (*For) stmtNode()        {}
func (*Var) stmtNode()        {}
func (*Assignment) stmtNode() {}
func (*BlockStmt) stmtNode()  {}
func (*TryCatch) stmtNode()   {}
func (*Continue) stmtNode()   {}
func (*Break) stmtNode()      {}
func (*Return) stmtNode()     {}
func (*Import) stmtNode()     {}
func (*Export) stmtNode()     {}
func (*Share) stmtNode()      {}

func (*Noop) String() string { return ";" }

func (e *ExprStmt) String() string { return e.Expr.String() }

func (ie *If) String() string {
	out := strings.Builder{}
	out.WriteString("if ")
	out.WriteString(ie.Cond.String())
	out.WriteString(" ")
	out.WriteString(ie.Then.String())
	if ie.Else != nil {
		out.WriteString(" else ")
		out.WriteString(ie.Else.String())
	}
	return out.String()
}

func (s *Switch) String() string {
	out := strings.Builder{}
	out.WriteString("switch ")
	out.WriteString(s.Expr.String())
	out.WriteString(" {\n")
	for _, v := range s.Order {
		out.WriteString("\t")
		out.WriteString(v.String())
		out.WriteString(" => ...,\n")
	}
	if s.Default != nil {
		out.WriteString("\t_ => ")
		out.WriteString(s.Default.String())
		out.WriteString("\n")
	}
	out.WriteString("}")
	return out.String()
}

func (w *While) String() string {
	if w.Cond == nil {
		return "loop " + w.Body.String()
	}
	return "while " + w.Cond.String() + " " + w.Body.String()
}

func (d *Do) String() string {
	kw := " while "
	if d.Until {
		kw = " until "
	}
	return "do " + d.Body.String() + kw + d.Cond.String()
}

func (f *For) String() string {
	out := strings.Builder{}
	out.WriteString("for ")
	if f.Counter != nil {
		out.WriteString("(" + f.Var.Name + ", " + f.Counter.Name + ")")
	} else {
		out.WriteString(f.Var.Name)
	}
	out.WriteString(" in ")
	out.WriteString(f.Iterable.String())
	out.WriteString(" ")
	out.WriteString(f.Body.String())
	return out.String()
}

func (v *Var) String() string {
	out := strings.Builder{}
	if v.Exported {
		out.WriteString("export ")
	}
	if v.Constant {
		out.WriteString("const ")
	} else {
		out.WriteString("let ")
	}
	out.WriteString(v.Name.Name)
	if v.Value != nil {
		out.WriteString(" = ")
		out.WriteString(v.Value.String())
	}
	return out.String()
}

func (a *Assignment) String() string {
	op := "="
	if a.Op != nil {
		op = a.Op.Op
	}
	return a.Lhs.String() + " " + op + " " + a.Rhs.String()
}

func (b *BlockStmt) String() string { return b.Block.String() }

func (t *TryCatch) String() string {
	out := strings.Builder{}
	out.WriteString("try ")
	out.WriteString(t.Try.String())
	out.WriteString(" catch ")
	if t.CatchVar != nil {
		out.WriteString("(" + t.CatchVar.Name + ") ")
	}
	out.WriteString(t.Catch.String())
	return out.String()
}

func (*Continue) String() string { return "continue" }

func (*Break) String() string { return "break" }

func (r *Return) String() string {
	kw := "return"
	if r.Throw {
		kw = "throw"
	}
	if r.Value == nil {
		return kw
	}
	return kw + " " + r.Value.String()
}

func (i *Import) String() string {
	s := "import " + i.Path.String()
	if i.Alias != nil {
		s += " as " + i.Alias.Name
	}
	return s
}

func (e *Export) String() string {
	out := strings.Builder{}
	out.WriteString("export ")
	for i, it := range e.Items {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(it.Name.Name)
		if it.Alias.Name != "" && it.Alias.Name != it.Name.Name {
			out.WriteString(" as ")
			out.WriteString(it.Alias.Name)
		}
	}
	return out.String()
}

func (s *Share) String() string { return "share " + s.Name }

// --- Functions and whole scripts.

// ScriptFnDef is a script defined function. Closures are script functions
// with an anonymous name and the captured externals as leading parameters.
type ScriptFnDef struct {
	Pos       token.Position
	Name      string
	Params    []string
	Body      *Block
	Private   bool
	Externals []string
	Comments  []string
}

func (f *ScriptFnDef) String() string {
	out := strings.Builder{}
	if f.Private {
		out.WriteString("private ")
	}
	out.WriteString("fn ")
	out.WriteString(f.Name)
	out.WriteString("(")
	out.WriteString(strings.Join(f.Params, ", "))
	out.WriteString(") ")
	out.WriteString(f.Body.String())
	return out.String()
}

// Signature is the `name(a, b)` form used in listings and completion.
func (f *ScriptFnDef) Signature() string {
	return f.Name + "(" + strings.Join(f.Params, ", ") + ")"
}

// IsAnonymous is true for closures.
func (f *ScriptFnDef) IsAnonymous() bool {
	return strings.HasPrefix(f.Name, AnonFnPrefix)
}

// AnonFnPrefix starts the generated names of closures.
const AnonFnPrefix = "anon$"

// AST is a parsed script: top level statements and the script defined functions.
type AST struct {
	Source     string
	Statements []Stmt
	Functions  []*ScriptFnDef
}

func (a *AST) String() string {
	if len(a.Statements) == 0 && len(a.Functions) == 0 {
		return "<empty>"
	}
	out := strings.Builder{}
	first := true
	for _, f := range a.Functions {
		if f.IsAnonymous() {
			continue
		}
		if !first {
			out.WriteString("\n")
		}
		first = false
		out.WriteString(f.String())
	}
	for _, s := range a.Statements {
		if !first {
			out.WriteString("\n")
		}
		first = false
		out.WriteString(s.String())
	}
	return out.String()
}

// Merge appends other's statements and functions, functions of other
// replacing same name and arity ones.
func (a *AST) Merge(other *AST) *AST {
	res := &AST{Source: a.Source}
	res.Statements = append(append(res.Statements, a.Statements...), other.Statements...)
	replaced := make(map[uint64]bool, len(other.Functions))
	for _, f := range other.Functions {
		replaced[FnHash(f.Name, len(f.Params))] = true
	}
	for _, f := range a.Functions {
		if !replaced[FnHash(f.Name, len(f.Params))] {
			res.Functions = append(res.Functions, f)
		}
	}
	res.Functions = append(res.Functions, other.Functions...)
	return res
}
