// Completion: 95% - Typed AST, the type checker's output and every later pass's input
package main

// Typed AST node variants. Every TExpr carries a concrete Type (the
// checker's central invariant); every TStmt carries only its source
// span.

type TExpr interface {
	Type() *Type
	Span() Span
}

type texprBase struct {
	span Span
	typ  *Type
}

func (e texprBase) Type() *Type { return e.typ }
func (e texprBase) Span() Span  { return e.span }

type TNumberLit struct {
	texprBase
	IsFloat  bool
	IntVal   int64
	FloatVal float64
}

type TBoolLit struct {
	texprBase
	Value bool
}

type TStringLit struct {
	texprBase
	Value string
}

type TListLit struct {
	texprBase
	Elems []TExpr
}

// TVarRef names a uniquified variable after the uniquifier pass; before
// that pass it carries the user-written name.
type TVarRef struct {
	texprBase
	Name string
}

type TIndexExpr struct {
	texprBase
	List  TExpr
	Index TExpr
}

type TBinExpr struct {
	texprBase
	Op    BinOpKind
	Left  TExpr
	Right TExpr
}

type TUnaryExpr struct {
	texprBase
	Op      UnaryOpKind
	Operand TExpr
}

// TCallExpr references a specific FunctionType instance, resolved by
// the type checker's per-call-site specialization. Its
// type is read from Callee.ReturnType at use time rather than cached at
// construction time, because a recursive function's return type is not
// known until its own body (which may call it again) finishes checking;
// every TCallExpr sharing a Callee observes the same, eventually-final
// return type once checking of that instance completes.
type TCallExpr struct {
	span   Span
	Callee *FunctionType
	Args   []TExpr
}

func (c *TCallExpr) Type() *Type { return c.Callee.ReturnType }
func (c *TCallExpr) Span() Span  { return c.span }

type TStmt interface {
	Span() Span
}

type tstmtBase struct{ span Span }

func (s tstmtBase) Span() Span { return s.span }

type TExprStmt struct {
	tstmtBase
	X TExpr
}

type TAssignStmt struct {
	tstmtBase
	Name  string
	Value TExpr
}

type TIfBranch struct {
	Cond TExpr
	Body []TStmt
}

type TIfStmt struct {
	tstmtBase
	Branches []TIfBranch
	Else     []TStmt
}

// TForStmt ranges over 0..Upper (integer form) when List is nil, or
// over List's elements (list form) when List is non-nil.
type TForStmt struct {
	tstmtBase
	Iter      string
	IterType  *Type
	Upper     TExpr
	List      TExpr
	Body      []TStmt
}

type TFunDef struct {
	tstmtBase
	Instance *FunctionType
}

type TReturnStmt struct {
	tstmtBase
	Value TExpr // nil for a bare `return`
}

type TBreakStmt struct {
	tstmtBase
}

// TypedProgram is the type checker's output: the top-level statement
// list (with function definitions elided; they live in Instances) plus
// every FunctionType instance reachable from the top level, used-flag
// pruned.
type TypedProgram struct {
	TopLevel  []TStmt
	Instances []*FunctionType
}
