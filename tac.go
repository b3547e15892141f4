// Completion: 100% - Three-address code: the typed AST's flat, linear successor
package main

import "fmt"

// TacValue is the TAC operand variety: a compile-time constant, a named
// virtual variable, or an interned string literal.
type TacValue struct {
	Kind  TacValueKind
	Const int64
	Name  string // Variable / StringLiteral payload
}

type TacValueKind int

const (
	TvConstant TacValueKind = iota
	TvVariable
	TvStringLiteral
)

func TvConst(n int64) TacValue    { return TacValue{Kind: TvConstant, Const: n} }
func TvVar(name string) TacValue  { return TacValue{Kind: TvVariable, Name: name} }
func TvString(s string) TacValue  { return TacValue{Kind: TvStringLiteral, Name: s} }
func (v TacValue) IsVariable() bool { return v.Kind == TvVariable }

func (v TacValue) String() string {
	switch v.Kind {
	case TvConstant:
		return fmt.Sprintf("%d", v.Const)
	case TvStringLiteral:
		return fmt.Sprintf("%q", v.Name)
	default:
		return v.Name
	}
}

// VariableValue names a TAC destination. A nonnegative RequestedReg
// precolors the variable to a physical register slot from the
// allocator's palette, used to pin calling-convention arguments
// without a separate coalescing pass.
type VariableValue struct {
	Name         string
	RequestedReg int // -1000 means "no request"
}

const noRequestedReg = -1000

func PlainVar(name string) VariableValue { return VariableValue{Name: name, RequestedReg: noRequestedReg} }
func PrecoloredVar(name string, reg int) VariableValue {
	return VariableValue{Name: name, RequestedReg: reg}
}
func (v VariableValue) HasRequest() bool { return v.RequestedReg != noRequestedReg }

type CmpKind int

const (
	CmpEqTac CmpKind = iota
	CmpNeTac
	CmpLtTac
	CmpLeTac
	CmpGtTac
	CmpGeTac
)

// Invert returns the negated comparison, used to turn a `CompareAndGoto`
// branch-on-false into the TAC lowering rule for `if`/`for`
// conditions.
func (c CmpKind) Invert() CmpKind {
	switch c {
	case CmpEqTac:
		return CmpNeTac
	case CmpNeTac:
		return CmpEqTac
	case CmpLtTac:
		return CmpGeTac
	case CmpLeTac:
		return CmpGtTac
	case CmpGtTac:
		return CmpLeTac
	case CmpGeTac:
		return CmpLtTac
	}
	panic("unreachable")
}

type BinOpTac int

const (
	TacAdd BinOpTac = iota
	TacSub
	TacMul
	TacDiv
	TacAnd
	TacOr
	TacXor
	TacMod // only emitted by runtimehelpers.go; no source operator maps to it
)

type UnaryOpTac int

const (
	TacNeg UnaryOpTac = iota
	TacNot
)

// TacInstruction is one line of three-address code.
// Only the fields relevant to Kind are populated; the others are zero.
type TacInstruction struct {
	Kind TacKind

	Label      string   // Label, FunctionLabel, Goto, CompareAndGoto target
	ParamNames []string // FunctionLabel

	Dst   VariableValue // Assign, BinOp, UnaryOp, Call/ExternCall dst, Div quotient
	Dst2  VariableValue // Div remainder
	Value TacValue      // Assign
	Left  TacValue      // BinOp, CompareAndGoto
	Right TacValue      // BinOp, CompareAndGoto
	Bin   BinOpTac
	Un    UnaryOpTac
	Cmp   CmpKind

	HasDst bool // whether Dst/Return value is present

	Callee string     // Call, ExternCall
	Args   []TacValue // Call, ExternCall

	Push TacValue      // Push
	Pop  VariableValue // Pop, MovRSPTo

	Addr   TacValue // StoreByte/LoadByte: base address, constant or a variable holding one
	Offset TacValue // StoreByte/LoadByte: byte offset added to Addr
	Byte   TacValue // StoreByte: value to store (low 8 bits); LoadByte result goes to Dst
}

func NewStoreByte(addr, offset, value TacValue) TacInstruction {
	return TacInstruction{Kind: TacStoreByte, Addr: addr, Offset: offset, Byte: value}
}

func NewLoadByte(dst VariableValue, addr, offset TacValue) TacInstruction {
	return TacInstruction{Kind: TacLoadByte, Dst: dst, Addr: addr, Offset: offset, HasDst: true}
}

type TacKind int

const (
	TacLabel TacKind = iota
	TacFunctionLabel
	TacAssign
	TacBinOp
	TacUnaryOp
	TacCompareAndGoto
	TacGoto
	TacReturn
	TacCall
	TacExternCall
	TacPush
	TacPop
	TacMovRSPTo
	TacProgramStart
	TacDirectInstruction

	// TacStoreByte/TacLoadByte are a narrow extension beyond the pure
	// value-oriented instruction set for the runtime helper routines in
	// runtimehelpers.go (__strlen, __format_decimal, __format_bool):
	// those need byte-addressable scratch memory that no typed-AST
	// lowering rule ever requires. Addr is the scratch buffer's base
	// (an absolute address; the fixed image layout makes this safe)
	// plus Offset, itself a TAC value so indexed writes work in a loop.
	TacStoreByte
	TacLoadByte
)

func NewLabel(name string) TacInstruction        { return TacInstruction{Kind: TacLabel, Label: name} }
func NewFunctionLabel(name string, params []string) TacInstruction {
	return TacInstruction{Kind: TacFunctionLabel, Label: name, ParamNames: params}
}
func NewGoto(label string) TacInstruction { return TacInstruction{Kind: TacGoto, Label: label} }
func NewProgramStart() TacInstruction     { return TacInstruction{Kind: TacProgramStart} }

func NewAssign(dst VariableValue, v TacValue) TacInstruction {
	return TacInstruction{Kind: TacAssign, Dst: dst, Value: v, HasDst: true}
}

func NewBinOp(dst VariableValue, l TacValue, op BinOpTac, r TacValue) TacInstruction {
	return TacInstruction{Kind: TacBinOp, Dst: dst, Left: l, Bin: op, Right: r, HasDst: true}
}

func NewUnaryOp(dst VariableValue, op UnaryOpTac, x TacValue) TacInstruction {
	return TacInstruction{Kind: TacUnaryOp, Dst: dst, Un: op, Left: x, HasDst: true}
}

func NewCompareAndGoto(l TacValue, r TacValue, cmp CmpKind, label string) TacInstruction {
	return TacInstruction{Kind: TacCompareAndGoto, Left: l, Right: r, Cmp: cmp, Label: label}
}

func NewReturn(v TacValue, has bool) TacInstruction {
	return TacInstruction{Kind: TacReturn, Value: v, HasDst: has}
}

func NewCall(name string, args []TacValue, dst VariableValue, has bool) TacInstruction {
	return TacInstruction{Kind: TacCall, Callee: name, Args: args, Dst: dst, HasDst: has}
}

func NewExternCall(name string, args []TacValue, dst VariableValue, has bool) TacInstruction {
	return TacInstruction{Kind: TacExternCall, Callee: name, Args: args, Dst: dst, HasDst: has}
}

func NewPush(v TacValue) TacInstruction       { return TacInstruction{Kind: TacPush, Push: v} }
func NewPop(v VariableValue) TacInstruction   { return TacInstruction{Kind: TacPop, Pop: v} }
func NewMovRSPTo(v VariableValue) TacInstruction { return TacInstruction{Kind: TacMovRSPTo, Pop: v} }

// Uses returns the variables read by this instruction, for liveness
// analysis.
func (t TacInstruction) Uses() []string {
	var out []string
	add := func(v TacValue) {
		if v.Kind == TvVariable {
			out = append(out, v.Name)
		}
	}
	switch t.Kind {
	case TacAssign:
		add(t.Value)
	case TacBinOp:
		add(t.Left)
		add(t.Right)
	case TacUnaryOp:
		add(t.Left)
	case TacCompareAndGoto:
		add(t.Left)
		add(t.Right)
	case TacReturn:
		if t.HasDst {
			add(t.Value)
		}
	case TacCall, TacExternCall:
		for _, a := range t.Args {
			add(a)
		}
	case TacPush:
		add(t.Push)
	case TacStoreByte:
		add(t.Addr)
		add(t.Offset)
		add(t.Byte)
	case TacLoadByte:
		add(t.Addr)
		add(t.Offset)
	}
	return out
}

// Defs returns the variables written by this instruction, for liveness
// analysis.
func (t TacInstruction) Defs() []string {
	switch t.Kind {
	case TacAssign, TacBinOp, TacUnaryOp:
		return []string{t.Dst.Name}
	case TacCall, TacExternCall:
		if t.HasDst {
			return []string{t.Dst.Name}
		}
	case TacPop, TacMovRSPTo:
		return []string{t.Pop.Name}
	case TacFunctionLabel:
		return append([]string{}, t.ParamNames...)
	case TacLoadByte:
		return []string{t.Dst.Name}
	}
	return nil
}
