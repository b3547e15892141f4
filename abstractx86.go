// Completion: 100% - Abstract (three-operand) x86-64 IR, codegen's output
package main

// PReg is a physical x86-64 general-purpose register, identified by
// its hardware encoding number 0..15.
type PReg int

const (
	PRegRAX PReg = 0
	PRegRCX PReg = 1
	PRegRDX PReg = 2
	PRegRBX PReg = 3
	PRegRSP PReg = 4
	PRegRBP PReg = 5
	PRegRSI PReg = 6
	PRegRDI PReg = 7
	PRegR8  PReg = 8
	PRegR9  PReg = 9
	PRegR10 PReg = 10
	PRegR11 PReg = 11
	PRegR12 PReg = 12
	PRegR13 PReg = 13
	PRegR14 PReg = 14
	PRegR15 PReg = 15
)

// physicalReg maps a signed palette index (or one of the fixed
// negative registers) to its hardware encoding.
func physicalReg(idx int) PReg {
	switch idx {
	case RegRCX:
		return PRegRCX
	case RegRDX:
		return PRegRDX
	case RegRSI:
		return PRegRSI
	case RegRDI:
		return PRegRDI
	case RegR8:
		return PRegR8
	case RegR9:
		return PRegR9
	case RegR10:
		return PRegR10
	case RegRBX:
		return PRegRBX
	case RegR12:
		return PRegR12
	case RegR13:
		return PRegR13
	case RegR14:
		return PRegR14
	case RegRAX:
		return PRegRAX
	case RegRSP:
		return PRegRSP
	case RegRBP:
		return PRegRBP
	case RegR11:
		return PRegR11
	case RegR15:
		return PRegR15
	default:
		panic("physicalReg: not a register index (spill slot?)")
	}
}

func isSpillIndex(idx int) bool { return idx >= numAllocatablePalette }

// OperandKind tags an abstract or assembly-level x86 operand.
type OperandKind int

const (
	OpReg OperandKind = iota
	OpImm
	OpMemDirect // absolute address
	OpMemReg    // [reg+disp]
)

type Operand struct {
	Kind OperandKind
	Reg  PReg
	Imm  int64
	Addr uint64 // OpMemDirect
	Disp int32  // OpMemReg
}

func Reg(r PReg) Operand                 { return Operand{Kind: OpReg, Reg: r} }
func Imm(v int64) Operand                { return Operand{Kind: OpImm, Imm: v} }
func MemDirect(addr uint64) Operand      { return Operand{Kind: OpMemDirect, Addr: addr} }
func MemReg(r PReg, disp int32) Operand  { return Operand{Kind: OpMemReg, Reg: r, Disp: disp} }

// AbsOp is a three-operand abstract x86-64 instruction, codegen's
// direct output.
type AbsKind int

const (
	AAdd AbsKind = iota
	ASub
	AMul
	AXor
	AAnd
	AOr
	ADiv // quot, rem, num, div — four operands, see Src3/Src4
	AMov
	AMovByte   // byte store: mem8 <- low byte of reg, or imm8
	AMovzxByte // byte load: reg64 <- zero-extended mem8
	ANot
	ACmp
	AJmp
	AJcc
	APush
	APop
	ARet
	ACall
	AExternCall
	ALabel
	AFunctionPrologue // parameter marshalling for a FunctionLabel
	AProgramStart
	ANop
	AComment
)

type AbsInstr struct {
	Kind AbsKind
	Dst  Operand
	Dst2 Operand // ADiv: remainder destination (quotient is Dst)
	Src1 Operand
	Src2 Operand
	Src3 Operand // ADiv: numerator
	Src4 Operand // ADiv: divisor

	Label     string // ALabel, AJmp, AJcc, ACall (direct), AFunctionPrologue name
	Cmp       CmpKind
	Callee    string // ACall/AExternCall target name
	Comment   string
	HasSrc2   bool // distinguishes one- from two-operand forms (Mov/Not/Push/Pop)
	ParamMap  []ParamSlot
	FrameSize int64 // AFunctionPrologue: bytes reserved by this function's `sub rsp, FrameSize`
}

// ParamSlot describes one argument's marshalling for AFunctionPrologue:
// move from its Win64 arrival location into wherever register allocation
// put it. To is usually a register, but a 5th-or-later parameter DSATUR
// had to spill lands in a stack slot too (MemReg off RSP), so To must be
// a full Operand rather than a bare PReg.
type ParamSlot struct {
	From Operand // incoming: a register (first 4) or a stack slot (MemReg off RSP)
	To   Operand
}
