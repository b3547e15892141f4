// Completion: 100% - Two-operand x86-64 assembly IR, the simplifier's output
package main

// AsmKind enumerates the two-operand (or fewer) instruction shapes real
// x86-64 machine code can encode directly. The simplifier
// rewrites codegen's three/four-operand AbsInstr stream down to this set;
// the assembler only ever sees these.
type AsmKind int

const (
	XMov AsmKind = iota
	XMovByte   // mov m8, r8/imm8
	XMovzxByte // movzx r64, m8
	XAdd
	XSub
	XMul // two-operand form only: imul r, r/m
	XXor
	XAnd
	XOr
	XDiv // one operand: the divisor; numerator/quotient/remainder fixed to RAX/RDX
	XNot
	XCmp
	XJmp
	XJcc
	XPush
	XPop
	XRet
	XCall
	XExternCall
	XLabel
	XProgramStart
	XNop
	XComment
)

// AsmInstr is one line of the two-operand assembly-level IR.
type AsmInstr struct {
	Kind AsmKind
	Dst  Operand
	Src  Operand

	Label   string
	Cmp     CmpKind
	Callee  string
	Comment string

	FrameSize int64 // XLabel (function entry): `sub rsp, FrameSize` to emit right after
	IsFunc    bool  // XLabel: marks a function entry vs. an ordinary jump target
}
