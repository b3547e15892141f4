// Completion: 100% - Three-operand to two-operand instruction simplification
package main

// Simplify lowers codegen's abstract three/four-operand instruction stream
// to the two-operand (or fewer) forms real x86-64 arithmetic instructions
// encode. Real x86-64 ADD/SUB/MUL/etc. read one operand and
// write the same operand back (`dst += src`), so a three-operand
// `Add(dst, a, b)` only avoids an extra Mov when dst already aliases a or
// b; Div and Cmp need their own staging because the hardware pins their
// operands to fixed registers or fixed operand positions.
func Simplify(in []AbsInstr) []AsmInstr {
	var out []AsmInstr
	emit := func(i AsmInstr) { out = append(out, i) }

	for _, ins := range in {
		switch ins.Kind {
		case AMov:
			emit(AsmInstr{Kind: XMov, Dst: ins.Dst, Src: ins.Src1})

		case AMovByte:
			emit(AsmInstr{Kind: XMovByte, Dst: ins.Dst, Src: ins.Src1})
		case AMovzxByte:
			emit(AsmInstr{Kind: XMovzxByte, Dst: ins.Dst, Src: ins.Src1})

		case AAdd, AXor, AAnd, AOr:
			emitCommutative(emit, asmKindFor(ins.Kind), ins.Dst, ins.Src1, ins.Src2)

		case ASub:
			emitNonCommutative(emit, XSub, ins.Dst, ins.Src1, ins.Src2)

		case AMul:
			emitCommutative(emit, XMul, ins.Dst, ins.Src1, ins.Src2)

		case ADiv:
			emitDiv(emit, ins)

		case ANot:
			if operandEq(ins.Dst, ins.Src1) {
				emit(AsmInstr{Kind: XNot, Dst: ins.Dst})
			} else {
				emit(AsmInstr{Kind: XMov, Dst: ins.Dst, Src: ins.Src1})
				emit(AsmInstr{Kind: XNot, Dst: ins.Dst})
			}

		case ACmp:
			emitCmp(emit, ins.Src1, ins.Src2)

		case AJmp:
			emit(AsmInstr{Kind: XJmp, Label: ins.Label})
		case AJcc:
			emit(AsmInstr{Kind: XJcc, Label: ins.Label, Cmp: ins.Cmp})
		case APush:
			emit(AsmInstr{Kind: XPush, Src: ins.Src1})
		case APop:
			emit(AsmInstr{Kind: XPop, Dst: ins.Dst})
		case ARet:
			emit(AsmInstr{Kind: XRet})
		case ACall:
			emit(AsmInstr{Kind: XCall, Callee: ins.Callee})
		case AExternCall:
			emit(AsmInstr{Kind: XExternCall, Callee: ins.Callee})
		case ALabel:
			emit(AsmInstr{Kind: XLabel, Label: ins.Label})
		case AFunctionPrologue:
			emit(AsmInstr{Kind: XLabel, Label: ins.Label, IsFunc: true, FrameSize: ins.FrameSize})
			for _, slot := range ins.ParamMap {
				if operandEq(slot.From, slot.To) {
					continue // already in its home slot, nothing to move
				}
				emit(AsmInstr{Kind: XMov, Dst: slot.To, Src: slot.From})
			}
		case AProgramStart:
			emit(AsmInstr{Kind: XProgramStart})
		case ANop:
			emit(AsmInstr{Kind: XNop})
		case AComment:
			emit(AsmInstr{Kind: XComment, Comment: ins.Comment})
		default:
			panic("simplifier: unhandled AbsKind")
		}
	}
	return fixMemMem(out)
}

// fixMemMem is a final safety pass: x86-64's two-operand encodings allow
// at most one memory operand, but a Mov/arithmetic instruction whose dst
// and src both landed on spilled (memory) variables would ask for two.
// Register allocation keeps spills rare, so this is a defensive backstop
// rather than the common case — it stages the source through R11.
func fixMemMem(in []AsmInstr) []AsmInstr {
	out := make([]AsmInstr, 0, len(in))
	for _, ins := range in {
		switch ins.Kind {
		case XMov, XAdd, XSub, XMul, XXor, XAnd, XOr, XCmp:
			if ins.Dst.Kind == OpMemReg && ins.Src.Kind == OpMemReg {
				out = append(out, AsmInstr{Kind: XMov, Dst: Reg(PRegR11), Src: ins.Src})
				ins.Src = Reg(PRegR11)
			}
		}
		out = append(out, ins)
	}
	return out
}

func asmKindFor(k AbsKind) AsmKind {
	switch k {
	case AAdd:
		return XAdd
	case AXor:
		return XXor
	case AAnd:
		return XAnd
	case AOr:
		return XOr
	}
	panic("asmKindFor: not a commutative arithmetic op")
}

// emitCommutative lowers `op(dst, a, b)` for an operation where operand
// order doesn't change the result, so dst aliasing either source avoids a
// Mov.
func emitCommutative(emit func(AsmInstr), kind AsmKind, dst, a, b Operand) {
	switch {
	case operandEq(dst, a):
		emit(AsmInstr{Kind: kind, Dst: dst, Src: b})
	case operandEq(dst, b):
		emit(AsmInstr{Kind: kind, Dst: dst, Src: a})
	default:
		emit(AsmInstr{Kind: XMov, Dst: dst, Src: a})
		emit(AsmInstr{Kind: kind, Dst: dst, Src: b})
	}
}

// emitNonCommutative lowers `op(dst, a, b)` for subtraction, where operand
// order is significant: dst must hold `a` before the in-place op runs.
func emitNonCommutative(emit func(AsmInstr), kind AsmKind, dst, a, b Operand) {
	if operandEq(dst, a) {
		emit(AsmInstr{Kind: kind, Dst: dst, Src: b})
		return
	}
	if operandEq(dst, b) {
		// dst would be clobbered by the Mov before the subtraction could
		// read b from it; stage through the scratch register instead.
		emit(AsmInstr{Kind: XMov, Dst: Reg(PRegR11), Src: b})
		emit(AsmInstr{Kind: XMov, Dst: dst, Src: a})
		emit(AsmInstr{Kind: kind, Dst: dst, Src: Reg(PRegR11)})
		return
	}
	emit(AsmInstr{Kind: XMov, Dst: dst, Src: a})
	emit(AsmInstr{Kind: kind, Dst: dst, Src: b})
}

// emitDiv stages an abstract four-operand Div through the fixed RAX/RDX
// pair the DIV instruction requires, saving and restoring RDX around it
// when some other live variable is currently colored there.
func emitDiv(emit func(AsmInstr), ins AbsInstr) {
	rd := ins.Dst2
	rdIsRDX := operandEq(rd, Reg(PRegRDX))

	dst, src3, src4 := ins.Dst, ins.Src3, ins.Src4

	if !rdIsRDX {
		emit(AsmInstr{Kind: XPush, Src: Reg(PRegRDX)})
		// codegen computed every [RSP+disp] operand below assuming this
		// function's own frame, with no extra push in between; this Push
		// moves RSP down another 8 bytes until the matching Pop, so any
		// spilled operand read or written inside that window needs its
		// displacement bumped to still name the same slot.
		rd = shiftRSPOperand(rd, 8)
		dst = shiftRSPOperand(dst, 8)
		src3 = shiftRSPOperand(src3, 8)
		src4 = shiftRSPOperand(src4, 8)
	}

	divisor := src4
	if operandEq(divisor, Reg(PRegRAX)) || operandEq(divisor, Reg(PRegRDX)) {
		emit(AsmInstr{Kind: XMov, Dst: Reg(PRegR11), Src: divisor})
		divisor = Reg(PRegR11)
	}

	emit(AsmInstr{Kind: XMov, Dst: Reg(PRegRAX), Src: src3})
	emit(AsmInstr{Kind: XXor, Dst: Reg(PRegRDX), Src: Reg(PRegRDX)})
	emit(AsmInstr{Kind: XDiv, Src: divisor})
	emit(AsmInstr{Kind: XMov, Dst: dst, Src: Reg(PRegRAX)})
	emit(AsmInstr{Kind: XMov, Dst: rd, Src: Reg(PRegRDX)})

	if !rdIsRDX {
		emit(AsmInstr{Kind: XPop, Dst: Reg(PRegRDX)})
	}
}

// shiftRSPOperand bumps an RSP-relative memory operand's displacement by
// delta bytes; any other operand kind (register, immediate, R11-based
// scratch address) is returned unchanged, since only an [RSP+disp]
// reference is affected by a push/pop bracketing it.
func shiftRSPOperand(op Operand, delta int32) Operand {
	if op.Kind == OpMemReg && op.Reg == PRegRSP {
		op.Disp += delta
	}
	return op
}

// emitCmp materializes whichever operand the CMP encoding can't hold
// directly: the left/r-m operand can't be an immediate, and at most one
// operand may be a memory reference.
func emitCmp(emit func(AsmInstr), l, r Operand) {
	if l.Kind == OpImm {
		emit(AsmInstr{Kind: XMov, Dst: Reg(PRegR11), Src: l})
		l = Reg(PRegR11)
	}
	if l.Kind == OpMemReg && r.Kind == OpMemReg {
		emit(AsmInstr{Kind: XMov, Dst: Reg(PRegR11), Src: l})
		l = Reg(PRegR11)
	}
	emit(AsmInstr{Kind: XCmp, Dst: l, Src: r})
}

func operandEq(a, b Operand) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case OpReg:
		return a.Reg == b.Reg
	case OpImm:
		return a.Imm == b.Imm
	case OpMemDirect:
		return a.Addr == b.Addr
	case OpMemReg:
		return a.Reg == b.Reg && a.Disp == b.Disp
	}
	return false
}
