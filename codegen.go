// Completion: 100% - Three-address code -> abstract x86-64 instructions
package main

import "sort"

// callerSaved is the Win64 caller-saved register set: any
// variable colored to one of these that is live across a Call/ExternCall
// must be spilled to the stack around the call, since the callee is free
// to clobber it.
var callerSaved = map[PReg]bool{
	PRegRAX: true, PRegRCX: true, PRegRDX: true,
	PRegR8: true, PRegR9: true, PRegR10: true, PRegR11: true,
}

// CodeGen lowers a flat TAC stream to codegen's abstract (three-operand)
// x86-64 instruction stream, given the register assignment
// register allocation already produced.
type CodeGen struct {
	code      []TacInstruction
	assign    RegisterAssignment
	live      *Liveness
	pool      *StringPool
	frameSize map[int]int64 // TacFunctionLabel/TacProgramStart index -> reserved spill frame
	pushDepth int64         // bytes pushed since the current function's frame reservation
}

// NewCodeGen prepares a CodeGen, prescanning the TAC stream to size each
// function's (and the top-level entry's) spill frame up front.
func NewCodeGen(code []TacInstruction, assign RegisterAssignment, live *Liveness, pool *StringPool) *CodeGen {
	cg := &CodeGen{code: code, assign: assign, live: live, pool: pool}
	cg.frameSize = computeFrameSizes(code, assign)
	return cg
}

// computeFrameSizes groups the flat TAC stream into per-function (and one
// top-level) segments at each TacFunctionLabel/TacProgramStart, finds the
// highest spill index any variable defined or used in that segment was
// assigned, and sizes a `sub rsp, N` frame reservation that keeps RSP
// 16-byte aligned immediately after the prologue: Win64 guarantees
// (RSP mod 16) == 8 on entry (the `call` instruction's return-address
// push), so the reservation must itself be ≡ 8 (mod 16).
func computeFrameSizes(code []TacInstruction, assign RegisterAssignment) map[int]int64 {
	sizes := map[int]int64{}
	segStart := -1
	maxSpill := -1

	flush := func() {
		if segStart < 0 {
			return
		}
		sizes[segStart] = frameSizeFor(maxSpill)
	}

	for i, ins := range code {
		if ins.Kind == TacFunctionLabel || ins.Kind == TacProgramStart {
			flush()
			segStart = i
			maxSpill = -1
			// Fall through instead of continuing: TacFunctionLabel.Defs()
			// returns ParamNames, and a parameter DSATUR spilled but the
			// body never reads again (e.g. an unused 5th+ argument) would
			// otherwise never contribute to this segment's maxSpill, so
			// the frame wouldn't reserve its slot at all.
		}
		for _, v := range ins.Uses() {
			if idx := assign[v]; isSpillIndex(idx) && idx > maxSpill {
				maxSpill = idx
			}
		}
		for _, v := range ins.Defs() {
			if idx := assign[v]; isSpillIndex(idx) && idx > maxSpill {
				maxSpill = idx
			}
		}
	}
	flush()
	return sizes
}

func frameSizeFor(maxSpill int) int64 {
	if maxSpill < 0 {
		return 8 // alignment pad only, no spills
	}
	slots := int64(maxSpill-numAllocatablePalette) + 1
	bytes := slots * 8
	// round up to the next 16-aligned size, then add the 8-byte pad that
	// restores 16-alignment given the ABI's (RSP mod 16) == 8 entry state.
	rounded := ((bytes + 15) / 16) * 16
	return rounded + 8
}

// Generate produces the abstract instruction stream for the whole program.
func (cg *CodeGen) Generate() []AbsInstr {
	var out []AbsInstr
	for i, ins := range cg.code {
		out = append(out, cg.genInstr(i, ins)...)
	}
	return out
}

func (cg *CodeGen) operand(v TacValue) Operand {
	switch v.Kind {
	case TvConstant:
		return Imm(v.Const)
	case TvStringLiteral:
		return Imm(int64(cg.pool.Intern(v.Name)))
	default:
		return cg.varOperand(v.Name)
	}
}

func (cg *CodeGen) varOperand(name string) Operand {
	idx, ok := cg.assign[name]
	if !ok {
		panic("codegen: variable " + name + " has no register assignment")
	}
	if isSpillIndex(idx) {
		disp := int32(8*(idx-numAllocatablePalette) + int(cg.pushDepth))
		return MemReg(PRegRSP, disp)
	}
	return Reg(physicalReg(idx))
}

func (cg *CodeGen) genInstr(i int, ins TacInstruction) []AbsInstr {
	switch ins.Kind {
	case TacLabel:
		return []AbsInstr{{Kind: ALabel, Label: ins.Label}}

	case TacFunctionLabel:
		cg.pushDepth = 0
		frame := cg.frameSize[i]
		return []AbsInstr{{
			Kind:      AFunctionPrologue,
			Label:     ins.Label,
			ParamMap:  cg.paramSlots(ins.ParamNames, frame),
			FrameSize: frame,
		}}

	case TacProgramStart:
		cg.pushDepth = 0
		frame := cg.frameSize[i]
		out := []AbsInstr{{Kind: AProgramStart}}
		if frame > 0 {
			out = append(out, rspAdjust(ASub, frame))
		}
		return out

	case TacAssign:
		return []AbsInstr{{Kind: AMov, Dst: cg.varOperand(ins.Dst.Name), Src1: cg.operand(ins.Value)}}

	case TacBinOp:
		return cg.genBinOp(ins)

	case TacUnaryOp:
		return cg.genUnaryOp(ins)

	case TacCompareAndGoto:
		return []AbsInstr{
			{Kind: ACmp, Src1: cg.operand(ins.Left), Src2: cg.operand(ins.Right), HasSrc2: true},
			{Kind: AJcc, Cmp: ins.Cmp, Label: ins.Label},
		}

	case TacGoto:
		return []AbsInstr{{Kind: AJmp, Label: ins.Label}}

	case TacReturn:
		var out []AbsInstr
		if ins.HasDst {
			out = append(out, AbsInstr{Kind: AMov, Dst: Reg(PRegRAX), Src1: cg.operand(ins.Value)})
		}
		if frame := cg.enclosingFrameSize(i); frame > 0 {
			out = append(out, rspAdjust(AAdd, frame))
		}
		out = append(out, AbsInstr{Kind: ARet})
		return out

	case TacCall, TacExternCall:
		return cg.genCall(i, ins)

	case TacPush:
		cg.pushDepth += 8
		return []AbsInstr{{Kind: APush, Src1: cg.operand(ins.Push)}}

	case TacPop:
		cg.pushDepth -= 8
		return []AbsInstr{{Kind: APop, Dst: cg.varOperand(ins.Pop.Name)}}

	case TacMovRSPTo:
		return []AbsInstr{{Kind: AMov, Dst: cg.varOperand(ins.Pop.Name), Src1: Reg(PRegRSP)}}

	case TacStoreByte:
		return cg.genStoreByte(ins)
	case TacLoadByte:
		return cg.genLoadByte(ins)

	case TacDirectInstruction:
		return nil

	default:
		panic("codegen: unhandled TacKind")
	}
}

// paramSlots builds the Win64 parameter-marshalling table for a function
// entry: the first four arrive in RCX/RDX/R8/R9, the rest on the caller's
// stack above the return address and the (already-consumed) shadow
// space. Since ParamPrecoloring pins each parameter's allocated
// register to exactly its arrival register for the first four, those
// slots collapse to no-ops in the simplifier; only overflow parameters and
// parameters DSATUR had to spill produce a real Mov.
//
// A parameter's destination (To) is whatever register allocation gave
// it — cg.varOperand handles both a plain register and a spill slot, so
// a 5th-or-later parameter that DSATUR also had to spill (more than 11
// live overflow parameters) marshals into its stack slot instead of
// panicking on a palette index physicalReg doesn't recognize.
//
// frame is this function's own `sub rsp, frame` reservation (already
// executed by the time these Movs run, per AFunctionPrologue's ordering
// in simplifier.go): an overflow parameter's source offset is relative
// to RSP as it stood on entry, before that reservation, so frame has to
// be added back in or the read lands frame bytes into the wrong slot.
func (cg *CodeGen) paramSlots(names []string, frame int64) []ParamSlot {
	var slots []ParamSlot
	for i, name := range names {
		var from Operand
		if i < len(winArgRegs) {
			from = Reg(physicalReg(winArgRegs[i]))
		} else {
			// Caller pushed overflow args right-to-left below the return
			// address; shadow space (32 bytes) always precedes them.
			disp := int32(frame) + int32(8+32+8*(i-len(winArgRegs)))
			from = MemReg(PRegRSP, disp)
		}
		slots = append(slots, ParamSlot{From: from, To: cg.varOperand(name)})
	}
	return slots
}

func rspAdjust(kind AbsKind, amount int64) AbsInstr {
	return AbsInstr{Kind: kind, Dst: Reg(PRegRSP), Src1: Reg(PRegRSP), Src2: Imm(amount), HasSrc2: true}
}

// enclosingFrameSize finds the frame size recorded for the
// FunctionLabel/ProgramStart segment instruction i falls inside.
func (cg *CodeGen) enclosingFrameSize(i int) int64 {
	for j := i; j >= 0; j-- {
		if cg.code[j].Kind == TacFunctionLabel || cg.code[j].Kind == TacProgramStart {
			return cg.frameSize[j]
		}
	}
	return 0
}

func absBinKind(op BinOpTac) AbsKind {
	switch op {
	case TacAdd:
		return AAdd
	case TacSub:
		return ASub
	case TacMul:
		return AMul
	case TacAnd:
		return AAnd
	case TacOr:
		return AOr
	case TacXor:
		return AXor
	}
	panic("absBinKind: not a direct arithmetic/bitwise opcode")
}

// genBinOp lowers a TAC BinOp. TacDiv/TacMod share the hardware's DIV
// instruction, which always produces both a quotient (into RAX) and a
// remainder (into RDX); since our TAC only ever wants one half, the other
// half is routed to a fixed scratch register rather than threaded through
// register allocation.
func (cg *CodeGen) genBinOp(ins TacInstruction) []AbsInstr {
	dst := cg.varOperand(ins.Dst.Name)
	l := cg.operand(ins.Left)
	r := cg.operand(ins.Right)

	switch ins.Bin {
	case TacDiv:
		return []AbsInstr{{Kind: ADiv, Dst: dst, Dst2: Reg(PRegRDX), Src3: l, Src4: r}}
	case TacMod:
		return []AbsInstr{{Kind: ADiv, Dst: Reg(PRegRAX), Dst2: dst, Src3: l, Src4: r}}
	default:
		return []AbsInstr{{Kind: absBinKind(ins.Bin), Dst: dst, Src1: l, Src2: r, HasSrc2: true}}
	}
}

// genUnaryOp lowers Neg/Not. Neg is realized as `dst = 0 - x` (d-0
// would leave d unchanged), keeping the Mov-then-Sub shape the
// simplifier expects while actually negating. Not is realized as
// `dst = x XOR 1` rather than a bitwise complement, since our booleans are
// 0/1 integers and a true bitwise NOT would produce -1/-2, not 1/0.
func (cg *CodeGen) genUnaryOp(ins TacInstruction) []AbsInstr {
	dst := cg.varOperand(ins.Dst.Name)
	x := cg.operand(ins.Left)
	switch ins.Un {
	case TacNeg:
		return []AbsInstr{
			{Kind: AMov, Dst: dst, Src1: Imm(0)},
			{Kind: ASub, Dst: dst, Src1: dst, Src2: x, HasSrc2: true},
		}
	case TacNot:
		return []AbsInstr{{Kind: AXor, Dst: dst, Src1: x, Src2: Imm(1), HasSrc2: true}}
	}
	panic("codegen: unhandled UnaryOpTac")
}

// genCall marshals arguments into the Win64 integer argument registers
// (overflow on the stack), saves any caller-saved register holding a
// variable that's live after the call, reserves shadow space plus an
// alignment pad, and restores everything afterward.
func (cg *CodeGen) genCall(i int, ins TacInstruction) []AbsInstr {
	var out []AbsInstr

	liveAfter := map[string]bool{}
	if i+1 < len(cg.live.LiveBefore) {
		liveAfter = cg.live.LiveBefore[i+1]
	}
	var toSave []string
	for name := range liveAfter {
		if ins.HasDst && name == ins.Dst.Name {
			continue
		}
		idx, ok := cg.assign[name]
		if !ok || isSpillIndex(idx) {
			continue
		}
		if callerSaved[physicalReg(idx)] {
			toSave = append(toSave, name)
		}
	}
	sort.Strings(toSave)

	for _, name := range toSave {
		out = append(out, AbsInstr{Kind: APush, Src1: Reg(physicalReg(cg.assign[name]))})
		cg.pushDepth += 8
	}

	// Stack arguments go first, right to left, while every argument
	// register still holds its pre-call value; only then are the first
	// four marshalled into RCX/RDX/R8/R9.
	var stackArgs []TacValue
	for idx, a := range ins.Args {
		if idx >= len(winArgRegs) {
			stackArgs = append(stackArgs, a)
		}
	}
	shadow := int64(32)
	argBytes := int64(len(stackArgs)) * 8

	// The 16-byte alignment pad goes above the pushed arguments, so the
	// callee's view — return address, exactly 32 bytes of shadow, then
	// the stack arguments — never shifts with the call site's push
	// depth (paramSlots depends on that fixed layout).
	pad := int64(0)
	if (cg.pushDepth+argBytes+shadow)%16 != 0 {
		pad = 8
	}
	if pad != 0 {
		out = append(out, rspAdjust(ASub, pad))
		cg.pushDepth += pad
	}
	for j := len(stackArgs) - 1; j >= 0; j-- {
		out = append(out, AbsInstr{Kind: APush, Src1: cg.operand(stackArgs[j])})
		cg.pushDepth += 8
	}
	out = append(out, cg.marshalRegArgs(ins.Args)...)

	out = append(out, rspAdjust(ASub, shadow))
	cg.pushDepth += shadow

	kind := ACall
	if ins.Kind == TacExternCall {
		kind = AExternCall
	}
	out = append(out, AbsInstr{Kind: kind, Callee: ins.Callee})

	out = append(out, rspAdjust(AAdd, shadow))
	cg.pushDepth -= shadow

	if argBytes+pad > 0 {
		out = append(out, rspAdjust(AAdd, argBytes+pad))
		cg.pushDepth -= argBytes + pad
	}

	if ins.HasDst {
		out = append(out, AbsInstr{Kind: AMov, Dst: cg.varOperand(ins.Dst.Name), Src1: Reg(PRegRAX)})
	}

	for j := len(toSave) - 1; j >= 0; j-- {
		out = append(out, AbsInstr{Kind: APop, Dst: Reg(physicalReg(cg.assign[toSave[j]]))})
		cg.pushDepth -= 8
	}

	return out
}

// marshalRegArgs moves the first four arguments into RCX/RDX/R8/R9 as
// a parallel move: an argument register may itself be the source of a
// later move, so a naive left-to-right sequence could overwrite a value
// it still needs to read. Moves whose destination no other pending move
// reads are emitted first; a cycle (every remaining destination feeds
// another pending source) is broken by staging one source through R15.
func (cg *CodeGen) marshalRegArgs(args []TacValue) []AbsInstr {
	type argMove struct {
		dst PReg
		src Operand
	}
	var moves []argMove
	for i, a := range args {
		if i >= len(winArgRegs) {
			break
		}
		moves = append(moves, argMove{dst: physicalReg(winArgRegs[i]), src: cg.operand(a)})
	}

	var out []AbsInstr
	for len(moves) > 0 {
		emitted := -1
		for i, m := range moves {
			blocked := false
			for j, o := range moves {
				if j != i && o.src.Kind == OpReg && o.src.Reg == m.dst {
					blocked = true
					break
				}
			}
			if !blocked {
				if !(m.src.Kind == OpReg && m.src.Reg == m.dst) {
					out = append(out, AbsInstr{Kind: AMov, Dst: Reg(m.dst), Src1: m.src})
				}
				emitted = i
				break
			}
		}
		if emitted >= 0 {
			moves = append(moves[:emitted], moves[emitted+1:]...)
			continue
		}
		r := moves[0].src.Reg
		out = append(out, AbsInstr{Kind: AMov, Dst: Reg(PRegR15), Src1: Reg(r)})
		for j := range moves {
			if moves[j].src.Kind == OpReg && moves[j].src.Reg == r {
				moves[j].src = Reg(PRegR15)
			}
		}
	}
	return out
}

// genStoreByte/genLoadByte realize the byte-addressable scratch-memory
// extension runtimehelpers.go needs:
// `Addr` is a constant scratch-buffer base or a variable already holding
// one, `Offset` is a constant or a variable byte count to add in. The
// access itself is a single byte wide — a full-width Mov would smear
// seven extra bytes over the neighboring buffer positions, which the
// reverse-order decimal formatter writes to immediately afterward.
func (cg *CodeGen) genStoreByte(ins TacInstruction) []AbsInstr {
	pre, addr := cg.byteAddr(ins.Addr, ins.Offset)
	src := cg.operand(ins.Byte)
	if src.Kind == OpMemReg {
		// a spilled source can't feed a byte store directly (the address
		// base already occupies R11); stage its low byte through R15.
		pre = append(pre, AbsInstr{Kind: AMov, Dst: Reg(PRegR15), Src1: src})
		src = Reg(PRegR15)
	}
	return append(pre, AbsInstr{Kind: AMovByte, Dst: addr, Src1: src})
}

func (cg *CodeGen) genLoadByte(ins TacInstruction) []AbsInstr {
	pre, addr := cg.byteAddr(ins.Addr, ins.Offset)
	dst := cg.varOperand(ins.Dst.Name)
	if dst.Kind != OpReg {
		// MOVZX needs a register destination; bounce a spilled dst
		// through R15.
		pre = append(pre, AbsInstr{Kind: AMovzxByte, Dst: Reg(PRegR15), Src1: addr})
		return append(pre, AbsInstr{Kind: AMov, Dst: dst, Src1: Reg(PRegR15)})
	}
	return append(pre, AbsInstr{Kind: AMovzxByte, Dst: dst, Src1: addr})
}

// byteAddr computes the effective address for Addr+Offset into R11 — the
// codegen scratch register, never allocated to an ordinary
// TAC variable — since a 64-bit absolute address (our image loads at
// 0x140000000 and up) can't fit a disp32 direct-memory encoding and must
// be materialized with a full 64-bit immediate move first.
func (cg *CodeGen) byteAddr(addr, offset TacValue) ([]AbsInstr, Operand) {
	if addr.Kind == TvConstant && offset.Kind == TvConstant {
		return []AbsInstr{{Kind: AMov, Dst: Reg(PRegR11), Src1: Imm(addr.Const + offset.Const)}}, MemReg(PRegR11, 0)
	}
	var pre []AbsInstr
	pre = append(pre, AbsInstr{Kind: AMov, Dst: Reg(PRegR11), Src1: cg.operand(addr)})
	if offset.Kind == TvConstant {
		if offset.Const != 0 {
			pre = append(pre, AbsInstr{Kind: AAdd, Dst: Reg(PRegR11), Src1: Reg(PRegR11), Src2: Imm(offset.Const), HasSrc2: true})
		}
	} else {
		pre = append(pre, AbsInstr{Kind: AAdd, Dst: Reg(PRegR11), Src1: Reg(PRegR11), Src2: cg.operand(offset), HasSrc2: true})
	}
	return pre, MemReg(PRegR11, 0)
}
