// Completion: 100% - REX/ModRM/SIB machine-code encoder
package main

import "encoding/binary"

// SyscallPatch marks a `call [rip+rel32]` (AExternCall) site whose rel32
// can't be filled in until the PE writer knows the target's final IAT
// RVA.
type SyscallPatch struct {
	Name   string // imported function name, e.g. "WriteFile"
	Offset int    // offset of the 4-byte placeholder within Code
}

// MachineCode is the assembler's output: raw .text bytes, the resolved
// label/jump references already patched in, and the still-unresolved
// import-call sites left for the PE writer.
type MachineCode struct {
	Code        []byte
	Syscalls    []SyscallPatch
	EntryOffset int // offset of the ProgramStart instruction, the PE entry point
}

type jumpPatch struct {
	offset int // offset of the 4-byte rel32 placeholder
	label  string
}

// Assembler walks a two-operand assembly IR and emits x86-64 machine
// code. Every intra-.text control-transfer (Jmp/Jcc/Call to a
// user function) is encoded as a 5- or 6-byte rel32 form with a
// placeholder, patched once every label's final offset is known; imported
// DLL calls are left as ExternCall patches for the PE writer.
type Assembler struct {
	code        []byte
	labelAddr   map[string]int
	jumps       []jumpPatch
	syscalls    []SyscallPatch
	entryOffset int
	haveEntry   bool
}

// Assemble runs the full pass: emit, then patch.
func Assemble(in []AsmInstr) (*MachineCode, error) {
	a := &Assembler{labelAddr: map[string]int{}}
	for _, ins := range in {
		a.emit(ins)
	}
	for _, p := range a.jumps {
		target, ok := a.labelAddr[p.label]
		if !ok {
			return nil, InternalError("assembler: undefined label " + p.label)
		}
		rel := int32(target - (p.offset + 4))
		binary.LittleEndian.PutUint32(a.code[p.offset:p.offset+4], uint32(rel))
	}
	if !a.haveEntry {
		return nil, InternalError("assembler: no ProgramStart instruction emitted")
	}
	return &MachineCode{Code: a.code, Syscalls: a.syscalls, EntryOffset: a.entryOffset}, nil
}

func (a *Assembler) byte(b byte)      { a.code = append(a.code, b) }
func (a *Assembler) bytes(bs ...byte) { a.code = append(a.code, bs...) }
func (a *Assembler) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	a.code = append(a.code, b[:]...)
}
func (a *Assembler) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	a.code = append(a.code, b[:]...)
}

func regParts(r PReg) (low3 byte, ext byte) { return byte(r) & 7, (byte(r) >> 3) & 1 }

// rex builds a REX prefix. w is always 1 here (every GP operand is
// 64-bit); r/x/b are the extension bits for the ModRM.reg, SIB.index, and
// ModRM.rm/SIB.base fields respectively.
func rex(w, r, x, b byte) byte { return 0x40 | w<<3 | r<<2 | x<<1 | b }

// emitModRM writes the REX prefix, opcode, and ModRM[/SIB/disp] for one
// instruction relating a register (regOperand, always encoded in
// ModRM.reg) and an r/m operand (rmOperand: a register or a RSP/R11-based
// memory reference, our only two memory bases).
func (a *Assembler) emitModRM(opcode []byte, regOperand PReg, rm Operand) {
	regLow, regExt := regParts(regOperand)
	switch rm.Kind {
	case OpReg:
		rmLow, rmExt := regParts(rm.Reg)
		a.byte(rex(1, regExt, 0, rmExt))
		a.bytes(opcode...)
		a.byte(modrm(3, regLow, rmLow))
	case OpMemReg:
		baseLow, baseExt := regParts(rm.Reg)
		a.byte(rex(1, regExt, 0, baseExt))
		a.bytes(opcode...)
		if baseLow == 4 { // RSP/R12 as base always needs a SIB byte
			a.byte(modrm(2, regLow, 4))
			a.byte(sib(0, 4, baseLow)) // scale=0, index=none(100), base
		} else {
			a.byte(modrm(2, regLow, baseLow))
		}
		a.u32(uint32(rm.Disp))
	default:
		panic("assembler: rm operand must be a register or RSP/R11-based memory reference")
	}
}

func modrm(mod, reg, rm byte) byte { return mod<<6 | (reg&7)<<3 | (rm & 7) }
func sib(scale, index, base byte) byte { return scale<<6 | (index&7)<<3 | (base & 7) }

// regOf extracts the PReg out of an operand that must be a plain register.
func regOf(op Operand) PReg {
	if op.Kind != OpReg {
		panic("assembler: expected a register operand")
	}
	return op.Reg
}

func (a *Assembler) emit(ins AsmInstr) {
	switch ins.Kind {
	case XLabel:
		a.labelAddr[ins.Label] = len(a.code)
		if ins.IsFunc && ins.FrameSize > 0 {
			a.emitArith([]byte{0x81}, 5, Reg(PRegRSP), Imm(ins.FrameSize)) // sub rsp, FrameSize
		}

	case XProgramStart:
		a.entryOffset = len(a.code)
		a.haveEntry = true

	case XMov:
		a.emitMov(ins.Dst, ins.Src)

	case XMovByte:
		a.emitMovByte(ins.Dst, ins.Src)
	case XMovzxByte:
		a.emitMovzxByte(ins.Dst, ins.Src)

	case XAdd:
		a.emitArithBinary([]byte{0x01}, []byte{0x03}, []byte{0x81}, 0, ins.Dst, ins.Src)
	case XSub:
		a.emitArithBinary([]byte{0x29}, []byte{0x2B}, []byte{0x81}, 5, ins.Dst, ins.Src)
	case XAnd:
		a.emitArithBinary([]byte{0x21}, []byte{0x23}, []byte{0x81}, 4, ins.Dst, ins.Src)
	case XOr:
		a.emitArithBinary([]byte{0x09}, []byte{0x0B}, []byte{0x81}, 1, ins.Dst, ins.Src)
	case XXor:
		a.emitArithBinary([]byte{0x31}, []byte{0x33}, []byte{0x81}, 6, ins.Dst, ins.Src)
	case XCmp:
		a.emitArithBinary([]byte{0x39}, []byte{0x3B}, []byte{0x81}, 7, ins.Dst, ins.Src)

	case XMul:
		a.emitMul(ins.Dst, ins.Src)

	case XDiv:
		a.emitDiv(ins.Src)

	case XNot:
		a.emitNot(ins.Dst)

	case XJmp:
		a.byte(0xE9)
		a.jumps = append(a.jumps, jumpPatch{offset: len(a.code), label: ins.Label})
		a.u32(0)

	case XJcc:
		a.bytes(0x0F, jccOpcode(ins.Cmp))
		a.jumps = append(a.jumps, jumpPatch{offset: len(a.code), label: ins.Label})
		a.u32(0)

	case XPush:
		a.emitPush(ins.Src)
	case XPop:
		a.emitPop(ins.Dst)

	case XRet:
		a.byte(0xC3)

	case XCall:
		a.byte(0xE8)
		a.jumps = append(a.jumps, jumpPatch{offset: len(a.code), label: ins.Callee})
		a.u32(0)

	case XExternCall:
		// call [rip+rel32] through the IAT; the PE writer fills in the real rel32 once it has
		// laid out the Import Address Table.
		a.bytes(0xFF, 0x15)
		a.syscalls = append(a.syscalls, SyscallPatch{Name: ins.Callee, Offset: len(a.code)})
		a.u32(0)

	case XNop:
		a.byte(0x90)

	case XComment:
		// no bytes emitted

	default:
		panic("assembler: unhandled AsmKind")
	}
}

// emitMov handles every Mov shape: reg<-reg, reg<-mem, mem<-reg, reg<-imm
// (always a full 64-bit immediate), and mem<-imm (32-bit sign-extended;
// codegen never stores a constant wider than that directly to memory).
func (a *Assembler) emitMov(dst, src Operand) {
	if src.Kind == OpImm {
		switch dst.Kind {
		case OpReg:
			low, ext := regParts(dst.Reg)
			a.byte(rex(1, 0, 0, ext))
			a.byte(0xB8 + low)
			a.u64(uint64(src.Imm))
			return
		case OpMemReg:
			baseLow, baseExt := regParts(dst.Reg)
			a.byte(rex(1, 0, 0, baseExt))
			a.byte(0xC7)
			if baseLow == 4 {
				a.byte(modrm(2, 0, 4))
				a.byte(sib(0, 4, baseLow))
			} else {
				a.byte(modrm(2, 0, baseLow))
			}
			a.u32(uint32(dst.Disp))
			a.u32(uint32(int32(src.Imm)))
			return
		}
	}
	switch {
	case dst.Kind == OpReg:
		a.emitModRM([]byte{0x8B}, dst.Reg, src) // MOV r, r/m
	case src.Kind == OpReg:
		a.emitModRM([]byte{0x89}, src.Reg, dst) // MOV r/m, r
	default:
		panic("assembler: Mov needs at least one register operand")
	}
}

// emitMovByte encodes a single-byte store: MOV r/m8, r8 (88 /r) or
// MOV r/m8, imm8 (C6 /0 ib). A REX prefix (W=0) is always emitted so a
// source in RSP..RDI selects SPL/BPL/SIL/DIL rather than AH..BH.
func (a *Assembler) emitMovByte(dst, src Operand) {
	if dst.Kind != OpMemReg {
		panic("assembler: byte store destination must be a memory reference")
	}
	baseLow, baseExt := regParts(dst.Reg)
	writeModRM := func(regField byte) {
		if baseLow == 4 {
			a.byte(modrm(2, regField, 4))
			a.byte(sib(0, 4, baseLow))
		} else {
			a.byte(modrm(2, regField, baseLow))
		}
		a.u32(uint32(dst.Disp))
	}
	switch src.Kind {
	case OpReg:
		srcLow, srcExt := regParts(src.Reg)
		a.byte(rex(0, srcExt, 0, baseExt))
		a.byte(0x88)
		writeModRM(srcLow)
	case OpImm:
		a.byte(rex(0, 0, 0, baseExt))
		a.byte(0xC6)
		writeModRM(0)
		a.byte(byte(src.Imm))
	default:
		panic("assembler: byte store source must be a register or immediate")
	}
}

// emitMovzxByte encodes a zero-extending byte load: MOVZX r64, r/m8
// (REX.W 0F B6 /r).
func (a *Assembler) emitMovzxByte(dst, src Operand) {
	if dst.Kind != OpReg || src.Kind != OpMemReg {
		panic("assembler: byte load is register <- memory only")
	}
	dstLow, dstExt := regParts(dst.Reg)
	baseLow, baseExt := regParts(src.Reg)
	a.byte(rex(1, dstExt, 0, baseExt))
	a.bytes(0x0F, 0xB6)
	if baseLow == 4 {
		a.byte(modrm(2, dstLow, 4))
		a.byte(sib(0, 4, baseLow))
	} else {
		a.byte(modrm(2, dstLow, baseLow))
	}
	a.u32(uint32(src.Disp))
}

// emitArithBinary picks the r/m-is-dst form when dst is memory (opcode
// rmOp, reg field is src) or the reg-is-dst form otherwise (opcode regOp,
// reg field is dst); an immediate src always uses the /digit extension
// form with dst (register or memory) as the r/m operand.
func (a *Assembler) emitArithBinary(rmOp, regOp, immOp []byte, digit byte, dst, src Operand) {
	if src.Kind == OpImm {
		a.emitArith(immOp, digit, dst, src)
		return
	}
	switch {
	case dst.Kind == OpReg:
		a.emitModRM(regOp, dst.Reg, src)
	case src.Kind == OpReg:
		a.emitModRM(rmOp, src.Reg, dst)
	default:
		panic("assembler: binary arithmetic needs at least one register operand")
	}
}

// emitArith encodes the `/digit imm32` extended-opcode form used by
// Add/Sub/Cmp with an immediate; the ModRM.reg field carries
// the opcode extension digit, not a second operand register.
func (a *Assembler) emitArith(opcode []byte, digit byte, dst Operand, imm Operand) {
	switch dst.Kind {
	case OpReg:
		low, ext := regParts(dst.Reg)
		a.byte(rex(1, 0, 0, ext))
		a.bytes(opcode...)
		a.byte(modrm(3, digit, low))
	case OpMemReg:
		baseLow, baseExt := regParts(dst.Reg)
		a.byte(rex(1, 0, 0, baseExt))
		a.bytes(opcode...)
		if baseLow == 4 {
			a.byte(modrm(2, digit, 4))
			a.byte(sib(0, 4, baseLow))
		} else {
			a.byte(modrm(2, digit, baseLow))
		}
		a.u32(uint32(dst.Disp))
	default:
		panic("assembler: arithmetic-with-immediate needs a register or memory destination")
	}
	a.u32(uint32(int32(imm.Imm)))
}

// emitMul encodes the two-operand IMUL (0F AF /r): `dst *= src`, dst must
// be a register (the simplifier only ever aliases Mul's dst to one of its
// sources, so a memory dst would mean a spilled multiply result — not
// produced by the current register allocator in practice, but guarded
// here rather than silently mis-encoded).
func (a *Assembler) emitMul(dst, src Operand) {
	if dst.Kind != OpReg {
		panic("assembler: Mul destination must be a register")
	}
	a.emitModRM([]byte{0x0F, 0xAF}, dst.Reg, src)
}

// emitDiv encodes the one-operand unsigned DIV (F7 /6): RDX:RAX / src ->
// quotient in RAX, remainder in RDX.
func (a *Assembler) emitDiv(src Operand) {
	switch src.Kind {
	case OpReg:
		low, ext := regParts(src.Reg)
		a.byte(rex(1, 0, 0, ext))
		a.byte(0xF7)
		a.byte(modrm(3, 6, low))
	case OpMemReg:
		baseLow, baseExt := regParts(src.Reg)
		a.byte(rex(1, 0, 0, baseExt))
		a.byte(0xF7)
		if baseLow == 4 {
			a.byte(modrm(2, 6, 4))
			a.byte(sib(0, 4, baseLow))
		} else {
			a.byte(modrm(2, 6, baseLow))
		}
		a.u32(uint32(src.Disp))
	default:
		panic("assembler: Div operand must be a register or memory reference")
	}
}

func (a *Assembler) emitNot(dst Operand) {
	switch dst.Kind {
	case OpReg:
		low, ext := regParts(dst.Reg)
		a.byte(rex(1, 0, 0, ext))
		a.byte(0xF7)
		a.byte(modrm(3, 2, low))
	case OpMemReg:
		baseLow, baseExt := regParts(dst.Reg)
		a.byte(rex(1, 0, 0, baseExt))
		a.byte(0xF7)
		if baseLow == 4 {
			a.byte(modrm(2, 2, 4))
			a.byte(sib(0, 4, baseLow))
		} else {
			a.byte(modrm(2, 2, baseLow))
		}
		a.u32(uint32(dst.Disp))
	default:
		panic("assembler: Not operand must be a register or memory reference")
	}
}

func (a *Assembler) emitPush(src Operand) {
	switch src.Kind {
	case OpReg:
		low, ext := regParts(src.Reg)
		if ext == 1 {
			a.byte(rex(0, 0, 0, ext))
		}
		a.byte(0x50 + low)
	case OpImm:
		a.byte(0x68)
		a.u32(uint32(int32(src.Imm)))
	default:
		panic("assembler: Push operand must be a register or immediate")
	}
}

func (a *Assembler) emitPop(dst Operand) {
	low, ext := regParts(regOf(dst))
	if ext == 1 {
		a.byte(rex(0, 0, 0, ext))
	}
	a.byte(0x58 + low)
}

// jccOpcode maps a comparison to its Jcc tttn nibble: Jcc tests the flags CMP(left, right)
// just set, so CmpLtTac -> JL, etc.
func jccOpcode(c CmpKind) byte {
	switch c {
	case CmpEqTac:
		return 0x84 // JE/JZ
	case CmpNeTac:
		return 0x85 // JNE/JNZ
	case CmpLtTac:
		return 0x8C // JL
	case CmpLeTac:
		return 0x8E // JLE
	case CmpGtTac:
		return 0x8F // JG
	case CmpGeTac:
		return 0x8D // JGE
	}
	panic("jccOpcode: unhandled CmpKind")
}
