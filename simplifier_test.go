package main

import "testing"

func TestSimplifyCommutativeCoalescesWhenDstAliasesSrc(t *testing.T) {
	// Add(rax, rax, rbx) should not need an extra Mov: dst already equals a.
	in := []AbsInstr{
		{Kind: AAdd, Dst: Reg(PRegRAX), Src1: Reg(PRegRAX), Src2: Reg(PRegRBX), HasSrc2: true},
	}
	out := Simplify(in)
	if len(out) != 1 || out[0].Kind != XAdd || out[0].Dst != Reg(PRegRAX) || out[0].Src != Reg(PRegRBX) {
		t.Errorf("expected a single coalesced Add, got %+v", out)
	}
}

func TestSimplifyCommutativeCoalescesDstAliasesSecondOperand(t *testing.T) {
	// Add(rax, rbx, rax): dst aliases b, so operand order flips but no Mov needed.
	in := []AbsInstr{
		{Kind: AAdd, Dst: Reg(PRegRAX), Src1: Reg(PRegRBX), Src2: Reg(PRegRAX), HasSrc2: true},
	}
	out := Simplify(in)
	if len(out) != 1 || out[0].Src != Reg(PRegRBX) {
		t.Errorf("expected Add rax, rbx with no preceding Mov, got %+v", out)
	}
}

func TestSimplifyCommutativeNeedsMovWhenNoAlias(t *testing.T) {
	in := []AbsInstr{
		{Kind: AAdd, Dst: Reg(PRegRCX), Src1: Reg(PRegRAX), Src2: Reg(PRegRBX), HasSrc2: true},
	}
	out := Simplify(in)
	if len(out) != 2 || out[0].Kind != XMov || out[1].Kind != XAdd {
		t.Errorf("expected Mov then Add, got %+v", out)
	}
}

func TestSimplifySubNonCommutativeStagesThroughScratchWhenDstAliasesB(t *testing.T) {
	// Sub(rax, rbx, rax): dst aliases the subtrahend, needs staging through R11.
	in := []AbsInstr{
		{Kind: ASub, Dst: Reg(PRegRAX), Src1: Reg(PRegRBX), Src2: Reg(PRegRAX), HasSrc2: true},
	}
	out := Simplify(in)
	if len(out) != 3 {
		t.Fatalf("expected a 3-instruction staged sequence, got %+v", out)
	}
	if out[0].Dst != Reg(PRegR11) || out[2].Src != Reg(PRegR11) {
		t.Errorf("expected staging through R11, got %+v", out)
	}
}

func TestSimplifyDivStagesThroughRAXRDX(t *testing.T) {
	in := []AbsInstr{
		{Kind: ADiv, Dst: Reg(PRegRCX), Dst2: Reg(PRegRDX), Src3: Reg(PRegRAX), Src4: Reg(PRegRBX)},
	}
	out := Simplify(in)
	var sawDiv, sawXorRDX bool
	for _, ins := range out {
		if ins.Kind == XDiv {
			sawDiv = true
		}
		if ins.Kind == XXor && ins.Dst == Reg(PRegRDX) {
			sawXorRDX = true
		}
	}
	if !sawDiv || !sawXorRDX {
		t.Errorf("expected a Div zeroing RDX first, got %+v", out)
	}
}

func TestSimplifyDivSavesRDXWhenRemainderGoesElsewhere(t *testing.T) {
	in := []AbsInstr{
		{Kind: ADiv, Dst: Reg(PRegRCX), Dst2: Reg(PRegRBX), Src3: Reg(PRegRAX), Src4: Reg(PRegRCX)},
	}
	out := Simplify(in)
	if out[0].Kind != XPush || out[0].Src != Reg(PRegRDX) {
		t.Errorf("expected RDX to be pushed first since the remainder isn't going there, got %+v", out[0])
	}
	if out[len(out)-1].Kind != XPop || out[len(out)-1].Dst != Reg(PRegRDX) {
		t.Errorf("expected RDX to be restored last, got %+v", out[len(out)-1])
	}
}

func TestSimplifyCmpMaterializesImmediateLeftOperand(t *testing.T) {
	in := []AbsInstr{
		{Kind: ACmp, Src1: Imm(5), Src2: Reg(PRegRAX), HasSrc2: true},
	}
	out := Simplify(in)
	if out[0].Kind != XMov || out[0].Src != Imm(5) {
		t.Fatalf("expected an immediate left operand to be moved into a register first, got %+v", out)
	}
	if out[1].Kind != XCmp || out[1].Dst != Reg(PRegR11) {
		t.Errorf("expected the Cmp to compare via R11, got %+v", out[1])
	}
}

func TestSimplifyNotAliasedSkipsExtraMov(t *testing.T) {
	in := []AbsInstr{{Kind: ANot, Dst: Reg(PRegRAX), Src1: Reg(PRegRAX)}}
	out := Simplify(in)
	if len(out) != 1 || out[0].Kind != XNot {
		t.Errorf("expected a single Not with no preceding Mov, got %+v", out)
	}
}

func TestSimplifyFixMemMemStagesBothMemoryOperands(t *testing.T) {
	a := MemReg(PRegRSP, 0)
	b := MemReg(PRegRSP, 8)
	in := []AbsInstr{{Kind: AMov, Dst: a, Src1: b}}
	out := Simplify(in)
	if len(out) != 2 {
		t.Fatalf("expected the mem-mem Mov to split into a staged pair, got %+v", out)
	}
	if out[0].Src != b || out[1].Src.Kind != OpReg {
		t.Errorf("expected src staged through a register, got %+v", out)
	}
}

func TestSimplifyFunctionPrologueSkipsAlreadyHomeParams(t *testing.T) {
	in := []AbsInstr{
		{
			Kind: AFunctionPrologue, Label: "fn_f_int",
			ParamMap: []ParamSlot{
				{From: Reg(PRegRCX), To: Reg(PRegRCX)}, // already home, no Mov needed
				{From: Reg(PRegRDX), To: Reg(PRegRBX)}, // needs a Mov
			},
		},
	}
	out := Simplify(in)
	movs := 0
	for _, ins := range out {
		if ins.Kind == XMov {
			movs++
		}
	}
	if movs != 1 {
		t.Errorf("expected exactly 1 Mov for the non-home parameter, got %d in %+v", movs, out)
	}
}
