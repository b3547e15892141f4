package main

import "testing"

func genTacFor(t *testing.T, src string) []TacInstruction {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	prog = Desugar(prog)
	typed, err := CheckProgram(prog)
	if err != nil {
		t.Fatalf("type error: %v", err)
	}
	Uniquify(typed)
	if err := RejectFloatLowering(typed); err != nil {
		t.Fatalf("unexpected float rejection: %v", err)
	}
	return NewTacGen(NewStringPool()).GenerateProgram(typed)
}

func countKind(code []TacInstruction, k TacKind) int {
	n := 0
	for _, ins := range code {
		if ins.Kind == k {
			n++
		}
	}
	return n
}

func TestTacGenSimpleAssignment(t *testing.T) {
	code := genTacFor(t, "x = 1\n")
	if countKind(code, TacProgramStart) != 1 {
		t.Fatal("expected exactly one ProgramStart marker")
	}
	found := false
	for _, ins := range code {
		if ins.Kind == TacAssign && ins.Dst.Name == "x.0" && ins.Value == TvConst(1) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an Assign x.0 <- 1, got %+v", code)
	}
}

func TestTacGenAddEmitsBinOp(t *testing.T) {
	code := genTacFor(t, "x = 1\ny = x + 2\n")
	if countKind(code, TacBinOp) != 1 {
		t.Fatalf("expected exactly 1 BinOp, got %d in %+v", countKind(code, TacBinOp), code)
	}
}

func TestTacGenIfLowersToCompareAndGoto(t *testing.T) {
	code := genTacFor(t, "if true\n    x = 1\nelse\n    x = 2\n")
	if countKind(code, TacCompareAndGoto) == 0 {
		t.Error("expected at least one CompareAndGoto for the if condition")
	}
	if countKind(code, TacGoto) == 0 {
		t.Error("expected at least one Goto (true-branch skip-past-else)")
	}
}

func TestTacGenIntegerForLoopStructure(t *testing.T) {
	code := genTacFor(t, "for i in 3\n    x = i\n")
	// Head label, bound check, body, increment, back-edge goto, end label.
	if countKind(code, TacLabel) < 2 {
		t.Errorf("expected at least a loop head and end label, got %d labels", countKind(code, TacLabel))
	}
	if countKind(code, TacGoto) == 0 {
		t.Error("expected a back-edge Goto to the loop head")
	}
}

func TestTacGenForLoopOverListUnrollsPerElement(t *testing.T) {
	code := genTacFor(t, "for i in [10, 20, 30]\n    x = i\n")
	assigns := 0
	for _, ins := range code {
		if ins.Kind == TacAssign && ins.Value.Kind == TvConstant {
			switch ins.Value.Const {
			case 10, 20, 30:
				assigns++
			}
		}
	}
	if assigns != 3 {
		t.Errorf("expected the 3 list elements to be assigned directly (no runtime list), got %d matching assigns in %+v", assigns, code)
	}
}

func TestTacGenFunctionCallEmitsFunctionLabelAndCall(t *testing.T) {
	code := genTacFor(t, "fun add(a, b)\n    return a + b\nx = add(1, 2)\n")
	// The runtime helper stubs contribute their own FunctionLabels, so
	// count only add's specialization.
	labels := 0
	for _, ins := range code {
		if ins.Kind == TacFunctionLabel && ins.Label == "fn_add_int_int" {
			labels++
		}
	}
	if labels != 1 {
		t.Fatalf("expected exactly one FunctionLabel for add's single specialization, got %d", labels)
	}
	if countKind(code, TacCall) != 1 {
		t.Fatalf("expected exactly one Call at the use site, got %d", countKind(code, TacCall))
	}
}

func TestTacGenListIndexThroughVariableResolvesAtCompileTime(t *testing.T) {
	code := genTacFor(t, "a = [2, 3, 4]\nx = a[1]\n")
	found := false
	for _, ins := range code {
		if ins.Kind == TacAssign && ins.Value == TvConst(3) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a[1] to resolve to the constant 3 with no runtime list, got %+v", code)
	}
}

func TestTacGenForLoopOverListVariableUnrolls(t *testing.T) {
	code := genTacFor(t, "a = [10, 20]\nfor i in a\n    x = i\n")
	assigns := 0
	for _, ins := range code {
		if ins.Kind == TacAssign && ins.Value.Kind == TvConstant && (ins.Value.Const == 10 || ins.Value.Const == 20) {
			assigns++
		}
	}
	if assigns != 2 {
		t.Errorf("expected both elements of the bound list to be assigned directly, got %d in %+v", assigns, code)
	}
}

func TestTacGenBreakEmitsGotoToLoopExit(t *testing.T) {
	code := genTacFor(t, "for i in 5\n    if i == 2\n        break\n")
	// CompareAndGoto for both the loop bound and the if, plus the break Goto
	// and the increment back-edge Goto.
	if countKind(code, TacGoto) < 2 {
		t.Errorf("expected at least 2 Gotos (break + back-edge), got %d", countKind(code, TacGoto))
	}
}

func TestTacGenPowerLowersToMultiplicationLoop(t *testing.T) {
	code := genTacFor(t, "x = 2 ^ 3\n")
	mulCount := 0
	for _, ins := range code {
		if ins.Kind == TacBinOp && ins.Bin == TacMul {
			mulCount++
		}
	}
	if mulCount == 0 {
		t.Error("expected the power operator to lower to at least one Mul instruction")
	}
}

func TestTacGenExitProcessAppendedByPipelineNotTacGen(t *testing.T) {
	code := genTacFor(t, "x = 1\n")
	for _, ins := range code {
		if ins.Kind == TacExternCall && ins.Callee == "ExitProcess" {
			t.Error("GenerateProgram alone should not append the ExitProcess call; that is pipeline.go's job")
		}
	}
}
