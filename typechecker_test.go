package main

import "testing"

func mustCheck(t *testing.T, src string) *TypedProgram {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	prog = Desugar(prog)
	typed, err := CheckProgram(prog)
	if err != nil {
		t.Fatalf("unexpected type error for %q: %v", src, err)
	}
	return typed
}

func TestCheckIntegerAssignment(t *testing.T) {
	tp := mustCheck(t, "x = 1\n")
	as := tp.TopLevel[0].(*TAssignStmt)
	if as.Value.Type().Kind != KindInteger {
		t.Errorf("got %v, want integer", as.Value.Type())
	}
}

func TestCheckIntDivFloatPromotion(t *testing.T) {
	tp := mustCheck(t, "x = 1\ny = 2.0\nz = x + y\n")
	z := tp.TopLevel[2].(*TAssignStmt)
	if z.Value.Type().Kind != KindFloat {
		t.Errorf("int + float should promote to float, got %v", z.Value.Type())
	}
}

func TestCheckStringConcatenation(t *testing.T) {
	tp := mustCheck(t, `x = "a" + "b"` + "\n")
	as := tp.TopLevel[0].(*TAssignStmt)
	if as.Value.Type().Kind != KindString {
		t.Errorf("got %v, want string", as.Value.Type())
	}
}

func TestCheckComparisonProducesBoolean(t *testing.T) {
	tp := mustCheck(t, "x = 1 < 2\n")
	as := tp.TopLevel[0].(*TAssignStmt)
	if as.Value.Type().Kind != KindBoolean {
		t.Errorf("got %v, want bool", as.Value.Type())
	}
}

func TestCheckUndefinedVariableErrors(t *testing.T) {
	_, err := CheckProgram(Desugar(mustParseRaw(t, "y = x\n")))
	if err == nil {
		t.Fatal("expected an undefined-variable error")
	}
	ce, ok := err.(*CompilerError)
	if !ok {
		t.Fatalf("expected *CompilerError, got %T", err)
	}
	if ce.Category != CategorySemantic {
		t.Errorf("got category %v, want CategorySemantic", ce.Category)
	}
}

func mustParseRaw(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestCheckAddTypeMismatchIsTypeError(t *testing.T) {
	_, err := CheckProgram(Desugar(mustParseRaw(t, `x = 1 + "a"` + "\n")))
	if err == nil {
		t.Fatal("expected a type error mixing int and string")
	}
	ce := err.(*CompilerError)
	if !ce.IsTypeError() {
		t.Error("expected IsTypeError() to be true with Expected/Found populated")
	}
}

func TestCheckIfConditionMustBeBoolean(t *testing.T) {
	_, err := CheckProgram(Desugar(mustParseRaw(t, "if 1\n    x = 1\n")))
	if err == nil {
		t.Fatal("expected an error for a non-boolean if condition")
	}
}

func TestCheckBreakOutsideLoopErrors(t *testing.T) {
	_, err := CheckProgram(Desugar(mustParseRaw(t, "break\n")))
	if err == nil {
		t.Fatal("expected an error for break outside a loop")
	}
}

func TestCheckReturnOutsideFunctionErrors(t *testing.T) {
	_, err := CheckProgram(Desugar(mustParseRaw(t, "return 1\n")))
	if err == nil {
		t.Fatal("expected an error for return outside a function")
	}
}

func TestCheckForOverIntegerRange(t *testing.T) {
	tp := mustCheck(t, "for i in 5\n    x = i\n")
	fs := tp.TopLevel[0].(*TForStmt)
	if fs.List != nil {
		t.Error("expected List to be nil for an integer range")
	}
	if fs.IterType.Kind != KindInteger {
		t.Errorf("got IterType=%v, want int", fs.IterType)
	}
}

func TestCheckForOverList(t *testing.T) {
	tp := mustCheck(t, "xs = [1, 2, 3]\nfor i in xs\n    y = i\n")
	fs := tp.TopLevel[1].(*TForStmt)
	if fs.List == nil || fs.Upper != nil {
		t.Errorf("expected List set and Upper nil for list iteration, got List=%v Upper=%v", fs.List, fs.Upper)
	}
	if fs.IterType.Kind != KindInteger {
		t.Errorf("got IterType=%v, want int (the list's element type)", fs.IterType)
	}
}

func TestCheckFunctionCallSpecialization(t *testing.T) {
	src := "fun id(a)\n    return a\nx = id(1)\ny = id(true)\n"
	tp := mustCheck(t, src)
	if len(tp.Instances) < 2 {
		t.Fatalf("expected at least 2 specialized instances for id(int) and id(bool), got %d", len(tp.Instances))
	}
	var sawInt, sawBool bool
	for _, inst := range tp.Instances {
		if inst.Name != "id" {
			continue
		}
		switch inst.ReturnType.Kind {
		case KindInteger:
			sawInt = true
		case KindBoolean:
			sawBool = true
		}
	}
	if !sawInt || !sawBool {
		t.Errorf("expected both an int and a bool specialization of id, instances: %+v", tp.Instances)
	}
}

func TestCheckRecursiveFunctionReturnType(t *testing.T) {
	src := "fun fact(n)\n    if n == 0\n        return 1\n    return n * fact(n - 1)\nx = fact(5)\n"
	tp := mustCheck(t, src)
	found := false
	for _, inst := range tp.Instances {
		if inst.Name == "fact" {
			found = true
			if inst.ReturnType.Kind != KindInteger {
				t.Errorf("got return type %v, want int", inst.ReturnType)
			}
		}
	}
	if !found {
		t.Fatal("expected a fact specialization to be materialized")
	}
}

func TestCheckInconsistentReturnTypeErrors(t *testing.T) {
	src := "fun f(n)\n    if n == 0\n        return 1\n    return true\nx = f(0)\n"
	_, err := CheckProgram(Desugar(mustParseRaw(t, src)))
	if err == nil {
		t.Fatal("expected an inconsistent-return-type error")
	}
}

func TestCheckListElementTypeMismatchErrors(t *testing.T) {
	_, err := CheckProgram(Desugar(mustParseRaw(t, `x = [1, "a"]` + "\n")))
	if err == nil {
		t.Fatal("expected a list element type mismatch error")
	}
}

func TestCheckIndexingRequiresList(t *testing.T) {
	_, err := CheckProgram(Desugar(mustParseRaw(t, "x = 1\ny = x[0]\n")))
	if err == nil {
		t.Fatal("expected an error indexing a non-list value")
	}
}

func TestCheckIndexRequiresIntegerSubscript(t *testing.T) {
	_, err := CheckProgram(Desugar(mustParseRaw(t, `x = [1, 2]
y = x[true]
`)))
	if err == nil {
		t.Fatal("expected an error for a non-integer list subscript")
	}
}
