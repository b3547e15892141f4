package main

import "testing"

// compileOK runs the full pipeline and
// fails the test on any error, returning the produced PE bytes.
func compileOK(t *testing.T, src string) []byte {
	t.Helper()
	out, err := Compile(src)
	if err != nil {
		t.Fatalf("unexpected compile error for %q: %v", src, err)
	}
	return out
}

// assertValidPE checks the handful of structural properties every one of
// this pipeline's outputs must have, without re-deriving
// the entire PE writer test suite here.
func assertValidPE(t *testing.T, out []byte) {
	t.Helper()
	if len(out) < fileHeaderOffset+4 {
		t.Fatalf("PE output too short: %d bytes", len(out))
	}
	if out[0] != 'M' || out[1] != 'Z' {
		t.Fatalf("expected MZ signature, got % X", out[:2])
	}
	if string(out[fileHeaderOffset:fileHeaderOffset+4]) != "PE\x00\x00" {
		t.Fatalf("expected PE signature at e_lfanew, got % X", out[fileHeaderOffset:fileHeaderOffset+4])
	}
}

// The scenarios below are end-to-end: each is asserted only to
// compile cleanly into a
// structurally valid PE, since actually running the produced executable
// requires a Windows loader this test environment doesn't have.

func TestCompileSimpleAssignAndPrint(t *testing.T) {
	assertValidPE(t, compileOK(t, "a=1\nprint(a)\n"))
}

func TestCompileAdditionAndPrint(t *testing.T) {
	assertValidPE(t, compileOK(t, "a=1\nb=2\nc=a+b\nprint(c)\n"))
}

func TestCompileIfElse(t *testing.T) {
	assertValidPE(t, compileOK(t, "if true\n    print(1)\nelse\n    print(2)\n"))
}

func TestCompileForLoopOverRange(t *testing.T) {
	assertValidPE(t, compileOK(t, "for i in 5\n    print(i)\n"))
}

func TestCompileOverloadedFunctionCall(t *testing.T) {
	assertValidPE(t, compileOK(t, "fun f(a, b)\n    return a+b\nprint(f(3, 4))\n"))
}

func TestCompileListIndex(t *testing.T) {
	assertValidPE(t, compileOK(t, "a=[2,3,4]\nprint(a[1])\n"))
}

func TestCompileEmptyProgramStillProducesValidPE(t *testing.T) {
	// An empty program must still produce a valid PE that exits cleanly.
	assertValidPE(t, compileOK(t, ""))
}

func TestCompileForLoopOverZeroNeverRuns(t *testing.T) {
	assertValidPE(t, compileOK(t, "for i in 0\n    print(i)\n"))
}

func TestCompileZeroArgZeroReturnFunction(t *testing.T) {
	assertValidPE(t, compileOK(t, "fun f()\n    x = 1\nf()\n"))
}

func TestCompileOverloadedPrintIntAndString(t *testing.T) {
	// print(1) and print("hi") resolve to distinct function instances
	// with distinct mangled labels; this
	// just needs to compile, since label uniqueness is exercised
	// directly by the type checker's own specialization table tests.
	assertValidPE(t, compileOK(t, "print(1)\nprint(\"hi\")\n"))
}

func TestCompileBreakInLoop(t *testing.T) {
	assertValidPE(t, compileOK(t, "for i in 10\n    if i == 3\n        break\n    print(i)\n"))
}

func TestCompilePropagatesParseErrors(t *testing.T) {
	_, err := Compile("if true\nx = 1\n")
	if err == nil {
		t.Fatal("expected a parse error for a missing indented block")
	}
}

func TestCompilePropagatesTypeErrors(t *testing.T) {
	_, err := Compile("a = 1\nb = \"s\"\nc = a + b\n")
	if err == nil {
		t.Fatal("expected a type error for Int + String")
	}
}

func TestCompileRejectsFloatAtCodegenBoundary(t *testing.T) {
	// Float typechecks but is rejected right before TacGen, as a normal
	// *CompilerError rather than an internal panic.
	_, err := Compile("a = 1.5\nprint(a)\n")
	if err == nil {
		t.Fatal("expected Float lowering to be rejected before codegen")
	}
	if _, ok := err.(*CompilerError); !ok {
		t.Fatalf("expected a *CompilerError, got %T: %v", err, err)
	}
}
