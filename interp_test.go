package main

import (
	"strings"
	"testing"
)

func interpretOK(t *testing.T, src string) string {
	t.Helper()
	var sb strings.Builder
	if err := Interpret(src, &sb); err != nil {
		t.Fatalf("unexpected interpret error for %q: %v", src, err)
	}
	return sb.String()
}

// These run the end-to-end scenarios through the tree-walking
// interpreter instead of the compiled path; both paths share the same
// Parse -> Desugar -> CheckProgram -> Uniquify front end and must agree.

func TestInterpretSimpleAssignAndPrint(t *testing.T) {
	if got := interpretOK(t, "a=1\nprint(a)\n"); got != "1" {
		t.Errorf("got %q, want %q", got, "1")
	}
}

func TestInterpretAdditionAndPrint(t *testing.T) {
	if got := interpretOK(t, "a=1\nb=2\nc=a+b\nprint(c)\n"); got != "3" {
		t.Errorf("got %q, want %q", got, "3")
	}
}

func TestInterpretIfElseTakesTrueBranch(t *testing.T) {
	if got := interpretOK(t, "if true\n    print(1)\nelse\n    print(2)\n"); got != "1" {
		t.Errorf("got %q, want %q", got, "1")
	}
}

func TestInterpretForLoopOverRange(t *testing.T) {
	if got := interpretOK(t, "for i in 5\n    print(i)\n"); got != "01234" {
		t.Errorf("got %q, want %q", got, "01234")
	}
}

func TestInterpretOverloadedFunctionCall(t *testing.T) {
	if got := interpretOK(t, "fun f(a, b)\n    return a+b\nprint(f(3, 4))\n"); got != "7" {
		t.Errorf("got %q, want %q", got, "7")
	}
}

func TestInterpretListIndex(t *testing.T) {
	if got := interpretOK(t, "a=[2,3,4]\nprint(a[1])\n"); got != "3" {
		t.Errorf("got %q, want %q", got, "3")
	}
}

func TestInterpretForLoopOverZeroNeverRuns(t *testing.T) {
	if got := interpretOK(t, "for i in 0\n    print(i)\n"); got != "" {
		t.Errorf("got %q, want empty output", got)
	}
}

func TestInterpretBreakExitsLoop(t *testing.T) {
	got := interpretOK(t, "for i in 10\n    if i == 3\n        break\n    print(i)\n")
	if got != "012" {
		t.Errorf("got %q, want %q", got, "012")
	}
}

func TestInterpretPrintlnAppendsNewline(t *testing.T) {
	got := interpretOK(t, "println(1)\nprintln(2)\n")
	if got != "1\n2\n" {
		t.Errorf("got %q, want %q", got, "1\n2\n")
	}
}

func TestInterpretFloatArithmeticIsPermitted(t *testing.T) {
	// Unlike the compiled path, the interpreter evaluates Float
	// directly with no guard rejection.
	got := interpretOK(t, "a = 1.5\nb = 2.5\nprint(a + b)\n")
	if got != "4" {
		t.Errorf("got %q, want %q", got, "4")
	}
}

func TestInterpretRecursiveOverloadPicksCorrectInstance(t *testing.T) {
	got := interpretOK(t, "fun id(a)\n    return a\nprint(id(1))\nprint(id(\"x\"))\n")
	if got != "1x" {
		t.Errorf("got %q, want %q", got, "1x")
	}
}

func TestInterpretPropagatesTypeErrors(t *testing.T) {
	err := Interpret("a = 1\nb = \"s\"\nc = a + b\n", &strings.Builder{})
	if err == nil {
		t.Fatal("expected a type error for Int + String")
	}
}
