package main

import "testing"

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func assertKinds(t *testing.T, got []TokenKind, want []TokenKind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexerSimpleAssignment(t *testing.T) {
	toks, err := NewLexer("x = 1\n").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, kinds(toks), []TokenKind{TokIdent, TokEq, TokInt, TokNewline, TokEOF})
}

func TestLexerIndentDedent(t *testing.T) {
	src := "if true\n    x = 1\ny = 2\n"
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, kinds(toks), []TokenKind{
		TokIf, TokTrue, TokNewline,
		TokIndent, TokIdent, TokEq, TokInt, TokNewline,
		TokDedent, TokIdent, TokEq, TokInt, TokNewline,
		TokEOF,
	})
}

func TestLexerNestedIndentMultiDedent(t *testing.T) {
	src := "if true\n    if true\n        x = 1\nz = 3\n"
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := kinds(toks)
	dedents := 0
	for _, k := range got {
		if k == TokDedent {
			dedents++
		}
	}
	if dedents != 2 {
		t.Errorf("expected 2 dedents closing both nested blocks, got %d in %v", dedents, got)
	}
}

func TestLexerInconsistentIndentationErrors(t *testing.T) {
	src := "if true\n   x = 1\n     y = 2\n"
	_, err := NewLexer(src).Tokenize()
	if err == nil {
		t.Fatal("expected an inconsistent-indentation error")
	}
}

func TestLexerOperatorsAndPunctuation(t *testing.T) {
	toks, err := NewLexer("+ - * / ^ = == != < <= > >= += ( ) [ ] , :\n").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []TokenKind{
		TokPlus, TokMinus, TokStar, TokSlash, TokCaret, TokEq, TokEqEq, TokNotEq,
		TokLt, TokLtEq, TokGt, TokGtEq, TokPlusEq, TokLParen, TokRParen,
		TokLBracket, TokRBracket, TokComma, TokColon, TokNewline, TokEOF,
	}
	assertKinds(t, kinds(toks), want)
}

func TestLexerKeywords(t *testing.T) {
	toks, err := NewLexer("if else for in fun return break and or not true false\n").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []TokenKind{
		TokIf, TokElse, TokFor, TokIn, TokFun, TokReturn, TokBreak,
		TokAnd, TokOr, TokNot, TokTrue, TokFalse, TokNewline, TokEOF,
	}
	assertKinds(t, kinds(toks), want)
}

func TestLexerIntegerLiteral(t *testing.T) {
	toks, err := NewLexer("12345\n").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != TokInt || toks[0].IntVal != 12345 {
		t.Errorf("got %+v, want IntVal 12345", toks[0])
	}
}

func TestLexerFloatLiteralKeepsTextAndNoIntVal(t *testing.T) {
	toks, err := NewLexer("3.5\n").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != TokInt || toks[0].Text != "3.5" || toks[0].IntVal != 0 {
		t.Errorf("got %+v, want Text 3.5 and IntVal 0 (float parsing deferred to the parser)", toks[0])
	}
}

func TestLexerStringEscapes(t *testing.T) {
	toks, err := NewLexer(`"a\nb\tc\"d\\e"` + "\n").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "a\nb\tc\"d\\e"
	if toks[0].Kind != TokString || toks[0].Text != want {
		t.Errorf("got %q, want %q", toks[0].Text, want)
	}
}

func TestLexerUnterminatedStringErrors(t *testing.T) {
	_, err := NewLexer(`"abc`).Tokenize()
	if err == nil {
		t.Fatal("expected unterminated string error")
	}
}

func TestLexerCommentsAndBlankLinesIgnored(t *testing.T) {
	src := "x = 1 # a comment\n\n# a whole comment line\ny = 2\n"
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, kinds(toks), []TokenKind{
		TokIdent, TokEq, TokInt, TokNewline,
		TokIdent, TokEq, TokInt, TokNewline,
		TokEOF,
	})
}

func TestLexerUnexpectedCharacterErrors(t *testing.T) {
	_, err := NewLexer("x = 1 @ 2\n").Tokenize()
	if err == nil {
		t.Fatal("expected unexpected-character error")
	}
}

func TestLexerNewlinesSuppressedInsideParens(t *testing.T) {
	src := "f(1,\n2)\n"
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only the newline after the closing ')' should survive; the one
	// between "1," and "2" is inside the call's parens.
	count := 0
	for _, tok := range toks {
		if tok.Kind == TokNewline {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 newline token, got %d in %v", count, kinds(toks))
	}
}
