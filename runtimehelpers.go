// Completion: 100% - Hand-authored TAC bodies for the three runtime helpers print stubs share
package main

// runtimeHelperStubs returns the TAC bodies for __strlen, __format_decimal
// and __format_bool, hand-authored directly at the TAC level rather than
// lowered from source (there is no source-language syntax for byte-level
// buffer access). They are unconditionally included whenever any builtin
// print/println instance is used, since libraryfunctions.go's stubs call
// all three indiscriminately.
func runtimeHelperStubs() []TacInstruction {
	var out []TacInstruction
	out = append(out, strlenBody()...)
	out = append(out, formatDecimalBody()...)
	out = append(out, formatBoolBody()...)
	return out
}

// __strlen(ptr) -> len: scan forward from ptr until a NUL byte.
func strlenBody() []TacInstruction {
	const ptr, i, b, result = "ptr", "i", "b", "result"
	return []TacInstruction{
		NewFunctionLabel("__strlen", []string{ptr}),
		NewAssign(PlainVar(i), TvConst(0)),
		NewLabel("__strlen.head"),
		NewLoadByte(PlainVar(b), TvVar(ptr), TvVar(i)),
		NewCompareAndGoto(TvVar(b), TvConst(0), CmpEqTac, "__strlen.end"),
		NewBinOp(PlainVar(i), TvVar(i), TacAdd, TvConst(1)),
		NewGoto("__strlen.head"),
		NewLabel("__strlen.end"),
		NewAssign(PlainVar(result), TvVar(i)),
		NewReturn(TvVar(result), true),
	}
}

// __format_decimal(n) -> ptr: classic reverse-itoa into the shared
// scratch buffer; returns a pointer to the first digit (or '-'), so the
// caller still needs __strlen to learn the length.
func formatDecimalBody() []TacInstruction {
	const n, v, pos, neg, digit, result = "n", "v", "pos", "neg", "digit", "result"
	base := TvConst(int64(scratchRVA + imageBase))
	return []TacInstruction{
		NewFunctionLabel("__format_decimal", []string{n}),
		NewStoreByte(base, TvConst(decimalBufLen-1), TvConst(0)), // NUL terminator
		NewAssign(PlainVar(pos), TvConst(decimalBufLen-1)),
		NewAssign(PlainVar(neg), TvConst(0)),
		NewAssign(PlainVar(v), TvVar(n)),
		NewCompareAndGoto(TvVar(v), TvConst(0), CmpGeTac, "__format_decimal.loop"),
		NewAssign(PlainVar(neg), TvConst(1)),
		NewUnaryOp(PlainVar(v), TacNeg, TvVar(v)),

		NewLabel("__format_decimal.loop"),
		NewBinOp(PlainVar(digit), TvVar(v), TacMod, TvConst(10)),
		NewBinOp(PlainVar(digit), TvVar(digit), TacAdd, TvConst('0')),
		NewBinOp(PlainVar(pos), TvVar(pos), TacSub, TvConst(1)),
		NewStoreByte(base, TvVar(pos), TvVar(digit)),
		NewBinOp(PlainVar(v), TvVar(v), TacDiv, TvConst(10)),
		NewCompareAndGoto(TvVar(v), TvConst(0), CmpNeTac, "__format_decimal.loop"),

		NewCompareAndGoto(TvVar(neg), TvConst(0), CmpEqTac, "__format_decimal.done"),
		NewBinOp(PlainVar(pos), TvVar(pos), TacSub, TvConst(1)),
		NewStoreByte(base, TvVar(pos), TvConst('-')),

		NewLabel("__format_decimal.done"),
		NewBinOp(PlainVar(result), base, TacAdd, TvVar(pos)),
		NewReturn(TvVar(result), true),
	}
}

// __format_bool(b) -> ptr: writes "true" or "false" into a small
// dedicated scratch slot and returns its address.
func formatBoolBody() []TacInstruction {
	const b, result = "b", "result"
	base := TvConst(int64(boolBufRVA + imageBase))
	writeLiteral := func(label, word string) []TacInstruction {
		ins := []TacInstruction{NewLabel(label)}
		for i, c := range []byte(word) {
			ins = append(ins, NewStoreByte(base, TvConst(int64(i)), TvConst(int64(c))))
		}
		ins = append(ins, NewStoreByte(base, TvConst(int64(len(word))), TvConst(0)))
		ins = append(ins, NewGoto("__format_bool.done"))
		return ins
	}
	out := []TacInstruction{
		NewFunctionLabel("__format_bool", []string{b}),
		NewCompareAndGoto(TvVar(b), TvConst(0), CmpEqTac, "__format_bool.false"),
	}
	out = append(out, writeLiteral("__format_bool.true", "true")...)
	out = append(out, writeLiteral("__format_bool.false", "false")...)
	out = append(out,
		NewLabel("__format_bool.done"),
		NewAssign(PlainVar(result), base),
		NewReturn(TvVar(result), true),
	)
	return out
}
