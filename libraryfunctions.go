// Completion: 100% - Win32 library stubs inlined as TAC ahead of user code
package main

import "fmt"

// libraryStubs returns the TAC for every builtin FunctionType instance
// the type checker actually used, one FunctionLabel-headed block per
// mangled name. Each stub
// calls GetStdHandle once per process (acceptable duplication — this
// compiler performs no cross-call CSE) then WriteFile with a buffer
// built from the argument.
func libraryStubs(instances []*FunctionType) []TacInstruction {
	var out []TacInstruction
	for _, inst := range instances {
		if !inst.IsBuiltin || !inst.IsUsed {
			continue
		}
		out = append(out, printStub(inst)...)
	}
	return out
}

// writeBuf emits a GetStdHandle-independent WriteFile(handle, ptr, len)
// call, capturing the lpNumberOfBytesWritten pointer via Push +
// MovRSPTo.
func writeBuf(handle, ptr, length string, tag int) []TacInstruction {
	wptr := fmt.Sprintf("wf.%d.writtenptr", tag)
	return []TacInstruction{
		NewPush(TvConst(0)),
		NewMovRSPTo(PlainVar(wptr)),
		NewExternCall("WriteFile",
			[]TacValue{TvVar(handle), TvVar(ptr), TvVar(length), TvVar(wptr), TvConst(0)},
			VariableValue{}, false),
		NewPop(PlainVar(fmt.Sprintf("wf.%d.discard", tag))),
	}
}

// printStub lowers one print_<type>/println_<type> instance. The
// argument arrives as an integer, boolean, or string-pointer value per
// its TAC calling convention; non-string values are rendered into the
// shared scratch buffer first (__format_decimal / __format_bool),
// then every variant shares one WriteFile path via a resolved pointer
// and length.
func printStub(inst *FunctionType) []TacInstruction {
	var body []TacInstruction
	// "$arg" carries a sigil the lexer never accepts in a source
	// identifier (lexer.go's isAlpha admits only letters/underscore), so
	// uniquify.go's "name.N" renaming scheme can never mint this exact
	// string for a user variable — unlike "arg.0", which collides with
	// whatever a user-declared variable named "arg" uniquifies to.
	argName := "$arg"
	handle := fmt.Sprintf("%s.handle", inst.MangledName)
	ptr := fmt.Sprintf("%s.ptr", inst.MangledName)
	length := fmt.Sprintf("%s.len", inst.MangledName)

	body = append(body, NewFunctionLabel(inst.MangledName, []string{argName}))
	// STD_OUTPUT_HANDLE = -11
	body = append(body, NewExternCall("GetStdHandle", []TacValue{TvConst(-11)}, PlainVar(handle), true))

	switch inst.ParamTypes[0].Kind {
	case KindString:
		body = append(body, NewAssign(PlainVar(ptr), TvVar(argName)))

	case KindBoolean:
		body = append(body, NewCall("__format_bool", []TacValue{TvVar(argName)}, PlainVar(ptr), true))

	default: // Integer
		body = append(body, NewCall("__format_decimal", []TacValue{TvVar(argName)}, PlainVar(ptr), true))
	}

	body = append(body, NewCall("__strlen", []TacValue{TvVar(ptr)}, PlainVar(length), true))
	body = append(body, writeBuf(handle, ptr, length, stubTag(inst.MangledName))...)

	if inst.Name == "println" {
		nl := fmt.Sprintf("%s.nl", inst.MangledName)
		nllen := fmt.Sprintf("%s.nllen", inst.MangledName)
		body = append(body, NewAssign(PlainVar(nl), TvString("\n")))
		body = append(body, NewAssign(PlainVar(nllen), TvConst(1)))
		body = append(body, writeBuf(handle, nl, nllen, stubTag(inst.MangledName)+1)...)
	}

	body = append(body, NewReturn(TacValue{}, false))
	return body
}

// stubTag derives a small deterministic integer from a mangled name so
// each stub's WriteFile call sites get distinct scratch variable names
// without a shared mutable counter.
func stubTag(name string) int {
	h := 0
	for _, c := range name {
		h = h*31 + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h % 100000
}
