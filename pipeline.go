// Completion: 100% - End-to-end driver: source text to a PE32+ executable
package main

// Compile runs every pass in order and returns the finished executable's
// bytes. Any pass returning an error stops the pipeline immediately;
// a *CompilerError carries the source location for the driver to report.
func Compile(source string) ([]byte, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, err
	}
	prog = Desugar(prog)

	typed, err := CheckProgram(prog)
	if err != nil {
		return nil, err
	}
	Uniquify(typed)

	if err := RejectFloatLowering(typed); err != nil {
		return nil, err
	}
	if err := RejectUnloweredLists(typed); err != nil {
		return nil, err
	}

	pool := NewStringPool()
	code := NewTacGen(pool).GenerateProgram(typed)
	code = append(code, NewExternCall("ExitProcess", []TacValue{TvConst(0)}, VariableValue{}, false))

	live := AnalyzeLiveness(code)
	allVars := CollectVariables(code)
	graph := BuildInterferenceGraph(code, live, allVars)

	assign, err := AllocateRegisters(graph, requestedRegs(code))
	if err != nil {
		return nil, err
	}

	abs := NewCodeGen(code, assign, live, pool).Generate()
	asm := Peephole(Simplify(abs))

	mc, err := Assemble(asm)
	if err != nil {
		return nil, err
	}
	return WritePE(mc, pool)
}

// requestedRegs builds the register allocator's precoloring request map:
// every function's parameters, per the Win64 argument convention.
func requestedRegs(code []TacInstruction) map[string]int {
	out := map[string]int{}
	for _, ins := range code {
		if ins.Kind == TacFunctionLabel {
			ParamPrecoloring(ins.ParamNames, out)
		}
		if ins.HasDst && ins.Dst.HasRequest() {
			out[ins.Dst.Name] = ins.Dst.RequestedReg
		}
	}
	return out
}
