// Completion: 95% - Typed AST -> three-address code
package main

import "fmt"

// TacGen lowers a TypedProgram to a flat TAC stream.
// Temporaries are named `t<counter>`, labels `L<counter>`; both
// counters are global across the whole program so every name is
// unique without a second uniquification pass.
type TacGen struct {
	tempCounter  int
	labelCounter int
	loopExit     []string // stack of enclosing loop exit labels, for break
	pool         *StringPool

	// lists maps a (uniquified) variable name to the list literal bound
	// to it. Lists have no runtime representation, so a list-typed
	// assignment records the binding here instead of emitting code, and
	// every index / for-in use site resolves back through it.
	lists map[string]*TListLit
}

func NewTacGen(pool *StringPool) *TacGen {
	return &TacGen{pool: pool, lists: make(map[string]*TListLit)}
}

// resolveList chases a list-typed expression back to the literal it
// denotes: directly, through a variable binding, or through a
// constant-index chain into a nested literal. The list guard rejects
// anything else before TAC generation starts.
func (g *TacGen) resolveList(e TExpr) *TListLit {
	switch ex := e.(type) {
	case *TListLit:
		return ex
	case *TVarRef:
		if lit, ok := g.lists[ex.Name]; ok {
			return lit
		}
	case *TIndexExpr:
		lit := g.resolveList(ex.List)
		if idx, ok := constIndex(ex.Index); ok {
			if idx < 0 || int(idx) >= len(lit.Elems) {
				panic(fmt.Sprintf("tacgen: constant list index %d out of range for a %d-element literal", idx, len(lit.Elems)))
			}
			return g.resolveList(lit.Elems[idx])
		}
	}
	panic("tacgen: list value not resolvable to a literal; the list guard should have rejected it")
}

func (g *TacGen) freshTemp() string {
	g.tempCounter++
	return fmt.Sprintf("t%d", g.tempCounter)
}

func (g *TacGen) freshLabel() string {
	g.labelCounter++
	return fmt.Sprintf("L%d", g.labelCounter)
}

// GenerateProgram lowers every used FunctionType instance plus the
// top-level statements, prefixed by ProgramStart and the inlined
// library/runtime stubs.
func (g *TacGen) GenerateProgram(tp *TypedProgram) []TacInstruction {
	var out []TacInstruction
	out = append(out, runtimeHelperStubs()...)
	out = append(out, libraryStubs(tp.Instances)...)

	for _, inst := range tp.Instances {
		if inst.IsBuiltin || !inst.IsUsed {
			continue
		}
		out = append(out, g.genFunction(inst)...)
	}

	out = append(out, NewProgramStart())
	for _, s := range tp.TopLevel {
		out = append(out, g.genStmt(s)...)
	}
	// Fall off the end of top-level code straight into process exit;
	// main.go's ExitProcess ExternCall is appended by pipeline.go once
	// the full TAC stream (including every function body) is known.
	return out
}

func (g *TacGen) genFunction(inst *FunctionType) []TacInstruction {
	out := []TacInstruction{NewFunctionLabel(inst.MangledName, inst.ParamNames)}
	for _, s := range inst.Body {
		out = append(out, g.genStmt(s)...)
	}
	// A function whose body falls through without an explicit return
	// (Undefined return type) still needs a Ret in the assembled code;
	// the codegen pass appends the epilogue for every FunctionLabel
	// block, so a bare trailing Return closes every path here.
	if len(inst.Body) == 0 {
		out = append(out, NewReturn(TacValue{}, false))
	} else if _, ok := inst.Body[len(inst.Body)-1].(*TReturnStmt); !ok {
		out = append(out, NewReturn(TacValue{}, false))
	}
	return out
}

func (g *TacGen) genStmt(s TStmt) []TacInstruction {
	switch st := s.(type) {
	case *TExprStmt:
		if st.X.Type().Kind == KindList {
			return nil // a bare list literal computes nothing
		}
		_, ins := g.genExpr(st.X)
		return ins

	case *TAssignStmt:
		if st.Value.Type().Kind == KindList {
			g.lists[st.Name] = g.resolveList(st.Value)
			return nil
		}
		v, ins := g.genExpr(st.Value)
		ins = append(ins, NewAssign(PlainVar(st.Name), v))
		return ins

	case *TIfStmt:
		return g.genIf(st)

	case *TForStmt:
		return g.genFor(st)

	case *TReturnStmt:
		if st.Value == nil {
			return []TacInstruction{NewReturn(TacValue{}, false)}
		}
		v, ins := g.genExpr(st.Value)
		return append(ins, NewReturn(v, true))

	case *TBreakStmt:
		if len(g.loopExit) == 0 {
			panic("break outside a loop reached tacgen; type checker should have rejected it")
		}
		return []TacInstruction{NewGoto(g.loopExit[len(g.loopExit)-1])}

	default:
		panic(fmt.Sprintf("tacgen: unhandled statement %T", s))
	}
}

func (g *TacGen) genIf(st *TIfStmt) []TacInstruction {
	end := g.freshLabel()
	var out []TacInstruction
	for idx, br := range st.Branches {
		var next string
		isLast := idx == len(st.Branches)-1
		if isLast {
			if st.Else != nil {
				next = g.freshLabel()
			} else {
				next = end
			}
		} else {
			next = g.freshLabel()
		}
		c, ins := g.genExpr(br.Cond)
		out = append(out, ins...)
		out = append(out, NewCompareAndGoto(c, TvConst(0), CmpEqTac, next))
		for _, s := range br.Body {
			out = append(out, g.genStmt(s)...)
		}
		out = append(out, NewGoto(end))
		if !isLast || st.Else != nil {
			out = append(out, NewLabel(next))
		}
	}
	if st.Else != nil {
		for _, s := range st.Else {
			out = append(out, g.genStmt(s)...)
		}
		out = append(out, NewGoto(end))
	}
	out = append(out, NewLabel(end))
	return out
}

// genFor lowers both the integer-range and list-iteration forms. The
// list form walks a compile-time Elems slice directly (lists have no
// runtime heap representation), unrolling one CompareAndGoto/body/Goto
// per element at a fixed index.
func (g *TacGen) genFor(st *TForStmt) []TacInstruction {
	head := g.freshLabel()
	end := g.freshLabel()
	g.loopExit = append(g.loopExit, end)
	defer func() { g.loopExit = g.loopExit[:len(g.loopExit)-1] }()

	var out []TacInstruction
	if st.Upper != nil {
		upper, ins := g.genExpr(st.Upper)
		out = append(out, ins...)
		out = append(out, NewAssign(PlainVar(st.Iter), TvConst(0)))
		out = append(out, NewLabel(head))
		out = append(out, NewCompareAndGoto(TvVar(st.Iter), upper, CmpGeTac, end))
		for _, s := range st.Body {
			out = append(out, g.genStmt(s)...)
		}
		out = append(out, NewBinOp(PlainVar(st.Iter), TvVar(st.Iter), TacAdd, TvConst(1)))
		out = append(out, NewGoto(head))
		out = append(out, NewLabel(end))
		return out
	}

	list := g.resolveList(st.List)
	for _, elem := range list.Elems {
		if elem.Type().Kind == KindList {
			g.lists[st.Iter] = g.resolveList(elem)
		} else {
			v, ins := g.genExpr(elem)
			out = append(out, ins...)
			out = append(out, NewAssign(PlainVar(st.Iter), v))
		}
		for _, s := range st.Body {
			out = append(out, g.genStmt(s)...)
		}
	}
	out = append(out, NewLabel(end))
	return out
}

// genExpr lowers a typed expression to a TacValue plus the
// instructions that compute it.
func (g *TacGen) genExpr(e TExpr) (TacValue, []TacInstruction) {
	switch ex := e.(type) {
	case *TNumberLit:
		if ex.IsFloat {
			panic("tacgen: Float literal reached codegen; rejected earlier at the type-checker/codegen boundary")
		}
		return TvConst(ex.IntVal), nil

	case *TBoolLit:
		if ex.Value {
			return TvConst(1), nil
		}
		return TvConst(0), nil

	case *TStringLit:
		return TvString(ex.Value), nil

	case *TVarRef:
		return TvVar(ex.Name), nil

	case *TIndexExpr:
		list := g.resolveList(ex.List)
		idx, ok := constIndex(ex.Index)
		if !ok {
			panic("tacgen: non-constant list index reached codegen; the list guard should have rejected it")
		}
		if idx < 0 || int(idx) >= len(list.Elems) {
			panic(fmt.Sprintf("tacgen: constant list index %d out of range for a %d-element literal", idx, len(list.Elems)))
		}
		return g.genExpr(list.Elems[idx])

	case *TBinExpr:
		return g.genBin(ex)

	case *TUnaryExpr:
		v, ins := g.genExpr(ex.Operand)
		dst := g.freshTemp()
		var op UnaryOpTac
		if ex.Op == OpNeg {
			op = TacNeg
		} else {
			op = TacNot
		}
		ins = append(ins, NewUnaryOp(PlainVar(dst), op, v))
		return TvVar(dst), ins

	case *TCallExpr:
		var ins []TacInstruction
		args := make([]TacValue, len(ex.Args))
		for i, a := range ex.Args {
			v, ai := g.genExpr(a)
			ins = append(ins, ai...)
			args[i] = v
		}
		if ex.Callee.ReturnType.Kind == KindUndefined {
			ins = append(ins, NewCall(ex.Callee.MangledName, args, VariableValue{}, false))
			return TacValue{}, ins
		}
		dst := g.freshTemp()
		ins = append(ins, NewCall(ex.Callee.MangledName, args, PlainVar(dst), true))
		return TvVar(dst), ins

	case *TListLit:
		panic("tacgen: a bare list literal value reached codegen; lists are only valid directly under a for-in or index expression")

	default:
		panic(fmt.Sprintf("tacgen: unhandled expression %T", e))
	}
}

func constIndex(e TExpr) (int64, bool) {
	if n, ok := e.(*TNumberLit); ok && !n.IsFloat {
		return n.IntVal, true
	}
	return 0, false
}

func (g *TacGen) genBin(ex *TBinExpr) (TacValue, []TacInstruction) {
	// Short-circuit and/or evaluate both sides eagerly, matching the
	// rest of this language's strict, side-effect-free expression
	// grammar (no call ever appears where skipping it would matter).
	l, ins := g.genExpr(ex.Left)
	r, rins := g.genExpr(ex.Right)
	ins = append(ins, rins...)

	if ex.Op == OpPow {
		return g.genPow(l, r, ins)
	}

	if cmp, isCmp := compareKindFor(ex.Op); isCmp {
		dst := g.freshTemp()
		trueL, falseL, endL := g.freshLabel(), g.freshLabel(), g.freshLabel()
		ins = append(ins, NewCompareAndGoto(l, r, cmp.Invert(), falseL))
		ins = append(ins, NewLabel(trueL))
		ins = append(ins, NewAssign(PlainVar(dst), TvConst(1)))
		ins = append(ins, NewGoto(endL))
		ins = append(ins, NewLabel(falseL))
		ins = append(ins, NewAssign(PlainVar(dst), TvConst(0)))
		ins = append(ins, NewLabel(endL))
		return TvVar(dst), ins
	}

	dst := g.freshTemp()
	op := binOpTacFor(ex.Op)
	ins = append(ins, NewBinOp(PlainVar(dst), l, op, r))
	return TvVar(dst), ins
}

// genPow lowers integer `base ^ exp` as a counted multiplication loop;
// the type checker restricts `^` to (Int,Int)->Int (Float is rejected
// at the codegen boundary), so no fractional-exponent case exists.
func (g *TacGen) genPow(base, exp TacValue, ins []TacInstruction) (TacValue, []TacInstruction) {
	result := g.freshTemp()
	i := g.freshTemp()
	head, end := g.freshLabel(), g.freshLabel()
	ins = append(ins,
		NewAssign(PlainVar(result), TvConst(1)),
		NewAssign(PlainVar(i), TvConst(0)),
		NewLabel(head),
		NewCompareAndGoto(TvVar(i), exp, CmpGeTac, end),
		NewBinOp(PlainVar(result), TvVar(result), TacMul, base),
		NewBinOp(PlainVar(i), TvVar(i), TacAdd, TvConst(1)),
		NewGoto(head),
		NewLabel(end),
	)
	return TvVar(result), ins
}

func compareKindFor(op BinOpKind) (CmpKind, bool) {
	switch op {
	case OpEq:
		return CmpEqTac, true
	case OpNeq:
		return CmpNeTac, true
	case OpLt:
		return CmpLtTac, true
	case OpLe:
		return CmpLeTac, true
	case OpGt:
		return CmpGtTac, true
	case OpGe:
		return CmpGeTac, true
	default:
		return 0, false
	}
}

func binOpTacFor(op BinOpKind) BinOpTac {
	switch op {
	case OpAdd:
		return TacAdd
	case OpSub:
		return TacSub
	case OpMul:
		return TacMul
	case OpDiv:
		return TacDiv
	case OpAnd:
		return TacAnd
	case OpOr:
		return TacOr
	default:
		panic("binOpTacFor: not an arithmetic/boolean operator")
	}
}
