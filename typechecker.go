// Completion: 90% - Type checking, overload resolution, and per-call specialization
package main

import "fmt"

// TypeChecker resolves overloaded calls in two phases: a preload
// phase that records every top-level FunDef as an untyped
// FunctionBinding (plus the seeded builtin overloads), and a
// specialization phase that type-checks a function body the first time
// a call site needs its particular argument-type tuple.
type TypeChecker struct {
	bindings  map[string][]*FunctionBinding
	instances map[string]*FunctionType
	order     []*FunctionType // creation order, for deterministic codegen
	loopDepth int
}

// funcCtx tracks the function instance currently being specialized, so
// that Return statements can establish/check its return type in place.
type funcCtx struct {
	instance          *FunctionType
	returnEstablished bool
}

func NewTypeChecker() *TypeChecker {
	tc := &TypeChecker{
		bindings:  make(map[string][]*FunctionBinding),
		instances: make(map[string]*FunctionType),
	}
	for _, b := range seedBuiltins() {
		tc.instances[instanceKey(b.Name, b.ParamTypes)] = b
		tc.order = append(tc.order, b)
	}
	return tc
}

// CheckProgram runs preload then checks every top-level statement,
// returning the typed program plus every FunctionType instance that
// specialization actually materialized.
func CheckProgram(prog *Program) (*TypedProgram, error) {
	tc := NewTypeChecker()
	for _, s := range prog.Statements {
		if fd, ok := s.(*FunDef); ok {
			tc.bindings[fd.Name] = append(tc.bindings[fd.Name], &FunctionBinding{
				Name: fd.Name, Params: fd.Params, Body: fd.Body,
			})
		}
	}

	sc := newScopeStack()
	var top []TStmt
	for _, s := range prog.Statements {
		if _, ok := s.(*FunDef); ok {
			continue // materialized lazily, on first call
		}
		ts, err := tc.checkStmt(s, sc, nil)
		if err != nil {
			return nil, err
		}
		top = append(top, ts)
	}
	return &TypedProgram{TopLevel: top, Instances: tc.order}, nil
}

func (tc *TypeChecker) checkStmt(s Stmt, sc *scopeStack, ctx *funcCtx) (TStmt, error) {
	switch st := s.(type) {
	case *ExprStmt:
		x, err := tc.checkExpr(st.X, sc)
		if err != nil {
			return nil, err
		}
		return &TExprStmt{tstmtBase{st.Span}, x}, nil

	case *AssignStmt:
		v, err := tc.checkExpr(st.Value, sc)
		if err != nil {
			return nil, err
		}
		sc.define(st.Name, v.Type())
		return &TAssignStmt{tstmtBase{st.Span}, st.Name, v}, nil

	case *IfStmt:
		out := &TIfStmt{tstmtBase: tstmtBase{st.Span}}
		for _, br := range st.Branches {
			cond, err := tc.checkExpr(br.Cond, sc)
			if err != nil {
				return nil, err
			}
			if cond.Type().Kind != KindBoolean {
				return nil, typeErrorFromSpan(br.Cond, "if condition must be boolean", "bool", cond.Type().String())
			}
			sc.push()
			body, err := tc.checkStmts(br.Body, sc, ctx)
			sc.pop()
			if err != nil {
				return nil, err
			}
			out.Branches = append(out.Branches, TIfBranch{Cond: cond, Body: body})
		}
		if st.Else != nil {
			sc.push()
			body, err := tc.checkStmts(st.Else, sc, ctx)
			sc.pop()
			if err != nil {
				return nil, err
			}
			out.Else = body
		}
		return out, nil

	case *ForStmt:
		upper, err := tc.checkExpr(st.Upper, sc)
		if err != nil {
			return nil, err
		}
		out := &TForStmt{tstmtBase: tstmtBase{st.Span}, Iter: st.Iter}
		switch upper.Type().Kind {
		case KindInteger:
			out.IterType = TyInteger
			out.Upper = upper
		case KindList:
			out.IterType = upper.Type().Elem
			out.List = upper
		default:
			return nil, typeErrorFromSpan(st.Upper, "for-loop range must be an integer or a list", "int or list", upper.Type().String())
		}
		sc.push()
		sc.define(st.Iter, out.IterType)
		tc.loopDepth++
		body, err := tc.checkStmts(st.Body, sc, ctx)
		tc.loopDepth--
		sc.pop()
		if err != nil {
			return nil, err
		}
		out.Body = body
		return out, nil

	case *ReturnStmt:
		if ctx == nil {
			return nil, LocationErrorAt(CategorySemantic, "return outside a function", toLoc(st.Span))
		}
		if st.Value == nil {
			if !ctx.returnEstablished {
				ctx.instance.ReturnType = TyUndefined
				ctx.returnEstablished = true
			} else if ctx.instance.ReturnType.Kind != KindUndefined {
				return nil, TypeErrorAt("inconsistent return type", ctx.instance.ReturnType.String(), "undefined", toLoc(st.Span))
			}
			return &TReturnStmt{tstmtBase: tstmtBase{st.Span}}, nil
		}
		v, err := tc.checkExpr(st.Value, sc)
		if err != nil {
			return nil, err
		}
		if !ctx.returnEstablished {
			ctx.instance.ReturnType = v.Type()
			ctx.returnEstablished = true
		} else if !ctx.instance.ReturnType.Equal(v.Type()) {
			return nil, typeErrorFromSpan(st.Value, "inconsistent return type", ctx.instance.ReturnType.String(), v.Type().String())
		}
		return &TReturnStmt{tstmtBase{st.Span}, v}, nil

	case *BreakStmt:
		if tc.loopDepth == 0 {
			return nil, LocationErrorAt(CategorySemantic, "break outside a loop", toLoc(st.Span))
		}
		return &TBreakStmt{tstmtBase{st.Span}}, nil

	case *FunDef:
		return nil, InternalError("nested function definitions are not supported")

	default:
		return nil, InternalError(fmt.Sprintf("unhandled statement type %T", s))
	}
}

func (tc *TypeChecker) checkStmts(stmts []Stmt, sc *scopeStack, ctx *funcCtx) ([]TStmt, error) {
	var out []TStmt
	for _, s := range stmts {
		ts, err := tc.checkStmt(s, sc, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, nil
}

func (tc *TypeChecker) checkExpr(e Expr, sc *scopeStack) (TExpr, error) {
	switch ex := e.(type) {
	case *NumberLit:
		if ex.IsFloat {
			return &TNumberLit{texprBase{spanOfExpr(ex), TyFloat}, true, 0, ex.FloatVal}, nil
		}
		return &TNumberLit{texprBase{spanOfExpr(ex), TyInteger}, false, ex.IntVal, 0}, nil

	case *BoolLit:
		return &TBoolLit{texprBase{spanOfExpr(ex), TyBoolean}, ex.Value}, nil

	case *StringLit:
		return &TStringLit{texprBase{spanOfExpr(ex), TyString}, ex.Value}, nil

	case *ListLit:
		if len(ex.Elems) == 0 {
			return &TListLit{texprBase: texprBase{spanOfExpr(ex), TyList(TyUndefined)}}, nil
		}
		elems := make([]TExpr, len(ex.Elems))
		first, err := tc.checkExpr(ex.Elems[0], sc)
		if err != nil {
			return nil, err
		}
		elems[0] = first
		for i := 1; i < len(ex.Elems); i++ {
			el, err := tc.checkExpr(ex.Elems[i], sc)
			if err != nil {
				return nil, err
			}
			if !el.Type().Equal(first.Type()) {
				return nil, typeErrorFromSpan(ex.Elems[i], "list elements must share one type", first.Type().String(), el.Type().String())
			}
			elems[i] = el
		}
		return &TListLit{texprBase{spanOfExpr(ex), TyList(first.Type())}, elems}, nil

	case *VarRef:
		t, ok := sc.lookup(ex.Name)
		if !ok {
			return nil, LocationErrorAt(CategorySemantic, fmt.Sprintf("undefined variable %q", ex.Name), toLoc(ex.Span))
		}
		return &TVarRef{texprBase{spanOfExpr(ex), t}, ex.Name}, nil

	case *IndexExpr:
		list, err := tc.checkExpr(ex.List, sc)
		if err != nil {
			return nil, err
		}
		if list.Type().Kind != KindList {
			return nil, typeErrorFromSpan(ex.List, "cannot index a non-list value", "list", list.Type().String())
		}
		idx, err := tc.checkExpr(ex.Index, sc)
		if err != nil {
			return nil, err
		}
		if idx.Type().Kind != KindInteger {
			return nil, typeErrorFromSpan(ex.Index, "list index must be an integer", "int", idx.Type().String())
		}
		return &TIndexExpr{texprBase{spanOfExpr(ex), list.Type().Elem}, list, idx}, nil

	case *BinExpr:
		return tc.checkBinExpr(ex, sc)

	case *UnaryExpr:
		operand, err := tc.checkExpr(ex.Operand, sc)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case OpNeg:
			if !operand.Type().IsNumeric() {
				return nil, typeErrorFromSpan(ex.Operand, "unary '-' requires a number", "int or float", operand.Type().String())
			}
		case OpNot:
			if operand.Type().Kind != KindBoolean {
				return nil, typeErrorFromSpan(ex.Operand, "'not' requires a boolean", "bool", operand.Type().String())
			}
		}
		return &TUnaryExpr{texprBase{spanOfExpr(ex), operand.Type()}, ex.Op, operand}, nil

	case *CallExpr:
		return tc.checkCall(ex, sc)

	default:
		return nil, InternalError(fmt.Sprintf("unhandled expression type %T", e))
	}
}

func (tc *TypeChecker) checkBinExpr(ex *BinExpr, sc *scopeStack) (TExpr, error) {
	left, err := tc.checkExpr(ex.Left, sc)
	if err != nil {
		return nil, err
	}
	right, err := tc.checkExpr(ex.Right, sc)
	if err != nil {
		return nil, err
	}
	lt, rt := left.Type(), right.Type()

	mismatch := func(want string) (TExpr, error) {
		return nil, typeErrorFromSpan(ex, fmt.Sprintf("operator requires %s operands", want), want, lt.String()+", "+rt.String())
	}

	switch ex.Op {
	case OpAdd:
		switch {
		case lt.Kind == KindInteger && rt.Kind == KindInteger:
			return mkBin(ex, left, right, TyInteger), nil
		case lt.Kind == KindString && rt.Kind == KindString:
			return mkBin(ex, left, right, TyString), nil
		case lt.IsNumeric() && rt.IsNumeric():
			return mkBin(ex, left, right, TyFloat), nil
		default:
			return mismatch("two numbers or two strings")
		}
	case OpSub, OpMul, OpDiv, OpPow:
		switch {
		case lt.Kind == KindInteger && rt.Kind == KindInteger:
			return mkBin(ex, left, right, TyInteger), nil
		case lt.IsNumeric() && rt.IsNumeric():
			return mkBin(ex, left, right, TyFloat), nil
		default:
			return mismatch("two numbers")
		}
	case OpAnd, OpOr:
		if lt.Kind != KindBoolean || rt.Kind != KindBoolean {
			return mismatch("two booleans")
		}
		return mkBin(ex, left, right, TyBoolean), nil
	case OpEq, OpNeq:
		if !lt.Equal(rt) {
			return mismatch("two values of the same type")
		}
		return mkBin(ex, left, right, TyBoolean), nil
	case OpLt, OpLe, OpGt, OpGe:
		if !((lt.Kind == KindInteger || lt.Kind == KindFloat) && lt.Kind == rt.Kind) {
			return mismatch("two integers or two floats")
		}
		return mkBin(ex, left, right, TyBoolean), nil
	default:
		return nil, InternalError("unhandled binary operator")
	}
}

func mkBin(ex *BinExpr, left, right TExpr, result *Type) TExpr {
	return &TBinExpr{texprBase{spanOfExpr(ex), result}, ex.Op, left, right}
}

func (tc *TypeChecker) checkCall(ex *CallExpr, sc *scopeStack) (TExpr, error) {
	args := make([]TExpr, len(ex.Args))
	argTypes := make([]*Type, len(ex.Args))
	for i, a := range ex.Args {
		ta, err := tc.checkExpr(a, sc)
		if err != nil {
			return nil, err
		}
		args[i] = ta
		argTypes[i] = ta.Type()
	}

	key := instanceKey(ex.Name, argTypes)
	if inst, ok := tc.instances[key]; ok {
		// Builtins are seeded eagerly with IsUsed unset; only the ones a
		// call actually reaches get their library stub emitted.
		inst.IsUsed = true
		return &TCallExpr{span: spanOfExpr(ex), Callee: inst, Args: args}, nil
	}

	candidates := tc.bindings[ex.Name]
	var binding *FunctionBinding
	for _, c := range candidates {
		if len(c.Params) == len(argTypes) {
			binding = c
			break
		}
	}
	if binding == nil {
		return nil, LocationErrorAt(CategorySemantic,
			fmt.Sprintf("no function %q taking %d argument(s)", ex.Name, len(argTypes)), toLoc(ex.Span))
	}

	inst := &FunctionType{
		Name:        ex.Name,
		ParamNames:  binding.Params,
		ParamTypes:  argTypes,
		ReturnType:  TyUndefined,
		IsUsed:      true,
		MangledName: mangle(ex.Name, argTypes),
	}
	tc.instances[key] = inst
	tc.order = append(tc.order, inst)

	inner := newScopeStack()
	for i, p := range binding.Params {
		inner.define(p, argTypes[i])
	}
	ctx := &funcCtx{instance: inst}
	body, err := tc.checkStmts(binding.Body, inner, ctx)
	if err != nil {
		return nil, err
	}
	inst.Body = body
	if !ctx.returnEstablished {
		inst.ReturnType = TyUndefined
	}

	return &TCallExpr{span: spanOfExpr(ex), Callee: inst, Args: args}, nil
}

func spanOfExpr(e Expr) Span { return e.exprSpan() }

func toLoc(s Span) SourceLocation {
	return SourceLocation{Line: s.Row, Column: s.ColStart, Length: s.ColEnd - s.ColStart}
}

func typeErrorFromSpan(e Expr, msg, expected, found string) *CompilerError {
	return TypeErrorAt(msg, expected, found, toLoc(spanOfExpr(e)))
}
