// Completion: 100% - Codegen-boundary Float rejection
package main

// RejectFloatLowering rejects programs that would need to materialize
// a Float value at runtime, with a proper CategoryCodegen
// CompilerError rather than type-checker-time rejection. The operator
// typing table keeps Float as a first-class numeric type, but TacValue
// (tac.go) has no float encoding at all, so every Float value the
// typed program would actually need to materialize is caught here
// before TacGen ever sees it, turning what would otherwise be an
// internal panic deep in tacgen.go into a normal, reported compile
// error.
func RejectFloatLowering(tp *TypedProgram) error {
	for _, inst := range tp.Instances {
		if inst.IsBuiltin || !inst.IsUsed {
			continue
		}
		if err := rejectFloatStmts(inst.Body); err != nil {
			return err
		}
	}
	return rejectFloatStmts(tp.TopLevel)
}

func rejectFloatStmts(stmts []TStmt) error {
	for _, s := range stmts {
		if err := rejectFloatStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func rejectFloatStmt(s TStmt) error {
	switch st := s.(type) {
	case *TExprStmt:
		return rejectFloatExpr(st.X)
	case *TAssignStmt:
		return rejectFloatExpr(st.Value)
	case *TIfStmt:
		for _, br := range st.Branches {
			if err := rejectFloatExpr(br.Cond); err != nil {
				return err
			}
			if err := rejectFloatStmts(br.Body); err != nil {
				return err
			}
		}
		return rejectFloatStmts(st.Else)
	case *TForStmt:
		if st.Upper != nil {
			if err := rejectFloatExpr(st.Upper); err != nil {
				return err
			}
		}
		if st.List != nil {
			if err := rejectFloatExpr(st.List); err != nil {
				return err
			}
		}
		return rejectFloatStmts(st.Body)
	case *TReturnStmt:
		if st.Value == nil {
			return nil
		}
		return rejectFloatExpr(st.Value)
	case *TFunDef, *TBreakStmt:
		return nil
	default:
		return nil
	}
}

// rejectFloatExpr walks e and every subexpression, erroring at the
// first node whose static type is Float — the exact point a real
// implementation would need a float-valued TacValue and doesn't have
// one. A Float-typed List is walked through its element subexpressions
// the same way, so `[1.0, 2.0]` is rejected at its first element.
func rejectFloatExpr(e TExpr) error {
	if e == nil {
		return nil
	}
	if e.Type().Kind == KindFloat {
		return LocationErrorAt(CategoryCodegen,
			"this backend only lowers Integer arithmetic to machine code; Float values cannot be compiled",
			toLoc(e.Span()))
	}
	switch ex := e.(type) {
	case *TListLit:
		for _, el := range ex.Elems {
			if err := rejectFloatExpr(el); err != nil {
				return err
			}
		}
	case *TIndexExpr:
		if err := rejectFloatExpr(ex.List); err != nil {
			return err
		}
		return rejectFloatExpr(ex.Index)
	case *TBinExpr:
		if err := rejectFloatExpr(ex.Left); err != nil {
			return err
		}
		return rejectFloatExpr(ex.Right)
	case *TUnaryExpr:
		return rejectFloatExpr(ex.Operand)
	case *TCallExpr:
		for _, a := range ex.Args {
			if err := rejectFloatExpr(a); err != nil {
				return err
			}
		}
	}
	return nil
}
