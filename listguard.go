// Completion: 100% - Codegen-boundary list-lowerability rejection
package main

// Lists have no runtime representation: TacGen unrolls every list use
// at compile time, which requires each list value to trace back to a
// literal and each index to be a compile-time constant. RejectUnloweredLists
// walks the typed program the same way RejectFloatLowering does and
// reports the first list use the unroller cannot handle as a normal
// compile error instead of an internal panic.
func RejectUnloweredLists(tp *TypedProgram) error {
	for _, inst := range tp.Instances {
		if inst.IsBuiltin || !inst.IsUsed {
			continue
		}
		if err := rejectListStmts(inst.Body); err != nil {
			return err
		}
	}
	return rejectListStmts(tp.TopLevel)
}

func rejectListStmts(stmts []TStmt) error {
	for _, s := range stmts {
		if err := rejectListStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func rejectListStmt(s TStmt) error {
	switch st := s.(type) {
	case *TExprStmt:
		return rejectListExpr(st.X)
	case *TAssignStmt:
		return rejectListExpr(st.Value)
	case *TIfStmt:
		for _, br := range st.Branches {
			if err := rejectListExpr(br.Cond); err != nil {
				return err
			}
			if err := rejectListStmts(br.Body); err != nil {
				return err
			}
		}
		return rejectListStmts(st.Else)
	case *TForStmt:
		if st.Upper != nil {
			if err := rejectListExpr(st.Upper); err != nil {
				return err
			}
		}
		if st.List != nil {
			if err := rejectListExpr(st.List); err != nil {
				return err
			}
		}
		return rejectListStmts(st.Body)
	case *TReturnStmt:
		if st.Value == nil {
			return nil
		}
		if st.Value.Type().Kind == KindList {
			return LocationErrorAt(CategoryCodegen,
				"a function cannot return a list value; lists exist only at compile time",
				toLoc(st.Value.Span()))
		}
		return rejectListExpr(st.Value)
	default:
		return nil
	}
}

func rejectListExpr(e TExpr) error {
	if e == nil {
		return nil
	}
	switch ex := e.(type) {
	case *TListLit:
		for _, el := range ex.Elems {
			if err := rejectListExpr(el); err != nil {
				return err
			}
		}
	case *TIndexExpr:
		if _, ok := constIndex(ex.Index); !ok {
			return LocationErrorAt(CategoryCodegen,
				"list index must be a compile-time constant; lists exist only at compile time",
				toLoc(ex.Index.Span()))
		}
		return rejectListExpr(ex.List)
	case *TBinExpr:
		if ex.Left.Type().Kind == KindList || ex.Right.Type().Kind == KindList {
			return LocationErrorAt(CategoryCodegen,
				"list values cannot be compared; lists exist only at compile time",
				toLoc(ex.Span()))
		}
		if err := rejectListExpr(ex.Left); err != nil {
			return err
		}
		return rejectListExpr(ex.Right)
	case *TUnaryExpr:
		return rejectListExpr(ex.Operand)
	case *TCallExpr:
		if ex.Callee.ReturnType.Kind == KindList {
			return LocationErrorAt(CategoryCodegen,
				"a function cannot return a list value; lists exist only at compile time",
				toLoc(ex.Span()))
		}
		for _, a := range ex.Args {
			if a.Type().Kind == KindList {
				return LocationErrorAt(CategoryCodegen,
					"a list cannot be passed as a function argument; lists exist only at compile time",
					toLoc(a.Span()))
			}
			if err := rejectListExpr(a); err != nil {
				return err
			}
		}
	}
	return nil
}
