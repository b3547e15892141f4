// Completion: 100% - Front end, out of the core pipeline's scope
package main

// Desugar rewrites every `x += e` into `x = x + e`, recursing into
// nested statement bodies. It is
// idempotent: running it twice is the same as running it once, since
// after the first pass no AssignStmt has PlusEq set.
func Desugar(prog *Program) *Program {
	prog.Statements = desugarStmts(prog.Statements)
	return prog
}

func desugarStmts(stmts []Stmt) []Stmt {
	out := make([]Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = desugarStmt(s)
	}
	return out
}

func desugarStmt(s Stmt) Stmt {
	switch st := s.(type) {
	case *AssignStmt:
		if !st.PlusEq {
			return st
		}
		return &AssignStmt{
			Span:  st.Span,
			Name:  st.Name,
			Value: &BinExpr{Span: st.Span, Op: OpAdd, Left: &VarRef{Span: st.Span, Name: st.Name}, Right: st.Value},
		}
	case *IfStmt:
		for i := range st.Branches {
			st.Branches[i].Body = desugarStmts(st.Branches[i].Body)
		}
		st.Else = desugarStmts(st.Else)
		return st
	case *ForStmt:
		st.Body = desugarStmts(st.Body)
		return st
	case *FunDef:
		st.Body = desugarStmts(st.Body)
		return st
	default:
		return st
	}
}
