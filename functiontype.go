// Completion: 95% - Overload resolution's core data structure
package main

import "strings"

// FunctionBinding is an untyped, preloaded function definition: a name,
// its parameter names, and its unchecked body. Seeded during the type
// checker's preload phase from every top-level
// FunDef; looked up by (name, arity) when a call site needs a new
// specialization.
type FunctionBinding struct {
	Name   string
	Params []string
	Body   []Stmt
}

// FunctionType is a specialization of a function for one concrete
// parameter-type tuple. Overloaded functions — same
// name, distinct parameter type tuples — coexist as separate
// FunctionType instances in the type checker's instance table.
type FunctionType struct {
	Name       string
	ParamNames []string
	ParamTypes []*Type
	ReturnType *Type
	Body       []TStmt
	IsUsed     bool
	IsBuiltin  bool
	// MangledName is the globally unique label the code generator emits
	// for this instance.
	MangledName string
}

// instanceKey is the lookup key for the type checker's instance table:
// (name, parameter type tuple).
func instanceKey(name string, paramTypes []*Type) string {
	var sb strings.Builder
	sb.WriteString(name)
	for _, t := range paramTypes {
		sb.WriteByte('|')
		sb.WriteString(t.String())
	}
	return sb.String()
}

func mangle(name string, paramTypes []*Type) string {
	var sb strings.Builder
	sb.WriteString("fn_")
	sb.WriteString(name)
	for _, t := range paramTypes {
		sb.WriteByte('_')
		sb.WriteString(t.String())
	}
	return sb.String()
}
