// Completion: 100% - Builtin overload set
package main

// seedBuiltins preloads the print/println overloads directly as
// already-typed FunctionType instances with Undefined return type.
// Their bodies are empty;
// tacgen.go recognizes IsBuiltin and emits the library-stub TAC from
// libraryfunctions.go instead of lowering a body.
func seedBuiltins() []*FunctionType {
	variants := []struct {
		suffix string
		typ    *Type
	}{
		{"int", TyInteger}, {"float", TyFloat}, {"bool", TyBoolean}, {"string", TyString},
	}
	var out []*FunctionType
	for _, base := range []string{"print", "println"} {
		for _, v := range variants {
			out = append(out, &FunctionType{
				Name:        base,
				ParamNames:  []string{"v"},
				ParamTypes:  []*Type{v.typ},
				ReturnType:  TyUndefined,
				IsBuiltin:   true,
				MangledName: base + "_" + v.suffix,
			})
		}
	}
	return out
}
