// Completion: 100% - Backward dataflow liveness over the flat TAC stream
package main

// Liveness holds, for every instruction index i, the set of variables
// live immediately before i executes.
type Liveness struct {
	LiveBefore []map[string]bool
}

// successors returns the instruction indices that may execute
// immediately after i.
func successors(code []TacInstruction, labelIndex map[string]int, i int) []int {
	ins := code[i]
	var out []int
	switch ins.Kind {
	case TacGoto:
		return []int{labelIndex[ins.Label]}
	case TacCompareAndGoto:
		out = append(out, labelIndex[ins.Label])
		if i+1 < len(code) {
			out = append(out, i+1)
		}
		return out
	case TacReturn:
		return nil
	default:
		if i+1 < len(code) {
			return []int{i + 1}
		}
		return nil
	}
}

// AnalyzeLiveness runs the backward-dataflow fixpoint iteration.
// Function parameters are seeded live at their FunctionLabel;
// Return's operand is counted as a use via TacInstruction.Uses, so
// return values being used by Return falls out of the general use/def
// rule without special-casing.
func AnalyzeLiveness(code []TacInstruction) *Liveness {
	n := len(code)
	labelIndex := make(map[string]int, n)
	for i, ins := range code {
		if ins.Kind == TacLabel || ins.Kind == TacFunctionLabel {
			labelIndex[ins.Label] = i
		}
	}

	liveIn := make([]map[string]bool, n)
	liveOut := make([]map[string]bool, n)
	for i := range code {
		liveIn[i] = map[string]bool{}
		liveOut[i] = map[string]bool{}
	}

	changed := true
	for changed {
		changed = false
		for i := n - 1; i >= 0; i-- {
			ins := code[i]

			newOut := map[string]bool{}
			for _, s := range successors(code, labelIndex, i) {
				for v := range liveIn[s] {
					newOut[v] = true
				}
			}

			def := map[string]bool{}
			for _, v := range ins.Defs() {
				def[v] = true
			}
			newIn := map[string]bool{}
			for _, v := range ins.Uses() {
				newIn[v] = true
			}
			for v := range newOut {
				if !def[v] {
					newIn[v] = true
				}
			}

			if !sameSet(newIn, liveIn[i]) {
				liveIn[i] = newIn
				changed = true
			}
			if !sameSet(newOut, liveOut[i]) {
				liveOut[i] = newOut
				changed = true
			}
		}
	}

	return &Liveness{LiveBefore: liveIn}
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
