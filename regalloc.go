// Completion: 100% - DSATUR graph-coloring register allocation
package main

import "sort"

// Register palette. Nonnegative indices are the
// allocatable general-purpose set; negative indices name fixed
// single-purpose registers reserved outside allocation (RAX as the
// return/accumulator register, RSP/RBP as frame registers, R11/R15 as
// codegen scratch). Indices above 10 are spill slots at
// [RSP+8*(idx-10)].
const (
	RegRCX = 0
	RegRDX = 1
	RegRSI = 2
	RegRDI = 3
	RegR8  = 4
	RegR9  = 5
	RegR10 = 6
	RegRBX = 7
	RegR12 = 8
	RegR13 = 9
	RegR14 = 10

	RegRAX = -1
	RegRSP = -2
	RegRBP = -3
	RegR11 = -4
	RegR15 = -5
)

const numAllocatablePalette = 11 // indices 0..10

// winArgRegs is the Win64 integer-argument precoloring convention.
var winArgRegs = []int{RegRCX, RegRDX, RegR8, RegR9}

// RegisterAssignment maps every variable to a signed register index.
type RegisterAssignment map[string]int

// dsaturNode tracks per-variable coloring state during allocation.
type dsaturNode struct {
	name       string
	color      int // unset until colored; -1000 sentinel
	disallowed map[int]bool
	blocked    map[int]bool // this node's own precoloring-block list
	precolored bool
}

const uncolored = -1000

// AllocateRegisters colors g with the DSATUR heuristic. requestedRegs carries
// every VariableWithRequestedRegister precoloring request (library
// stub / call-site argument marshalling); paramPrecolor carries the
// Win64 argument-register precoloring for each function's parameters,
// keyed by parameter variable name.
func AllocateRegisters(g *InterferenceGraph, requested map[string]int) (RegisterAssignment, error) {
	nodes := make(map[string]*dsaturNode, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n] = &dsaturNode{name: n, color: uncolored, disallowed: map[int]bool{}, blocked: map[int]bool{}}
	}

	// Precoloring pass: assign requested colors immediately and
	// propagate to neighbors' disallowed sets.
	for name, reg := range requested {
		node, ok := nodes[name]
		if !ok {
			continue
		}
		node.color = reg
		node.precolored = true
		for _, nb := range g.Neighbors(name) {
			nodes[nb].disallowed[reg] = true
		}
	}

	for {
		cand := selectMaxSaturation(g, nodes)
		if cand == "" {
			break // every node colored
		}
		node := nodes[cand]
		color := smallestAvailable(node)
		node.color = color
		for _, nb := range g.Neighbors(cand) {
			nodes[nb].disallowed[color] = true
		}
	}

	assignment := make(RegisterAssignment, len(nodes))
	for name, n := range nodes {
		assignment[name] = n.color
	}

	for _, name := range g.Nodes {
		for _, nb := range g.Neighbors(name) {
			if assignment[name] == assignment[nb] {
				return nil, InternalError("register allocator produced a conflicting coloring for " + name + " and " + nb)
			}
		}
	}

	return assignment, nil
}

// selectMaxSaturation picks the uncolored node with the most distinct
// colors among its colored neighbors, breaking ties by the graph's
// deterministic node iteration order.
func selectMaxSaturation(g *InterferenceGraph, nodes map[string]*dsaturNode) string {
	best := ""
	bestSat := -1
	for _, name := range g.Nodes {
		n := nodes[name]
		if n.color != uncolored {
			continue
		}
		sat := distinctNeighborColors(g, nodes, name)
		if sat > bestSat {
			bestSat = sat
			best = name
		}
	}
	return best
}

func distinctNeighborColors(g *InterferenceGraph, nodes map[string]*dsaturNode, name string) int {
	seen := map[int]bool{}
	for _, nb := range g.Neighbors(name) {
		if c := nodes[nb].color; c != uncolored {
			seen[c] = true
		}
	}
	return len(seen)
}

// smallestAvailable finds the smallest nonnegative palette index not
// disallowed by a neighbor and not in this node's own block list.
// Exhausting the palette spills to the next free index above 10.
func smallestAvailable(n *dsaturNode) int {
	for c := 0; c < numAllocatablePalette; c++ {
		if !n.disallowed[c] && !n.blocked[c] {
			return c
		}
	}
	spill := numAllocatablePalette
	for n.disallowed[spill] || n.blocked[spill] {
		spill++
	}
	return spill
}

// ParamPrecoloring builds the Win64 argument-register precoloring
// request map for a single function's parameter list: the first four
// land on RCX/RDX/R8/R9, the rest spill to stack slots starting at
// index 11.
func ParamPrecoloring(paramNames []string, out map[string]int) {
	for i, name := range paramNames {
		if i < len(winArgRegs) {
			out[name] = winArgRegs[i]
		} else {
			out[name] = numAllocatablePalette + (i - len(winArgRegs))
		}
	}
}

// sortedKeys is a small determinism helper used by codegen when it
// needs to walk a RegisterAssignment in a stable order.
func sortedKeys(m RegisterAssignment) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
