// Completion: 100% - Naive all-pairs interference graph over live sets
package main

import "sort"

// InterferenceGraph is an undirected graph over every variable in the
// program; edges connect variables simultaneously live at some program
// point. Self-loops are never added.
type InterferenceGraph struct {
	Nodes []string
	adj   map[string]map[string]bool
}

func NewInterferenceGraph(allVars []string) *InterferenceGraph {
	g := &InterferenceGraph{adj: make(map[string]map[string]bool)}
	seen := make(map[string]bool)
	for _, v := range allVars {
		if seen[v] {
			continue
		}
		seen[v] = true
		g.Nodes = append(g.Nodes, v)
		g.adj[v] = map[string]bool{}
	}
	sort.Strings(g.Nodes) // deterministic iteration order for DSATUR tie-breaks
	return g
}

func (g *InterferenceGraph) addEdge(a, b string) {
	if a == b {
		return
	}
	g.adj[a][b] = true
	g.adj[b][a] = true
}

func (g *InterferenceGraph) Neighbors(v string) []string {
	out := make([]string, 0, len(g.adj[v]))
	for n := range g.adj[v] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// BuildInterferenceGraph adds an edge between every pair of variables
// in the live-in set at every program point. allVars must include
// every variable appearing anywhere in the program, including ones
// with an empty interference set.
func BuildInterferenceGraph(code []TacInstruction, live *Liveness, allVars []string) *InterferenceGraph {
	g := NewInterferenceGraph(allVars)
	for i := range code {
		vars := make([]string, 0, len(live.LiveBefore[i]))
		for v := range live.LiveBefore[i] {
			vars = append(vars, v)
		}
		for a := 0; a < len(vars); a++ {
			for b := a + 1; b < len(vars); b++ {
				g.addEdge(vars[a], vars[b])
			}
		}
	}
	return g
}

// CollectVariables walks code and returns every distinct variable name
// that appears anywhere (as a use, a def, or a bare declaration via
// FunctionLabel parameters); even variables with empty interference
// sets become graph nodes.
func CollectVariables(code []TacInstruction) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, ins := range code {
		for _, v := range ins.Uses() {
			add(v)
		}
		for _, v := range ins.Defs() {
			add(v)
		}
	}
	return out
}
