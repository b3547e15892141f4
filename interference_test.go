package main

import "testing"

func TestInterferenceGraphEdgeBetweenSimultaneouslyLiveVars(t *testing.T) {
	// x = 1; y = 2; z = x + y  -- x and y are both live before the BinOp.
	code := []TacInstruction{
		NewAssign(PlainVar("x"), TvConst(1)),
		NewAssign(PlainVar("y"), TvConst(2)),
		NewBinOp(PlainVar("z"), TvVar("x"), TacAdd, TvVar("y")),
		NewReturn(TvVar("z"), true),
	}
	live := AnalyzeLiveness(code)
	vars := CollectVariables(code)
	g := BuildInterferenceGraph(code, live, vars)

	found := false
	for _, n := range g.Neighbors("x") {
		if n == "y" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected x and y to interfere (both live before the BinOp), neighbors of x: %v", g.Neighbors("x"))
	}
}

func TestInterferenceGraphNoSelfLoop(t *testing.T) {
	g := NewInterferenceGraph([]string{"x"})
	g.addEdge("x", "x")
	if len(g.Neighbors("x")) != 0 {
		t.Errorf("expected no self-loop, got neighbors %v", g.Neighbors("x"))
	}
}

func TestInterferenceGraphIncludesVariablesWithNoInterference(t *testing.T) {
	// x and y never overlap in liveness (x dies before y is born).
	code := []TacInstruction{
		NewAssign(PlainVar("x"), TvConst(1)),
		NewAssign(PlainVar("discard"), TvVar("x")),
		NewAssign(PlainVar("y"), TvConst(2)),
		NewReturn(TvVar("y"), true),
	}
	live := AnalyzeLiveness(code)
	vars := CollectVariables(code)
	g := BuildInterferenceGraph(code, live, vars)

	for _, v := range []string{"x", "y", "discard"} {
		hasNode := false
		for _, n := range g.Nodes {
			if n == v {
				hasNode = true
			}
		}
		if !hasNode {
			t.Errorf("expected %q to be a node even with no interference, got nodes %v", v, g.Nodes)
		}
	}
}

func TestCollectVariablesIncludesFunctionParameters(t *testing.T) {
	code := []TacInstruction{
		NewFunctionLabel("fn_f_int", []string{"p"}),
		NewReturn(TvVar("p"), true),
	}
	vars := CollectVariables(code)
	found := false
	for _, v := range vars {
		if v == "p" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected parameter p to be collected, got %v", vars)
	}
}

func TestCollectVariablesDeduplicates(t *testing.T) {
	code := []TacInstruction{
		NewAssign(PlainVar("x"), TvConst(1)),
		NewAssign(PlainVar("x"), TvConst(2)),
		NewReturn(TvVar("x"), true),
	}
	vars := CollectVariables(code)
	count := 0
	for _, v := range vars {
		if v == "x" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected x to appear exactly once, got %d in %v", count, vars)
	}
}
