package flow

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type testArtifact struct {
	kind string
	hops int
}

func (a *testArtifact) Type() string { return a.kind }
func (a *testArtifact) Raw() any     { return a }

type countingNode struct {
	name  string
	calls int
	fail  bool
}

func (n *countingNode) Name() string { return n.name }

func (n *countingNode) Process(_ context.Context, nc NodeContext) (Artifact, error) {
	n.calls++
	if n.fail {
		return nil, fmt.Errorf("boom")
	}
	hops := 0
	if prior, ok := nc.PriorArtifact.(*testArtifact); ok && prior != nil {
		hops = prior.hops + 1
	}
	return &testArtifact{kind: n.name, hops: hops}, nil
}

func alwaysEdge(id, from, to string) Edge {
	return &FuncEdge{Def: EdgeDef{ID: id, From: from, To: to}}
}

func TestWalkLinearPipeline(t *testing.T) {
	a := &countingNode{name: "a"}
	b := &countingNode{name: "b"}
	c := &countingNode{name: "c"}

	g, err := NewGraph("linear",
		[]Node{a, b, c},
		[]Edge{
			alwaysEdge("E1", "a", "b"),
			alwaysEdge("E2", "b", "c"),
			alwaysEdge("E3", "c", "_done"),
		},
	)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	w := NewWalker("t1")
	if err := g.Walk(context.Background(), w, "a", nil); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("calls = %d/%d/%d, want 1/1/1", a.calls, b.calls, c.calls)
	}
	if w.State().Status != "done" {
		t.Errorf("status = %q, want done", w.State().Status)
	}
	if len(w.State().History) != 3 {
		t.Errorf("history length = %d, want 3", len(w.State().History))
	}
}

func TestWalkSeedArtifactReachesFirstNode(t *testing.T) {
	n := &countingNode{name: "only"}
	g, err := NewGraph("seeded",
		[]Node{n},
		[]Edge{alwaysEdge("E1", "only", "_done")},
	)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	seed := &testArtifact{kind: "seed", hops: 41}
	w := NewWalker("t2")
	if err := g.Walk(context.Background(), w, "only", seed); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	// The node increments hops from its prior artifact, proving the seed
	// arrived as PriorArtifact.
	if n.calls != 1 {
		t.Fatalf("calls = %d, want 1", n.calls)
	}
}

func TestWalkFirstMatchWins(t *testing.T) {
	a := &countingNode{name: "a"}
	b := &countingNode{name: "b"}
	c := &countingNode{name: "c"}

	never := &FuncEdge{
		Def:  EdgeDef{ID: "E0", From: "a", To: "c"},
		Func: func(Artifact, *WalkState) *Transition { return nil },
	}

	g, err := NewGraph("branch",
		[]Node{a, b, c},
		[]Edge{
			never,
			alwaysEdge("E1", "a", "b"),
			alwaysEdge("E2", "b", "_done"),
			alwaysEdge("E3", "c", "_done"),
		},
	)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	w := NewWalker("t3")
	if err := g.Walk(context.Background(), w, "a", nil); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if c.calls != 0 {
		t.Errorf("non-matching edge target was visited")
	}
	if b.calls != 1 {
		t.Errorf("matching edge target not visited")
	}
}

func TestWalkLoopEdgeCounts(t *testing.T) {
	a := &countingNode{name: "a"}
	loops := 0
	loop := &FuncEdge{
		Def: EdgeDef{ID: "L1", From: "a", To: "a", Loop: true},
		Func: func(Artifact, *WalkState) *Transition {
			if loops >= 2 {
				return nil
			}
			loops++
			return &Transition{NextNode: "a", Explanation: "again"}
		},
	}
	g, err := NewGraph("loop",
		[]Node{a},
		[]Edge{loop, alwaysEdge("E1", "a", "_done")},
	)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	w := NewWalker("t4")
	if err := g.Walk(context.Background(), w, "a", nil); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if a.calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 loops)", a.calls)
	}
	if got := w.State().LoopCounts["L1"]; got != 2 {
		t.Errorf("loop count = %d, want 2", got)
	}
}

func TestWalkNoMatchingEdge(t *testing.T) {
	a := &countingNode{name: "a"}
	b := &countingNode{name: "b"}
	never := &FuncEdge{
		Def:  EdgeDef{ID: "E1", From: "a", To: "b"},
		Func: func(Artifact, *WalkState) *Transition { return nil },
	}
	g, err := NewGraph("stuck", []Node{a, b}, []Edge{never, alwaysEdge("E2", "b", "_done")})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	w := NewWalker("t5")
	err = g.Walk(context.Background(), w, "a", nil)
	if !errors.Is(err, ErrNoEdge) {
		t.Errorf("err = %v, want ErrNoEdge", err)
	}
	if w.State().Status != "error" {
		t.Errorf("status = %q, want error", w.State().Status)
	}
}

func TestWalkNodeError(t *testing.T) {
	a := &countingNode{name: "a", fail: true}
	g, err := NewGraph("failing", []Node{a}, []Edge{alwaysEdge("E1", "a", "_done")})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	w := NewWalker("t6")
	if err := g.Walk(context.Background(), w, "a", nil); err == nil {
		t.Error("Walk should propagate node errors")
	}
}

func TestWalkUnknownStartNode(t *testing.T) {
	a := &countingNode{name: "a"}
	g, err := NewGraph("g", []Node{a}, []Edge{alwaysEdge("E1", "a", "_done")})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	err = g.Walk(context.Background(), NewWalker("t7"), "missing", nil)
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("err = %v, want ErrNodeNotFound", err)
	}
}

func TestNewGraphRejectsDanglingEdge(t *testing.T) {
	a := &countingNode{name: "a"}
	_, err := NewGraph("bad", []Node{a}, []Edge{alwaysEdge("E1", "a", "ghost")})
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("err = %v, want ErrNodeNotFound", err)
	}
}

func TestWalkContextCanceled(t *testing.T) {
	a := &countingNode{name: "a"}
	g, err := NewGraph("g", []Node{a}, []Edge{alwaysEdge("E1", "a", "_done")})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Walk(ctx, NewWalker("t8"), "a", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
