package flow

import "context"

// Node is a processing stage in a pipeline graph.
// Implementations are domain-specific (e.g. prepare, analyze, decide).
type Node interface {
	Name() string
	Process(ctx context.Context, nc NodeContext) (Artifact, error)
}

// Artifact is the output of a Node's processing.
// The framework treats it as opaque; typed artifacts are domain-specific.
type Artifact interface {
	Type() string
	Raw() any
}

// NodeContext is the input to a Node's Process method: the walk state plus
// the artifact produced by the previous node.
type NodeContext struct {
	WalkState     *WalkState
	PriorArtifact Artifact
}

// Edge is a conditional connection between two Nodes. Evaluate returns a
// Transition when the edge fires, or nil to let the next edge in definition
// order be tried.
type Edge interface {
	ID() string
	From() string
	To() string
	IsLoop() bool
	Evaluate(artifact Artifact, state *WalkState) *Transition
}

// Transition is the result of evaluating an Edge: the next node to visit and
// a human-readable explanation recorded in the walk history.
type Transition struct {
	NextNode    string
	Explanation string
}

// FuncEdge is an Edge whose evaluation logic is a plain function. When Func
// is nil the edge fires unconditionally toward its target.
type FuncEdge struct {
	Def  EdgeDef
	Func func(artifact Artifact, state *WalkState) *Transition
}

func (e *FuncEdge) ID() string   { return e.Def.ID }
func (e *FuncEdge) From() string { return e.Def.From }
func (e *FuncEdge) To() string   { return e.Def.To }
func (e *FuncEdge) IsLoop() bool { return e.Def.Loop }

func (e *FuncEdge) Evaluate(a Artifact, s *WalkState) *Transition {
	if e.Func != nil {
		return e.Func(a, s)
	}
	return &Transition{NextNode: e.Def.To, Explanation: e.Def.Condition}
}
