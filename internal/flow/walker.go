package flow

import "context"

// Walker traverses a graph, delegating node handling. It owns the mutable
// WalkState for one traversal.
type Walker interface {
	State() *WalkState
	Handle(ctx context.Context, node Node, nc NodeContext) (Artifact, error)
}

// WalkState tracks a walker's progress through a graph.
type WalkState struct {
	ID          string         `json:"id"`
	CurrentNode string         `json:"current_node"`
	LoopCounts  map[string]int `json:"loop_counts"`
	Status      string         `json:"status"` // running, done, error
	History     []StepRecord   `json:"history"`
}

// NewWalkState creates a WalkState with initialized maps.
func NewWalkState(id string) *WalkState {
	return &WalkState{
		ID:         id,
		Status:     "running",
		LoopCounts: make(map[string]int),
	}
}

// RecordStep appends a step to the history and updates the current node.
func (ws *WalkState) RecordStep(node, edgeID, timestamp string) {
	ws.History = append(ws.History, StepRecord{
		Node:      node,
		EdgeID:    edgeID,
		Timestamp: timestamp,
	})
	ws.CurrentNode = node
}

// IncrementLoop increments the loop counter for an edge and returns the new count.
func (ws *WalkState) IncrementLoop(edgeID string) int {
	ws.LoopCounts[edgeID]++
	return ws.LoopCounts[edgeID]
}

// StepRecord logs a completed node visit.
type StepRecord struct {
	Node      string `json:"node"`
	EdgeID    string `json:"edge_id"`
	Timestamp string `json:"timestamp"`
}

// DefaultWalker processes each node directly with no extra behavior.
type DefaultWalker struct {
	state *WalkState
}

// NewWalker returns a DefaultWalker with a fresh WalkState.
func NewWalker(id string) *DefaultWalker {
	return &DefaultWalker{state: NewWalkState(id)}
}

func (w *DefaultWalker) State() *WalkState { return w.state }

func (w *DefaultWalker) Handle(ctx context.Context, node Node, nc NodeContext) (Artifact, error) {
	return node.Process(ctx, nc)
}
