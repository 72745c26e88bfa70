package flow

import "errors"

var (
	// ErrNodeNotFound is returned when a referenced node does not exist in the graph.
	ErrNodeNotFound = errors.New("flow: node not found")

	// ErrNoEdge is returned when no edge matches from the current node,
	// indicating the walk has reached a terminal state or a graph definition gap.
	ErrNoEdge = errors.New("flow: no matching edge from node")
)
