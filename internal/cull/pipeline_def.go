package cull

import "aperture/internal/flow"

// pipelineDef declares the culling graph. The persist node normally exits
// through E5; E6 is the reprocess hook for a future retry loop and sits
// after E5 so it never fires while E5's condition holds.
func pipelineDef() *flow.PipelineDef {
	return &flow.PipelineDef{
		Pipeline:    "cull",
		Description: "Grade a landscape photo and persist the verdict.",
		Nodes: []flow.NodeDef{
			{Name: "prepare", Family: "prepare"},
			{Name: "analyze", Family: "analyze"},
			{Name: "decide", Family: "decide"},
			{Name: "compare", Family: "compare"},
			{Name: "persist", Family: "persist"},
		},
		Edges: []flow.EdgeDef{
			{ID: "E1", Name: "prepared", From: "prepare", To: "analyze"},
			{ID: "E2", Name: "analyzed", From: "analyze", To: "decide"},
			{ID: "E3", Name: "decided", From: "decide", To: "compare"},
			{ID: "E4", Name: "compared", From: "compare", To: "persist"},
			{ID: "E5", Name: "persisted", From: "persist", To: "_done",
				Condition: "record stored or state degraded"},
			{ID: "E6", Name: "reprocess", From: "persist", To: "prepare", Loop: true,
				Condition: "retry requested"},
		},
		Start: "prepare",
		Done:  "_done",
	}
}

// buildGraph wires the pipeline nodes and the E5 exit condition.
func (p *Pipeline) buildGraph() (flow.Graph, error) {
	def := pipelineDef()

	nodes := flow.NodeRegistry{
		"prepare": func(flow.NodeDef) flow.Node { return &prepareNode{processor: p.processor, log: p.log} },
		"analyze": func(flow.NodeDef) flow.Node { return &analyzeNode{client: p.client, log: p.log} },
		"decide":  func(flow.NodeDef) flow.Node { return &decideNode{weights: p.weights, log: p.log} },
		"compare": func(flow.NodeDef) flow.Node { return &compareNode{} },
		"persist": func(flow.NodeDef) flow.Node { return &persistNode{store: p.store, log: p.log} },
	}
	edges := flow.EdgeFactory{
		"E5": func(def flow.EdgeDef) flow.Edge {
			return &flow.FuncEdge{Def: def, Func: func(a flow.Artifact, _ *flow.WalkState) *flow.Transition {
				s, ok := a.(*State)
				if !ok || s.Err != "" || s.Completed {
					return &flow.Transition{NextNode: def.To, Explanation: def.Condition}
				}
				return nil
			}}
		},
	}

	return def.BuildGraph(nodes, edges)
}
