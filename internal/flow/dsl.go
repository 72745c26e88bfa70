package flow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PipelineDef is the top-level DSL structure for declaring a pipeline graph:
// pipeline > nodes > edges > start/done.
type PipelineDef struct {
	Pipeline    string    `yaml:"pipeline"`
	Description string    `yaml:"description,omitempty"`
	Nodes       []NodeDef `yaml:"nodes"`
	Edges       []EdgeDef `yaml:"edges"`
	Start       string    `yaml:"start"`
	Done        string    `yaml:"done"`
}

// NodeDef declares a node in the pipeline.
type NodeDef struct {
	Name   string `yaml:"name"`
	Family string `yaml:"family,omitempty"`
}

// EdgeDef declares a conditional edge between two nodes. Both id (machine)
// and name (human) are present.
type EdgeDef struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Loop      bool   `yaml:"loop,omitempty"`
	Condition string `yaml:"condition,omitempty"`
}

// NodeRegistry maps node family names to Node factory functions.
type NodeRegistry map[string]func(def NodeDef) Node

// EdgeFactory maps edge IDs to Edge factory functions.
type EdgeFactory map[string]func(def EdgeDef) Edge

// LoadPipeline parses a YAML pipeline definition and returns a PipelineDef.
func LoadPipeline(data []byte) (*PipelineDef, error) {
	var def PipelineDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse pipeline YAML: %w", err)
	}
	return &def, nil
}

// MarshalYAML serializes a PipelineDef back to YAML.
func (def *PipelineDef) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(def)
}

// Validate checks referential integrity of the pipeline definition:
//   - pipeline name is non-empty
//   - at least one node and one edge exist
//   - start node exists in the node list
//   - all edge From/To reference existing nodes (or the done pseudo-node)
func (def *PipelineDef) Validate() error {
	if def.Pipeline == "" {
		return fmt.Errorf("pipeline name is required")
	}
	if len(def.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}
	if len(def.Edges) == 0 {
		return fmt.Errorf("at least one edge is required")
	}
	if def.Start == "" {
		return fmt.Errorf("start node is required")
	}
	if def.Done == "" {
		return fmt.Errorf("done node is required")
	}

	nodeSet := make(map[string]bool, len(def.Nodes))
	for _, n := range def.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node name is required")
		}
		if nodeSet[n.Name] {
			return fmt.Errorf("duplicate node name %q", n.Name)
		}
		nodeSet[n.Name] = true
	}

	if !nodeSet[def.Start] {
		return fmt.Errorf("start node %q not found in node list", def.Start)
	}

	edgeIDs := make(map[string]bool, len(def.Edges))
	for _, e := range def.Edges {
		if e.ID == "" {
			return fmt.Errorf("edge id is required")
		}
		if edgeIDs[e.ID] {
			return fmt.Errorf("duplicate edge id %q", e.ID)
		}
		edgeIDs[e.ID] = true

		if !nodeSet[e.From] {
			return fmt.Errorf("edge %s references unknown source node %q", e.ID, e.From)
		}
		if e.To != def.Done && !nodeSet[e.To] {
			return fmt.Errorf("edge %s references unknown target node %q", e.ID, e.To)
		}
	}

	return nil
}

// BuildGraph constructs a Graph from a PipelineDef using the provided
// registries. NodeRegistry maps node families (falling back to node names) to
// Node implementations. EdgeFactory maps edge IDs to Edge implementations; an
// edge ID with no factory becomes a passthrough edge that always matches.
func (def *PipelineDef) BuildGraph(nodes NodeRegistry, edges EdgeFactory) (Graph, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	built := make([]Node, 0, len(def.Nodes))
	for _, nd := range def.Nodes {
		factory, ok := nodes[nd.Family]
		if !ok {
			factory = nodes[nd.Name]
		}
		if factory == nil {
			return nil, fmt.Errorf("no node factory for family %q (node %q)", nd.Family, nd.Name)
		}
		built = append(built, factory(nd))
	}

	builtEdges := make([]Edge, 0, len(def.Edges))
	for _, ed := range def.Edges {
		if factory, ok := edges[ed.ID]; ok {
			builtEdges = append(builtEdges, factory(ed))
		} else {
			builtEdges = append(builtEdges, &FuncEdge{Def: ed})
		}
	}

	return NewGraph(def.Pipeline, built, builtEdges, WithDoneNode(def.Done))
}
