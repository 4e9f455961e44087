// Package workflow models the node graph interpreted by the remote render
// server and binds component parameters into it.
package workflow

import "encoding/json"

// Node is one typed node of a workflow template. Inputs reference either
// literal values or other nodes (as [nodeID, outputIndex] pairs, which this
// service treats as opaque).
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// Graph is a workflow template: node id -> node. The wire format matches
// what the render server accepts for submission.
type Graph map[string]*Node

// Clone returns a deep copy of the graph. Binding always operates on a
// clone so the component's template is never mutated.
func (g Graph) Clone() Graph {
	if g == nil {
		return Graph{}
	}
	// JSON round-trip: templates are decoded JSON documents, so this copies
	// every nested input map and slice.
	b, err := json.Marshal(g)
	if err != nil {
		return Graph{}
	}
	var out Graph
	if err := json.Unmarshal(b, &out); err != nil {
		return Graph{}
	}
	for id, n := range out {
		if n == nil {
			out[id] = &Node{}
		}
		if out[id].Inputs == nil {
			out[id].Inputs = map[string]any{}
		}
	}
	return out
}

// HasInput reports whether the node declares the named input field.
func (n *Node) HasInput(field string) bool {
	if n == nil || n.Inputs == nil {
		return false
	}
	_, ok := n.Inputs[field]
	return ok
}
