// Package callgraph flattens a merged stack tree into a function-level
// graph: one node per distinct frame, one edge per caller/callee pair.
package callgraph

import (
	"sort"
	"strings"
)

// Node is one function of the call graph.
type Node struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Module string `json:"module,omitempty"`
	// Self is the weight of samples that ended in this function.
	Self int64 `json:"self"`
	// Total is the weight of samples with this function anywhere on the
	// stack. Recursive frames count once per sample.
	Total    int64   `json:"total"`
	SelfPct  float64 `json:"selfPct"`
	TotalPct float64 `json:"totalPct"`
}

// Edge is a caller to callee relation.
type Edge struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight int64   `json:"weight"`
	Pct    float64 `json:"pct"`
}

// CallGraph is the complete graph.
type CallGraph struct {
	Name        string  `json:"name,omitempty"`
	Unit        string  `json:"unit"`
	TotalWeight int64   `json:"totalWeight"`
	Nodes       []*Node `json:"nodes"`
	Edges       []*Edge `json:"edges"`

	nodeMap map[string]*Node
	edgeMap map[string]*Edge
}

// NewCallGraph creates an empty call graph.
func NewCallGraph() *CallGraph {
	return &CallGraph{
		Nodes:   make([]*Node, 0),
		Edges:   make([]*Edge, 0),
		nodeMap: make(map[string]*Node),
		edgeMap: make(map[string]*Edge),
	}
}

// AddNode adds weights to the node of module!name, creating it on first use.
func (cg *CallGraph) AddNode(name, module string, self, total int64) *Node {
	id := makeNodeID(name, module)
	if node, ok := cg.nodeMap[id]; ok {
		node.Self += self
		node.Total += total
		return node
	}

	node := &Node{ID: id, Name: name, Module: module, Self: self, Total: total}
	cg.nodeMap[id] = node
	cg.Nodes = append(cg.Nodes, node)
	return node
}

// AddEdge adds weight to the edge between two node ids.
func (cg *CallGraph) AddEdge(source, target string, weight int64) *Edge {
	id := source + "->" + target
	if edge, ok := cg.edgeMap[id]; ok {
		edge.Weight += weight
		return edge
	}

	edge := &Edge{ID: id, Source: source, Target: target, Weight: weight}
	cg.edgeMap[id] = edge
	cg.Edges = append(cg.Edges, edge)
	return edge
}

// GetNode returns the node of module!name, or nil.
func (cg *CallGraph) GetNode(name, module string) *Node {
	return cg.nodeMap[makeNodeID(name, module)]
}

// GetEdge returns the edge between two node ids, or nil.
func (cg *CallGraph) GetEdge(source, target string) *Edge {
	return cg.edgeMap[source+"->"+target]
}

// CalculatePercentages fills the percentage fields from TotalWeight.
func (cg *CallGraph) CalculatePercentages() {
	if cg.TotalWeight == 0 {
		return
	}
	total := float64(cg.TotalWeight)

	for _, node := range cg.Nodes {
		node.SelfPct = float64(node.Self) / total * 100
		node.TotalPct = float64(node.Total) / total * 100
	}
	for _, edge := range cg.Edges {
		edge.Pct = float64(edge.Weight) / total * 100
	}
}

// Cleanup drops nodes and edges below the thresholds and sorts both by
// descending weight. Edges touching a dropped node go with it.
func (cg *CallGraph) Cleanup(minNodePct, minEdgePct float64) {
	if minNodePct > 0 {
		kept := cg.Nodes[:0]
		for _, node := range cg.Nodes {
			if node.TotalPct >= minNodePct {
				kept = append(kept, node)
				continue
			}
			delete(cg.nodeMap, node.ID)
		}
		cg.Nodes = kept
	}

	edges := cg.Edges[:0]
	for _, edge := range cg.Edges {
		if cg.nodeMap[edge.Source] == nil || cg.nodeMap[edge.Target] == nil {
			delete(cg.edgeMap, edge.ID)
			continue
		}
		if minEdgePct > 0 && edge.Pct < minEdgePct {
			delete(cg.edgeMap, edge.ID)
			continue
		}
		edges = append(edges, edge)
	}
	cg.Edges = edges

	sort.SliceStable(cg.Nodes, func(i, j int) bool { return cg.Nodes[i].Total > cg.Nodes[j].Total })
	sort.SliceStable(cg.Edges, func(i, j int) bool { return cg.Edges[i].Weight > cg.Edges[j].Weight })
}

// makeNodeID keys a node like frame identity does: module names compare
// case-insensitively.
func makeNodeID(name, module string) string {
	module = strings.ToLower(module)
	if module == "" {
		return name
	}
	if name == "" {
		return module
	}
	return module + "!" + name
}

// Stats summarizes a call graph.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	MaxSelfPct  float64
	MaxTotalPct float64
}

// GetStats returns statistics about the call graph.
func (cg *CallGraph) GetStats() *Stats {
	stats := &Stats{NodeCount: len(cg.Nodes), EdgeCount: len(cg.Edges)}
	for _, node := range cg.Nodes {
		stats.MaxSelfPct = max(stats.MaxSelfPct, node.SelfPct)
		stats.MaxTotalPct = max(stats.MaxTotalPct, node.TotalPct)
	}
	return stats
}
