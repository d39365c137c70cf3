// Package flamegraph renders a merged frame tree as nested flame graph
// nodes.
package flamegraph

// Node represents a node in the flame graph tree.
type Node struct {
	Name     string  `json:"name"`
	Module   string  `json:"module,omitempty"`
	Func     string  `json:"func,omitempty"`
	Tag      bool    `json:"tag,omitempty"`
	Value    int64   `json:"value"`
	Self     int64   `json:"self,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// NewNode creates a new flame graph node.
func NewNode(module, function string, value int64) *Node {
	name := module
	if function != "" {
		name = module + "!" + function
	}
	return &Node{
		Name:   name,
		Module: module,
		Func:   function,
		Value:  value,
	}
}

// AddChild appends a child node and returns its index.
func (n *Node) AddChild(child *Node) int {
	n.Children = append(n.Children, child)
	return len(n.Children) - 1
}

// GetChild returns the first child with the given name, or nil if not found.
func (n *Node) GetChild(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// FlameGraph represents the complete flame graph structure.
type FlameGraph struct {
	Root         *Node  `json:"root"`
	Unit         string `json:"unit,omitempty"`
	TotalSamples int64  `json:"totalSamples"`
	TotalValue   int64  `json:"totalValue"`
	MaxDepth     int    `json:"maxDepth,omitempty"`
}

// NewFlameGraph creates a new flame graph with a root node.
func NewFlameGraph() *FlameGraph {
	return &FlameGraph{Root: &Node{Name: "root"}}
}

// Cleanup filters nodes below threshold. minPercent is the minimum
// percentage (0-100) of the total value for a node to be kept.
func (fg *FlameGraph) Cleanup(minPercent float64) {
	if fg.Root == nil {
		return
	}

	threshold := int64(float64(fg.Root.Value) * minPercent / 100.0)
	pending := []*Node{fg.Root}
	for len(pending) > 0 {
		node := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if len(node.Children) == 0 {
			node.Children = nil
			continue
		}

		filtered := node.Children[:0]
		for _, child := range node.Children {
			if child.Value >= threshold {
				filtered = append(filtered, child)
				pending = append(pending, child)
			}
		}
		if len(filtered) == 0 {
			node.Children = nil
		} else {
			node.Children = filtered
		}
	}
}

// CalculateMaxDepth calculates the maximum depth of the flame graph.
func (fg *FlameGraph) CalculateMaxDepth() int {
	if fg.Root == nil {
		return 0
	}

	type entry struct {
		node  *Node
		depth int
	}
	maxDepth := 0
	pending := []entry{{fg.Root, 0}}
	for len(pending) > 0 {
		e := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if e.depth > maxDepth {
			maxDepth = e.depth
		}
		for _, child := range e.node.Children {
			pending = append(pending, entry{child, e.depth + 1})
		}
	}
	fg.MaxDepth = maxDepth
	return maxDepth
}
