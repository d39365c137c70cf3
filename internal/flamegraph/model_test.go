package flamegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	node := NewNode("module", "func", 100)

	assert.Equal(t, "module!func", node.Name)
	assert.Equal(t, "func", node.Func)
	assert.Equal(t, "module", node.Module)
	assert.Equal(t, int64(100), node.Value)
	assert.Nil(t, node.Children)

	assert.Equal(t, "process: a", NewNode("process: a", "", 1).Name)
}

func TestNode_AddChild(t *testing.T) {
	parent := NewFlameGraph().Root
	idx1 := parent.AddChild(NewNode("mod1", "func1", 10))
	idx2 := parent.AddChild(NewNode("mod2", "func2", 20))

	assert.Equal(t, 0, idx1)
	assert.Equal(t, 1, idx2)
	assert.Len(t, parent.Children, 2)

	found := parent.GetChild("mod1!func1")
	require.NotNil(t, found)
	assert.Equal(t, "func1", found.Func)
	assert.Nil(t, parent.GetChild("mod2!func1"))
}

func TestFlameGraph_Cleanup(t *testing.T) {
	fg := NewFlameGraph()
	fg.Root.Value = 1000

	hot := NewNode("app", "hot_func", 500)  // 50%
	cold := NewNode("app", "cold_func", 5)  // 0.5%
	tiny := NewNode("app", "tiny_func", 1)  // 0.1%
	hot.AddChild(NewNode("app", "deep", 2)) // 0.2%
	fg.Root.AddChild(hot)
	fg.Root.AddChild(cold)
	fg.Root.AddChild(tiny)

	fg.Cleanup(1.0)

	require.Len(t, fg.Root.Children, 1)
	assert.Equal(t, "hot_func", fg.Root.Children[0].Func)
	assert.Nil(t, fg.Root.Children[0].Children)
}

func TestFlameGraph_CalculateMaxDepth(t *testing.T) {
	fg := NewFlameGraph()

	// root -> func1 -> func2 -> func3, root -> other
	child1 := NewNode("app", "func1", 100)
	grandchild := NewNode("app", "func2", 100)
	grandchild.AddChild(NewNode("app", "func3", 100))
	child1.AddChild(grandchild)
	fg.Root.AddChild(child1)
	fg.Root.AddChild(NewNode("app", "other", 1))

	depth := fg.CalculateMaxDepth()
	assert.Equal(t, 3, depth)
	assert.Equal(t, 3, fg.MaxDepth)
}

func TestFlameGraph_EmptyGraph(t *testing.T) {
	fg := NewFlameGraph()

	fg.Cleanup(0.01)
	depth := fg.CalculateMaxDepth()

	assert.Equal(t, 0, depth)
	assert.Nil(t, fg.Root.Children)
}
