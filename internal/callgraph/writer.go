package callgraph

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/stack-analysis/pkg/writer"
)

// NewJSONWriter returns the encoder of call graph JSON.
func NewJSONWriter() *writer.Document[*CallGraph] {
	return writer.JSON[*CallGraph]()
}

// DOTWriter writes call graph data in Graphviz DOT format.
type DOTWriter struct{}

// NewDOTWriter creates a new DOT format writer.
func NewDOTWriter() *DOTWriter {
	return &DOTWriter{}
}

// Write writes the call graph in DOT format. Node labels carry the
// inclusive and, in parentheses, the exclusive share.
func (w *DOTWriter) Write(cg *CallGraph, out io.Writer) error {
	bw := bufio.NewWriter(out)

	name := cg.Name
	if name == "" {
		name = "callgraph"
	}
	fmt.Fprintf(bw, "digraph %s {\n", quote(name))
	fmt.Fprintln(bw, "  node [shape=box];")

	for _, node := range cg.Nodes {
		label := fmt.Sprintf("%s\\n%.2f%%\\n(%.2f%%)", escape(node.ID), node.TotalPct, node.SelfPct)
		fmt.Fprintf(bw, "  %s [label=\"%s\"];\n", quote(node.ID), label)
	}
	for _, edge := range cg.Edges {
		fmt.Fprintf(bw, "  %s -> %s [label=\"%.2f%%\"];\n", quote(edge.Source), quote(edge.Target), edge.Pct)
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func quote(s string) string {
	return `"` + escape(s) + `"`
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escape(s string) string {
	return dotEscaper.Replace(s)
}
