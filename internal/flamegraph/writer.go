package flamegraph

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/stack-analysis/pkg/writer"
)

// NewGzipWriter returns the encoder of gzip-compressed flame graph JSON.
func NewGzipWriter() *writer.Document[*FlameGraph] {
	return writer.GzipJSON[*FlameGraph]()
}

// FoldedWriter writes flame graph data in collapsed/folded format.
// This format is compatible with flamegraph.pl script.
type FoldedWriter struct{}

// NewFoldedWriter creates a new folded format writer.
func NewFoldedWriter() *FoldedWriter {
	return &FoldedWriter{}
}

// Write writes the flame graph in folded format, one line per node that
// has self value.
// Format: stack1;stack2;stack3 count
func (w *FoldedWriter) Write(fg *FlameGraph, out io.Writer) error {
	if fg.Root == nil {
		return nil
	}

	type entry struct {
		node  *Node
		depth int
	}
	bw := bufio.NewWriter(out)
	var path []string
	work := make([]entry, 0, len(fg.Root.Children))
	for i := len(fg.Root.Children) - 1; i >= 0; i-- {
		work = append(work, entry{fg.Root.Children[i], 0})
	}

	for len(work) > 0 {
		e := work[len(work)-1]
		work = work[:len(work)-1]

		path = append(path[:e.depth], foldedName(e.node.Name))
		if e.node.Self > 0 {
			if _, err := fmt.Fprintf(bw, "%s %d\n", strings.Join(path, ";"), e.node.Self); err != nil {
				return err
			}
		}
		for i := len(e.node.Children) - 1; i >= 0; i-- {
			work = append(work, entry{e.node.Children[i], e.depth + 1})
		}
	}
	return bw.Flush()
}

// foldedName keeps a frame name from breaking the line format.
func foldedName(name string) string {
	return strings.NewReplacer(";", ":", "\n", " ").Replace(name)
}
