// Package graphstore writes and reads the binary graph file: every
// top-level branch of an accumulator forest stored breadth first, with
// names interned in a shared string table and a directory locating each
// branch.
//
// Layout, integers as unsigned varints unless noted:
//
//	header    "SAGF" | version byte | metric slot count byte
//	branches  per node: kind byte | module | method | parent | metrics
//	strings   count | (length | bytes)...
//	directory count | (name | offset | node count)...
//	footer    strings offset uint64 LE | directory offset uint64 LE
//
// module, method and name are string table indices. parent is 0 for the
// branch root and otherwise the position of the parent within its branch
// plus one. metrics holds inclusive then exclusive, as signed varints, for
// every slot.
package graphstore

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/internal/graph"
)

const (
	// Magic starts every graph file.
	Magic = "SAGF"
	// Version is the layout version written by this package.
	Version byte = 1

	footerSize = 16
)

// ErrCorrupt is returned when a file does not follow the layout.
var ErrCorrupt = errors.New("graphstore: corrupt graph file")

// Entry locates one branch in the file.
type Entry struct {
	Name      string
	Offset    uint64
	NodeCount int
}

// Writer serializes accumulator forests.
type Writer struct {
	out     *bufio.Writer
	offset  uint64
	buf     []byte
	strings *IndexedSet[string]
	walker  *graph.Walker[*frame.Frame]
	ids     map[*frame.Frame]uint64
}

// NewWriter creates a writer. A nil walker allocates a private one.
func NewWriter(w io.Writer, walker *graph.Walker[*frame.Frame]) *Writer {
	if walker == nil {
		walker = graph.NewWalker[*frame.Frame]()
	}
	return &Writer{
		out:     bufio.NewWriter(w),
		strings: NewIndexedSet[string](),
		walker:  walker,
		ids:     make(map[*frame.Frame]uint64),
	}
}

// Write stores the forest starting at head and returns its directory.
// slots is the number of metric slots written per node.
func (w *Writer) Write(head *frame.Frame, slots int) ([]Entry, error) {
	w.buf = append(w.buf[:0], Magic...)
	w.buf = append(w.buf, Version, byte(slots))
	if err := w.flushBuf(); err != nil {
		return nil, err
	}

	var directory []Entry
	for root := head; root != nil; root = root.Sibling() {
		entry := Entry{Name: root.String(), Offset: w.offset}
		clear(w.ids)
		for n := range w.walker.BreadthFirst(root) {
			w.ids[n] = uint64(entry.NodeCount) + 1
			if err := w.writeNode(n, root, slots); err != nil {
				return nil, err
			}
			entry.NodeCount++
		}
		directory = append(directory, entry)
	}

	for _, e := range directory {
		w.strings.Index(e.Name)
	}

	stringsOffset := w.offset
	w.buf = binary.AppendUvarint(w.buf[:0], uint64(w.strings.Len()))
	for _, s := range w.strings.Items() {
		w.buf = binary.AppendUvarint(w.buf, uint64(len(s)))
		w.buf = append(w.buf, s...)
		if len(w.buf) > 32*1024 {
			if err := w.flushBuf(); err != nil {
				return nil, err
			}
		}
	}
	if err := w.flushBuf(); err != nil {
		return nil, err
	}

	directoryOffset := w.offset
	w.buf = binary.AppendUvarint(w.buf[:0], uint64(len(directory)))
	for _, e := range directory {
		w.buf = binary.AppendUvarint(w.buf, w.strings.Index(e.Name))
		w.buf = binary.AppendUvarint(w.buf, e.Offset)
		w.buf = binary.AppendUvarint(w.buf, uint64(e.NodeCount))
	}
	w.buf = binary.LittleEndian.AppendUint64(w.buf, stringsOffset)
	w.buf = binary.LittleEndian.AppendUint64(w.buf, directoryOffset)
	if err := w.flushBuf(); err != nil {
		return nil, err
	}
	return directory, w.out.Flush()
}

func (w *Writer) writeNode(n, root *frame.Frame, slots int) error {
	w.buf = append(w.buf[:0], byte(n.Kind))
	w.buf = binary.AppendUvarint(w.buf, w.strings.Index(n.Module))
	w.buf = binary.AppendUvarint(w.buf, w.strings.Index(n.Method))

	var parent uint64
	if n != root {
		parent = w.ids[n.Parent()]
	}
	w.buf = binary.AppendUvarint(w.buf, parent)

	for slot := 0; slot < slots; slot++ {
		m := n.Metric(slot)
		w.buf = binary.AppendVarint(w.buf, m.Inclusive)
		w.buf = binary.AppendVarint(w.buf, m.Exclusive)
	}
	return w.flushBuf()
}

func (w *Writer) flushBuf() error {
	n, err := w.out.Write(w.buf)
	w.offset += uint64(n)
	return err
}
