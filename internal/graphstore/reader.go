package graphstore

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/pkg/compression"
)

// Node is one decoded node of a branch.
type Node struct {
	Kind    frame.Kind
	Module  string
	Method  string
	Parent  int // -1 for the branch root
	Metrics []frame.Metric
}

// File is a decoded graph file held in memory.
type File struct {
	Version   byte
	Slots     int
	Strings   []string
	Directory []Entry

	data []byte
}

// Read loads a graph file, undoing gzip or zstd compression when present.
func Read(r io.Reader) (*File, error) {
	rc, err := compression.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return Open(data)
}

// Open decodes the header, string table and directory of data.
func Open(data []byte) (*File, error) {
	if len(data) < len(Magic)+2+footerSize || string(data[:len(Magic)]) != Magic {
		return nil, ErrCorrupt
	}
	f := &File{
		Version: data[len(Magic)],
		Slots:   int(data[len(Magic)+1]),
		data:    data,
	}
	if f.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, f.Version)
	}

	footer := data[len(data)-footerSize:]
	stringsOffset := binary.LittleEndian.Uint64(footer)
	directoryOffset := binary.LittleEndian.Uint64(footer[8:])
	end := uint64(len(data) - footerSize)
	if stringsOffset > directoryOffset || directoryOffset > end {
		return nil, ErrCorrupt
	}

	d := decoder{buf: data[stringsOffset:directoryOffset]}
	count := d.uvarint()
	for i := uint64(0); i < count && d.err == nil; i++ {
		f.Strings = append(f.Strings, d.readString())
	}
	if d.err != nil {
		return nil, d.err
	}

	d = decoder{buf: data[directoryOffset:end]}
	count = d.uvarint()
	for i := uint64(0); i < count && d.err == nil; i++ {
		name := f.str(d.uvarint(), &d)
		offset := d.uvarint()
		nodes := d.uvarint()
		if offset >= stringsOffset {
			d.err = ErrCorrupt
		}
		f.Directory = append(f.Directory, Entry{Name: name, Offset: offset, NodeCount: int(nodes)})
	}
	if d.err != nil {
		return nil, d.err
	}
	return f, nil
}

// Lookup finds a branch by name, case-insensitively.
func (f *File) Lookup(name string) (Entry, bool) {
	for _, e := range f.Directory {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Branch decodes the nodes of one branch in breadth-first order.
func (f *File) Branch(e Entry) ([]Node, error) {
	if e.Offset >= uint64(len(f.data)) {
		return nil, ErrCorrupt
	}
	d := decoder{buf: f.data[e.Offset:]}
	nodes := make([]Node, 0, e.NodeCount)
	for i := 0; i < e.NodeCount && d.err == nil; i++ {
		n := Node{Kind: frame.Kind(d.readByte())}
		n.Module = f.str(d.uvarint(), &d)
		n.Method = f.str(d.uvarint(), &d)
		n.Parent = int(d.uvarint()) - 1
		if n.Parent >= i || (i > 0 && n.Parent < 0) {
			d.err = ErrCorrupt
		}
		n.Metrics = make([]frame.Metric, f.Slots)
		for slot := range n.Metrics {
			n.Metrics[slot].Inclusive = d.varint()
			n.Metrics[slot].Exclusive = d.varint()
		}
		nodes = append(nodes, n)
	}
	if d.err != nil {
		return nil, d.err
	}
	return nodes, nil
}

func (f *File) str(i uint64, d *decoder) string {
	if i >= uint64(len(f.Strings)) {
		d.err = ErrCorrupt
		return ""
	}
	return f.Strings[i]
}

type decoder struct {
	buf []byte
	err error
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		d.err = ErrCorrupt
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.buf)
	if n <= 0 {
		d.err = ErrCorrupt
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) readByte() byte {
	if d.err != nil {
		return 0
	}
	if len(d.buf) == 0 {
		d.err = ErrCorrupt
		return 0
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b
}

func (d *decoder) readString() string {
	n := d.uvarint()
	if d.err != nil {
		return ""
	}
	if n > uint64(len(d.buf)) {
		d.err = ErrCorrupt
		return ""
	}
	s := string(d.buf[:n])
	d.buf = d.buf[n:]
	return s
}

// Tree rebuilds one branch as a frame tree with its metrics, ready to be
// merged into an aggregation model.
func (f *File) Tree(e Entry) (*frame.Frame, error) {
	nodes, err := f.Branch(e)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}

	frames := make([]*frame.Frame, len(nodes))
	last := make([]*frame.Frame, len(nodes))
	for i, n := range nodes {
		fr := frame.New(n.Module, n.Method)
		if n.Kind == frame.KindTag {
			fr = frame.NewTag(n.Module)
		}
		fr.Metrics = n.Metrics
		frames[i] = fr

		if n.Parent < 0 {
			continue
		}
		parent := frames[n.Parent]
		if prev := last[n.Parent]; prev != nil {
			prev.SetSibling(fr)
			fr.SetParent(parent)
		} else {
			parent.AddChild(fr)
		}
		last[n.Parent] = fr
	}
	return frames[0], nil
}
