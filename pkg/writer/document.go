// Package writer encodes export documents as JSON, plain or gzipped.
package writer

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

// Document encodes values of T. The zero value writes compact, plain JSON.
type Document[T any] struct {
	// Indent pretty prints with the given indentation when non-empty.
	Indent string
	// Gzip compresses the output at Level.
	Gzip  bool
	Level int
}

// JSON returns a compact JSON document encoder.
func JSON[T any]() *Document[T] { return &Document[T]{} }

// PrettyJSON returns an encoder that indents by two spaces.
func PrettyJSON[T any]() *Document[T] { return &Document[T]{Indent: "  "} }

// GzipJSON returns an encoder of compact JSON at the default gzip level.
func GzipJSON[T any]() *Document[T] {
	return &Document[T]{Gzip: true, Level: gzip.DefaultCompression}
}

// Size reports the bytes a Save produced.
type Size struct {
	// JSON is the encoded document before compression.
	JSON int64
	// Stored is what landed in the file.
	Stored int64
}

// Ratio returns Stored as a percentage of JSON.
func (s Size) Ratio() float64 {
	if s.JSON == 0 {
		return 0
	}
	return float64(s.Stored) / float64(s.JSON) * 100
}

// Write encodes v to w.
func (d *Document[T]) Write(v T, w io.Writer) error {
	_, err := d.encode(v, w)
	return err
}

// Save encodes v into a new file at path on fs.
func (d *Document[T]) Save(fs afero.Fs, path string, v T) (Size, error) {
	f, err := fs.Create(path)
	if err != nil {
		return Size{}, fmt.Errorf("failed to create file: %w", err)
	}
	stored := &counter{w: f}
	raw, err := d.encode(v, stored)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Size{}, err
	}
	return Size{JSON: raw, Stored: stored.n}, nil
}

// encode returns the uncompressed length of the document.
func (d *Document[T]) encode(v T, w io.Writer) (int64, error) {
	var zw *gzip.Writer
	if d.Gzip {
		var err error
		if zw, err = gzip.NewWriterLevel(w, d.Level); err != nil {
			return 0, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		w = zw
	}

	raw := &counter{w: w}
	enc := json.NewEncoder(raw)
	enc.SetEscapeHTML(false)
	if d.Indent != "" {
		enc.SetIndent("", d.Indent)
	}
	if err := enc.Encode(v); err != nil {
		return 0, fmt.Errorf("failed to encode document: %w", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return 0, err
		}
	}
	return raw.n, nil
}

type counter struct {
	w io.Writer
	n int64
}

func (c *counter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
