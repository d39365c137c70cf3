// Package compression provides the compressors applied to binary export
// files.
package compression

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Type represents the compression algorithm used.
type Type uint8

const (
	// TypeNone represents no compression
	TypeNone Type = iota
	// TypeGzip uses gzip compression (slower but widely compatible)
	TypeGzip
	// TypeZstd uses zstd compression (faster and better compression ratio)
	TypeZstd
)

// String returns the configuration name of the type.
func (t Type) String() string {
	switch t {
	case TypeGzip:
		return "gzip"
	case TypeZstd:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file suffix for the type, including the dot, or
// an empty string for TypeNone.
func (t Type) Extension() string {
	switch t {
	case TypeGzip:
		return ".gz"
	case TypeZstd:
		return ".zst"
	default:
		return ""
	}
}

// ParseType parses a configuration name. The empty string means none.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return TypeNone, nil
	case "gzip", "gz":
		return TypeGzip, nil
	case "zstd", "zst":
		return TypeZstd, nil
	default:
		return TypeNone, fmt.Errorf("unknown compression type: %q", s)
	}
}

// Level represents the compression level.
type Level int

const (
	// LevelFastest prioritizes speed over compression ratio
	LevelFastest Level = 1
	// LevelDefault balances speed and compression ratio
	LevelDefault Level = 3
	// LevelBest prioritizes compression ratio over speed
	LevelBest Level = 9
)

func (l Level) gzip() int {
	switch l {
	case LevelFastest:
		return gzip.BestSpeed
	case LevelBest:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func (l Level) zstd() zstd.EncoderLevel {
	switch l {
	case LevelFastest:
		return zstd.SpeedFastest
	case LevelBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

// DetectType detects the compression type from magic bytes. Data that
// matches neither gzip (0x1f 0x8b) nor zstd (0x28 0xb5 0x2f 0xfd) is
// reported as uncompressed.
func DetectType(data []byte) Type {
	if len(data) >= 4 && data[0] == 0x28 && data[1] == 0xb5 && data[2] == 0x2f && data[3] == 0xfd {
		return TypeZstd
	}
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		return TypeGzip
	}
	return TypeNone
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w in a streaming compressor. Closing the returned writer
// flushes the compressed stream but does not close w.
func NewWriter(w io.Writer, t Type, level Level) (io.WriteCloser, error) {
	switch t {
	case TypeNone:
		return nopWriteCloser{w}, nil
	case TypeGzip:
		return gzip.NewWriterLevel(w, level.gzip())
	case TypeZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(level.zstd()))
	default:
		return nil, fmt.Errorf("unknown compression type: %d", t)
	}
}

type zstdReadCloser struct{ *zstd.Decoder }

func (r zstdReadCloser) Close() error {
	r.Decoder.Close()
	return nil
}

// NewReader detects the compression of r from its first bytes and returns
// a reader of the decompressed stream.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4)
	switch DetectType(head) {
	case TypeGzip:
		return gzip.NewReader(br)
	case TypeZstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return zstdReadCloser{dec}, nil
	default:
		return io.NopCloser(br), nil
	}
}
