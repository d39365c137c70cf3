package testutil

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/stack-analysis/internal/frame"
)

// DefaultModule is the module given to frames written without one.
const DefaultModule = "app"

// Idents parses a root-first path such as "A>B>kernel32!C" and returns the
// idents leaf first. Frames without a "module!" prefix get DefaultModule.
func Idents(path string) []frame.Ident {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ">")
	out := make([]frame.Ident, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		mod, meth, ok := strings.Cut(parts[i], "!")
		if !ok {
			mod, meth = DefaultModule, parts[i]
		}
		out = append(out, frame.Ident{Module: mod, Method: meth})
	}
	return out
}

// ReadFile reads a file from fs, failing the test on error.
func ReadFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
