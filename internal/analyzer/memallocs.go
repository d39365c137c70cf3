package analyzer

import (
	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/pkg/model"
)

const (
	// MemAllocsName is the registry name of the allocation analyzer.
	MemAllocsName = "memallocs"

	// AllocModule is the module of the synthetic frame naming the
	// allocated type.
	AllocModule = "alloc"
)

// NewMemAllocsAnalyzer creates the allocation analyzer. Samples weigh the
// allocated bytes and end in a frame naming the allocated type, so that
// allocation sites split by type.
func NewMemAllocsAnalyzer(config *Config) Analyzer {
	return NewBaseAnalyzer(MemAllocsName, model.EventKindAlloc, "bytes", config, allocLeaf, nil)
}

func allocLeaf(e *model.Event) (frame.Ident, bool) {
	return frame.Ident{Module: AllocModule, Method: e.TypeName}, true
}
