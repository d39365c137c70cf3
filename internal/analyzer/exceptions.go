package analyzer

import (
	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/pkg/model"
)

const (
	// ExceptionsName is the registry name of the exception analyzer.
	ExceptionsName = "exceptions"

	// ExceptionModule is the module of the synthetic frame naming the
	// thrown type.
	ExceptionModule = "exception"
)

// NewExceptionsAnalyzer creates the exception analyzer. Every throw counts
// once, under a leaf frame naming the exception type.
func NewExceptionsAnalyzer(config *Config) Analyzer {
	return NewBaseAnalyzer(ExceptionsName, model.EventKindException, "exceptions", config, exceptionLeaf, oncePerEvent)
}

func exceptionLeaf(e *model.Event) (frame.Ident, bool) {
	if e.TypeName == "" {
		return frame.Ident{}, false
	}
	return frame.Ident{Module: ExceptionModule, Method: e.TypeName}, true
}

func oncePerEvent(*model.Event) int64 { return 1 }
