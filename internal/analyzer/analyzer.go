// Package analyzer turns trace events into stack samples and folds them
// into the models the export formats read.
package analyzer

import (
	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/internal/graph"
	"github.com/stack-analysis/pkg/model"
	"github.com/stack-analysis/pkg/utils"
)

// Analyzer accumulates the events of one kind for a single run.
type Analyzer interface {
	// Name returns the registry name, used for output file names.
	Name() string

	// Unit names the weight metric of the analyzer's samples.
	Unit() string

	// Accepts reports whether events of kind k are processed.
	Accepts(k model.EventKind) bool

	// Process folds one event into every model. Events of other kinds are
	// counted as ignored. An error means the sample was malformed.
	Process(e *model.Event) error

	// Model returns the model of the given kind, or nil when it was not
	// requested.
	Model(kind aggregate.Kind) aggregate.Model

	// Tree returns the merged tree, which every analyzer builds.
	Tree() *aggregate.GraphModel

	// Walker returns the traversal pool shared by this analyzer's exports.
	Walker() *graph.Walker[*frame.Frame]

	// Stats returns the processed and ignored event counts.
	Stats() (processed, ignored int64)
}

// Config configures an analyzer.
type Config struct {
	// Tags are layered above every sample, next to the process tag.
	Tags []string

	// Models lists the model kinds to build. The merged tree is always built.
	Models []aggregate.Kind

	// Unit overrides the analyzer's default weight unit.
	Unit string

	// Logger receives warnings about rejected data. Optional.
	Logger utils.Logger
}

// DefaultConfig returns a config that builds only the merged tree.
func DefaultConfig() *Config {
	return &Config{
		Models: []aggregate.Kind{aggregate.KindTree},
	}
}

func (c *Config) wants(kind aggregate.Kind) bool {
	for _, k := range c.Models {
		if k == kind {
			return true
		}
	}
	return false
}
