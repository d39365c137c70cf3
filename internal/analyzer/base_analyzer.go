package analyzer

import (
	"github.com/stack-analysis/internal/aggregate"
	"github.com/stack-analysis/internal/frame"
	"github.com/stack-analysis/internal/graph"
	"github.com/stack-analysis/pkg/model"
	"github.com/stack-analysis/pkg/utils"
)

// LeafFunc returns a synthetic frame placed below the real leaf of an
// event's stack, or false for none.
type LeafFunc func(e *model.Event) (frame.Ident, bool)

// WeightFunc returns the weight of an event's sample.
type WeightFunc func(e *model.Event) int64

// BaseAnalyzer implements Analyzer for one event kind. The concrete
// analyzers differ only in the leaf and weight they derive from an event.
type BaseAnalyzer struct {
	name   string
	kind   model.EventKind
	unit   string
	config *Config
	logger utils.Logger

	leaf   LeafFunc
	weight WeightFunc

	tree   *aggregate.GraphModel
	keyed  *aggregate.KeyedModel
	walker *graph.Walker[*frame.Frame]

	idents    []frame.Ident
	tags      []string
	processed int64
	ignored   int64
}

// NewBaseAnalyzer creates an analyzer for events of kind. A nil leaf adds
// no synthetic frame; a nil weight uses the event weight.
func NewBaseAnalyzer(name string, kind model.EventKind, unit string, config *Config, leaf LeafFunc, weight WeightFunc) *BaseAnalyzer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Unit != "" {
		unit = config.Unit
	}
	if weight == nil {
		weight = eventWeight
	}
	logger := utils.Or(config.Logger).WithField("analyzer", name)

	a := &BaseAnalyzer{
		name:   name,
		kind:   kind,
		unit:   unit,
		config: config,
		logger: logger,
		leaf:   leaf,
		weight: weight,
		tree:   aggregate.NewGraphModel(frame.CountWeight(unit), logger),
		walker: graph.NewWalker[*frame.Frame](),
	}
	if config.wants(aggregate.KindKeyed) {
		a.keyed = aggregate.NewKeyedModel(logger)
	}
	return a
}

func eventWeight(e *model.Event) int64 { return e.Weight }

// Name implements Analyzer.
func (a *BaseAnalyzer) Name() string { return a.name }

// Unit implements Analyzer.
func (a *BaseAnalyzer) Unit() string { return a.unit }

// Accepts implements Analyzer.
func (a *BaseAnalyzer) Accepts(k model.EventKind) bool { return k == a.kind }

// Tree implements Analyzer.
func (a *BaseAnalyzer) Tree() *aggregate.GraphModel { return a.tree }

// Walker implements Analyzer.
func (a *BaseAnalyzer) Walker() *graph.Walker[*frame.Frame] { return a.walker }

// Stats implements Analyzer.
func (a *BaseAnalyzer) Stats() (processed, ignored int64) { return a.processed, a.ignored }

// Model implements Analyzer.
func (a *BaseAnalyzer) Model(kind aggregate.Kind) aggregate.Model {
	switch kind {
	case aggregate.KindTree:
		return a.tree
	case aggregate.KindKeyed:
		if a.keyed != nil {
			return a.keyed
		}
	}
	return nil
}

// Process implements Analyzer.
func (a *BaseAnalyzer) Process(e *model.Event) error {
	if !a.Accepts(e.Kind) {
		a.ignored++
		return nil
	}

	idents := a.idents[:0]
	if a.leaf != nil {
		if id, ok := a.leaf(e); ok {
			idents = append(idents, id)
		}
	}
	for _, f := range e.Stack {
		idents = append(idents, frame.Ident{Module: f.Module, Method: f.Method})
	}
	a.idents = idents

	tags := append(a.tags[:0], a.config.Tags...)
	if e.Process != "" {
		tags = append(tags, frame.ProcessTag(e.Process))
	}
	a.tags = tags

	weight := a.weight(e)
	// Each model consumes its own chain.
	if err := a.tree.Add(aggregate.NewStackData(idents, weight, tags...)); err != nil {
		return err
	}
	if a.keyed != nil {
		if err := a.keyed.Add(aggregate.NewStackData(idents, weight, tags...)); err != nil {
			return err
		}
	}
	a.processed++
	return nil
}
