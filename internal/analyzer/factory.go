package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stack-analysis/pkg/model"
)

// Factory creates an analyzer.
type Factory func(config *Config) Analyzer

// Info describes a registered analyzer for help and validation.
type Info struct {
	Name        string
	Description string
	EventKind   model.EventKind
	Unit        string
	Factory     Factory
}

// registry maps analyzer names to their metadata.
var registry = map[string]*Info{
	CPUName: {
		Name:        CPUName,
		Description: "CPU sampling hotspots",
		EventKind:   model.EventKindCPU,
		Unit:        "samples",
		Factory:     NewCPUAnalyzer,
	},
	MemAllocsName: {
		Name:        MemAllocsName,
		Description: "Allocated bytes by call site and type",
		EventKind:   model.EventKindAlloc,
		Unit:        "bytes",
		Factory:     NewMemAllocsAnalyzer,
	},
	ExceptionsName: {
		Name:        ExceptionsName,
		Description: "Thrown exceptions by call site and type",
		EventKind:   model.EventKindException,
		Unit:        "exceptions",
		Factory:     NewExceptionsAnalyzer,
	},
}

// New creates the analyzer registered under name.
func New(name string, config *Config) (Analyzer, error) {
	info, ok := GetInfo(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownAnalyzer, name, strings.Join(Names(), ", "))
	}
	return info.Factory(config), nil
}

// GetInfo returns the metadata of a registered analyzer.
func GetInfo(name string) (*Info, bool) {
	info, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return info, ok
}

// Has reports whether name is a registered analyzer.
func Has(name string) bool {
	_, ok := GetInfo(name)
	return ok
}

// Names returns the registered analyzer names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered analyzer, sorted by name.
func All() []*Info {
	result := make([]*Info, 0, len(registry))
	for _, name := range Names() {
		result = append(result, registry[name])
	}
	return result
}
