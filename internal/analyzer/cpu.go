package analyzer

import "github.com/stack-analysis/pkg/model"

// CPUName is the registry name of the CPU analyzer.
const CPUName = "cpu"

// NewCPUAnalyzer creates the CPU sampling analyzer. Each sample weighs
// its event weight, 1 by default.
func NewCPUAnalyzer(config *Config) Analyzer {
	return NewBaseAnalyzer(CPUName, model.EventKindCPU, "samples", config, nil, nil)
}
