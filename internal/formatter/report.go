package formatter

import (
	"github.com/spf13/afero"

	"github.com/stack-analysis/internal/statistics"
	"github.com/stack-analysis/pkg/utils"
)

// Report logs the result of one analyzer in human-readable form.
func Report(s *statistics.Summary, fs afero.Fs, log utils.Logger) {
	log.Info("=== Analysis Results: %s ===", s.Analyzer)
	log.Info("Samples:        %d (%d ignored)", s.Samples, s.Ignored)
	log.Info("Total Weight:   %d %s", s.TotalWeight, s.Unit)
	log.Info("Tree Nodes:     %d", s.Nodes)
	log.Info("")

	if len(s.TopFuncs) > 0 {
		log.Info("=== Top Functions ===")
		for i, item := range s.TopFuncs {
			if i >= 10 {
				break
			}
			log.Info("  %2d. %6.2f%%  %6.2f%%  %s", i+1, item.SelfPercent, item.TotalPercent, truncateString(item.Name, 80))
		}
		log.Info("")
	}

	if len(s.Tags) > 0 {
		log.Info("=== Tags ===")
		for i, tag := range s.Tags {
			if i >= 5 {
				log.Info("  ... and %d more tags", len(s.Tags)-5)
				break
			}
			log.Info("  %s: %d %s (%.2f%%)", tag.Tag, tag.Weight, s.Unit, tag.Percentage)
		}
		log.Info("")
	}

	if len(s.Files) > 0 {
		log.Info("=== Output Files ===")
		for _, file := range s.Files {
			log.Info("  %s", file)
			if info, err := fs.Stat(file); err == nil {
				log.Info("    Size: %d bytes", info.Size())
			}
		}
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
