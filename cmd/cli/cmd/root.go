package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stack-analysis/pkg/config"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/pprof"
	"github.com/stack-analysis/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configFile string

	// v collects defaults, the config file, env overrides and bound flags.
	v = config.New()

	// Pprof flags
	pprofEnabled  bool
	pprofDir      string
	pprofProfiles string

	// Pprof collector
	pprofCollector *pprof.Collector
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stackagg",
	Short: "Aggregate stack samples and export them for profile viewers",
	Long: `stackagg folds the stack samples of a trace into one merged call tree
per analyzer and exports it in the formats profile viewers read.

Inputs are collapsed stacks, pprof profiles or JSON lines events. Outputs
include CSV, PerfView XML, speedscope JSON, folded stacks, pprof, flame
graph JSON and a compact binary graph.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if pprofEnabled {
			profiles, err := pprof.ParseProfileTypes(pprofProfiles)
			if err != nil {
				return err
			}
			cfg := pprof.DefaultConfig()
			cfg.OutputDir = pprofDir
			cfg.Profiles = profiles

			collector, err := pprof.NewCollector(cfg, nil)
			if err != nil {
				return err
			}
			if err := collector.Start(); err != nil {
				return err
			}
			pprofCollector = collector
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		stopProfiling()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	stopProfiling()
	if err != nil {
		os.Exit(apperrors.ExitCode(err))
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ./stackagg.yaml, ./configs, /etc/stackagg)")

	// Pprof flags
	rootCmd.PersistentFlags().BoolVar(&pprofEnabled, "pprof", false, "Profile stackagg itself while the command runs")
	rootCmd.PersistentFlags().StringVar(&pprofDir, "pprof-dir", "./pprof", "Output directory for self profiles")
	rootCmd.PersistentFlags().StringVar(&pprofProfiles, "pprof-profiles", "cpu,heap", "Comma-separated profile types: cpu,heap,goroutine,block,mutex,allocs")

	binName := BinName()
	rootCmd.Example = `  # Export CPU samples of a collapsed trace to the default formats
  ` + binName + ` analyze -i ./trace.folded -o ./out

  # Allocation and exception analysis of a JSON lines trace
  ` + binName + ` analyze -i ./events.jsonl -f jsonl -a memallocs,exceptions -F csv,speedscope

  # Profile the analysis itself
  ` + binName + ` analyze -i ./cpu.pb.gz -f pprof --pprof --pprof-profiles cpu,heap`
}

// stopProfiling writes the self profiles once.
func stopProfiling() {
	if pprofCollector == nil {
		return
	}
	if err := pprofCollector.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop pprof collector: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "pprof data saved to: %s\n", pprofCollector.OutputDir())
	pprofCollector = nil
}

// loadConfig reads the config file into v and decodes the merged settings.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	if err := config.ReadFile(v, configFile); err != nil {
		return nil, err
	}
	return config.Decode(v)
}

// newLogger builds the logger described by cfg. --verbose forces debug.
func newLogger(cfg *config.LogConfig) (utils.Logger, error) {
	level := utils.ParseLogLevel(cfg.Level)
	if verbose {
		level = utils.LevelDebug
	}
	if cfg.OutputPath != "" {
		return utils.NewFileLogger(level, cfg.Format, cfg.OutputPath)
	}
	return utils.NewLogger(level, cfg.Format, os.Stderr), nil
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
