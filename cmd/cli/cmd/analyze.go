package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stack-analysis/internal/service"
	"github.com/stack-analysis/pkg/telemetry"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Aggregate a trace and export the merged stacks",
	Long: `Read a trace, fold its stack samples per analyzer and write one file per
analyzer and output format into the output directory, next to summary.json.

Analyzers:
  - cpu       : CPU samples, weighted by sample count or duration
  - memallocs : allocated bytes, with the allocated type as the leaf frame
  - exceptions: thrown exceptions, with the exception type as the leaf frame

Run "formats" to list every input and output format.

Flags override the config file, which overrides STACKAGG_* environment
variables and the built-in defaults.`,
	RunE: runAnalyze,
}

// flagKeys binds analyze flags to config keys.
var flagKeys = map[string]string{
	"input":       "input.path",
	"format":      "input.format",
	"process":     "input.process",
	"sample-type": "input.sample_type",
	"max-events":  "input.max_events",
	"strict":      "input.strict",
	"output":      "analysis.working_dir",
	"analyzers":   "analysis.analyzers",
	"formats":     "analysis.formats",
	"tag":         "analysis.tags",
	"trace-id":    "analysis.trace_id",
	"csv-source":  "analysis.csv_source",
	"compression": "analysis.compression",
	"top":         "analysis.top_n",
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	binName := BinName()
	analyzeCmd.Example = `  # Collapsed stacks to CSV, PerfView XML and speedscope
  ` + binName + ` analyze -i ./trace.folded -o ./out

  # Allocated bytes from a Go heap profile, as pprof and flame graph
  ` + binName + ` analyze -i ./heap.pb.gz -f pprof --sample-type alloc_space -a memallocs -F pprof,flamegraph

  # Separate two captures with tags and record the run under an id
  ` + binName + ` analyze -i ./a.jsonl -f jsonl -t "capture: a" --trace-id run-001`

	flags := analyzeCmd.Flags()
	flags.StringP("input", "i", "", "Input trace file (required)")
	flags.StringP("format", "f", "collapsed", "Input format: collapsed, pprof, jsonl")
	flags.StringP("output", "o", "./out", "Output directory for generated files")
	flags.StringSliceP("analyzers", "a", []string{"cpu"}, "Analyzers to run: cpu, memallocs, exceptions")
	flags.StringSliceP("formats", "F", []string{"csv", "xml", "speedscope"}, "Output formats")
	flags.StringArrayP("tag", "t", nil, "Tag layered above every sample (repeatable)")
	flags.String("trace-id", "", "Run id used for published paths and the run ledger (generated if empty)")
	flags.String("process", "unknown", "Process name for events that carry none")
	flags.String("sample-type", "", "pprof sample type used as the weight")
	flags.Int("max-events", 0, "Stop reading after this many events (0 = no limit)")
	flags.Bool("strict", false, "Fail on the first malformed input record")
	flags.String("csv-source", "tree", "Model the csv format reads: tree or keyed")
	flags.String("compression", "none", "Compression of the graph format: none, gzip, zstd")
	flags.IntP("top", "n", 20, "Number of top functions in the summary")
	analyzeCmd.MarkFlagRequired("input")

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	log, err := newLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx)
	if err != nil {
		log.Warn("Telemetry disabled: %v", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("Failed to flush telemetry: %v", err)
			}
		}()
	}

	svc, err := service.New(cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Initialize(ctx); err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	log.Info("")
	log.Info("=== Run %s: %s ===", res.Run.TraceID, res.Run.Status)
	for _, out := range res.Run.Outputs {
		if out.URL != "" {
			log.Info("  %s -> %s", out.Path, out.URL)
			continue
		}
		log.Info("  %s", out.Path)
	}
	return nil
}
