package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stack-analysis/internal/repository"
	"github.com/stack-analysis/pkg/config"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/model"
	"github.com/stack-analysis/pkg/utils"
)

var runsLimit int

// runsCmd reads the run ledger.
var runsCmd = &cobra.Command{
	Use:   "runs [trace-id]",
	Short: "List recorded runs, or show one run and its outputs",
	Long: `Read the run ledger configured under "database". Without arguments the
most recent runs are listed; with a trace id the latest run of that trace is
shown together with every file it exported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to list")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	log, err := newLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	repos, err := openLedger(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer repos.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if len(args) == 1 {
		run, err := repos.Runs.GetRunByTraceID(ctx, args[0])
		if err != nil {
			return err
		}
		printRun(out, run)
		return nil
	}

	runs, err := repos.Runs.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	printRuns(out, runs)
	return nil
}

func openLedger(cfg *config.DatabaseConfig, log utils.Logger) (*repository.Repositories, error) {
	if cfg.Type == "" || cfg.Type == "none" {
		return nil, apperrors.New(apperrors.CodeConfigError, "no run ledger configured (database.type is none)")
	}
	db, err := repository.NewGormDB(cfg, log)
	if err != nil {
		return nil, err
	}
	repos, err := repository.NewRepositoriesFor(cfg, db)
	if err != nil {
		return nil, err
	}
	if err := repos.Migrate(); err != nil {
		repos.Close()
		return nil, err
	}
	return repos, nil
}

func printRuns(w io.Writer, runs []*model.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTRACE\tSTATUS\tINPUT\tEVENTS\tDURATION\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.TraceID, r.Status, r.InputFormat+":"+r.InputPath,
			r.TotalEvents, runDuration(r), r.CreateTime.Format(time.DateTime))
	}
	tw.Flush()
}

func printRun(w io.Writer, r *model.Run) {
	fmt.Fprintf(w, "Run %d (%s): %s\n", r.ID, r.TraceID, r.Status)
	if r.StatusInfo != "" {
		fmt.Fprintf(w, "  Info:      %s\n", r.StatusInfo)
	}
	fmt.Fprintf(w, "  Input:     %s:%s (%d events)\n", r.InputFormat, r.InputPath, r.TotalEvents)
	fmt.Fprintf(w, "  Analyzers: %s\n", strings.Join(r.Analyzers, ", "))
	fmt.Fprintf(w, "  Duration:  %s\n", runDuration(r))

	if len(r.Outputs) == 0 {
		return
	}
	fmt.Fprintln(w, "  Outputs:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, o := range r.Outputs {
		fmt.Fprintf(tw, "    %s\t%s\t%s\t%d\t%s\n", o.Analyzer, o.Format, o.Path, o.Size, o.URL)
	}
	tw.Flush()
}

func runDuration(r *model.Run) string {
	if !r.Status.IsFinal() {
		return "-"
	}
	return r.Duration().Round(time.Millisecond).String()
}
