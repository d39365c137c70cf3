package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stack-analysis/internal/analyzer"
	"github.com/stack-analysis/internal/formatter"
	"github.com/stack-analysis/internal/service"
	"github.com/stack-analysis/pkg/config"
)

// formatsCmd lists the registered analyzers, inputs and outputs.
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List analyzers, input formats and output formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(&config.Config{}, nil)
		if err != nil {
			return err
		}
		printFormats(cmd.OutOrStdout(), svc.Parsers().Formats())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func printFormats(w io.Writer, inputs []string) {
	fmt.Fprintln(w, "Analyzers:")
	for _, info := range analyzer.All() {
		fmt.Fprintf(w, "  %-12s %-11s %s\n", info.Name, info.Unit, info.Description)
	}

	fmt.Fprintln(w, "\nInput formats:")
	fmt.Fprintf(w, "  %s\n", strings.Join(inputs, ", "))

	fmt.Fprintln(w, "\nOutput formats:")
	for _, name := range formatter.Names() {
		f, err := formatter.New(name, formatter.Options{})
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %-12s <analyzer>%s\n", name, f.Extension())
	}
}
