package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/stack-analysis/internal/analyzer"
	"github.com/stack-analysis/internal/formatter"
	"github.com/stack-analysis/pkg/telemetry"
)

var (
	// Version information, set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"

	versionJSON bool
)

// versionInfo is what "version --json" prints.
type versionInfo struct {
	Version   string   `json:"version"`
	GitCommit string   `json:"gitCommit"`
	BuildTime string   `json:"buildTime"`
	GoVersion string   `json:"goVersion"`
	Platform  string   `json:"platform"`
	Analyzers []string `json:"analyzers"`
	Formats   []string `json:"formats"`
	Tracing   string   `json:"tracing"`
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the build version, git commit, Go runtime and the analyzers and output formats compiled in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printVersion(cmd.OutOrStdout(), currentVersion(), versionJSON)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version information as JSON")
	rootCmd.AddCommand(versionCmd)
}

func currentVersion() versionInfo {
	return versionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Analyzers: analyzer.Names(),
		Formats:   formatter.Names(),
		Tracing:   tracingTarget(telemetry.GetConfig()),
	}
}

// tracingTarget describes where spans are exported, if anywhere.
func tracingTarget(cfg *telemetry.Config) string {
	if !cfg.Enabled {
		return "disabled"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "default endpoint"
	}
	return cfg.Protocol + " " + endpoint
}

func printVersion(w io.Writer, info versionInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintf(w, "%s version %s\n", BinName(), info.Version)
	fmt.Fprintf(w, "  Git Commit: %s\n", info.GitCommit)
	fmt.Fprintf(w, "  Build Time: %s\n", info.BuildTime)
	fmt.Fprintf(w, "  Go Version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "  OS/Arch:    %s\n", info.Platform)
	fmt.Fprintf(w, "  Analyzers:  %d, formats: %d\n", len(info.Analyzers), len(info.Formats))
	fmt.Fprintf(w, "  Tracing:    %s\n", info.Tracing)
	return nil
}
