// Package cli implements the jitterbuffer-exporter command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	exporterrors "github.com/coral-mesh/jitterbuffer-exporter/internal/errors"
	"github.com/coral-mesh/jitterbuffer-exporter/pkg/version"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jitterbuffer-exporter",
		Short: "Export media jitter buffer statistics from uprobes to Prometheus",
		Long: `Attach uprobes to FFmpeg and SRS jitter buffer functions of an unmodified
process and publish packet, drop, byte and delay statistics as Prometheus metrics.

Stable FFmpeg library symbols (libavcodec, libavformat, libavutil) are tried first,
then the target binary itself is searched for both the stable and the legacy
jitter buffer symbols. The exporter keeps running as long as at least one
function could be instrumented.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSymbolsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// ErrorMessage renders err for stderr. Failures that stop the exporter before it
// serves are reported apart from errors raised while running.
func ErrorMessage(err error) string {
	if exporterrors.IsStartupFailure(err) {
		return fmt.Sprintf("Startup failed: %v", err)
	}
	return fmt.Sprintf("Error: %v", err)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("jitterbuffer-exporter version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}
