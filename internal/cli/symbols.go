package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/catalog"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/logging"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/probe"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/safe"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/target"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// symbolRow is one candidate of the attach plan.
type symbolRow struct {
	Target    string `json:"target"`
	Symbol    string `json:"symbol"`
	Set       string `json:"set"`
	Handler   string `json:"handler"`
	ELFSymbol string `json:"elf_symbol,omitempty"`
	Found     bool   `json:"found"`
	Error     string `json:"error,omitempty"`
}

func newSymbolsCmd() *cobra.Command {
	var (
		common commonFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Show which candidate functions the target exposes",
		Long: `Print the attach plan for the target and look up every candidate symbol in the
ELF symbol tables, without loading anything into the kernel.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatTable && format != formatJSON {
				return fmt.Errorf("unsupported format: %s", format)
			}

			cfg, err := common.load(cmd.Flags())
			if err != nil {
				return err
			}

			logger := logging.NewWithComponent(
				logging.FromFormat(cfg.Logging.Level, cfg.Logging.Format),
				"symbols",
			)

			t, err := target.Resolve(target.Spec{BinaryPath: cfg.Target.Binary, PID: cfg.Target.PID}, logger)
			if err != nil {
				return err
			}

			cat := catalog.Default().WithLibraryPaths(cfg.Instrumentation.LibraryPaths)
			candidates, skipped := cat.Plan(t.BinaryPath, safe.Exists)
			for _, s := range skipped {
				logger.Debug().Str("path", s.Path).Msg("Library not found, skipping")
			}

			rows := lookupSymbols(candidates, probe.NewELFResolver())

			if format == formatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return writeSymbolTable(cmd.OutOrStdout(), rows)
		},
	}

	common.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "Output format (table, json)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{formatTable, formatJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func lookupSymbols(candidates []catalog.Candidate, resolver probe.SymbolResolver) []symbolRow {
	rows := make([]symbolRow, 0, len(candidates))
	for _, c := range candidates {
		row := symbolRow{
			Target:  c.Target,
			Symbol:  c.Symbol,
			Set:     string(c.Set),
			Handler: catalog.SanitizeSymbol(c.Symbol),
		}
		name, err := resolver.Lookup(c.Target, c.Symbol)
		if err != nil {
			row.Error = err.Error()
		} else {
			row.ELFSymbol, row.Found = name, true
		}
		rows = append(rows, row)
	}
	return rows
}

func writeSymbolTable(w io.Writer, rows []symbolRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TARGET\tSYMBOL\tSET\tFOUND\tELF SYMBOL")

	found := 0
	for _, r := range rows {
		mark := "no"
		if r.Found {
			mark = "yes"
			found++
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Target, r.Symbol, r.Set, mark, r.ELFSymbol)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d of %d candidates found\n", found, len(rows))
	return err
}
