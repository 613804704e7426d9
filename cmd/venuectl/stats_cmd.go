package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	searchuc "github.com/kailas-cloud/venuedex/internal/usecase/search"
)

func newStatsCommand(cfg *cliConfig) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index diagnostics and the last full reindex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := cfg.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.Search.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printStats(cmd, st, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (json|text)")
	return cmd
}

func printStats(cmd *cobra.Command, st searchuc.Stats, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return writeJSON(cmd, st)
	case "", "text":
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Index: %s (%s)\n", st.IndexName, st.Driver)
		fmt.Fprintf(w, "Documents: %s of %s venues\n",
			humanize.Comma(int64(st.NumDocs)), humanize.Comma(int64(st.StoreRows)))
		fmt.Fprintf(w, "Memory: %s\n", humanize.Bytes(uint64(max(st.MemoryBytes, 0))))
		fmt.Fprintf(w, "Indexing: %t\n", st.Indexing)
		if st.Failures > 0 {
			fmt.Fprintf(w, "Failures: %d\n", st.Failures)
		}
		if r := st.LastReindex; r != nil {
			fmt.Fprintf(w, "Last reindex: %s, %d indexed, %d errors\n",
				humanize.Time(r.FinishedAt), r.Indexed, len(r.Errors))
		} else {
			fmt.Fprintln(w, "Last reindex: never")
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (expected json or text)", format)
	}
}
