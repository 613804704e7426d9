package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/venuedex/internal/domain/batch"
)

func newReindexCommand(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild index documents from the venue store",
	}
	cmd.AddCommand(newReindexAllCommand(cfg))
	cmd.AddCommand(newReindexOneCommand(cfg))
	return cmd
}

func newReindexAllCommand(cfg *cliConfig) *cobra.Command {
	var (
		published bool
		filter    string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Reindex every venue, or those matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filters := map[string]any{}
			if filter != "" {
				if err := json.Unmarshal([]byte(filter), &filters); err != nil {
					return fmt.Errorf("invalid --filter: %w", err)
				}
			}
			if published {
				filters["published"] = true
			}

			a, err := cfg.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Reindex.ReindexAll(cmd.Context(), filters)
			if err != nil {
				return err
			}
			return printReport(cmd, rep, output)
		},
	}
	cmd.Flags().BoolVar(&published, "published", false, "only reindex published venues")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", `filter object, e.g. '{"courts":{"category":"padel"}}'`)
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (json|text)")
	return cmd
}

func newReindexOneCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "one <venue-id>",
		Short: "Reindex a single venue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cfg.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			msg, err := a.Search.IndexOne(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
}

func printReport(cmd *cobra.Command, rep batch.Report, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return writeJSON(cmd, rep)
	case "", "text":
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Run: %s\n", rep.RunID)
		if rep.Filter != "" {
			fmt.Fprintf(w, "Filter: %s\n", rep.Filter)
		}
		fmt.Fprintf(w, "Indexed: %s\n", humanize.Comma(int64(rep.Indexed)))
		fmt.Fprintf(w, "Errors: %d\n", len(rep.Errors))
		fmt.Fprintf(w, "Duration: %s\n", rep.Duration().Round(time.Millisecond))
		for _, e := range rep.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (expected json or text)", format)
	}
}
