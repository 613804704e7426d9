package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	searchuc "github.com/kailas-cloud/venuedex/internal/usecase/search"
)

func newSearchCommand(cfg *cliConfig) *cobra.Command {
	var (
		p        spec.Params
		lat, lon float64
		filter   string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a venue search against the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("lat") {
				p.Lat = &lat
			}
			if cmd.Flags().Changed("lon") {
				p.Lon = &lon
			}
			if filter != "" {
				if err := json.Unmarshal([]byte(filter), &p.Filters); err != nil {
					return fmt.Errorf("invalid --filter: %w", err)
				}
			}

			a, err := cfg.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			fs, err := spec.New(p, a.Search.Surface())
			if err != nil {
				return err
			}
			res, err := a.Search.Search(cmd.Context(), fs)
			if err != nil {
				return err
			}
			return printHits(cmd, res, output)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&p.Term, "q", "q", "", "free-text term")
	flags.Float64Var(&lat, "lat", 0, "latitude of the search center")
	flags.Float64Var(&lon, "lon", 0, "longitude of the search center")
	flags.StringVarP(&p.Radius, "radius", "r", "", "search radius, e.g. 5km or 800m")
	flags.StringVarP(&p.Sort, "sort", "s", "", "sort field (relevance|distance|createdAt|name|price|rating)")
	flags.StringVar(&p.Order, "order", "", "sort direction (asc|desc)")
	flags.IntVar(&p.Page, "page", 0, "1-based page number")
	flags.IntVarP(&p.Limit, "limit", "l", 0, "page size")
	flags.StringVar(&p.Cursor, "cursor", "", "cursor from a previous page")
	flags.BoolVar(&p.IncludeRelations, "courts", false, "include courts in the results")
	flags.StringVarP(&filter, "filter", "f", "", `filter object, e.g. '{"published":true}'`)
	flags.StringVarP(&output, "output", "o", "text", "output format (json|text)")
	return cmd
}

func printHits(cmd *cobra.Command, res searchuc.Page, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return writeJSON(cmd, res)
	case "", "text":
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s venues\n", humanize.Comma(int64(res.Total)))
		for _, h := range res.Data {
			line := fmt.Sprintf("  %s  %s", h.Document.ID, h.Document.Name)
			if h.DistanceMeters != nil {
				line += fmt.Sprintf("  %s", formatDistance(*h.DistanceMeters))
			}
			if h.Score > 0 {
				line += fmt.Sprintf("  score=%.3f", h.Score)
			}
			fmt.Fprintln(w, line)
		}
		if res.Meta.NextCursor != nil {
			fmt.Fprintf(w, "next: --cursor %s\n", *res.Meta.NextCursor)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (expected json or text)", format)
	}
}

func formatDistance(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%.0f m", m)
	}
	return humanize.FtoaWithDigits(m/1000, 2) + " km"
}
