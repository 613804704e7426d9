package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/venuedex/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the venuectl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "venuectl %s (%s, %s)\n",
				version.Version, version.Commit, version.Date)
			return err
		},
	}
}
