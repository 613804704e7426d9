// Command venuectl operates a venuedex deployment directly against its
// backends: rebuilding the index, inspecting it and running searches.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/app"
	"github.com/kailas-cloud/venuedex/internal/config"
	logpkg "github.com/kailas-cloud/venuedex/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cliConfig is shared by every subcommand.
type cliConfig struct {
	configPath string
	env        string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	cfg := &cliConfig{}
	cmd := &cobra.Command{
		Use:           "venuectl",
		Short:         "Operate the venuedex search index",
		SilenceUsage: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&cfg.configPath, "config", "c", "", "config file (default config/<env>.yaml)")
	flags.StringVar(&cfg.env, "env", config.GetEnv(), "environment name used to locate the config file")
	flags.BoolVarP(&cfg.verbose, "verbose", "v", false, "log backend activity to stderr")

	cmd.AddCommand(newReindexCommand(cfg))
	cmd.AddCommand(newSearchCommand(cfg))
	cmd.AddCommand(newStatsCommand(cfg))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

// open loads the configuration and connects to the backends.
// Venue changes are applied inline regardless of the configured changelog.
func (c *cliConfig) open(ctx context.Context) (*app.App, error) {
	var (
		conf config.Config
		err  error
	)
	if c.configPath != "" {
		conf, err = config.LoadFile(c.configPath)
	} else {
		conf, err = config.Load(c.env)
	}
	if err != nil {
		return nil, err
	}
	conf.Changelog.Mode = config.ChangelogInline

	log := zap.NewNop()
	if c.verbose {
		if log, err = logpkg.NewLogger("local", "debug"); err != nil {
			return nil, err
		}
	}
	a, err := app.New(ctx, conf, log)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return a, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
