// Package cmd provides the CLI commands for notecove.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/notecove/notecove/internal/config"
	"github.com/notecove/notecove/internal/engine"
	"github.com/notecove/notecove/internal/logging"
	"github.com/notecove/notecove/internal/output"
	"github.com/notecove/notecove/pkg/version"
)

// Persistent flags shared by every subcommand.
var (
	configPath string
	dataDir    string
	debugMode  bool
)

// NewRootCmd creates the root command for the notecove CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notecove",
		Short: "Local semantic search over your notes",
		Long: `Notecove indexes directories of plain-text notes into a local
store and answers similarity queries over them.

Everything runs locally: register a corpus, index it, then search.

  notecove corpus add personal ~/notes
  notecove index
  notecove search "ideas about error handling"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("notecove version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newCorpusCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newPathsCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// loadConfig builds the effective configuration from the config file,
// environment, and command-line overrides.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if debugMode {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// withEngine loads configuration, sets up logging, opens the engine,
// and guarantees teardown around the given command body.
func withEngine(cmd *cobra.Command, run func(ctx context.Context, e *engine.Engine, out *output.Writer) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig(cfg.DataDir)
	logCfg.Level = cfg.Log.Level
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	defer cleanup()
	slog.SetDefault(logger)

	e, err := engine.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	return run(cmd.Context(), e, output.New(cmd.OutOrStdout()))
}
