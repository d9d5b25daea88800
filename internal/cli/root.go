// Package cli provides the command-line interface for frameset.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/frameset/internal/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	var cfg *config.Config
	var logger *slog.Logger

	rootCmd := &cobra.Command{
		Use:   "frameset",
		Short: "frameset - multi-table dataset storage",
		Long: `frameset stores multi-table datasets with typed schemas and
relationships as self-describing directories: a manifest plus one table
file per entity in a pluggable format (csv, parquet, arrow, sqlite).`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./frameset.yaml)")
	rootCmd.PersistentFlags().String("format", "", "table format for writes (csv, parquet, arrow, sqlite)")
	rootCmd.PersistentFlags().String("compression", "", "table compression passed to the codec")
	rootCmd.PersistentFlags().String("manifest", "", "manifest encoding (json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newDescribeCmd(&logger))
	rootCmd.AddCommand(newConvertCmd(&cfg, &logger))

	return rootCmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
