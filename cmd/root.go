// =============================================================================
// TCD Bridge - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (tcdbridge)
//   ├── processCmd  (tcdbridge process)
//   ├── generateCmd (tcdbridge generate)
//   ├── inspectCmd  (tcdbridge inspect)
//   ├── treeCmd     (tcdbridge tree)
//   ├── fetchCmd    (tcdbridge fetch)
//   └── versionCmd  (tcdbridge version)
//
// The root command owns the global flags (--config, --verbose) and the
// logger construction every subcommand shares.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hsalifou/tcdbridge/internal/config"
)

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tcdbridge",
	Short: "TCD Bridge - Reconcile pivot spreadsheets against DHIS2 data-entry templates",
	Long: `TCD Bridge ingests noisy pivot-table exports (TCD files), reconciles them
against a strict data-entry template, and emits DHIS2 data value payloads
plus a detailed statistics report.

Key Features:
  - Metadata-driven template generation (dataset x sections x organisations)
  - Order-independent category matching tolerant of label variations
  - Fill-down handling for merged spreadsheet cells
  - Categorized failure buckets instead of hard errors
  - Optional direct push to a DHIS2 instance

Example Usage:
  tcdbridge process --mapping mapping.yaml --metadata metadata.json \
      --template template.xlsx --period 2024 --data-element-column INDICATEUR
  tcdbridge generate --metadata metadata.json --dataset ds1 --org ou1 --period 2024
  tcdbridge inspect export_janvier.xlsx`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// LOGGING
// =============================================================================

// newLogger builds the logger every subcommand uses: a console writer on
// stderr, optionally duplicated into the configured log file. --verbose
// forces debug level over the configured one.
func newLogger(cfg *config.MainConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg != nil {
		if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			level = parsed
		}
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	var out io.Writer = console
	if cfg != nil && cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			out = zerolog.MultiLevelWriter(console, f)
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
