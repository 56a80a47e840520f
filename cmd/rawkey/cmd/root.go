// Package cmd provides CLI command implementations
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/RawKey/internal/log"
	"github.com/ChrisMcGann/RawKey/pkg/config"
)

var (
	// Persistent flags
	configFile string
	debug      bool

	// cfg is loaded before any command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rawkey",
	Short: "RawKey - Waters MassLynx raw data importer",
	Long: `RawKey imports Waters MassLynx acquisitions (.raw directories) into SQLite
databases, including ion-mobility frames, and reads calibration standards
lists from spreadsheets.

Supports:
- Parallel import of many acquisitions with per-file status
- Peak filtering (top-N, intensity cutoff, zero intensity removal)
- Standards list extraction from xlsx workbooks
- Mobilograms over stored ion-mobility frames`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(standardsCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(mobilogramCmd)
}

// loadConfig reads --config over the defaults and starts the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	cfg = config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("debug") {
		cfg.Log.Debug = debug
	}
	return log.Init(cfg.Log.Debug)
}
