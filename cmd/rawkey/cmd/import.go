package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/RawKey/internal/log"
	"github.com/ChrisMcGann/RawKey/pkg/filter"
	_ "github.com/ChrisMcGann/RawKey/pkg/masslynx/snapshot"
	"github.com/ChrisMcGann/RawKey/pkg/reader/waters"
	"github.com/ChrisMcGann/RawKey/pkg/store/sqlite"
)

var (
	// Flags for import command
	outputFile    string
	workers       int
	topN          int
	cutoffPercent float64
	removeZero    bool
)

var importCmd = &cobra.Command{
	Use:   "import [dirs...]",
	Short: "Import Waters .raw acquisitions into a SQLite database",
	Long: `Import one or more Waters MassLynx acquisitions. Each directory is imported
by its own worker; a failed file does not affect the others.

Examples:
  # Import two acquisitions
  rawkey import run1.raw run2.raw --out project.sqlite

  # Import with peak filtering
  rawkey import *.raw --out project.sqlite --top-n 200 --cutoff 0.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output database file (default from config output.database)")
	importCmd.Flags().IntVar(&workers, "workers", 0, "Number of files imported in parallel (0 = config import.workers)")
	importCmd.Flags().IntVar(&topN, "top-n", 0, "Keep only top N most intense peaks per scan (0 = no limit)")
	importCmd.Flags().Float64Var(&cutoffPercent, "cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
	importCmd.Flags().BoolVar(&removeZero, "remove-zero", false, "Drop zero intensity peaks")
}

// stderrReporter prints vendor SDK messages for failed files.
type stderrReporter struct{}

func (stderrReporter) ReportError(path, message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(path), message)
}

func runImport(cmd *cobra.Command, args []string) error {
	out := outputFile
	if out == "" {
		out = cfg.Output.Database
	}
	if out == "" {
		return fmt.Errorf("no output database, use --out or output.database")
	}

	n := cfg.Import.Workers
	if workers > 0 {
		n = workers
	}

	fc := &filter.Config{
		TopN:                cfg.Filter.TopN,
		IntensityCutoff:     cfg.Filter.IntensityCutoff,
		RemoveZeroIntensity: cfg.Filter.RemoveZeroIntensity,
	}
	if cmd.Flags().Changed("top-n") {
		fc.TopN = topN
	}
	if cmd.Flags().Changed("cutoff") {
		fc.IntensityCutoff = cutoffPercent
	}
	if cmd.Flags().Changed("remove-zero") {
		fc.RemoveZeroIntensity = removeZero
	}

	writer, err := sqlite.NewWriter(out, fc)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer writer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Importing %d acquisitions into %s (%d workers)...\n", len(args), out, n)
	if fc.TopN > 0 {
		fmt.Printf("Top N filter: %d\n", fc.TopN)
	}
	if fc.IntensityCutoff > 0 {
		fmt.Printf("Intensity cutoff: %.1f%%\n", fc.IntensityCutoff)
	}

	opts := waters.Options{
		CancelCheckInterval: cfg.Import.CancelCheckInterval,
		ProgressStep:        cfg.Import.ProgressStep,
		Reporter:            stderrReporter{},
	}
	results := waters.ImportAll(ctx, args, writer, n, opts, func(t *waters.Task) {
		log.Debugw("import started", "path", t.Path())
	})

	failed := 0
	for _, r := range results {
		switch r.Status {
		case waters.StatusFinished:
			fmt.Printf("  %-40s %-10s %d scans, %d frames\n", filepath.Base(r.Path), r.Status, r.File.ScanCount(), r.File.FrameCount())
		default:
			failed++
			fmt.Printf("  %-40s %-10s %v\n", filepath.Base(r.Path), r.Status, r.Err)
		}
	}

	if err := writer.Finalize(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(results))
	}

	fmt.Printf("Done: %d acquisitions written to %s\n", len(results), out)
	return nil
}
