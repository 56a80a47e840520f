package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/RawKey/pkg/core"
	"github.com/ChrisMcGann/RawKey/pkg/store/sqlite"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [db.sqlite]",
	Short: "Summarize imported raw data files",
	Long:  `Print per-file statistics of an import database: scan count, m/z range, polarities, MS level counts and frame count.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func runSummarize(cmd *cobra.Command, args []string) error {
	reader, err := sqlite.Open(args[0], 0)
	if err != nil {
		return err
	}
	defer reader.Close()

	files, err := reader.Files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("%s contains no raw data files\n", args[0])
		return nil
	}

	for _, fi := range files {
		sum, err := reader.Summarize(fi)
		if err != nil {
			return err
		}

		fmt.Printf("%s (id %d, imported %s)\n", fi.Name, fi.ID, fi.ImportDate)
		fmt.Printf("  Path:       %s\n", fi.Path)
		fmt.Printf("  Scans:      %d\n", sum.ScanCount)
		if sum.HasMZRange {
			fmt.Printf("  m/z range:  %s\n", sum.MZRange)
		}

		polarities := make([]string, len(sum.Polarities))
		for i, p := range sum.Polarities {
			polarities[i] = p.String()
		}
		fmt.Printf("  Polarities: %s\n", strings.Join(polarities, " "))

		levels := make([]int, 0, len(sum.MSLevels))
		for l := range sum.MSLevels {
			levels = append(levels, int(l))
		}
		sort.Ints(levels)
		for _, l := range levels {
			fmt.Printf("  MS%d:        %d scans\n", l, sum.MSLevels[uint8(l)])
		}

		if fi.Mobility != core.MobilityNone || sum.FrameCount > 0 {
			fmt.Printf("  Mobility:   %s, %d frames\n", fi.Mobility, sum.FrameCount)
		}
	}
	return nil
}
