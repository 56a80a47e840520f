package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/RawKey/pkg/core"
	"github.com/ChrisMcGann/RawKey/pkg/mobilogram"
	"github.com/ChrisMcGann/RawKey/pkg/store/sqlite"
)

var (
	// Flags for mobilogram command
	mobFile  string
	mobFrame int
	mzMin    float64
	mzMax    float64
)

var mobilogramCmd = &cobra.Command{
	Use:   "mobilogram [db.sqlite]",
	Short: "Build a mobilogram from a stored ion-mobility frame",
	Long: `Build a mobilogram for an m/z window over the drift scans of one frame.
Mobility is reported as the drift bin index.

Example:
  rawkey mobilogram project.sqlite --file run1.raw --frame 12 --mz-min 556.27 --mz-max 556.29`,
	Args: cobra.ExactArgs(1),
	RunE: runMobilogram,
}

func init() {
	mobilogramCmd.Flags().StringVar(&mobFile, "file", "", "Raw data file name (required)")
	mobilogramCmd.Flags().IntVar(&mobFrame, "frame", 0, "Frame index, 0-based")
	mobilogramCmd.Flags().Float64Var(&mzMin, "mz-min", 0, "Lower bound of the m/z window (required)")
	mobilogramCmd.Flags().Float64Var(&mzMax, "mz-max", 0, "Upper bound of the m/z window (required)")

	mobilogramCmd.MarkFlagRequired("file")
	mobilogramCmd.MarkFlagRequired("mz-min")
	mobilogramCmd.MarkFlagRequired("mz-max")
}

func runMobilogram(cmd *cobra.Command, args []string) error {
	reader, err := sqlite.Open(args[0], 0)
	if err != nil {
		return err
	}
	defer reader.Close()

	fi, err := reader.FileByName(mobFile)
	if err != nil {
		return err
	}
	if fi.Mobility == core.MobilityNone {
		return fmt.Errorf("%s is not an ion-mobility acquisition", fi.Name)
	}

	frame, err := reader.Frame(fi.ID, mobFrame)
	if err != nil {
		return err
	}

	m := mobilogram.FromFrame(frame, core.NewRange(mzMin, mzMax), mobilogram.DriftIndexMobility, fi.Mobility)
	if m.ValueCount() == 0 {
		fmt.Printf("No points in m/z %s for frame %d\n", core.NewRange(mzMin, mzMax), mobFrame)
		return nil
	}

	fmt.Printf("Frame %d at RT %.4f min, %d drift scans\n", frame.Index, frame.RetentionTime, frame.ScanCount())
	fmt.Printf("%10s %14s %10s %14s\n", "Scan", "m/z", "Mobility", "Intensity")
	for _, p := range m.DataPoints() {
		fmt.Printf("%10d %14.5f %10.2f %14.1f\n", p.ScanNum, p.MZ, p.Mobility, p.Intensity)
	}
	fmt.Printf("Median m/z %.5f, median mobility %.2f\n", m.MZ(), m.Mobility())
	return nil
}
