package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/RawKey/pkg/standards"
	"github.com/ChrisMcGann/RawKey/pkg/store/sqlite"
)

var (
	// Flags for standards command
	sheetIndex    int
	standardsOut  string
	standardsName string
)

// Decimal places of printed ion m/z values
const mzDecimals = 5

var standardsCmd = &cobra.Command{
	Use:   "standards [file.xlsx]",
	Short: "Extract a calibration standards list from a spreadsheet",
	Long: `Read the "ion formula" and "retention time (min)" columns of a workbook sheet
and print each standard with its retention time in seconds and ion m/z.

Examples:
  rawkey standards calibrants.xlsx
  rawkey standards calibrants.xlsx --sheet 1 --out project.sqlite --name lockmass`,
	Args: cobra.ExactArgs(1),
	RunE: runStandards,
}

func init() {
	standardsCmd.Flags().IntVar(&sheetIndex, "sheet", 0, "Sheet index, 0-based (default from config standards.sheet_index)")
	standardsCmd.Flags().StringVarP(&standardsOut, "out", "o", "", "Store the list in this database")
	standardsCmd.Flags().StringVar(&standardsName, "name", "", "List name in the database (default: file name)")
}

func runStandards(cmd *cobra.Command, args []string) error {
	sheet := cfg.Standards.SheetIndex
	if cmd.Flags().Changed("sheet") {
		sheet = sheetIndex
	}

	list, err := standards.Extract(args[0], sheet)
	if err != nil {
		return err
	}

	fmt.Printf("%-24s %12s %14s\n", "Ion formula", "RT (s)", "Ion m/z")
	for _, it := range list.Items() {
		mz := "n/a"
		if v, err := it.RoundedIonMZ(mzDecimals); err == nil {
			mz = strconv.FormatFloat(v, 'f', -1, 64)
		}
		fmt.Printf("%-24s %12.2f %14s\n", it.IonFormula, it.RetentionTimeSeconds, mz)
	}
	fmt.Printf("%d standards\n", list.Len())

	if standardsOut == "" {
		return nil
	}

	name := standardsName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}

	writer, err := sqlite.NewWriter(standardsOut, nil)
	if err != nil {
		return fmt.Errorf("failed to open output database: %w", err)
	}
	if err := writer.WriteStandards(name, list); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	fmt.Printf("Stored as %q in %s\n", name, standardsOut)
	return nil
}
