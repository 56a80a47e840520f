package standards

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/ChrisMcGann/RawKey/internal/log"
	"github.com/ChrisMcGann/RawKey/pkg/core"
)

// Required header literals, matched case-insensitively.
const (
	RetentionTimeColumn = "retention time (min)"
	IonFormulaColumn    = "ion formula"
)

// Extractor reads a standards list from one sheet of an xlsx workbook. The
// workbook is read on the first successful Extract; later calls return the
// cached list.
type Extractor struct {
	path       string
	sheetIndex int

	mu     sync.Mutex
	cached *List
}

// NewExtractor creates an extractor for sheetIndex (0-based) of the workbook
// at path.
func NewExtractor(path string, sheetIndex int) *Extractor {
	return &Extractor{path: path, sheetIndex: sheetIndex}
}

// Extract is shorthand for NewExtractor(path, sheetIndex).Extract().
func Extract(path string, sheetIndex int) (*List, error) {
	return NewExtractor(path, sheetIndex).Extract()
}

// Extract returns the standards list. Unreadable workbooks fail with
// core.ErrIO, a missing required column with core.ErrSchema. Rows with a
// malformed retention time or formula are logged and skipped.
func (e *Extractor) Extract() (*List, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log.Infof("extracting standards list %s sheet index %d", e.path, e.sheetIndex)
	if e.cached != nil {
		log.Infof("using cached list")
		return e.cached, nil
	}

	f, err := excelize.OpenFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrIO, e.path, err)
	}
	defer f.Close()

	sh, rows, err := e.readRows(f)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: spreadsheet %s has no header row", core.ErrSchema, e.path)
	}
	rtCol, formulaCol := headerColumns(rows[0])
	if rtCol < 0 || formulaCol < 0 {
		return nil, fmt.Errorf("%w: spreadsheet %s missing %q or %q column",
			core.ErrSchema, e.path, RetentionTimeColumn, IonFormulaColumn)
	}

	var items []Item
	for i := 1; i < len(rows); i++ {
		item, err := parseRow(rows[i], rtCol, formulaCol, sh.isNumeric(rtCol, i))
		if err != nil {
			log.Infow("skipping standards row", "row", i, "reason", err.Error())
			continue
		}
		items = append(items, item)
	}

	log.Infof("extracted %d standard molecules from %d rows", len(items), len(rows))
	e.cached = NewList(items)
	return e.cached, nil
}

// sheet is the worksheet being extracted.
type sheet struct {
	f    *excelize.File
	name string
}

// isNumeric reports whether the cell at 0-based col, row holds a number.
// Numbers carry no type attribute or "n"; text, booleans, errors and dates
// do not qualify.
func (s sheet) isNumeric(col, row int) bool {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return false
	}
	t, err := s.f.GetCellType(s.name, cell)
	if err != nil {
		return false
	}
	return t == excelize.CellTypeUnset || t == excelize.CellTypeNumber
}

func (e *Extractor) readRows(f *excelize.File) (sheet, [][]string, error) {
	sheets := f.GetSheetList()
	if e.sheetIndex < 0 || e.sheetIndex >= len(sheets) {
		return sheet{}, nil, fmt.Errorf("%w: %s has %d sheets, index %d requested",
			core.ErrIO, e.path, len(sheets), e.sheetIndex)
	}

	sh := sheet{f: f, name: sheets[e.sheetIndex]}
	rows, err := f.GetRows(sh.name, excelize.Options{RawCellValue: true})
	if err != nil {
		return sheet{}, nil, fmt.Errorf("%w: read sheet %q: %v", core.ErrIO, sh.name, err)
	}
	return sh, rows, nil
}

// headerColumns returns the column indices of the required headers, -1 when
// absent.
func headerColumns(header []string) (rtCol, formulaCol int) {
	rtCol, formulaCol = -1, -1
	for i, cell := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(cell), RetentionTimeColumn):
			rtCol = i
		case strings.EqualFold(strings.TrimSpace(cell), IonFormulaColumn):
			formulaCol = i
		}
	}
	return rtCol, formulaCol
}

// parseRow converts a data row. The retention time cell must be a finite
// number (minutes); the formula cell must be non-empty text.
func parseRow(row []string, rtCol, formulaCol int, rtNumeric bool) (Item, error) {
	if rtCol >= len(row) || formulaCol >= len(row) {
		return Item{}, fmt.Errorf("row has %d cells", len(row))
	}

	if !rtNumeric {
		return Item{}, fmt.Errorf("retention time %q is not a numeric cell", row[rtCol])
	}
	rt, err := strconv.ParseFloat(strings.TrimSpace(row[rtCol]), 64)
	if err != nil || math.IsNaN(rt) || math.IsInf(rt, 0) {
		return Item{}, fmt.Errorf("retention time %q is not a finite number", row[rtCol])
	}

	formula := strings.TrimSpace(row[formulaCol])
	if formula == "" {
		return Item{}, fmt.Errorf("empty ion formula")
	}
	if _, err := strconv.ParseFloat(formula, 64); err == nil {
		return Item{}, fmt.Errorf("ion formula %q is numeric", formula)
	}

	return Item{IonFormula: formula, RetentionTimeSeconds: rt * 60}, nil
}
