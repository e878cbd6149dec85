package crosstab

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// TotalMode selects how the trailing Total column is filled.
type TotalMode string

const (
	// TotalLegacy writes, for every row, the cross-species total of the row's
	// year and the last conclusion column. This is what the historical
	// exports contain.
	TotalLegacy TotalMode = "legacy"
	// TotalRow writes the sum of the row.
	TotalRow TotalMode = "row"
)

// ParseTotalMode accepts "legacy", "row" or "" (legacy).
func ParseTotalMode(s string) (TotalMode, error) {
	switch TotalMode(s) {
	case "", TotalLegacy:
		return TotalLegacy, nil
	case TotalRow:
		return TotalRow, nil
	default:
		return "", fmt.Errorf("unknown total mode %q (legacy|row)", s)
	}
}

// Header returns the column names.
func (t *Table) Header() []string {
	h := make([]string, 0, len(t.Conclusions)+3)
	h = append(h, "Espèce", "Année")
	h = append(h, t.Conclusions...)
	return append(h, "Total")
}

// Row is one species × year line.
type Row struct {
	Species string
	Year    int
	Counts  []int
	Total   int
}

// Rows returns one row per species × year, species-major.
func (t *Table) Rows(mode TotalMode) []Row {
	rows := make([]Row, 0, len(t.Species)*len(t.Years))
	for _, sp := range t.Species {
		for _, y := range t.Years {
			r := Row{Species: sp, Year: y, Counts: make([]int, len(t.Conclusions))}
			sum := 0
			for i, c := range t.Conclusions {
				n := t.Count(y, sp, c)
				r.Counts[i] = n
				sum += n
			}
			switch {
			case mode == TotalRow:
				r.Total = sum
			case len(t.Conclusions) > 0:
				r.Total = t.Total(y, t.Conclusions[len(t.Conclusions)-1])
			}
			rows = append(rows, r)
		}
	}
	return rows
}

// WriteCSV writes the table with ';' separators and CRLF line endings.
func (t *Table) WriteCSV(w io.Writer, mode TotalMode) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	cw.UseCRLF = true

	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range t.Rows(mode) {
		rec := make([]string, 0, len(r.Counts)+3)
		rec = append(rec, r.Species, strconv.Itoa(r.Year))
		for _, n := range r.Counts {
			rec = append(rec, strconv.Itoa(n))
		}
		rec = append(rec, strconv.Itoa(r.Total))
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Sheet names of the XLSX export.
const (
	SheetTable  = "TCD"
	SheetTotals = "Totaux"
)

// WriteXLSX writes the table on a first sheet and the (year, conclusion)
// totals on a second one.
func (t *Table) WriteXLSX(w io.Writer, mode TotalMode) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTable); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := setRow(f, SheetTable, 1, toCells(t.Header())); err != nil {
		return err
	}
	for i, r := range t.Rows(mode) {
		cells := []interface{}{r.Species, r.Year}
		for _, n := range r.Counts {
			cells = append(cells, n)
		}
		cells = append(cells, r.Total)
		if err := setRow(f, SheetTable, i+2, cells); err != nil {
			return err
		}
	}
	f.SetRowStyle(SheetTable, 1, 1, headerStyle)
	f.SetColWidth(SheetTable, "A", "A", 14)
	if n := len(t.Conclusions); n > 0 {
		last, _ := excelize.ColumnNumberToName(n + 3)
		f.SetColWidth(SheetTable, "C", last, 22)
	}

	if _, err := f.NewSheet(SheetTotals); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := setRow(f, SheetTotals, 1, []interface{}{"Année", "Conclusion", "Total"}); err != nil {
		return err
	}
	row := 2
	for _, y := range t.Years {
		for _, c := range t.Conclusions {
			if err := setRow(f, SheetTotals, row, []interface{}{y, c, t.Total(y, c)}); err != nil {
				return err
			}
			row++
		}
	}
	f.SetRowStyle(SheetTotals, 1, 1, headerStyle)
	f.SetColWidth(SheetTotals, "B", "B", 40)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func toCells(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
