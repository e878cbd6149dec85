package constat

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the configured (or first) worksheet. Row 1 is the header.
func ReadXLSX(r io.Reader, opts Options) (*Dataset, error) {
	raw := excelize.Options{RawCellValue: true}
	f, err := excelize.OpenReader(r, raw)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheet")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, raw)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &Dataset{}, nil
	}

	l, _ := resolve(opts.Schema.withDefaults(), rows[0])
	for i, cells := range rows[1:] {
		for _, col := range l.date {
			if col < len(cells) && cells[col] != "" {
				cells[col] = dateCell(f, sheet, col+1, i+2, cells[col])
			}
		}
	}
	return build(rows[0], rows[1:], func(i int) int { return i + 2 }, opts), nil
}

// dateCell renders a date column cell as DD/MM/YYYY when the workbook
// stores it as a date: a number with a date format, or an ISO 8601 "d" cell.
// Anything else is returned as read.
func dateCell(f *excelize.File, sheet string, col, row int, v string) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return v
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return v
	}
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
	case excelize.CellTypeDate:
		return isoDate(v)
	default:
		return v
	}
	idx, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		return v
	}
	style, err := f.GetStyle(idx)
	if err != nil || !isDateFormat(style) {
		return v
	}
	return serialDate(v)
}

// isDateFormat reports whether a cell style displays numbers as dates.
func isDateFormat(style *excelize.Style) bool {
	if style.CustomNumFmt != nil {
		return dateCode(*style.CustomNumFmt)
	}
	switch n := style.NumFmt; {
	case n >= 14 && n <= 17, n == 22, n >= 27 && n <= 36, n >= 50 && n <= 58:
		return true
	}
	return false
}

// dateCode reports whether a format code has a day or year token outside
// literals and bracketed sections.
func dateCode(code string) bool {
	quoted, bracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case quoted:
			quoted = c != '"'
		case bracket:
			bracket = c != ']'
		case c == '"':
			quoted = true
		case c == '[':
			bracket = true
		case c == '\\':
			i++
		case c == 'd', c == 'D', c == 'y', c == 'Y':
			return true
		}
	}
	return false
}

func isoDate(v string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return v
}

// serialDate turns a date serial (days since 1900) into DD/MM/YYYY.
// Values that are not serials are returned unchanged.
func serialDate(v string) string {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 1 || n > 2958465 {
		return v
	}
	t, err := excelize.ExcelDateToTime(n, false)
	if err != nil {
		return v
	}
	return t.Format("02/01/2006")
}
