// Package constat loads wildlife-damage report spreadsheets (XLSX or CSV)
// into records with a fixed schema. Header aliases are resolved once per
// file; each record keeps its spreadsheet row number as ID.
package constat

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for report files that are neither XLSX nor CSV.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Record is one report row. Values are the first non-empty cell among the
// schema's alias columns; Commune and Date are trimmed, the others are kept
// verbatim.
type Record struct {
	ID            int    `json:"id"`
	Commune       string `json:"commune"`
	Species       string `json:"elevage"`
	Conclusion    string `json:"conclusion"`
	Indemnisation string `json:"indemnisation"`
	Date          string `json:"date"`
}

// Schema lists, per logical field, the header names tried in order.
type Schema struct {
	Commune       []string `yaml:"commune"`
	Species       []string `yaml:"elevage"`
	Conclusion    []string `yaml:"conclusion"`
	Indemnisation []string `yaml:"indemnisation"`
	Date          []string `yaml:"date"`
}

// DefaultSchema matches the headers of the regional report exports.
func DefaultSchema() Schema {
	return Schema{
		Commune:       []string{"commune", "Commune", "COMMUNE"},
		Species:       []string{"Elevage"},
		Conclusion:    []string{"Conclusion technique"},
		Indemnisation: []string{"Indemnisation"},
		Date:          []string{"date du constat", "Date du constat", "DATE"},
	}
}

// withDefaults fills the fields left empty (e.g. by a partial config file).
func (s Schema) withDefaults() Schema {
	d := DefaultSchema()
	if len(s.Commune) == 0 {
		s.Commune = d.Commune
	}
	if len(s.Species) == 0 {
		s.Species = d.Species
	}
	if len(s.Conclusion) == 0 {
		s.Conclusion = d.Conclusion
	}
	if len(s.Indemnisation) == 0 {
		s.Indemnisation = d.Indemnisation
	}
	if len(s.Date) == 0 {
		s.Date = d.Date
	}
	return s
}

// Options control how a report file is read.
type Options struct {
	// Sheet selects the XLSX worksheet; empty means the first one.
	Sheet string
	// Delimiter and Encoding apply to CSV; defaults are ";" and UTF-8.
	Delimiter string
	Encoding  string
	Schema    Schema
	Logger    *slog.Logger
}

// Dataset is a loaded report file.
type Dataset struct {
	Source  string
	Headers []string
	// Missing lists the logical fields with no matching header.
	Missing []string
	Records []Record
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Open reads the report at path, choosing the reader from the extension.
func Open(path string, opts Options) (*Dataset, error) {
	var read func(io.Reader, Options) (*Dataset, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		read = ReadXLSX
	case ".csv", ".txt":
		read = ReadCSV
	default:
		return nil, fmt.Errorf("%w: %s (convert to .xlsx or .csv)", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	ds, err := read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", filepath.Base(path), err)
	}
	ds.Source = path
	return ds, nil
}

// layout maps each logical field to the column indexes of its present aliases.
type layout struct {
	commune, species, conclusion, indemnisation, date []int
}

func resolve(schema Schema, headers []string) (layout, []string) {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	var missing []string
	cols := func(field string, aliases []string) []int {
		var out []int
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				out = append(out, i)
			}
		}
		if len(out) == 0 {
			missing = append(missing, field)
		}
		return out
	}
	l := layout{
		commune:       cols("commune", schema.Commune),
		species:       cols("elevage", schema.Species),
		conclusion:    cols("conclusion", schema.Conclusion),
		indemnisation: cols("indemnisation", schema.Indemnisation),
		date:          cols("date", schema.Date),
	}
	return l, missing
}

func (l layout) record(id int, cells []string) Record {
	return Record{
		ID:            id,
		Commune:       strings.TrimSpace(first(cells, l.commune)),
		Species:       first(cells, l.species),
		Conclusion:    first(cells, l.conclusion),
		Indemnisation: first(cells, l.indemnisation),
		Date:          strings.TrimSpace(first(cells, l.date)),
	}
}

func first(cells []string, cols []int) string {
	for _, i := range cols {
		if i < len(cells) && strings.TrimSpace(cells[i]) != "" {
			return cells[i]
		}
	}
	return ""
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// build turns a header row and data rows into a dataset; rowNum gives the
// spreadsheet row number of rows[i].
func build(headers []string, rows [][]string, rowNum func(i int) int, opts Options) *Dataset {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	l, missing := resolve(opts.Schema.withDefaults(), headers)
	if len(missing) > 0 {
		logger.Warn("report columns not found", "fields", missing)
	}

	ds := &Dataset{Headers: headers, Missing: missing}
	for i, cells := range rows {
		if blank(cells) {
			continue
		}
		ds.Records = append(ds.Records, l.record(rowNum(i), cells))
	}
	return ds
}
