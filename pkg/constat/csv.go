package constat

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/hazyhaar/constats/pkg/textnorm"
)

// ReadCSV reads a delimited export. The first line is the header; the
// default delimiter is ';' as in the spreadsheet exports. Record IDs are the
// line numbers where each record starts.
func ReadCSV(r io.Reader, opts Options) (*Dataset, error) {
	reader, err := textnorm.NewReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(reader)
	cr.Comma = ';'
	if opts.Delimiter != "" {
		cr.Comma = []rune(opts.Delimiter)[0]
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Dataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var (
		rows  [][]string
		lines []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}
	return build(header, rows, func(i int) int { return lines[i] }, opts), nil
}
