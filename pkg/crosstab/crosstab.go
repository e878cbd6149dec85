// Package crosstab counts reports per (year, species, conclusion) and writes
// the summary table.
package crosstab

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/constats/pkg/constat"
)

// Cell is one (year, species, conclusion) count key.
type Cell struct {
	Year       int
	Species    string
	Conclusion string
}

// YearConclusion is a cross-species total key.
type YearConclusion struct {
	Year       int
	Conclusion string
}

// Table is the aggregated crosstab. Years, Species and Conclusions are
// sorted ascending.
type Table struct {
	Years       []int
	Species     []string
	Conclusions []string
	Counts      map[Cell]int
	Totals      map[YearConclusion]int
}

// Aggregate builds the table from normalized records. A record counts when
// its date parsed and both species and C_tech_new are non-empty. Its year is
// listed as soon as the date parsed, even when the record is not counted.
func Aggregate(records []constat.Normalized) *Table {
	t := &Table{
		Counts: make(map[Cell]int),
		Totals: make(map[YearConclusion]int),
	}
	years := make(map[int]bool)
	species := make(map[string]bool)
	conclusions := make(map[string]bool)

	for _, r := range records {
		if !r.Dated {
			continue
		}
		year := r.Period.Year
		years[year] = true
		if r.Category == "" || r.CTechNew == "" {
			continue
		}
		species[r.Category] = true
		conclusions[r.CTechNew] = true
		t.Counts[Cell{year, r.Category, r.CTechNew}]++
		t.Totals[YearConclusion{year, r.CTechNew}]++
	}

	for y := range years {
		t.Years = append(t.Years, y)
	}
	sort.Ints(t.Years)
	t.Species = sortedKeys(species)
	t.Conclusions = sortedKeys(conclusions)
	return t
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of reports for one cell.
func (t *Table) Count(year int, species, conclusion string) int {
	return t.Counts[Cell{year, species, conclusion}]
}

// Total returns the cross-species count for (year, conclusion).
func (t *Table) Total(year int, conclusion string) int {
	return t.Totals[YearConclusion{year, conclusion}]
}

// Records returns the number of counted reports.
func (t *Table) Records() int {
	n := 0
	for _, c := range t.Counts {
		n += c
	}
	return n
}

// Verify checks that every (year, conclusion) total equals the sum of its
// per-species counts.
func (t *Table) Verify() error {
	sums := make(map[YearConclusion]int, len(t.Totals))
	for c, n := range t.Counts {
		sums[YearConclusion{c.Year, c.Conclusion}] += n
	}
	if len(sums) != len(t.Totals) {
		return fmt.Errorf("crosstab: %d total keys, %d count keys", len(t.Totals), len(sums))
	}
	for k, total := range t.Totals {
		if sums[k] != total {
			return fmt.Errorf("crosstab: total %d/%q = %d, species sum = %d", k.Year, k.Conclusion, total, sums[k])
		}
	}
	return nil
}
