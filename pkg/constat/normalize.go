package constat

import (
	"github.com/hazyhaar/constats/pkg/category"
	"github.com/hazyhaar/constats/pkg/monthly"
)

// Normalized is a record with its derived fields. CTechNew is the refined
// conclusion used by every downstream stage.
type Normalized struct {
	Record
	CTechNew string      `json:"c_tech_new"`
	Category string      `json:"species"`
	Period   monthly.Key `json:"period"`
	Dated    bool        `json:"dated"`
	// DateErr is set when Dated is false.
	DateErr error `json:"-"`
}

// Normalize derives species category, C_tech_new and the month of r.
func Normalize(r Record) Normalized {
	n := Normalized{
		Record:   r,
		CTechNew: category.Conclusion(r.Conclusion, r.Indemnisation),
		Category: category.Species(r.Species),
	}
	k, err := monthly.ParseKey(r.Date)
	if err != nil {
		n.DateErr = err
		return n
	}
	n.Period = k
	n.Dated = true
	return n
}

// NormalizeAll normalizes records in order.
func NormalizeAll(records []Record) []Normalized {
	out := make([]Normalized, len(records))
	for i, r := range records {
		out[i] = Normalize(r)
	}
	return out
}

// ByMonth is the grouping key function for monthly.Group.
func ByMonth(n Normalized) (monthly.Key, bool) {
	return n.Period, n.Dated
}
