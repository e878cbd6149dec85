// Package layers builds the map layers of joined reports: one layer per
// month, a global layer, attribute filters and the chronological frame
// sequence. Only data is produced; point placement and rendering belong to
// the map client.
package layers

import (
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"github.com/hazyhaar/constats/pkg/category"
	"github.com/hazyhaar/constats/pkg/constat"
	"github.com/hazyhaar/constats/pkg/gazetteer"
	"github.com/hazyhaar/constats/pkg/join"
	"github.com/hazyhaar/constats/pkg/monthly"
)

// GlobalName is the name of the layer holding every month.
const GlobalName = "Constats_Globaux"

// Name returns the layer name of month k (constats_YYYY_MM).
func Name(k monthly.Key) string {
	return "constats_" + k.String()
}

// Feature is one joined report.
type Feature struct {
	ID         int
	Code       string
	NomInit    string
	NomInsee   string
	CTechNew   string
	Elevage    string
	Conclusion string
	Date       string
	Period     monthly.Key
	Style      category.Style
	Boundary   orb.Geometry
}

// Layer is a named list of features grouped by commune: communes in order of
// first appearance, records in input order within a commune.
type Layer struct {
	Name     string
	Month    *monthly.Key
	Features []Feature
}

// Len returns the number of features.
func (l *Layer) Len() int {
	return len(l.Features)
}

// Set is the result of Build.
type Set struct {
	// Monthly layers, most recent first.
	Monthly []*Layer
	Global  *Layer
}

// Build creates one layer per month group and the global layer. Records of
// the groups that are not in joined are ignored.
func Build(groups *monthly.Groups[constat.Normalized], joined *join.Result, idx *gazetteer.Index) *Set {
	s := &Set{Global: &Layer{Name: GlobalName}}

	for _, k := range groups.Descending() {
		key := k
		l := &Layer{Name: Name(k), Month: &key}
		l.Features = byCommune(features(groups.Get(k), joined, idx))
		s.Monthly = append(s.Monthly, l)
	}

	// The global layer follows record order across months.
	var all []constat.Normalized
	for _, k := range groups.Keys() {
		all = append(all, groups.Get(k)...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	s.Global.Features = byCommune(features(all, joined, idx))
	return s
}

// Keys returns the months of the monthly layers in chronological order.
func (s *Set) Keys() []monthly.Key {
	keys := make([]monthly.Key, len(s.Monthly))
	for i, l := range s.Monthly {
		keys[len(keys)-1-i] = *l.Month
	}
	return keys
}

// Filter returns a copy of the set with f applied to every layer.
func (s *Set) Filter(f Filter) *Set {
	out := &Set{Global: s.Global.Filter(f)}
	for _, l := range s.Monthly {
		out.Monthly = append(out.Monthly, l.Filter(f))
	}
	return out
}

func features(records []constat.Normalized, joined *join.Result, idx *gazetteer.Index) []Feature {
	var out []Feature
	for _, r := range records {
		m, ok := joined.Lookup(r.ID)
		if !ok {
			continue
		}
		f := Feature{
			ID:         r.ID,
			Code:       m.Code,
			NomInit:    m.Input,
			NomInsee:   m.Name,
			CTechNew:   r.CTechNew,
			Elevage:    r.Category,
			Conclusion: r.Conclusion,
			Date:       r.Date,
			Period:     r.Period,
			Style:      category.StyleFor(r.CTechNew, r.Category),
		}
		if e, ok := idx.Lookup(m.Code); ok {
			f.Boundary = e.Boundary
		}
		out = append(out, f)
	}
	return out
}

func byCommune(fs []Feature) []Feature {
	var order []string
	groups := make(map[string][]Feature)
	for _, f := range fs {
		if _, seen := groups[f.NomInsee]; !seen {
			order = append(order, f.NomInsee)
		}
		groups[f.NomInsee] = append(groups[f.NomInsee], f)
	}
	out := make([]Feature, 0, len(fs))
	for _, name := range order {
		out = append(out, groups[name]...)
	}
	return out
}

// Filter restricts features by species prefix and conclusion. An empty list
// places no constraint.
type Filter struct {
	// Species prefixes, case-insensitive ("Ov" matches "Ovin").
	Species []string `json:"species,omitempty"`
	// Conclusions are compared exactly with C_tech_new.
	Conclusions []string `json:"conclusions,omitempty"`
}

// Empty reports whether f keeps everything.
func (f Filter) Empty() bool {
	return len(f.Species) == 0 && len(f.Conclusions) == 0
}

// Keep reports whether ft passes the filter.
func (f Filter) Keep(ft Feature) bool {
	if len(f.Species) > 0 {
		ok := false
		elevage := strings.ToLower(ft.Elevage)
		for _, s := range f.Species {
			if strings.HasPrefix(elevage, strings.ToLower(s)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Conclusions) > 0 {
		for _, c := range f.Conclusions {
			if ft.CTechNew == c {
				return true
			}
		}
		return false
	}
	return true
}

// Filter returns a copy of l with the features kept by f.
func (l *Layer) Filter(f Filter) *Layer {
	out := &Layer{Name: l.Name, Month: l.Month}
	for _, ft := range l.Features {
		if f.Keep(ft) {
			out.Features = append(out.Features, ft)
		}
	}
	return out
}
