// Package gazetteer indexes communes (official code -> canonical name and
// boundary) from an administrative dataset.
package gazetteer

import (
	"github.com/paulmach/orb"
)

// Entry is one administrative unit.
type Entry struct {
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	Department string       `json:"department,omitempty"`
	Boundary   orb.Geometry `json:"-"`
}

// Index maps official codes to entries. Iteration follows dataset row order:
// a duplicated code keeps the position of its first row and the values of its
// last row. An Index is never modified once built.
type Index struct {
	Manifest *Manifest
	order    []string
	byCode   map[string]*Entry
}

// Build returns an index over entries in the given order. Entries without a
// code are skipped.
func Build(entries []Entry) *Index {
	idx := newIndex(nil)
	for _, e := range entries {
		idx.add(e)
	}
	return idx
}

func newIndex(m *Manifest) *Index {
	return &Index{Manifest: m, byCode: make(map[string]*Entry)}
}

// add reports whether the code was already present.
func (x *Index) add(e Entry) bool {
	if e.Code == "" {
		return false
	}
	entry := e
	if _, exists := x.byCode[e.Code]; exists {
		x.byCode[e.Code] = &entry
		return true
	}
	x.order = append(x.order, e.Code)
	x.byCode[e.Code] = &entry
	return false
}

// Lookup returns the entry for an official code.
func (x *Index) Lookup(code string) (*Entry, bool) {
	e, ok := x.byCode[code]
	return e, ok
}

// Contains reports whether code is indexed.
func (x *Index) Contains(code string) bool {
	_, ok := x.byCode[code]
	return ok
}

// Len returns the number of distinct codes.
func (x *Index) Len() int {
	return len(x.order)
}

// Entries returns the entries in iteration order.
func (x *Index) Entries() []*Entry {
	out := make([]*Entry, len(x.order))
	for i, code := range x.order {
		out[i] = x.byCode[code]
	}
	return out
}

// Each calls fn for every entry in iteration order until fn returns false.
func (x *Index) Each(fn func(*Entry) bool) {
	for _, code := range x.order {
		if !fn(x.byCode[code]) {
			return
		}
	}
}

// Info is the public metadata of a loaded gazetteer.
type Info struct {
	ID        string `json:"id"`
	Version   string `json:"version"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url,omitempty"`
	License   string `json:"license"`
	Entries   int    `json:"entries"`
}

// Info describes the index and the manifest it was loaded from.
func (x *Index) Info() Info {
	info := Info{Entries: x.Len()}
	if m := x.Manifest; m != nil {
		info.ID = m.ID
		info.Version = m.Version
		info.Source = m.Source
		info.SourceURL = m.SourceURL
		info.License = m.License
	}
	return info
}
