package gazetteer

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/paulmach/orb/encoding/wkb"
)

// gobEntry is the on-disk form of an Entry; boundaries are stored as WKB.
type gobEntry struct {
	Code       string
	Name       string
	Department string
	WKB        []byte
}

// loadGob decodes a compiled gazetteer, preserving entry order.
func loadGob(path string, m *Manifest) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gob file: %w", err)
	}
	defer f.Close()

	var entries []gobEntry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode gob: %w", err)
	}

	idx := newIndex(m)
	for _, ge := range entries {
		e := Entry{Code: ge.Code, Name: ge.Name, Department: ge.Department}
		if len(ge.WKB) > 0 {
			g, err := wkb.Unmarshal(ge.WKB)
			if err != nil {
				return nil, fmt.Errorf("decode boundary %s: %w", ge.Code, err)
			}
			e.Boundary = g
		}
		idx.add(e)
	}
	return idx, nil
}

// SaveGob serializes the index to a gob-encoded file at path.
func SaveGob(idx *Index, path string) error {
	entries := make([]gobEntry, 0, idx.Len())
	for _, e := range idx.Entries() {
		ge := gobEntry{Code: e.Code, Name: e.Name, Department: e.Department}
		if e.Boundary != nil {
			b, err := wkb.Marshal(e.Boundary)
			if err != nil {
				return fmt.Errorf("encode boundary %s: %w", e.Code, err)
			}
			ge.WKB = b
		}
		entries = append(entries, ge)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(entries); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}
