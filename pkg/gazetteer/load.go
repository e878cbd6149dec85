package gazetteer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cast"

	"github.com/hazyhaar/constats/pkg/textnorm"
)

// ErrNoCodeField is returned when none of the code aliases exists in the dataset.
var ErrNoCodeField = errors.New("no official code field")

// Open loads a gazetteer from a directory (manifest.yaml + data) or from a
// single GeoJSON or CSV file read with the default field aliases.
func Open(path string) (*Index, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer: %w", err)
	}
	if st.IsDir() {
		return Load(path)
	}
	return LoadFile(path, DefaultManifest(path))
}

// Load reads dir/manifest.yaml and loads data.gob when present, the data file otherwise.
func Load(dir string) (*Index, error) {
	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}

	// Gob takes priority over the raw data file.
	gobPath := filepath.Join(dir, "data.gob")
	if _, err := os.Stat(gobPath); err == nil {
		idx, err := loadGob(gobPath, m)
		if err != nil {
			return nil, fmt.Errorf("gazetteer %s: %w", m.ID, err)
		}
		return idx, nil
	}

	idx, err := LoadFile(filepath.Join(dir, m.DataFile), m)
	if err != nil {
		return nil, fmt.Errorf("gazetteer %s: %w", m.ID, err)
	}
	return idx, nil
}

// LoadFile reads the data file at path as described by m.
func LoadFile(path string, m *Manifest) (*Index, error) {
	if m == nil {
		m = DefaultManifest(path)
	}
	m.applyDefaults()

	var (
		idx *Index
		err error
	)
	switch m.Format.Type {
	case FormatCSV:
		idx, err = loadCSV(path, m)
	default:
		idx, err = loadGeoJSON(path, m)
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("gazetteer loaded", "id", m.ID, "entries", idx.Len())
	return idx, nil
}

// row is one source record, independent of the file format.
type row struct {
	code, name, dep string
	boundary        orb.Geometry
}

// columns holds the resolved field per logical field; "" means absent.
type columns struct {
	code, name, dep, geometry string
}

func resolveColumns(m *Manifest, present func(string) bool) columns {
	return columns{
		code:     firstPresent(m.Fields.Code, present),
		name:     firstPresent(m.Fields.Name, present),
		dep:      firstPresent(m.Fields.Department, present),
		geometry: firstPresent(m.Fields.Geometry, present),
	}
}

func firstPresent(aliases []string, present func(string) bool) string {
	for _, a := range aliases {
		if present(a) {
			return a
		}
	}
	return ""
}

// indexRows applies the code/name rules and the department filter.
func indexRows(m *Manifest, rows []row) *Index {
	idx := newIndex(m)
	keep := make(map[string]bool, len(m.Filter.Departments))
	for _, d := range m.Filter.Departments {
		keep[strings.TrimSpace(d)] = true
	}

	var skipped, collisions int
	for _, r := range rows {
		if r.code == "" {
			skipped++
			continue
		}
		if len(keep) > 0 && !keep[r.dep] {
			continue
		}
		name := r.name
		if name == "" {
			name = "Commune_" + r.code
		}
		if idx.add(Entry{Code: r.code, Name: name, Department: r.dep, Boundary: r.boundary}) {
			collisions++
		}
	}

	if skipped > 0 {
		slog.Warn("gazetteer rows without code skipped", "gazetteer", m.ID, "skipped", skipped)
	}
	if collisions > 0 {
		slog.Warn("duplicate official codes", "gazetteer", m.ID, "collisions", collisions)
	}
	return idx
}

func loadGeoJSON(path string, m *Manifest) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	// The field set is the union of all feature properties, like a layer schema.
	schema := make(map[string]bool)
	for _, f := range fc.Features {
		for k := range f.Properties {
			schema[k] = true
		}
	}
	cols := resolveColumns(m, func(name string) bool { return schema[name] })
	if cols.code == "" {
		return nil, fmt.Errorf("%w (tried %v)", ErrNoCodeField, m.Fields.Code)
	}

	rows := make([]row, 0, len(fc.Features))
	for _, f := range fc.Features {
		r := row{
			code:     strings.TrimSpace(propString(f.Properties, cols.code)),
			name:     strings.TrimSpace(propString(f.Properties, cols.name)),
			dep:      strings.TrimSpace(propString(f.Properties, cols.dep)),
			boundary: f.Geometry,
		}
		rows = append(rows, r)
	}
	return indexRows(m, rows), nil
}

func propString(props geojson.Properties, key string) string {
	if key == "" {
		return ""
	}
	return cast.ToString(props[key])
}

func loadCSV(path string, m *Manifest) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	reader, err := textnorm.NewReader(f, m.Format.Encoding)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(reader)
	r.Comma = ','
	if delim := m.Format.Delimiter; delim != "" {
		r.Comma = []rune(delim)[0]
	}
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := colIdx[h]; !dup {
			colIdx[h] = i
		}
	}
	cols := resolveColumns(m, func(name string) bool { _, ok := colIdx[name]; return ok })
	if cols.code == "" {
		return nil, fmt.Errorf("%w in header %v (tried %v)", ErrNoCodeField, header, m.Fields.Code)
	}

	cell := func(record []string, col string) string {
		if col == "" {
			return ""
		}
		i := colIdx[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var badGeometry int
	rows, skipped, err := readRows(r, func(record []string) row {
		rw := row{
			code: cell(record, cols.code),
			name: cell(record, cols.name),
			dep:  cell(record, cols.dep),
		}
		if raw := cell(record, cols.geometry); raw != "" {
			g, err := wkt.Unmarshal(raw)
			if err != nil {
				badGeometry++
			} else {
				rw.boundary = g
			}
		}
		return rw
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.Warn("malformed CSV rows ignored", "gazetteer", m.ID, "count", skipped)
	}
	if badGeometry > 0 {
		slog.Warn("invalid WKT boundaries ignored", "gazetteer", m.ID, "count", badGeometry)
	}
	return indexRows(m, rows), nil
}

// readRows reads records until EOF. Records rejected by the CSV parser are
// counted in skipped; any other read error stops the load.
func readRows(r *csv.Reader, toRow func([]string) row) (rows []row, skipped int, err error) {
	for {
		record, err := r.Read()
		if err == io.EOF {
			return rows, skipped, nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, toRow(record))
	}
}
