package gazetteer

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/paulmach/orb"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature",
     "properties": {"INSEE_COM": "21001", "NOM": "Villers", "INSEE_DEP": "21"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature",
     "properties": {"INSEE_COM": "21002", "NOM": "", "INSEE_DEP": "21"},
     "geometry": {"type": "Polygon", "coordinates": [[[1,0],[2,0],[2,1],[1,1],[1,0]]]}},
    {"type": "Feature",
     "properties": {"INSEE_COM": "", "NOM": "Sans Code", "INSEE_DEP": "21"},
     "geometry": null},
    {"type": "Feature",
     "properties": {"INSEE_COM": 39001, "NOM": "Jura Un", "INSEE_DEP": "39"},
     "geometry": null},
    {"type": "Feature",
     "properties": {"INSEE_COM": "21001", "NOM": "Villers-le-Duc", "INSEE_DEP": "21"},
     "geometry": null}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestOpen_GeoJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "communes.geojson", sampleGeoJSON)

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len = %d, want 3", idx.Len())
	}

	entries := idx.Entries()
	wantOrder := []string{"21001", "21002", "39001"}
	for i, code := range wantOrder {
		if entries[i].Code != code {
			t.Errorf("entries[%d].Code = %q, want %q", i, entries[i].Code, code)
		}
	}

	// Duplicate code: first position, last values.
	e, ok := idx.Lookup("21001")
	if !ok {
		t.Fatal("21001 not indexed")
	}
	if e.Name != "Villers-le-Duc" {
		t.Errorf("21001 name = %q, want last row's name", e.Name)
	}

	e, _ = idx.Lookup("21002")
	if e.Name != "Commune_21002" {
		t.Errorf("21002 name = %q, want synthesized Commune_21002", e.Name)
	}
	if _, ok := e.Boundary.(orb.Polygon); !ok {
		t.Errorf("21002 boundary = %T, want orb.Polygon", e.Boundary)
	}

	if !idx.Contains("39001") {
		t.Error("numeric code property should be stringified to 39001")
	}
}

func TestOpen_GeoJSON_NoCodeField(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.geojson", `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"NOM":"X"},"geometry":null}]}`)

	_, err := Open(path)
	if !errors.Is(err, ErrNoCodeField) {
		t.Fatalf("err = %v, want ErrNoCodeField", err)
	}
}

func TestOpen_GeoJSON_CodeFieldPriority(t *testing.T) {
	// INSEE comes before INSEE_COM in the alias list and wins even when empty.
	path := writeFile(t, t.TempDir(), "prio.geojson", `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"INSEE":"", "INSEE_COM":"21001","NOM":"A"},"geometry":null},
		{"type":"Feature","properties":{"INSEE":"21002", "INSEE_COM":"99999","NOM":"B"},"geometry":null}]}`)

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if idx.Len() != 1 || !idx.Contains("21002") {
		t.Errorf("entries = %v, want only 21002", idx.Entries())
	}
}

func TestLoadFile_CSVWithWKT(t *testing.T) {
	dir := t.TempDir()
	// windows-1252: "Flée" with é = 0xE9
	content := "CODE_INSEE;NOM_COM;WKT\n21272;Fl\xe9e;POLYGON((0 0,1 0,1 1,0 1,0 0))\n21001;Villers;not wkt\n"
	path := writeFile(t, dir, "communes.csv", content)

	m := DefaultManifest(path)
	m.Format.Delimiter = ";"
	m.Format.Encoding = "windows-1252"

	idx, err := LoadFile(path, m)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	e, ok := idx.Lookup("21272")
	if !ok {
		t.Fatal("21272 not indexed")
	}
	if e.Name != "Flée" {
		t.Errorf("name = %q, want Flée", e.Name)
	}
	if e.Boundary == nil {
		t.Error("expected WKT boundary")
	}
	e, _ = idx.Lookup("21001")
	if e.Boundary != nil {
		t.Error("invalid WKT should leave a nil boundary")
	}
}

func TestReadRows(t *testing.T) {
	code := func(record []string) row { return row{code: record[0]} }

	r := csv.NewReader(strings.NewReader("21001,Villers\n21272\n21003,Aubigny\n"))
	r.FieldsPerRecord = 2
	rows, skipped, err := readRows(r, code)
	if err != nil {
		t.Fatalf("readRows: %v", err)
	}
	if len(rows) != 2 || rows[1].code != "21003" || skipped != 1 {
		t.Errorf("rows = %+v, skipped = %d; want 2 rows, 1 skipped", rows, skipped)
	}

	errDisk := errors.New("disk failure")
	r = csv.NewReader(io.MultiReader(strings.NewReader("21001,Villers\n"), iotest.ErrReader(errDisk)))
	if _, _, err := readRows(r, code); !errors.Is(err, errDisk) {
		t.Errorf("err = %v, want %v", err, errDisk)
	}
}

func TestLoadFile_DepartmentFilter(t *testing.T) {
	path := writeFile(t, t.TempDir(), "communes.geojson", sampleGeoJSON)
	m := DefaultManifest(path)
	m.Filter.Departments = []string{"39"}

	idx, err := LoadFile(path, m)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if idx.Len() != 1 || !idx.Contains("39001") {
		t.Errorf("filtered index = %d entries, want only 39001", idx.Len())
	}
}

func TestSaveGobLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "communes.geojson", sampleGeoJSON)
	idx, err := Open(src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	m := &Manifest{ID: "communes-test", Version: "2024", DataFile: "communes.geojson"}
	if err := WriteManifest(dir, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	if err := SaveGob(idx, filepath.Join(dir, "data.gob")); err != nil {
		t.Fatalf("SaveGob: %v", err)
	}
	// Remove the raw file: Load must use the gob.
	os.Remove(src)

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != idx.Len() {
		t.Fatalf("Len = %d, want %d", loaded.Len(), idx.Len())
	}
	for i, e := range loaded.Entries() {
		want := idx.Entries()[i]
		if e.Code != want.Code || e.Name != want.Name {
			t.Errorf("entry %d = %s/%s, want %s/%s", i, e.Code, e.Name, want.Code, want.Name)
		}
	}
	e, _ := loaded.Lookup("21002")
	if e.Boundary == nil {
		t.Error("boundary lost in gob round trip")
	}
	if info := loaded.Info(); info.ID != "communes-test" || info.Entries != 3 {
		t.Errorf("Info = %+v", info)
	}
}

func TestLoadManifest_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "manifest.yaml", "id: x\ndata_file: a.shp\nformat:\n  type: shapefile\n")
	if _, err := Load(dir); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestHolder_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "communes.geojson", sampleGeoJSON)

	h := NewHolder(path)
	if h.Index() != nil {
		t.Fatal("index should be nil before Load")
	}
	if err := h.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}

	os.WriteFile(path, []byte("not json"), 0o644)
	if err := h.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if h.Len() != 3 {
		t.Errorf("failed reload must keep the previous index, Len = %d", h.Len())
	}
}

func TestBuild(t *testing.T) {
	idx := Build([]Entry{{Code: "1", Name: "A"}, {Code: "", Name: "skip"}, {Code: "2", Name: "B"}})
	if idx.Len() != 2 {
		t.Errorf("Len = %d, want 2", idx.Len())
	}
	var seen []string
	idx.Each(func(e *Entry) bool {
		seen = append(seen, e.Code)
		return true
	})
	if len(seen) != 2 || seen[0] != "1" || seen[1] != "2" {
		t.Errorf("Each order = %v", seen)
	}
}
