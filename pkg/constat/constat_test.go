package constat

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(wb.GetActiveSheetIndex())
	for i, row := range rows {
		if row == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := wb.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow %s: %v", cell, err)
		}
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"ID", "Commune", "COMMUNE", "Elevage", "Conclusion technique", "Indemnisation", "Date du constat"},
		{1, "  Villers ", "", "Ovins", "Cause mortalité indéterminée", "oui", "15/03/2021"},
		{2, "", "Flée", "Bovin allaitant", "Loup non exclu", "", "2021-04-02"},
		nil,
		{4, "", "", "", "", "", ""},
		{5, "Villerss", "", "caprins", "Loup", "NON", time.Date(2021, 5, 9, 0, 0, 0, 0, time.UTC)},
	})

	ds, err := ReadXLSX(bytes.NewReader(data), Options{})
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if ds.Len() != 4 {
		t.Fatalf("Len = %d, want 4 (blank row skipped)", ds.Len())
	}

	r := ds.Records[0]
	if r.ID != 2 || r.Commune != "Villers" || r.Species != "Ovins" || r.Indemnisation != "oui" || r.Date != "15/03/2021" {
		t.Errorf("record 0 = %+v", r)
	}
	// Commune falls back to the next present alias column.
	if r := ds.Records[1]; r.ID != 3 || r.Commune != "Flée" {
		t.Errorf("record 1 = %+v", r)
	}
	// Row 5 has only an ID: kept, with empty fields.
	if r := ds.Records[2]; r.ID != 5 || r.Commune != "" {
		t.Errorf("record 2 = %+v", r)
	}
	// Date-typed cell converted from its serial value.
	if r := ds.Records[3]; r.ID != 6 || r.Date != "09/05/2021" {
		t.Errorf("record 3 = %+v, want date 09/05/2021", r)
	}
	if len(ds.Missing) != 0 {
		t.Errorf("Missing = %v", ds.Missing)
	}
}

func TestReadXLSX_MissingColumns(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Elevage", "DATE"},
		{"Ovin", "01/01/2020"},
	})
	ds, err := ReadXLSX(bytes.NewReader(data), Options{})
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	want := []string{"commune", "conclusion", "indemnisation"}
	if strings.Join(ds.Missing, ",") != strings.Join(want, ",") {
		t.Errorf("Missing = %v, want %v", ds.Missing, want)
	}
	if ds.Records[0].Commune != "" || ds.Records[0].Date != "01/01/2020" {
		t.Errorf("record = %+v", ds.Records[0])
	}
}

func TestReadCSV(t *testing.T) {
	content := "commune;Elevage;Conclusion technique;Indemnisation;date du constat\n" +
		"Villers;Ovin;Loup;;15/03/2021\n" +
		"\n" +
		"Fl\xe9e;Bovin;Lynx;;2021-04-02\n"

	ds, err := ReadCSV(strings.NewReader(content), Options{Encoding: "windows-1252"})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ds.Len())
	}
	if r := ds.Records[0]; r.ID != 2 || r.Commune != "Villers" {
		t.Errorf("record 0 = %+v", r)
	}
	if r := ds.Records[1]; r.ID != 4 || r.Commune != "Flée" || r.Conclusion != "Lynx" {
		t.Errorf("record 1 = %+v", r)
	}
}

func TestReadCSV_CustomSchemaAndDelimiter(t *testing.T) {
	content := "\ufeffLieu,Type,Avis,Jour\nVillers,Ovin,Loup,2020-01-01\n"
	opts := Options{
		Delimiter: ",",
		Schema: Schema{
			Commune:    []string{"Lieu"},
			Species:    []string{"Type"},
			Conclusion: []string{"Avis"},
			Date:       []string{"Jour"},
		},
	}
	ds, err := ReadCSV(strings.NewReader(content), opts)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	r := ds.Records[0]
	if r.Commune != "Villers" || r.Species != "Ovin" || r.Conclusion != "Loup" || r.Date != "2020-01-01" {
		t.Errorf("record = %+v", r)
	}
	if len(ds.Missing) != 1 || ds.Missing[0] != "indemnisation" {
		t.Errorf("Missing = %v, want [indemnisation]", ds.Missing)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "constats.ods"), Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ods: err = %v, want ErrUnsupportedFormat", err)
	}

	if _, err := Open(filepath.Join(dir, "absent.xlsx"), Options{}); err == nil {
		t.Error("expected error for a missing file")
	}

	path := filepath.Join(dir, "constats.xlsx")
	data := buildWorkbook(t, [][]interface{}{{"Commune"}, {"Villers"}})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ds.Source != path || ds.Len() != 1 {
		t.Errorf("dataset = %s/%d", ds.Source, ds.Len())
	}
}

func TestReadXLSX_DateCells(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(wb.GetActiveSheetIndex())
	code := "dd/mm/yyyy"
	dateStyle, err := wb.NewStyle(&excelize.Style{CustomNumFmt: &code})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	cells := []struct {
		cell  string
		value interface{}
	}{
		{"A1", "Commune"}, {"B1", "Date du constat"},
		{"A2", "Villers"}, {"B2", 2021},
		{"A3", "Villers"}, {"B3", "2021"},
		{"A4", "Villers"}, {"B4", 44270},
		{"A5", "Villers"}, {"B5", 44270},
		{"A6", "Villers"}, {"B6", "15/13/2021"},
	}
	for _, c := range cells {
		if err := wb.SetCellValue(sheet, c.cell, c.value); err != nil {
			t.Fatalf("SetCellValue %s: %v", c.cell, err)
		}
	}
	if err := wb.SetCellStyle(sheet, "B4", "B4", dateStyle); err != nil {
		t.Fatalf("SetCellStyle: %v", err)
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	ds, err := ReadXLSX(bytes.NewReader(buf.Bytes()), Options{})
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	want := []string{"2021", "2021", "15/03/2021", "44270", "15/13/2021"}
	if ds.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", ds.Len(), len(want))
	}
	for i, w := range want {
		if got := ds.Records[i].Date; got != w {
			t.Errorf("row %d date = %q, want %q", ds.Records[i].ID, got, w)
		}
	}

	// A bare year is not a date: the record stays undated.
	for _, n := range NormalizeAll(ds.Records[:2]) {
		if n.Dated {
			t.Errorf("record %d dated from %q", n.ID, n.Date)
		}
	}
}

func TestDateCode(t *testing.T) {
	tests := map[string]bool{
		"dd/mm/yyyy":      true,
		"[$-40C]d mmmm y": true,
		"0.00":            false,
		`"day" 0`:         false,
		"hh:mm":           false,
		`\d0`:            false,
	}
	for code, want := range tests {
		if got := dateCode(code); got != want {
			t.Errorf("dateCode(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestSerialDate(t *testing.T) {
	tests := map[string]string{
		"44270":      "15/03/2021",
		"15/03/2021": "15/03/2021",
		"":           "",
		"0":          "0",
	}
	for in, want := range tests {
		if got := serialDate(in); got != want {
			t.Errorf("serialDate(%q) = %q, want %q", in, got, want)
		}
	}
}
