package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/constats/pkg/gazetteer"
)

func init() {
	Register(&inseeCOGAdapter{})
}

// inseeCOGAdapter imports the INSEE Code Officiel Géographique. The COG has
// no boundaries: matching works, layers are exported without geometry.
type inseeCOGAdapter struct{}

func (a *inseeCOGAdapter) ID() string          { return "insee-cog-communes" }
func (a *inseeCOGAdapter) GazetteerID() string { return "cog-communes-fr" }
func (a *inseeCOGAdapter) Description() string { return "INSEE COG communes de France (sans contours)" }
func (a *inseeCOGAdapter) DefaultURL() string {
	return "https://www.insee.fr/fr/statistiques/fichier/7766585/v_commune_2024.csv"
}
func (a *inseeCOGAdapter) License() string { return "Licence Ouverte 2.0" }

func (a *inseeCOGAdapter) Import(ctx context.Context, sourceURL, outputDir string) error {
	dlDir := filepath.Join(outputDir, "_download")
	if err := ensureDir(dlDir); err != nil {
		return err
	}
	defer os.RemoveAll(dlDir)

	name := "communes.csv"
	if strings.HasSuffix(strings.ToLower(sourceURL), ".zip") {
		name = "communes.zip"
	}
	dlPath := filepath.Join(dlDir, name)
	fmt.Printf("  telechargement %s...\n", sourceURL)
	if err := downloadFile(ctx, sourceURL, dlPath); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	csvPath := dlPath
	if name == "communes.zip" {
		files, err := unzipFile(dlPath, dlDir)
		if err != nil {
			return fmt.Errorf("unzip: %w", err)
		}
		var ok bool
		if csvPath, ok = firstWithExt(files, ".csv"); !ok {
			return fmt.Errorf("no CSV file in %s", sourceURL)
		}
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()
	entries, err := parseCOG(f)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	fmt.Printf("  %d communes\n", len(entries))

	return writeGazetteer(filepath.Join(outputDir, a.GazetteerID()), gazetteer.Build(entries), &gazetteer.Manifest{
		ID:        a.GazetteerID(),
		Version:   time.Now().Format("2006-01"),
		Source:    "INSEE COG",
		SourceURL: sourceURL,
		License:   a.License(),
		DataFile:  "v_commune.csv",
		Format:    gazetteer.FormatSpec{Type: gazetteer.FormatCSV, Delimiter: ","},
		Fields: gazetteer.FieldSpec{
			Code:       []string{"COM"},
			Name:       []string{"LIBELLE", "NCCENR"},
			Department: []string{"DEP"},
		},
	})
}

// parseCOG reads the COG CSV (comma-delimited). Columns include COM,
// TYPECOM, LIBELLE and DEP. Delegated and associated communes
// (TYPECOM COMD, COMA) are skipped.
func parseCOG(r io.Reader) ([]gazetteer.Entry, error) {
	cr := csv.NewReader(r)
	cr.Comma = ','
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	colIdx := make(map[string]int)
	for i, h := range header {
		colIdx[strings.TrimSpace(strings.ToUpper(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	col := func(names ...string) int {
		for _, n := range names {
			if i, ok := colIdx[n]; ok {
				return i
			}
		}
		return -1
	}
	comCol := col("COM")
	nameCol := col("LIBELLE", "NCCENR", "NCC")
	depCol := col("DEP")
	typeCol := col("TYPECOM")
	if comCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("no COM/LIBELLE column in header %v", header)
	}

	cell := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var entries []gazetteer.Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if tc := cell(rec, typeCol); tc != "" && tc != "COM" {
			continue
		}
		code := cell(rec, comCol)
		if code == "" {
			continue
		}
		entries = append(entries, gazetteer.Entry{
			Code:       code,
			Name:       cell(rec, nameCol),
			Department: cell(rec, depCol),
		})
	}
	return entries, nil
}
