package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/constats/pkg/gazetteer"
)

func init() {
	Register(&communesGeoJSONAdapter{})
}

type communesGeoJSONAdapter struct{}

func (a *communesGeoJSONAdapter) ID() string          { return "communes-geojson-fr" }
func (a *communesGeoJSONAdapter) GazetteerID() string { return "communes-fr" }
func (a *communesGeoJSONAdapter) Description() string { return "Contours des communes de France (GeoJSON)" }
func (a *communesGeoJSONAdapter) DefaultURL() string {
	return "https://raw.githubusercontent.com/gregoiredavid/france-geojson/master/communes.geojson"
}
func (a *communesGeoJSONAdapter) License() string { return "Licence Ouverte 2.0" }

func (a *communesGeoJSONAdapter) manifest(sourceURL string) *gazetteer.Manifest {
	return &gazetteer.Manifest{
		ID:        a.GazetteerID(),
		Version:   time.Now().Format("2006-01"),
		Source:    "france-geojson",
		SourceURL: sourceURL,
		License:   a.License(),
		DataFile:  "communes.geojson",
		Format:    gazetteer.FormatSpec{Type: gazetteer.FormatGeoJSON},
		Fields: gazetteer.FieldSpec{
			Code: append([]string{"code"}, gazetteer.DefaultCodeFields...),
			Name: append([]string{"nom"}, gazetteer.DefaultNameFields...),
		},
	}
}

func (a *communesGeoJSONAdapter) Import(ctx context.Context, sourceURL, outputDir string) error {
	dlDir := filepath.Join(outputDir, "_download")
	if err := ensureDir(dlDir); err != nil {
		return err
	}
	defer os.RemoveAll(dlDir)

	path := filepath.Join(dlDir, "communes.geojson")
	fmt.Printf("  telechargement %s...\n", sourceURL)
	if err := downloadFile(ctx, sourceURL, path); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	m := a.manifest(sourceURL)
	idx, err := gazetteer.LoadFile(path, m)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	fmt.Printf("  %d communes\n", idx.Len())

	return writeGazetteer(filepath.Join(outputDir, a.GazetteerID()), idx, m)
}
