package gazetteer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default field aliases, tried in order; the first one present in the dataset wins.
var (
	DefaultCodeFields       = []string{"INSEE", "CODE_INSEE", "code_insee", "INSEE_COM"}
	DefaultNameFields       = []string{"NOM", "NOM_COM", "nom", "NOM_COMM"}
	DefaultDepartmentFields = []string{"INSEE_DEP", "DEP", "CODE_DEP"}
	DefaultGeometryFields   = []string{"WKT", "wkt", "geometry", "GEOMETRIE"}
)

// Data formats.
const (
	FormatGeoJSON = "geojson"
	FormatCSV     = "csv"
)

// Manifest describes a gazetteer: its source, format, and how to read it.
type Manifest struct {
	ID        string     `yaml:"id" json:"id"`
	Version   string     `yaml:"version" json:"version"`
	Source    string     `yaml:"source" json:"source"`
	SourceURL string     `yaml:"source_url" json:"source_url,omitempty"`
	License   string     `yaml:"license" json:"license"`
	DataFile  string     `yaml:"data_file" json:"data_file"`
	Format    FormatSpec `yaml:"format" json:"-"`
	Fields    FieldSpec  `yaml:"fields" json:"-"`
	Filter    FilterSpec `yaml:"filter,omitempty" json:"-"`
}

// FormatSpec describes the data file layout.
type FormatSpec struct {
	Type      string `yaml:"type"`
	Delimiter string `yaml:"delimiter,omitempty"`
	Encoding  string `yaml:"encoding,omitempty"`
}

// FieldSpec lists the accepted column names per logical field.
type FieldSpec struct {
	Code       []string `yaml:"code,omitempty"`
	Name       []string `yaml:"name,omitempty"`
	Department []string `yaml:"department,omitempty"`
	Geometry   []string `yaml:"geometry,omitempty"`
}

// FilterSpec restricts which rows are indexed.
type FilterSpec struct {
	Departments []string `yaml:"departments,omitempty"`
}

// DefaultManifest returns a manifest for dataPath with the default aliases.
func DefaultManifest(dataPath string) *Manifest {
	m := &Manifest{
		ID:       strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath)),
		DataFile: filepath.Base(dataPath),
	}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if len(m.Fields.Code) == 0 {
		m.Fields.Code = DefaultCodeFields
	}
	if len(m.Fields.Name) == 0 {
		m.Fields.Name = DefaultNameFields
	}
	if len(m.Fields.Department) == 0 {
		m.Fields.Department = DefaultDepartmentFields
	}
	if len(m.Fields.Geometry) == 0 {
		m.Fields.Geometry = DefaultGeometryFields
	}
	if m.Format.Type == "" {
		m.Format.Type = formatFromExt(m.DataFile)
	}
}

func formatFromExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	default:
		return FormatGeoJSON
	}
}

// LoadManifest reads and parses a manifest.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	if m.DataFile == "" {
		m.DataFile = "communes.geojson"
	}
	m.applyDefaults()
	switch m.Format.Type {
	case FormatGeoJSON, FormatCSV:
	default:
		return nil, fmt.Errorf("manifest %s: unknown format %q", path, m.Format.Type)
	}
	return &m, nil
}

// WriteManifest writes m as YAML to dir/manifest.yaml.
func WriteManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "manifest.yaml"), data, 0o644)
}
