package layers

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// FeatureCollection converts the layer to GeoJSON. Each feature carries the
// commune boundary; features whose commune has no boundary are left out and
// counted in skipped.
func (l *Layer) FeatureCollection() (fc *geojson.FeatureCollection, skipped int) {
	fc = geojson.NewFeatureCollection()
	for _, ft := range l.Features {
		if ft.Boundary == nil {
			skipped++
			continue
		}
		f := geojson.NewFeature(ft.Boundary)
		f.ID = ft.ID
		f.Properties = geojson.Properties{
			"id":                   ft.ID,
			"INSEE":                ft.Code,
			"Nom_init":             ft.NomInit,
			"Nom_Insee":            ft.NomInsee,
			"C_tech_new":           ft.CTechNew,
			"Conclusion technique": ft.Conclusion,
			"Elevage":              ft.Elevage,
			"date":                 ft.Date,
			"month_key":            ft.Period.String(),
			"color":                ft.Style.Color,
			"shape":                ft.Style.Shape,
		}
		fc.Append(f)
	}
	return fc, skipped
}

// MarshalGeoJSON encodes the layer as a GeoJSON FeatureCollection.
func (l *Layer) MarshalGeoJSON() ([]byte, int, error) {
	fc, skipped := l.FeatureCollection()
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, skipped, fmt.Errorf("encode layer %s: %w", l.Name, err)
	}
	return data, skipped, nil
}
