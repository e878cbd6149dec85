package category

import "github.com/hazyhaar/constats/pkg/textnorm"

// DefaultColor is used for conclusions outside the catalog.
const DefaultColor = "grey"

// Style is the symbol a rendering collaborator draws for one record.
type Style struct {
	Color string `json:"color"`
	Shape string `json:"shape"`
}

// ConclusionColor pairs a known conclusion with its marker colour.
type ConclusionColor struct {
	Conclusion string `json:"conclusion"`
	Color      string `json:"color"`
}

var conclusionColors = []ConclusionColor{
	{Compensated, "lightblue"},
	{Uncompensated, "darkblue"},
	{"Grands prédateurs écartés", "green"},
	{"Lynx non écarté", "orange"},
	{"Loup non écarté", "darkred"},
	{"Indéterminé", "grey"},
	{"Prédation exclue", "pink"},
	{"attente conclusions", "yellow"},
}

var speciesShapes = map[string]string{
	"Bovin":    "circle",
	"Caprin":   "square",
	"Equin":    "triangle",
	"Ovin":     "diamond",
	"Avicole":  "pentagon",
	"Porcin":   "hexagon",
	"Cunicole": "star",
	"Canin":    "cross",
	Other:      "circle",
}

// keyed by normalized conclusion so spelling variants share a colour
var colorByConclusion = func() map[string]string {
	m := make(map[string]string, len(conclusionColors))
	for _, cc := range conclusionColors {
		m[textnorm.Normalize(cc.Conclusion)] = cc.Color
	}
	return m
}()

// Color returns the marker colour of a refined conclusion.
func Color(conclusion string) string {
	if c, ok := colorByConclusion[textnorm.Normalize(conclusion)]; ok {
		return c
	}
	return DefaultColor
}

// Shape returns the marker shape of a species category.
func Shape(species string) string {
	if s, ok := speciesShapes[species]; ok {
		return s
	}
	return speciesShapes[Other]
}

// StyleFor combines Color and Shape.
func StyleFor(conclusion, species string) Style {
	return Style{Color: Color(conclusion), Shape: Shape(species)}
}

// Legend returns the conclusion colour catalog in display order.
func Legend() []ConclusionColor {
	out := make([]ConclusionColor, len(conclusionColors))
	copy(out, conclusionColors)
	return out
}
