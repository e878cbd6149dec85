package match

import (
	"testing"

	"github.com/hazyhaar/constats/pkg/gazetteer"
)

func index(pairs ...string) *gazetteer.Index {
	var entries []gazetteer.Entry
	for i := 0; i+1 < len(pairs); i += 2 {
		entries = append(entries, gazetteer.Entry{Code: pairs[i], Name: pairs[i+1]})
	}
	return gazetteer.Build(entries)
}

func TestMatch_ExactAndClose(t *testing.T) {
	m := New(index("21001", "Villers", "21002", "Saint-Apollinaire"), Options{})

	tests := []struct {
		input  string
		code   string
		method Method
	}{
		{"VILLERS", "21001", MethodExact},
		{"Villerss", "21001", MethodClose},
		{"saint apollinaire", "21002", MethodExact},
		{"Saint Apollinaire", "21002", MethodExact},
		{"St Apollinair", "21002", MethodClose},
		{"", "", MethodNone},
		{"   ", "", MethodNone},
		{"Zzzzzzzz", "", MethodNone},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r := m.Match(tt.input)
			if r.Code != tt.code || r.Method != tt.method {
				t.Errorf("Match(%q) = %q/%q, want %q/%q", tt.input, r.Code, r.Method, tt.code, tt.method)
			}
			if r.Input != tt.input {
				t.Errorf("Input = %q, want %q", r.Input, tt.input)
			}
		})
	}
}

func TestMatch_CanonicalName(t *testing.T) {
	m := New(index("21001", "Villers"), Options{})
	r := m.Match("villerss")
	if r.Name != "Villers" {
		t.Errorf("Name = %q, want Villers", r.Name)
	}
	if r.Score < 0.8 || r.Score > 1 {
		t.Errorf("Score = %v, want in [0.8, 1]", r.Score)
	}
}

func TestMatch_Alias(t *testing.T) {
	// The alias wins even when the code is not indexed.
	m := New(index("21001", "Villers"), Options{})
	r := m.Match("Val-Larrey (ex Flée)")
	if r.Code != "21272" || r.Method != MethodAlias {
		t.Errorf("Match = %q/%q, want 21272/alias", r.Code, r.Method)
	}
	if r.Name != "" {
		t.Errorf("Name = %q, want empty for an unindexed alias code", r.Name)
	}

	// Compared after normalization.
	if code := m.Match("val larrey (ex flee)").Code; code != "21272" {
		t.Errorf("normalized alias = %q, want 21272", code)
	}
}

func TestMatch_CustomAliases(t *testing.T) {
	m := New(index("21001", "Villers"), Options{Aliases: map[string]string{"Ancien Nom": "21001"}})
	r := m.Match("ancien-nom")
	if r.Code != "21001" || r.Name != "Villers" || r.Method != MethodAlias {
		t.Errorf("Match = %+v", r)
	}
	if r := m.Match("Val-Larrey (ex Flée)"); r.Method == MethodAlias {
		t.Error("custom aliases should replace the defaults")
	}
}

func TestMatch_SimilarityThreshold(t *testing.T) {
	// A ratio of exactly 0.6 is accepted.
	m := New(index("1", "ABCDE"), Options{})
	r := m.Match("ABCXY")
	if r.Code != "1" || r.Method != MethodSimilarity || r.Score != 0.6 {
		t.Errorf("Match(ABCXY) = %q/%q/%v, want 1/similarity/0.6", r.Code, r.Method, r.Score)
	}

	// 8/14 is below the threshold.
	m = New(index("1", "ABCDEF"), Options{})
	r = m.Match("ABCDXYZW")
	if r.Matched() {
		t.Errorf("Match(ABCDXYZW) = %q, want unmatched", r.Code)
	}
	if r.Score < 0.57 || r.Score > 0.58 {
		t.Errorf("Score = %v, want about 0.571", r.Score)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	// Duplicate names: first entry in index order.
	m := New(index("21001", "Villers", "21099", "VILLERS"), Options{})
	for i := 0; i < 5; i++ {
		if code := m.Match("villers").Code; code != "21001" {
			t.Fatalf("run %d: code = %q, want 21001", i, code)
		}
	}

	// Close-match tie: the greater candidate string wins.
	m = New(index("1", "Villera", "2", "Villerb"), Options{})
	if code := m.Match("Villerx").Code; code != "2" {
		t.Errorf("tie on close match = %q, want 2", code)
	}

	// Similarity tie: the first maximum is kept.
	m = New(index("1", "ABCDE", "2", "ABCDF"), Options{})
	if code := m.Match("ABCXY").Code; code != "1" {
		t.Errorf("tie on similarity = %q, want 1", code)
	}
}

func TestMatch_SkipsEmptyCanonical(t *testing.T) {
	m := New(index("1", "--", "2", "ABCDE"), Options{})
	if code := m.Match("ABCXY").Code; code != "2" {
		t.Errorf("code = %q, want 2", code)
	}
}

func TestMatch_Thresholds(t *testing.T) {
	m := New(index("1", "ABCDE"), Options{MinSimilarity: 0.7})
	if r := m.Match("ABCXY"); r.Matched() {
		t.Errorf("raised threshold should reject 0.6, got %q", r.Code)
	}
}
