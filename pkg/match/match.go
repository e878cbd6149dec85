// Package match resolves free-text commune names to official codes.
//
// Resolution order, first success wins:
//  1. alias override (known renamed communes)
//  2. exact match on normalized names (first entry in index order)
//  3. close match: best sequence ratio >= CloseCutoff over normalized names
//  4. similarity pass: best sequence ratio >= MinSimilarity over canonical
//     (uppercase, punctuation-free) names, first maximum wins
package match

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/hazyhaar/constats/pkg/gazetteer"
	"github.com/hazyhaar/constats/pkg/textnorm"
)

// Method tells which step resolved a name.
type Method string

const (
	MethodNone       Method = ""
	MethodAlias      Method = "alias"
	MethodExact      Method = "exact"
	MethodClose      Method = "close"
	MethodSimilarity Method = "similarity"
)

// Default thresholds.
const (
	DefaultCloseCutoff   = 0.8
	DefaultMinSimilarity = 0.6
)

// DefaultAliases maps names missing from or misspelled in the gazetteer to
// their official code. Val-Larrey is the merger of Flée and Juilly.
var DefaultAliases = map[string]string{
	"Val-Larrey (ex Flée)": "21272",
}

// Options tunes a Matcher. Zero values select the defaults.
type Options struct {
	CloseCutoff   float64
	MinSimilarity float64
	// Aliases replace DefaultAliases when non-nil.
	Aliases map[string]string
}

// Result is the outcome of matching one name. Code is empty when unmatched.
type Result struct {
	Input  string  `json:"input"`
	Code   string  `json:"code,omitempty"`
	Name   string  `json:"name,omitempty"`
	Method Method  `json:"method,omitempty"`
	Score  float64 `json:"score"`
}

// Matched reports whether a code was found.
func (r Result) Matched() bool {
	return r.Code != ""
}

type candidate struct {
	code       string
	normalized string
	normRunes  []string
	canonRunes []string
}

// Matcher matches names against a fixed index. It is safe for concurrent use.
type Matcher struct {
	idx        *gazetteer.Index
	opts       Options
	aliases    map[string]string
	exact      map[string]string
	candidates []candidate
}

// New precomputes the normalized and canonical forms of every index entry.
func New(idx *gazetteer.Index, opts Options) *Matcher {
	if opts.CloseCutoff <= 0 {
		opts.CloseCutoff = DefaultCloseCutoff
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = DefaultMinSimilarity
	}
	aliases := opts.Aliases
	if aliases == nil {
		aliases = DefaultAliases
	}

	m := &Matcher{
		idx:     idx,
		opts:    opts,
		aliases: make(map[string]string, len(aliases)),
		exact:   make(map[string]string, idx.Len()),
	}
	for name, code := range aliases {
		m.aliases[textnorm.Normalize(name)] = code
	}
	idx.Each(func(e *gazetteer.Entry) bool {
		n := textnorm.Normalize(e.Name)
		if _, seen := m.exact[n]; !seen {
			m.exact[n] = e.Code
		}
		m.candidates = append(m.candidates, candidate{
			code:       e.Code,
			normalized: n,
			normRunes:  splitRunes(n),
			canonRunes: splitRunes(textnorm.Canonical(e.Name)),
		})
		return true
	})
	return m
}

// Index returns the index the matcher was built on.
func (m *Matcher) Index() *gazetteer.Index {
	return m.idx
}

// Match resolves name. It never fails: an unmatched name yields a Result
// with an empty Code and the best similarity seen in Score.
func (m *Matcher) Match(name string) Result {
	res := Result{Input: name}
	normalized := textnorm.Normalize(name)
	if normalized == "" {
		return res
	}

	if code, ok := m.aliases[normalized]; ok {
		return m.resolved(res, code, MethodAlias, 1)
	}

	if code, ok := m.exact[normalized]; ok {
		return m.resolved(res, code, MethodExact, 1)
	}

	if best, score, ok := m.closeMatch(normalized); ok {
		return m.resolved(res, m.exact[best], MethodClose, score)
	}

	code, score := m.bestSimilarity(textnorm.Canonical(name))
	if code != "" && score >= m.opts.MinSimilarity {
		return m.resolved(res, code, MethodSimilarity, score)
	}
	if score > 0 {
		res.Score = score
	}
	return res
}

func (m *Matcher) resolved(res Result, code string, method Method, score float64) Result {
	res.Code = code
	res.Method = method
	res.Score = score
	if e, ok := m.idx.Lookup(code); ok {
		res.Name = e.Name
	}
	return res
}

// closeMatch returns the best normalized name with ratio >= CloseCutoff.
// Ties go to the greater string, as with difflib's get_close_matches.
func (m *Matcher) closeMatch(word string) (string, float64, bool) {
	cutoff := m.opts.CloseCutoff
	sm := difflib.NewMatcher(nil, nil)
	sm.SetSeq2(splitRunes(word))

	var (
		best      string
		bestScore float64
		found     bool
	)
	for _, c := range m.candidates {
		sm.SetSeq1(c.normRunes)
		if sm.RealQuickRatio() < cutoff || sm.QuickRatio() < cutoff {
			continue
		}
		r := sm.Ratio()
		if r < cutoff {
			continue
		}
		if !found || r > bestScore || (r == bestScore && c.normalized > best) {
			best, bestScore, found = c.normalized, r, true
		}
	}
	return best, bestScore, found
}

// bestSimilarity scans every candidate with a non-empty canonical name; only
// a strictly greater ratio replaces the current best.
func (m *Matcher) bestSimilarity(canonical string) (string, float64) {
	input := splitRunes(canonical)
	sm := difflib.NewMatcher(nil, nil)

	bestCode := ""
	maxSim := -1.0
	for _, c := range m.candidates {
		if len(c.canonRunes) == 0 {
			continue
		}
		sm.SetSeqs(input, c.canonRunes)
		if sim := sm.Ratio(); sim > maxSim {
			maxSim = sim
			bestCode = c.code
		}
	}
	return bestCode, maxSim
}

func splitRunes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}
