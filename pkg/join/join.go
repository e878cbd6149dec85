// Package join attaches report records to communes and reports the records
// that could not be attached.
package join

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hazyhaar/constats/pkg/constat"
	"github.com/hazyhaar/constats/pkg/match"
)

// UnknownCommune is the attempted name of records without any commune text.
const UnknownCommune = "Inconnue"

// NoUnmatchedMessage is the report text when every record was joined.
const NoUnmatchedMessage = "Aucun constat non joint trouvé."

// Match is a record attached to a gazetteer entry.
type Match struct {
	ID     int          `json:"id"`
	Code   string       `json:"code"`
	Name   string       `json:"nom_insee"`
	Input  string       `json:"nom_init"`
	Method match.Method `json:"method"`
	Score  float64      `json:"score"`
}

// Unmatched is a record the matcher could not resolve.
type Unmatched struct {
	ID         int     `json:"id"`
	Commune    string  `json:"commune"`
	Conclusion string  `json:"conclusion"`
	Species    string  `json:"espece"`
	Score      float64 `json:"score"`
}

// Result partitions the records. Both lists follow record order.
type Result struct {
	Matched   []Match
	Unmatched []Unmatched
	byID      map[int]int
}

// Lookup returns the match of record id.
func (r *Result) Lookup(id int) (Match, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Match{}, false
	}
	return r.Matched[i], true
}

// Join matches every record. A code returned by the matcher but absent from
// the index (e.g. an alias to a commune outside the dataset) is unmatched.
func Join(records []constat.Record, m *match.Matcher, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.Default()
	}
	idx := m.Index()
	res := &Result{byID: make(map[int]int)}

	for _, rec := range records {
		name := strings.TrimSpace(rec.Commune)
		if name == "" {
			res.Unmatched = append(res.Unmatched, unmatched(rec, UnknownCommune, 0))
			logger.Debug("no commune", "id", rec.ID)
			continue
		}

		r := m.Match(name)
		if !r.Matched() || !idx.Contains(r.Code) {
			res.Unmatched = append(res.Unmatched, unmatched(rec, name, r.Score))
			logger.Debug("commune not matched", "id", rec.ID, "commune", name, "best_score", r.Score)
			continue
		}

		e, _ := idx.Lookup(r.Code)
		res.byID[rec.ID] = len(res.Matched)
		res.Matched = append(res.Matched, Match{
			ID:     rec.ID,
			Code:   r.Code,
			Name:   e.Name,
			Input:  name,
			Method: r.Method,
			Score:  r.Score,
		})
		logger.Debug("commune matched", "id", rec.ID, "commune", name, "code", r.Code, "method", r.Method)
	}

	logger.Info("join done", "matched", len(res.Matched), "unmatched", len(res.Unmatched))
	return res
}

func unmatched(rec constat.Record, name string, score float64) Unmatched {
	return Unmatched{
		ID:         rec.ID,
		Commune:    name,
		Conclusion: rec.Conclusion,
		Species:    rec.Species,
		Score:      score,
	}
}

// Report formats the unmatched list as the plain-text report.
func Report(unmatched []Unmatched) string {
	if len(unmatched) == 0 {
		return NoUnmatchedMessage
	}
	var b strings.Builder
	WriteReport(&b, unmatched)
	return b.String()
}

// WriteReport writes the unmatched report to w.
func WriteReport(w io.Writer, unmatched []Unmatched) error {
	if len(unmatched) == 0 {
		_, err := io.WriteString(w, NoUnmatchedMessage)
		return err
	}
	if _, err := fmt.Fprintf(w, "%d constats non joints aux communes:\n\n", len(unmatched)); err != nil {
		return err
	}
	for _, u := range unmatched {
		if _, err := fmt.Fprintf(w, "ID: %d, Commune: %s, Conclusion: %s, Espèce: %s\n",
			u.ID, u.Commune, u.Conclusion, u.Species); err != nil {
			return err
		}
	}
	return nil
}
