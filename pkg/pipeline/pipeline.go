// Package pipeline runs a full report processing pass: load, normalize,
// join, group by month, cross-tabulate and build layers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/constats/pkg/constat"
	"github.com/hazyhaar/constats/pkg/crosstab"
	"github.com/hazyhaar/constats/pkg/gazetteer"
	"github.com/hazyhaar/constats/pkg/join"
	"github.com/hazyhaar/constats/pkg/kit"
	"github.com/hazyhaar/constats/pkg/layers"
	"github.com/hazyhaar/constats/pkg/match"
	"github.com/hazyhaar/constats/pkg/monthly"
)

// ErrEmptyDataset is returned when the report or the gazetteer has no row.
var ErrEmptyDataset = errors.New("empty dataset")

// Stage names the step that excluded a record.
type Stage string

const (
	StageJoin     Stage = "join"
	StageGroup    Stage = "group"
	StageCrosstab Stage = "crosstab"
)

// Exclusion records why a record was left out of a stage.
type Exclusion struct {
	ID     int    `json:"id"`
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// Input describes one run.
type Input struct {
	ReportPath string
	Report     constat.Options

	// GazetteerPath is a gazetteer directory or a GeoJSON/CSV file. It is
	// ignored when Gazetteer is set.
	GazetteerPath string
	Gazetteer     *gazetteer.Index

	Match  match.Options
	Logger *slog.Logger
}

// Result holds every stage output.
type Result struct {
	// RunID is the run tag carried by the context, if any.
	RunID      string
	Dataset    *constat.Dataset
	Index      *gazetteer.Index
	Records    []constat.Normalized
	Join       *join.Result
	Groups     *monthly.Groups[constat.Normalized]
	Crosstab   *crosstab.Table
	Layers     *layers.Set
	Exclusions []Exclusion
	Started    time.Time
	Finished   time.Time
}

// Summary is the short account of a run.
type Summary struct {
	Records    int `json:"records"`
	Matched    int `json:"matched"`
	Unmatched  int `json:"unmatched"`
	Months     int `json:"months"`
	Grouped    int `json:"grouped"`
	Crosstab   int `json:"crosstab"`
	Exclusions int `json:"exclusions"`
}

// Summary counts the result.
func (r *Result) Summary() Summary {
	return Summary{
		Records:    len(r.Records),
		Matched:    len(r.Join.Matched),
		Unmatched:  len(r.Join.Unmatched),
		Months:     r.Groups.Len(),
		Grouped:    r.Groups.Count(),
		Crosstab:   r.Crosstab.Records(),
		Exclusions: len(r.Exclusions),
	}
}

// Run executes every stage in order. Loading failures and empty datasets are
// fatal; record-level problems become exclusions.
func Run(ctx context.Context, in Input) (*Result, error) {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	res := &Result{RunID: kit.GetRunID(ctx), Started: time.Now()}
	if res.RunID != "" {
		logger = logger.With("run", res.RunID)
	}

	idx := in.Gazetteer
	if idx == nil {
		var err error
		idx, err = gazetteer.Open(in.GazetteerPath)
		if err != nil {
			return nil, fmt.Errorf("load gazetteer: %w", err)
		}
	}
	if idx.Len() == 0 {
		return nil, fmt.Errorf("gazetteer: %w", ErrEmptyDataset)
	}
	res.Index = idx

	opts := in.Report
	if opts.Logger == nil {
		opts.Logger = logger
	}
	ds, err := constat.Open(in.ReportPath, opts)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("report %s: %w", in.ReportPath, ErrEmptyDataset)
	}
	res.Dataset = ds
	logger.Info("datasets loaded", "records", ds.Len(), "communes", idx.Len())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Records = constat.NormalizeAll(ds.Records)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Join = join.Join(ds.Records, match.New(idx, in.Match), logger)
	for _, u := range res.Join.Unmatched {
		reason := fmt.Sprintf("commune %q not matched", u.Commune)
		if u.Commune == join.UnknownCommune {
			reason = "no commune"
		}
		res.exclude(u.ID, StageJoin, reason)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var matched []constat.Normalized
	for _, r := range res.Records {
		if !r.Dated {
			res.exclude(r.ID, StageGroup, r.DateErr.Error())
			continue
		}
		if _, ok := res.Join.Lookup(r.ID); ok {
			matched = append(matched, r)
		}
	}
	res.Groups = monthly.Group(matched, constat.ByMonth)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Crosstab = crosstab.Aggregate(res.Records)
	for _, r := range res.Records {
		if r.Dated && r.CTechNew == "" {
			res.exclude(r.ID, StageCrosstab, "empty conclusion")
		}
	}
	if err := res.Crosstab.Verify(); err != nil {
		return nil, err
	}

	res.Layers = layers.Build(res.Groups, res.Join, idx)
	res.Finished = time.Now()

	s := res.Summary()
	logger.Info("run done",
		"records", s.Records, "matched", s.Matched, "unmatched", s.Unmatched,
		"months", s.Months, "exclusions", s.Exclusions,
		"duration", res.Finished.Sub(res.Started))
	return res, nil
}

func (r *Result) exclude(id int, stage Stage, reason string) {
	r.Exclusions = append(r.Exclusions, Exclusion{ID: id, Stage: stage, Reason: reason})
}
