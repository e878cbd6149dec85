package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned by GetRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded pipeline execution.
type Run struct {
	ID            string    `json:"id"`
	ReportPath    string    `json:"report_path"`
	GazetteerPath string    `json:"gazetteer_path"`
	OutputDir     string    `json:"output_dir,omitempty"`
	Records       int       `json:"records"`
	Matched       int       `json:"matched"`
	Unmatched     int       `json:"unmatched"`
	Months        int       `json:"months"`
	Exclusions    int       `json:"exclusions"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// RunMatch is the join outcome of one record. Code is empty when unmatched.
type RunMatch struct {
	RecordID int     `json:"record_id"`
	Commune  string  `json:"commune"`
	Code     string  `json:"code,omitempty"`
	Method   string  `json:"method,omitempty"`
	Score    float64 `json:"score"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// SaveRun stores a run and its per-record matches in one transaction. An
// empty run ID is replaced by a new one; the ID used is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, matches []RunMatch) (string, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, report_path, gazetteer_path, output_dir, records, matched, unmatched, months, exclusions, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ReportPath, run.GazetteerPath, run.OutputDir,
		run.Records, run.Matched, run.Unmatched, run.Months, run.Exclusions,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_matches
		(run_id, record_id, commune, code, method, score) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare matches: %w", err)
	}
	defer stmt.Close()
	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx, run.ID, m.RecordID, m.Commune, m.Code, m.Method, m.Score); err != nil {
			return "", fmt.Errorf("insert match %d: %w", m.RecordID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return run.ID, nil
}

var runColumns = []string{"id", "report_path", "gazetteer_path", "output_dir", "records", "matched",
	"unmatched", "months", "exclusions", "started_at", "finished_at"}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                 Run
		started, finished int64
	)
	err := sc.Scan(&r.ID, &r.ReportPath, &r.GazetteerPath, &r.OutputDir, &r.Records, &r.Matched,
		&r.Unmatched, &r.Months, &r.Exclusions, &started, &finished)
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = time.UnixMilli(started)
	r.FinishedAt = time.UnixMilli(finished)
	return r, nil
}

// RunFilter narrows ListRuns. Zero fields place no constraint.
type RunFilter struct {
	ReportPath string
	Since      time.Time
	Limit      int
}

// ListRuns returns the runs matching f, most recent first.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	q := sq.Select(runColumns...).From("runs").OrderBy("started_at DESC", "id")
	if f.ReportPath != "" {
		q = q.Where(sq.Eq{"report_path": f.ReportPath})
	}
	if !f.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"started_at": f.Since.UnixMilli()})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build runs query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	query, args, err := sq.Select(runColumns...).From("runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Run{}, fmt.Errorf("build run query: %w", err)
	}
	r, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// RunMatches returns the per-record matches of a run in record order.
func (s *Store) RunMatches(ctx context.Context, runID string) ([]RunMatch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record_id, commune, code, method, score
		FROM run_matches WHERE run_id = ? ORDER BY record_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []RunMatch
	for rows.Next() {
		var m RunMatch
		if err := rows.Scan(&m.RecordID, &m.Commune, &m.Code, &m.Method, &m.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
