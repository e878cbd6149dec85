package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeSource struct {
	id, gazID, desc, url, license string
}

func (f *fakeSource) ID() string          { return f.id }
func (f *fakeSource) GazetteerID() string { return f.gazID }
func (f *fakeSource) Description() string { return f.desc }
func (f *fakeSource) DefaultURL() string  { return f.url }
func (f *fakeSource) License() string     { return f.license }

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "constats.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
	sources, err := s.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("expected 0 sources, got %d", len(sources))
	}
	runs, err := s.ListRuns(context.Background(), RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected 0 runs, got %d", len(runs))
	}
}

func TestSeedAndGetURL(t *testing.T) {
	s := tempStore(t)

	if err := s.Seed([]SourceInfo{
		&fakeSource{"a1", "g1", "desc1", "https://example.com/a1", "Etalab-2.0"},
		&fakeSource{"a2", "g2", "desc2", "https://example.com/a2", "ODbL"},
	}); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	url, err := s.GetURL("a1")
	if err != nil {
		t.Fatalf("GetURL: %v", err)
	}
	if url != "https://example.com/a1" {
		t.Fatalf("url = %s", url)
	}

	// A second seed must not overwrite.
	if err := s.Seed([]SourceInfo{&fakeSource{"a1", "g1", "desc1", "https://other.com/a1", "Etalab-2.0"}}); err != nil {
		t.Fatalf("Seed again: %v", err)
	}
	url, _ = s.GetURL("a1")
	if url != "https://example.com/a1" {
		t.Fatalf("seed overwrote url: %s", url)
	}

	if _, err := s.GetURL("missing"); err == nil {
		t.Fatal("expected error for unknown adapter")
	}
}

func TestSetURL(t *testing.T) {
	s := tempStore(t)
	if err := s.Seed([]SourceInfo{&fakeSource{"a1", "g1", "d", "https://example.com/old", "x"}}); err != nil {
		t.Fatal(err)
	}

	if err := s.SetURL("a1", "https://example.com/new"); err != nil {
		t.Fatalf("SetURL: %v", err)
	}
	url, _ := s.GetURL("a1")
	if url != "https://example.com/new" {
		t.Fatalf("url = %s", url)
	}

	if err := s.SetURL("nope", "https://x"); err == nil {
		t.Fatal("expected error for unknown adapter")
	}
}

func TestUpdateCheckAndList(t *testing.T) {
	s := tempStore(t)
	if err := s.Seed([]SourceInfo{
		&fakeSource{"b", "g2", "d2", "https://example.com/b", "x"},
		&fakeSource{"a", "g1", "d1", "https://example.com/a", "y"},
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateCheck("a", 200, ""); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}
	if err := s.UpdateCheck("b", 0, "timeout"); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}

	sources, err := s.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 2 || sources[0].AdapterID != "a" || sources[1].AdapterID != "b" {
		t.Fatalf("sources = %+v", sources)
	}
	a, b := sources[0], sources[1]
	if a.LastStatus == nil || *a.LastStatus != 200 || a.LastError != nil {
		t.Errorf("a = %+v", a)
	}
	if a.GazetteerID != "g1" {
		t.Errorf("a.GazetteerID = %s", a.GazetteerID)
	}
	if b.LastError == nil || *b.LastError != "timeout" {
		t.Errorf("b = %+v", b)
	}
}

func TestSaveRun(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := Run{
		ReportPath:    "constats.xlsx",
		GazetteerPath: "communes.geojson",
		Records:       3,
		Matched:       2,
		Unmatched:     1,
		Months:        1,
		StartedAt:     start,
		FinishedAt:    start.Add(2 * time.Second),
	}
	matches := []RunMatch{
		{RecordID: 3, Commune: "Villerss", Code: "21001", Method: "close", Score: 0.93},
		{RecordID: 2, Commune: "VILLERS", Code: "21001", Method: "exact", Score: 1},
		{RecordID: 4, Commune: "Paris"},
	}

	id, err := s.SaveRun(ctx, run, matches)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id == "" {
		t.Fatal("empty run id")
	}

	got, err := s.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Records != 3 || got.Matched != 2 || !got.StartedAt.Equal(start) {
		t.Errorf("run = %+v", got)
	}

	ms, err := s.RunMatches(ctx, id)
	if err != nil {
		t.Fatalf("RunMatches: %v", err)
	}
	if len(ms) != 3 || ms[0].RecordID != 2 || ms[2].Code != "" {
		t.Errorf("matches = %+v", ms)
	}

	if _, err := s.GetRun(ctx, "unknown"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestSaveRun_DuplicateRecordRollsBack(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	run := Run{ID: NewRunID(), StartedAt: time.Now(), FinishedAt: time.Now()}
	_, err := s.SaveRun(ctx, run, []RunMatch{{RecordID: 2, Commune: "A"}, {RecordID: 2, Commune: "B"}})
	if err == nil {
		t.Fatal("expected primary key violation")
	}
	if _, err := s.GetRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("run persisted after failed transaction: %v", err)
	}
}

func TestListRuns_Order(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		report := "a.xlsx"
		if i == 1 {
			report = "b.xlsx"
		}
		if _, err := s.SaveRun(ctx, Run{ReportPath: report, StartedAt: at, FinishedAt: at}, nil); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx, RunFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("runs not newest first: %v, %v", runs[0].StartedAt, runs[1].StartedAt)
	}

	runs, _ = s.ListRuns(ctx, RunFilter{Since: base.Add(time.Hour)})
	if len(runs) != 2 {
		t.Errorf("since filter: got %d runs, want 2", len(runs))
	}
	runs, _ = s.ListRuns(ctx, RunFilter{ReportPath: "b.xlsx"})
	if len(runs) != 1 {
		t.Errorf("report filter: got %d runs, want 1", len(runs))
	}
}
