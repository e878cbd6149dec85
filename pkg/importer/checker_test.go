package importer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/constats/pkg/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeAdapter implements Adapter for seeding.
type fakeAdapter struct {
	id, gazID, desc, url, license string
}

func (f *fakeAdapter) ID() string          { return f.id }
func (f *fakeAdapter) GazetteerID() string { return f.gazID }
func (f *fakeAdapter) Description() string { return f.desc }
func (f *fakeAdapter) DefaultURL() string  { return f.url }
func (f *fakeAdapter) License() string     { return f.license }
func (f *fakeAdapter) Import(context.Context, string, string) error {
	return nil
}

func seededStore(t *testing.T, adapters ...Adapter) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "constats.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	infos := make([]store.SourceInfo, len(adapters))
	for i, a := range adapters {
		infos[i] = a
	}
	if err := s.Seed(infos); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return s
}

func statusServer(code int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code == http.StatusMovedPermanently {
			w.Header().Set("Location", "https://example.com/new")
		}
		w.WriteHeader(code)
	}))
}

func TestCheckAll(t *testing.T) {
	codes := []int{http.StatusOK, http.StatusMovedPermanently, http.StatusNotFound, http.StatusInternalServerError}
	var adapters []Adapter
	for _, code := range codes {
		srv := statusServer(code)
		defer srv.Close()
		adapters = append(adapters, &fakeAdapter{http.StatusText(code), "g", "d", srv.URL, "x"})
	}
	s := seededStore(t, adapters...)

	ok, failed := NewChecker(s, quiet, time.Hour).CheckAll(context.Background())
	if ok != 2 || failed != 2 {
		t.Errorf("ok=%d failed=%d, want 2/2", ok, failed)
	}

	sources, err := s.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	got := make(map[string]int)
	for _, src := range sources {
		if src.LastStatus != nil {
			got[src.AdapterID] = *src.LastStatus
		}
	}
	for _, code := range codes {
		// Redirects are not followed.
		if got[http.StatusText(code)] != code {
			t.Errorf("%s: status %d, want %d", http.StatusText(code), got[http.StatusText(code)], code)
		}
	}
}

func TestCheckAll_NetworkError(t *testing.T) {
	s := seededStore(t, &fakeAdapter{"dead", "g", "d", "http://127.0.0.1:1", "x"})

	_, failed := NewChecker(s, quiet, time.Hour).CheckAll(context.Background())
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	sources, _ := s.ListSources()
	src := sources[0]
	if src.LastStatus == nil || *src.LastStatus != 0 {
		t.Errorf("expected status 0 for network error, got %v", src.LastStatus)
	}
	if src.LastError == nil || *src.LastError == "" {
		t.Error("expected non-empty last_error")
	}
}

func TestCheckAll_Empty(t *testing.T) {
	s := seededStore(t)
	if ok, failed := NewChecker(s, quiet, time.Hour).CheckAll(context.Background()); ok+failed != 0 {
		t.Errorf("checked %d sources on empty store", ok+failed)
	}
}

func TestRegistry(t *testing.T) {
	all := All()
	if len(all) < 2 {
		t.Fatalf("registered adapters = %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID() >= all[i].ID() {
			t.Errorf("adapters not sorted: %s >= %s", all[i-1].ID(), all[i].ID())
		}
	}
	for _, id := range []string{"communes-geojson-fr", "insee-cog-communes"} {
		a, err := Get(id)
		if err != nil {
			t.Errorf("Get(%s): %v", id, err)
			continue
		}
		if a.GazetteerID() == "" || a.DefaultURL() == "" {
			t.Errorf("%s: incomplete adapter", id)
		}
	}
	if _, err := Get("unknown"); err == nil {
		t.Error("expected error for unknown adapter")
	}
}
