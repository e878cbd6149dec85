package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/constats/pkg/gazetteer"
)

func TestDownloadFile(t *testing.T) {
	content := "hello world"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "test.txt")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", string(data), content)
	}
}

func TestDownloadFile_Retry(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "retry.txt")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile with retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDownloadFile_AllFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "fail.txt")
	err := downloadFile(context.Background(), ts.URL, dest)
	if err == nil {
		t.Error("expected error after all retries exhausted")
	}
}

func TestWriteGazetteer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "communes-fr")
	idx := gazetteer.Build([]gazetteer.Entry{
		{Code: "21001", Name: "Villers"},
		{Code: "21002", Name: "Saint-Apollinaire"},
	})
	m := &gazetteer.Manifest{ID: "communes-fr", Version: "2024-01", DataFile: "communes.geojson"}

	if err := writeGazetteer(dir, idx, m); err != nil {
		t.Fatalf("writeGazetteer: %v", err)
	}

	loaded, err := gazetteer.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 2 || loaded.Info().ID != "communes-fr" {
		t.Errorf("loaded = %+v", loaded.Info())
	}
	if e, ok := loaded.Lookup("21002"); !ok || e.Name != "Saint-Apollinaire" {
		t.Errorf("Lookup(21002) = %+v, %v", e, ok)
	}

	if err := writeGazetteer(t.TempDir(), gazetteer.Build(nil), m); err == nil {
		t.Error("expected error for empty index")
	}
}

func TestFirstWithExt(t *testing.T) {
	p, ok := firstWithExt([]string{"a/readme.txt", "a/v_commune.CSV", "b.csv"}, ".csv")
	if !ok || p != "a/v_commune.CSV" {
		t.Errorf("got %q, %v", p, ok)
	}
	if _, ok := firstWithExt([]string{"x.txt"}, ".csv"); ok {
		t.Error("expected no match")
	}
}
