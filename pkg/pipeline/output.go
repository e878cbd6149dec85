package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hazyhaar/constats/pkg/category"
	"github.com/hazyhaar/constats/pkg/crosstab"
	"github.com/hazyhaar/constats/pkg/join"
	"github.com/hazyhaar/constats/pkg/layers"
)

// Output file names.
const (
	UnmatchedFile = "constats_non_joints.txt"
	CrosstabCSV   = "tableau_croise_dynamique.csv"
	CrosstabXLSX  = "tableau_croise_dynamique.xlsx"
	LayersDir     = "layers"
	AnimationFile = "animation.json"
)

// OutputOptions selects what WriteOutputs produces.
type OutputOptions struct {
	Dir       string
	TotalMode crosstab.TotalMode
	XLSX      bool
	Layers    bool
	Filter    layers.Filter
	Logger    *slog.Logger

	// StartYear drops earlier months from the animation frames (0 keeps all).
	StartYear  int
	Cumulative bool
}

// Animation is the frame sequence and legend a map viewer plays back.
type Animation struct {
	Global string                     `json:"global"`
	Frames []layers.Frame             `json:"frames"`
	Legend []category.ConclusionColor `json:"legend"`
	Shapes map[string]string          `json:"shapes"`
}

// NewAnimation describes the monthly layers of set.
func NewAnimation(set *layers.Set, startYear int, cumulative bool) Animation {
	shapes := make(map[string]string)
	for _, sp := range category.AllSpecies() {
		shapes[sp] = category.Shape(sp)
	}
	return Animation{
		Global: set.Global.Name,
		Frames: layers.Frames(set.Keys(), startYear, cumulative),
		Legend: category.Legend(),
		Shapes: shapes,
	}
}

// WriteOutputs writes the unmatched report, the crosstab and the layers
// under opts.Dir and returns the written paths. Every file is written to a
// temporary name and renamed, so a failure never leaves a truncated file.
func WriteOutputs(res *Result, opts OutputOptions) ([]string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	write := func(path string, fn func(io.Writer) error) error {
		if err := writeAtomic(path, fn); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := write(filepath.Join(opts.Dir, UnmatchedFile), func(w io.Writer) error {
		return join.WriteReport(w, res.Join.Unmatched)
	}); err != nil {
		return written, err
	}

	mode := opts.TotalMode
	if mode == "" {
		mode = crosstab.TotalLegacy
	}
	if err := write(filepath.Join(opts.Dir, CrosstabCSV), func(w io.Writer) error {
		return res.Crosstab.WriteCSV(w, mode)
	}); err != nil {
		return written, err
	}
	if opts.XLSX {
		if err := write(filepath.Join(opts.Dir, CrosstabXLSX), func(w io.Writer) error {
			return res.Crosstab.WriteXLSX(w, mode)
		}); err != nil {
			return written, err
		}
	}

	if opts.Layers {
		dir := filepath.Join(opts.Dir, LayersDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return written, fmt.Errorf("create layers dir: %w", err)
		}
		set := res.Layers
		if !opts.Filter.Empty() {
			set = set.Filter(opts.Filter)
		}
		all := append([]*layers.Layer{set.Global}, set.Monthly...)
		for _, l := range all {
			data, skipped, err := l.MarshalGeoJSON()
			if err != nil {
				return written, err
			}
			if skipped > 0 {
				logger.Warn("features without boundary left out", "layer", l.Name, "skipped", skipped)
			}
			if err := write(filepath.Join(dir, l.Name+".geojson"), func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}); err != nil {
				return written, err
			}
		}
		anim := NewAnimation(set, opts.StartYear, opts.Cumulative)
		if err := write(filepath.Join(dir, AnimationFile), func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(anim)
		}); err != nil {
			return written, err
		}
	}

	logger.Info("outputs written", "dir", opts.Dir, "files", len(written))
	return written, nil
}

// writeAtomic writes through a temporary file in the target directory and
// renames it into place.
func writeAtomic(path string, fn func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
