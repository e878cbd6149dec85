package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/hazyhaar/constats/pkg/crosstab"
	"github.com/hazyhaar/constats/pkg/kit"
	"github.com/hazyhaar/constats/pkg/pipeline"
	"github.com/hazyhaar/constats/pkg/store"
)

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	report := fs.String("report", "", "report file (.xlsx or .csv)")
	gaz := fs.String("gazetteer", "", "gazetteer directory or GeoJSON/CSV file (overrides config)")
	out := fs.String("out", "", "output directory (overrides config)")
	total := fs.String("total", "", "crosstab Total column: legacy|row (overrides config)")
	noHistory := fs.Bool("no-history", false, "do not record the run in the database")
	fs.Parse(args)

	if *report == "" && fs.NArg() > 0 {
		*report = fs.Arg(0)
	}
	if *report == "" {
		fmt.Fprintln(os.Stderr, "Usage : constats run --report <fichier.xlsx> [--gazetteer <dir>] [--out <dir>]")
		os.Exit(1)
	}

	cfg, logger := setup(*cfgPath)
	if *gaz != "" {
		cfg.Gazetteer = *gaz
	}
	if *out != "" {
		cfg.OutputDir = *out
	}
	if *total != "" {
		cfg.Crosstab.Total = *total
	}
	mode, err := crosstab.ParseTotalMode(cfg.Crosstab.Total)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = kit.WithRunID(ctx, store.NewRunID())

	res, err := pipeline.Run(ctx, pipeline.Input{
		ReportPath:    *report,
		Report:        cfg.reportOptions(logger),
		GazetteerPath: cfg.Gazetteer,
		Match:         cfg.matchOptions(),
		Logger:        logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur traitement: %v\n", err)
		os.Exit(1)
	}

	written, err := pipeline.WriteOutputs(res, pipeline.OutputOptions{
		Dir:        cfg.OutputDir,
		TotalMode:  mode,
		XLSX:       cfg.Crosstab.XLSX,
		Layers:     cfg.Layers.Enabled,
		Filter:     cfg.layerFilter(),
		StartYear:  cfg.Layers.StartYear,
		Cumulative: cfg.Layers.Cumulative,
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur écriture: %v\n", err)
		os.Exit(1)
	}

	s := res.Summary()
	fmt.Printf("%d constats, %d joints, %d non joints, %d mois\n", s.Records, s.Matched, s.Unmatched, s.Months)
	for _, p := range written {
		fmt.Printf("  %s\n", p)
	}

	if *noHistory {
		return
	}
	db, err := store.Open(cfg.Database)
	if err != nil {
		logger.Error("history not recorded", "error", err)
		return
	}
	defer db.Close()
	run, matches := runRecord(res, *report, cfg.Gazetteer, cfg.OutputDir)
	id, err := db.SaveRun(ctx, run, matches)
	if err != nil {
		logger.Error("history not recorded", "error", err)
		return
	}
	fmt.Printf("run %s\n", id)
}

// runRecord converts a pipeline result into its history rows, in record order.
func runRecord(res *pipeline.Result, reportPath, gazetteerPath, outputDir string) (store.Run, []store.RunMatch) {
	s := res.Summary()
	id := res.RunID
	if id == "" {
		id = store.NewRunID()
	}
	run := store.Run{
		ID:            id,
		ReportPath:    reportPath,
		GazetteerPath: gazetteerPath,
		OutputDir:     outputDir,
		Records:       s.Records,
		Matched:       s.Matched,
		Unmatched:     s.Unmatched,
		Months:        s.Months,
		Exclusions:    s.Exclusions,
		StartedAt:     res.Started,
		FinishedAt:    res.Finished,
	}

	matches := make([]store.RunMatch, 0, len(res.Join.Matched)+len(res.Join.Unmatched))
	for _, m := range res.Join.Matched {
		matches = append(matches, store.RunMatch{
			RecordID: m.ID,
			Commune:  m.Input,
			Code:     m.Code,
			Method:   string(m.Method),
			Score:    m.Score,
		})
	}
	for _, u := range res.Join.Unmatched {
		matches = append(matches, store.RunMatch{RecordID: u.ID, Commune: u.Commune, Score: u.Score})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].RecordID < matches[j].RecordID })
	return run, matches
}
