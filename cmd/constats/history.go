package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hazyhaar/constats/pkg/store"
)

func cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	limit := fs.Int("limit", 20, "number of runs to list (0 = all)")
	report := fs.String("report", "", "only runs of this report file")
	since := fs.Duration("since", 0, "only runs started within this duration (e.g. 720h)")
	runID := fs.String("run", "", "show the per-record matches of one run")
	asJSON := fs.Bool("json", false, "print JSON")
	fs.Parse(args)

	cfg, _ := setup(*cfgPath)
	db, err := store.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur ouverture %s: %v\n", cfg.Database, err)
		os.Exit(1)
	}
	defer db.Close()
	ctx := context.Background()

	if *runID != "" {
		run, err := db.GetRun(ctx, *runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
			os.Exit(1)
		}
		matches, err := db.RunMatches(ctx, run.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
			os.Exit(1)
		}
		if *asJSON {
			printJSON(map[string]any{"run": run, "matches": matches})
			return
		}
		printRun(run)
		fmt.Println()
		for _, m := range matches {
			code := m.Code
			if code == "" {
				code = "-"
			}
			fmt.Printf("  %5d  %-30s  %-6s  %-10s  %.3f\n", m.RecordID, m.Commune, code, m.Method, m.Score)
		}
		return
	}

	f := store.RunFilter{ReportPath: *report, Limit: *limit}
	if *since > 0 {
		f.Since = time.Now().Add(-*since)
	}
	runs, err := db.ListRuns(ctx, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(runs)
		return
	}
	if len(runs) == 0 {
		fmt.Println("Aucun traitement enregistré.")
		return
	}
	for _, r := range runs {
		printRun(r)
	}
}

func printRun(r store.Run) {
	fmt.Printf("%s  %s  %s  %d constats, %d joints, %d non joints, %d mois (%s)\n",
		r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.ReportPath,
		r.Records, r.Matched, r.Unmatched, r.Months, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
