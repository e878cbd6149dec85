package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hazyhaar/constats/pkg/importer"
	"github.com/hazyhaar/constats/pkg/store"
)

func sourceInfos() []store.SourceInfo {
	all := importer.All()
	infos := make([]store.SourceInfo, len(all))
	for i, a := range all {
		infos[i] = a
	}
	return infos
}

// openSources opens the database and seeds the default source URLs.
func openSources(path string) *store.Store {
	db, err := store.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur ouverture %s: %v\n", path, err)
		os.Exit(1)
	}
	if err := db.Seed(sourceInfos()); err != nil {
		db.Close()
		fmt.Fprintf(os.Stderr, "Erreur seed sources: %v\n", err)
		os.Exit(1)
	}
	return db
}

func printSources(db *store.Store) {
	sources, err := db.ListSources()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Sources disponibles :")
	fmt.Println()
	for _, src := range sources {
		status := ""
		if src.LastStatus != nil {
			status = fmt.Sprintf("  [%d]", *src.LastStatus)
		}
		fmt.Printf("  %-22s  %s  (-> %s)%s\n", src.AdapterID, src.Description, src.GazetteerID, status)
		fmt.Printf("  %-22s  %s\n", "", src.SourceURL)
	}
}

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	source := fs.String("source", "", "adapter ID to import (e.g. communes-geojson-fr)")
	all := fs.Bool("all", false, "import all available sources")
	outputDir := fs.String("output-dir", "", "output directory for gazetteers (overrides config)")
	fs.Parse(args)

	cfg, _ := setup(*cfgPath)
	if *outputDir == "" {
		*outputDir = cfg.GazetteersDir
	}

	db := openSources(cfg.Database)
	defer db.Close()

	if !*all && *source == "" {
		printSources(db)
		fmt.Println()
		fmt.Println("Usage :")
		fmt.Println("  constats import --source <id> [--output-dir <dir>]")
		fmt.Println("  constats import --all [--output-dir <dir>]")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	if *all {
		failed := 0
		for _, a := range importer.All() {
			if err := importOne(ctx, db, a, *outputDir); err != nil {
				fmt.Fprintf(os.Stderr, "[%s] ERREUR: %v\n", a.ID(), err)
				failed++
			}
		}
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	a, err := importer.Get(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		fmt.Println("\nSources disponibles :")
		for _, a := range importer.All() {
			fmt.Printf("  %s\n", a.ID())
		}
		os.Exit(1)
	}
	if err := importOne(ctx, db, a, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] ERREUR: %v\n", a.ID(), err)
		os.Exit(1)
	}
}

func importOne(ctx context.Context, db *store.Store, a importer.Adapter, outputDir string) error {
	url, err := db.GetURL(a.ID())
	if err != nil {
		return fmt.Errorf("URL: %w", err)
	}
	fmt.Printf("[%s] Import en cours...\n", a.ID())
	if err := a.Import(ctx, url, outputDir); err != nil {
		return err
	}
	fmt.Printf("[%s] OK -> %s/%s/\n", a.ID(), outputDir, a.GazetteerID())
	return nil
}

func cmdSources(args []string) {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	setURL := fs.String("set-url", "", "override the URL of --source")
	source := fs.String("source", "", "adapter ID")
	check := fs.Bool("check", false, "send a HEAD request to every source URL")
	fs.Parse(args)

	cfg, logger := setup(*cfgPath)
	db := openSources(cfg.Database)
	defer db.Close()

	switch {
	case *setURL != "":
		if *source == "" {
			fmt.Fprintln(os.Stderr, "Usage : constats sources --source <id> --set-url <url>")
			os.Exit(1)
		}
		if err := db.SetURL(*source, *setURL); err != nil {
			fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[%s] URL -> %s\n", *source, *setURL)
	case *check:
		ok, failed := importer.NewChecker(db, logger, cfg.CheckInterval).CheckAll(context.Background())
		fmt.Printf("%d sources accessibles, %d en erreur\n\n", ok, failed)
		printSources(db)
	default:
		printSources(db)
	}
}
