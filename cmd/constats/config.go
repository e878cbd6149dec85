package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/constats/pkg/category"
	"github.com/hazyhaar/constats/pkg/constat"
	"github.com/hazyhaar/constats/pkg/crosstab"
	"github.com/hazyhaar/constats/pkg/layers"
	"github.com/hazyhaar/constats/pkg/match"
)

type config struct {
	Addr          string        `yaml:"addr"`
	Gazetteer     string        `yaml:"gazetteer"`
	GazetteersDir string        `yaml:"gazetteers_dir"`
	Database      string        `yaml:"database"`
	OutputDir     string        `yaml:"output_dir"`
	LogLevel      string        `yaml:"log_level"`
	CheckInterval time.Duration `yaml:"check_interval"`

	Report   reportConfig   `yaml:"report"`
	Match    matchConfig    `yaml:"match"`
	Crosstab crosstabConfig `yaml:"crosstab"`
	Layers   layersConfig   `yaml:"layers"`
}

type reportConfig struct {
	Sheet     string         `yaml:"sheet"`
	Delimiter string         `yaml:"delimiter"`
	Encoding  string         `yaml:"encoding"`
	Fields    constat.Schema `yaml:"fields"`
}

type matchConfig struct {
	CloseCutoff   float64           `yaml:"close_cutoff"`
	MinSimilarity float64           `yaml:"min_similarity"`
	Aliases       map[string]string `yaml:"aliases"`
}

type crosstabConfig struct {
	Total string `yaml:"total"`
	XLSX  bool   `yaml:"xlsx"`
}

type layersConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Species     []string `yaml:"species"`
	Conclusions []string `yaml:"conclusions"`
	StartYear   int      `yaml:"start_year"`
	Cumulative  bool     `yaml:"cumulative"`
}

func defaultConfig() config {
	return config{
		Addr:          ":8421",
		Gazetteer:     "gazetteers/communes-fr",
		GazetteersDir: "gazetteers",
		Database:      "constats.db",
		OutputDir:     "out",
		LogLevel:      "info",
		CheckInterval: 24 * time.Hour,
		Crosstab:      crosstabConfig{Total: string(crosstab.TotalLegacy)},
		Layers:        layersConfig{Enabled: true, Cumulative: true},
	}
}

// loadConfig reads path over the defaults. A missing file yields the defaults.
func loadConfig(path string, logger *slog.Logger) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if _, err := crosstab.ParseTotalMode(cfg.Crosstab.Total); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	for _, s := range cfg.Layers.Species {
		if !category.IsSpecies(s) {
			return cfg, fmt.Errorf("config: unknown layer species %q (want one of %v)", s, category.AllSpecies())
		}
	}
	return cfg, nil
}

func (c config) reportOptions(logger *slog.Logger) constat.Options {
	return constat.Options{
		Sheet:     c.Report.Sheet,
		Delimiter: c.Report.Delimiter,
		Encoding:  c.Report.Encoding,
		Schema:    c.Report.Fields,
		Logger:    logger,
	}
}

func (c config) matchOptions() match.Options {
	return match.Options{
		CloseCutoff:   c.Match.CloseCutoff,
		MinSimilarity: c.Match.MinSimilarity,
		Aliases:       c.Match.Aliases,
	}
}

func (c config) layerFilter() layers.Filter {
	return layers.Filter{Species: c.Layers.Species, Conclusions: c.Layers.Conclusions}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// setup loads the config and returns a logger at the configured level. Errors
// are fatal, like every CLI error.
func setup(cfgPath string) (config, *slog.Logger) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg, err := loadConfig(cfgPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur configuration: %v\n", err)
		os.Exit(1)
	}
	level, _ := parseLevel(cfg.LogLevel)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger
}
