package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/constats/pkg/api"
	"github.com/hazyhaar/constats/pkg/gazetteer"
	"github.com/hazyhaar/constats/pkg/importer"
	"github.com/hazyhaar/constats/pkg/store"
)

var version = "dev"

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	addr := fs.String("addr", "", "listen address (overrides config)")
	check := fs.Bool("check-sources", false, "periodically check import source URLs")
	fs.Parse(args)

	cfg, logger := setup(*cfgPath)
	if *addr != "" {
		cfg.Addr = *addr
	}

	holder := gazetteer.NewHolder(cfg.Gazetteer)
	if err := holder.Load(); err != nil {
		logger.Error("failed to load gazetteer", "error", err)
		os.Exit(1)
	}
	logger.Info("gazetteer loaded", "path", cfg.Gazetteer, "communes", holder.Len())

	router := api.NewRouter(api.NewService(holder, cfg.matchOptions()), api.Options{Logger: logger})
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	// SIGHUP: hot reload the gazetteer.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading gazetteer")
			if err := holder.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
			} else {
				logger.Info("gazetteer reloaded", "communes", holder.Len())
			}
		}
	}()

	if *check {
		db, err := store.Open(cfg.Database)
		if err != nil {
			logger.Error("source checker disabled", "error", err)
		} else {
			defer db.Close()
			if err := db.Seed(sourceInfos()); err != nil {
				logger.Error("seed sources", "error", err)
			}
			go importer.NewChecker(db, logger, cfg.CheckInterval).Start(ctx)
		}
	}

	go func() {
		logger.Info("constats listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Shutdown(context.Background())
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	gaz := fs.String("gazetteer", "", "gazetteer directory or file (overrides config)")
	fs.Parse(args)

	cfg, logger := setup(*cfgPath)
	if *gaz != "" {
		cfg.Gazetteer = *gaz
	}

	holder := gazetteer.NewHolder(cfg.Gazetteer)
	if err := holder.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Erreur gazetteer: %v\n", err)
		os.Exit(1)
	}

	srv := server.NewMCPServer("constats", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, api.NewService(holder, cfg.matchOptions()), api.Options{Logger: logger})

	// stdout carries the protocol; logs stay on stderr.
	if err := server.ServeStdio(srv); err != nil {
		fmt.Fprintf(os.Stderr, "Erreur MCP: %v\n", err)
		os.Exit(1)
	}
}
