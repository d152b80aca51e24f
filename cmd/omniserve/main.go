// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main runs the omniserve location-bar autocomplete service.

omniserve turns what a user types into a location bar into a ranked list of
suggestions: a "go to" row, a search-engine row, content-index hits (blog
posts, pages, bookmarks published by followed sites), history entries with
the matched words marked, and the user's bookmarks when nothing is typed.

It runs as a MessagePack IPC server on stdin/stdout for a browser shell, or
as a line-based CLI for debugging.

# Usage

Start the server with default settings:

	omniserve

Use a custom data directory and enable debug logging:

	omniserve -data /path/to/data -d

Run the CLI:

	omniserve -c

# Data

The data directory holds the sources as TOML files:

	history.toml    [[visit]]    url, title, visits
	index.toml      [[record]]   path, url, title, href, site
	bookmarks.toml  [[bookmark]] url, title

Visits recorded through the "visit" action are written back to
history.toml on exit. bookmarks.toml is reloaded when it changes.

# Configuration

The config file is created with defaults if it doesn't exist:

	[server]
	metrics_addr = ""
	request_timeout_ms = 2000

	[resolver]
	max_results = 10
	index_limit = 10
	index_name = "local"
	index_field = "title"
	data_paths = ["/blog/*.md", "/bookmarks/*.goto", "/pages/*.md"]

	[[engines]]
	name = "DuckDuckGo"
	url = "https://duckduckgo.com/"
	selected = true

Setting metrics_addr serves Prometheus metrics on /metrics.

# Command Line Flags

	-data string
	    Directory containing the source files (default "data/")
	-config string
	    Path to a config file
	-d  Enable debug mode with detailed logging
	-json
	    Log as JSON
	-c  Run in CLI mode instead of server mode
	-rebuild-config
	    Overwrite the default config file with defaults and exit
	-version
	    Show current version
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/omniserve/internal/cli"
	"github.com/bastiangx/omniserve/internal/logger"
	"github.com/bastiangx/omniserve/internal/utils"
	"github.com/bastiangx/omniserve/pkg/bookmarks"
	"github.com/bastiangx/omniserve/pkg/config"
	"github.com/bastiangx/omniserve/pkg/history"
	"github.com/bastiangx/omniserve/pkg/index"
	"github.com/bastiangx/omniserve/pkg/resolver"
	"github.com/bastiangx/omniserve/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Version = "0.1.0-beta"
	AppName = "omniserve"
	gh      = "https://github.com/bastiangx/omniserve"
)

// sigHandler runs onExit and exits normally on SIGINT/SIGTERM.
func sigHandler(onExit func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		onExit()
		os.Exit(0)
	}()
}

// main wires the sources, the resolver and the chosen front end.
// It does not implement logic for them and only manages the flow.
func main() {
	showVersion := flag.Bool("version", false, "Show current version")
	dataDir := flag.String("data", "data/", "Directory containing the source files")
	configFile := flag.String("config", "", "Path to a config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	jsonLogs := flag.Bool("json", false, "Log as JSON")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	rebuildConfig := flag.Bool("rebuild-config", false, "Overwrite the default config file with defaults")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}
	if *jsonLogs {
		log.SetFormatter(log.JSONFormatter)
		logger.SetFormatter(log.JSONFormatter)
	}

	pathResolver, err := utils.NewPathResolver(AppName)
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	defaultConfigPath := pathResolver.ConfigPath(config.FileName)

	if *rebuildConfig {
		if err := config.RebuildConfigFile(defaultConfigPath); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Printf("Wrote default config to %s", defaultConfigPath)
		return
	}

	cfg, configPath, err := config.LoadConfigWithPriority(*configFile, defaultConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config %s: %v", config.GetActiveConfigPath(configPath), err)
	}

	resolvedDataDir := pathResolver.DataDir(*dataDir)
	log.Debugf("Using data dir at: %s", resolvedDataDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	historyPath := config.DataFile(resolvedDataDir, cfg.History.File)
	hist, err := history.Load(historyPath, cfg.History.Limit)
	if err != nil {
		log.Fatalf("Failed to load history: %v", err)
	}
	saveHistory := func() {
		if err := utils.EnsureDir(resolvedDataDir); err != nil {
			log.Errorf("Failed to create data dir: %v", err)
			return
		}
		if err := hist.Save(historyPath); err != nil {
			log.Errorf("Failed to save history: %v", err)
		}
	}

	idx, err := index.Load(config.DataFile(resolvedDataDir, cfg.Index.File), cfg.Resolver.IndexName)
	if err != nil {
		log.Fatalf("Failed to load content index: %v", err)
	}
	defer idx.Close()

	bm, err := bookmarks.Load(config.DataFile(resolvedDataDir, cfg.Bookmarks.File))
	if err != nil {
		log.Fatalf("Failed to load bookmarks: %v", err)
	}
	if cfg.Bookmarks.Watch && utils.FileExists(config.DataFile(resolvedDataDir, cfg.Bookmarks.File)) {
		delay := time.Duration(cfg.Bookmarks.DebounceMs) * time.Millisecond
		if err := bm.Watch(ctx, delay); err != nil {
			log.Warnf("Bookmarks will not be reloaded: %v", err)
		}
	}

	metrics := startMetrics(cfg.Server.MetricsAddr)
	res := resolver.New(hist, idx, cfg.ResolverOptions(), metrics)

	sigHandler(func() {
		cancel()
		saveHistory()
	})

	if *cliMode {
		log.SetReportTimestamp(false)
		session := resolver.NewSession()
		session.SetSearchEngines(resolver.Ready(cfg.Engines))
		session.SetBookmarksFetch(bm.Fetch())

		inputHandler := cli.NewInputHandler(res, session, os.Stdin, os.Stdout, cfg.RequestTimeout())
		if err := inputHandler.Start(ctx); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(res, hist, bm, server.Options{
		Engines: cfg.Engines,
		Timeout: cfg.RequestTimeout(),
	})

	showStartupInfo(resolvedDataDir, config.GetActiveConfigPath(configPath), hist.Len(), idx.Len())

	if err := srv.Start(ctx); err != nil {
		saveHistory()
		log.Fatalf("Server error: %v", err)
	}
	saveHistory()
}

// startMetrics serves /metrics on addr and returns the resolver collectors.
// It returns nil when addr is empty.
func startMetrics(addr string) *resolver.Metrics {
	if addr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := resolver.NewMetrics(reg)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Debugf("Serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server error: %v", err)
		}
	}()
	return metrics
}

func printVersion() {
	banner := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ omniserve ] Location bar suggestions from history, content and bookmarks")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dataDir, configPath string, visits, records int) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, " omniserve ")
	fmt.Fprintln(os.Stderr, "===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Infof("config: ( %s )", configPath)
	log.Infof("data dir: ( %s )", dataDir)
	log.Infof("history: %d visits, index: %d records", visits, records)
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
