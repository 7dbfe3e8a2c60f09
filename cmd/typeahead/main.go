// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main runs an inline autocomplete session in a terminal editor, a line driven
shell, or as a MessagePack suggestion server.

Typing the trigger (<> by default) opens a suggestion session. The text typed after
it is sent, debounced, to a suggestion source; Up and Down browse the candidates,
Enter or Tab commits one and Escape dismisses the popup.

# Usage

Open the full screen editor:

	typeahead

Use a custom config file and log to the file next to it:

	typeahead -config ./config.toml -d

Drive a session line by line, for scripts and debugging:

	typeahead -c

Serve completions over stdin and stdout, for editors and the remote source:

	typeahead -serve -data /path/to/words

# Sources

The [source] section picks where candidates come from:

	[source]
	kind = "trie"       # dictionary files in dict_dir, falling back to words
	kind = "static"     # the words list, optionally delayed by latency_ms
	kind = "remote"     # remote_cmd, spawned and spoken to over MessagePack

Results are kept in an LRU cache of cache_size queries.

# Configuration

The config file is created with defaults if it doesn't exist and is watched while
running: trigger and debounce changes apply to the running session, server limits
apply to the running server.

# Command Line Flags

	-config string
	    Path to a config file
	-data string
	    Directory with dictionary files (default from config)
	-d  Enable debug logging
	-c  Run the line driven shell
	-t  Run the full screen editor (default)
	-serve
	    Run the MessagePack server
	-version
	    Show current version
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bastiangx/typeahead/internal/cli"
	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/autocomplete"
	"github.com/bastiangx/typeahead/pkg/config"
	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/bastiangx/typeahead/pkg/server"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
)

const (
	Version = "0.1.0"
	AppName = "typeahead"
	gh      = "https://github.com/bastiangx/typeahead"
)

// sigHandler cancels the returned context on SIGINT or SIGTERM. The editor returns
// through its defers so the terminal is restored; other modes exit once cancelled.
func sigHandler(exitOnCancel bool) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-c:
		case <-ctx.Done():
			return
		}
		cancel()
		if exitOnCancel {
			fmt.Fprintf(os.Stderr, "\nExiting...\n")
			os.Exit(0)
		}
	}()
	return ctx, cancel
}

// main only wires packages together and picks the mode.
func main() {
	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to a config file")
	dataDir := flag.String("data", "", "Directory containing dictionary files (default from config)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run the line driven shell -- useful for testing and debugging")
	termMode := flag.Bool("t", false, "Run the full screen editor (default; wins over -c)")
	serveMode := flag.Bool("serve", false, "Serve completions over stdin/stdout with MessagePack")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.SetupGlobal(*debugMode)

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Error("Either env is not set or system is not supported")
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	cfg, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activePath))

	dictDir := cfg.Source.DictDir
	if *dataDir != "" {
		dictDir = *dataDir
	}
	dictDir = pathResolver.GetDataDir(dictDir)

	editor := !*serveMode && (*termMode || !*cliMode)
	ctx, cancel := sigHandler(!editor)
	defer cancel()

	switch {
	case *serveMode:
		runServer(ctx, cfg, activePath, dictDir)
	case *cliMode && !*termMode:
		runShell(ctx, cfg, activePath, dictDir)
	default:
		runEditor(ctx, cfg, activePath, dictDir, pathResolver)
	}
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ typeahead ] inline suggestions as you type")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

func runServer(ctx context.Context, cfg *config.Config, configPath, dictDir string) {
	completer := loadCompleter(cfg, dictDir)
	srv := server.NewServer(completer, cfg, os.Stdin, os.Stdout)

	watchConfig(ctx, configPath, func(next *config.Config) {
		srv.SetConfig(next)
	})

	showStartupInfo(dictDir, completer)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func runShell(ctx context.Context, cfg *config.Config, configPath, dictDir string) {
	source, closer, err := buildSource(ctx, cfg, dictDir)
	if err != nil {
		log.Fatalf("Failed to create suggestion source: %v", err)
	}
	defer closer.Close()

	ctrl := autocomplete.New(source, sessionOptions(cfg, os.Stderr)...)
	defer ctrl.Close()
	watchConfig(ctx, configPath, sessionReloader(ctrl, cfg))

	if err := cli.NewInputHandler(ctrl, os.Stdin, os.Stdout).Start(); err != nil {
		log.Fatalf("CLI error: %v", err)
	}
}

func runEditor(ctx context.Context, cfg *config.Config, configPath, dictDir string, pr *utils.PathResolver) {
	// the screen owns the terminal, so logs go to a file
	var logOut io.Writer = io.Discard
	if err := utils.EnsureDir(pr.GetConfigDir()); err == nil {
		if f, err := logger.ToFile(filepath.Join(pr.GetConfigDir(), AppName+".log")); err == nil {
			defer f.Close()
			logOut = f
		}
	}
	if logOut == io.Discard {
		log.SetOutput(io.Discard)
	}

	source, closer, err := buildSource(ctx, cfg, dictDir)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Failed to create suggestion source: %v", err)
	}
	defer closer.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Failed to open screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Failed to init screen: %v", err)
	}
	defer screen.Fini()

	term := cli.NewTerminal(screen, source, sessionOptions(cfg, logOut)...)
	watchConfig(ctx, configPath, sessionReloader(term.Controller(), cfg))
	if err := term.Run(ctx); err != nil {
		log.Errorf("Editor error: %v", err)
	}
}

func sessionOptions(cfg *config.Config, logOut io.Writer) []autocomplete.Option {
	return []autocomplete.Option{
		autocomplete.WithTrigger(cfg.Trigger.MatchTrigger()),
		autocomplete.WithDebounce(cfg.Session.Debounce()),
		autocomplete.WithFetchTimeout(cfg.Session.FetchTimeout()),
		autocomplete.WithMaxCandidates(cfg.Session.MaxCandidates),
		autocomplete.WithLogger(logger.New(logOut, "session")),
	}
}

// sessionReloader pushes reloadable settings into a running controller. SetTrigger
// closes the open session, so it only runs when the trigger section changed.
func sessionReloader(ctrl *autocomplete.Controller, cfg *config.Config) func(*config.Config) {
	trigger := cfg.Trigger
	return func(next *config.Config) {
		ctrl.SetDebounce(next.Session.Debounce())
		if next.Trigger != trigger {
			trigger = next.Trigger
			ctrl.SetTrigger(trigger.MatchTrigger())
		}
	}
}

func watchConfig(ctx context.Context, configPath string, onChange func(*config.Config)) {
	if configPath == "" {
		return
	}
	err := config.Watch(ctx, configPath, func(next *config.Config) {
		log.Info("Config reloaded", "path", configPath)
		onChange(next)
	})
	if err != nil {
		log.Warnf("Config changes will not be picked up: %v", err)
	}
}

// loadCompleter fills a trie from dictDir, falling back to the configured word list.
func loadCompleter(cfg *config.Config, dictDir string) *suggest.Completer {
	completer := suggest.NewCompleter()
	n, err := dictionary.LoadDir(completer, dictDir)
	if err != nil || n == 0 {
		log.Warnf("No dictionary loaded from %s (%v), using %d built-in words", dictDir, err, len(cfg.Source.Words))
		return suggest.NewCompleterFromWords(cfg.Source.Words)
	}
	log.Debugf("Loaded %d words from %s", n, dictDir)
	return completer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// buildSource creates the configured source. The closer shuts down a remote server.
func buildSource(ctx context.Context, cfg *config.Config, dictDir string) (suggest.Source, io.Closer, error) {
	var source suggest.Source
	var closer io.Closer = nopCloser{}

	switch cfg.Source.Kind {
	case config.SourceStatic:
		source = suggest.Limit(suggest.StaticSource{Words: cfg.Source.Words, Latency: cfg.Source.Latency()}, cfg.Session.MaxCandidates)
	case config.SourceRemote:
		args := strings.Fields(cfg.Source.RemoteCmd)
		if len(args) == 0 {
			return nil, nil, fmt.Errorf("%w: remote source needs remote_cmd", config.ErrInvalidConfig)
		}
		client, err := server.Spawn(args[0], args[1:],
			server.WithLimit(cfg.Session.MaxCandidates),
			server.WithTimeout(cfg.Session.FetchTimeout()))
		if err != nil {
			return nil, nil, err
		}
		waitCtx, cancel := context.WithTimeout(ctx, cfg.Session.FetchTimeout())
		defer cancel()
		if err := client.WaitReady(waitCtx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("remote source not ready: %w", err)
		}
		source, closer = client, client
	default:
		source = suggest.CompleterSource{
			Completer: loadCompleter(cfg, dictDir),
			Limit:     cfg.Session.MaxCandidates,
			Filter:    cfg.Source.EnableFilter,
		}
	}

	if cfg.Source.CacheSize > 0 {
		source = suggest.NewCachedSource(source, cfg.Source.CacheSize)
	}
	return source, closer, nil
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dataDir string, completer *suggest.Completer) {
	l := logger.NewWithConfig(os.Stderr, "", log.InfoLevel, false, false, log.TextFormatter)
	l.Infof("%s %s", AppName, Version)
	l.Infof("Process ID: [ %d ]", os.Getpid())
	l.Infof("data dir: ( %s )", dataDir)
	l.Info("dictionary", "words", completer.Stats()["totalWords"])
	l.Info("status: ready")
}
