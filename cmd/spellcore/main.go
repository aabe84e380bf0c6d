// Spellcore is an interactive sandbox for the spell rules and physics engine.
// Usage: spellcore [--version] [--plain] [--script <file>] [--trace] [--seed N] [--tick S] [content_directory]
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/nathoo/spellcore/cli"
	"github.com/nathoo/spellcore/config"
	"github.com/nathoo/spellcore/engine"
	"github.com/nathoo/spellcore/engine/rules"
	"github.com/nathoo/spellcore/loader"
	"github.com/nathoo/spellcore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading configuration: %v\n", err)
		os.Exit(1)
	}

	var showVersion, plain, trace bool
	var scriptFile string
	flag.BoolVar(&showVersion, "version", false, "print the version and exit")
	flag.BoolVar(&plain, "plain", false, "use the line interface even on a terminal")
	flag.BoolVar(&trace, "trace", false, "print the events each command emits")
	flag.StringVar(&scriptFile, "script", "", "run commands from a file")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "dice seed (SPELLCORE_SEED)")
	flag.Float64Var(&cfg.Tick, "tick", cfg.Tick, "simulated seconds per tick (SPELLCORE_TICK)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (SPELLCORE_LOG_LEVEL)")
	flag.Parse()

	if showVersion {
		fmt.Printf("spellcore %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if flag.NArg() > 0 {
		cfg.Content = flag.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Load and compile Lua content.
	cat, err := loader.Load(cfg.Content, logger.Named("loader"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading content: %v\n", err)
		os.Exit(1)
	}

	phys := cfg.Physics()
	eng := engine.New(engine.Options{
		Catalog: cat,
		Seed:    cfg.Seed,
		Physics: &phys,
		Rules:   rules.Standard(cfg.Rules(cat.RuleConfig())),
		Tick:    cfg.Tick,
		Logger:  logger,
	})
	logger.Info("session started",
		zap.String("content", cfg.Content),
		zap.Int64("seed", cfg.Seed),
		zap.Float64("tick", cfg.Tick),
	)

	// Script mode: open file, force plain, echo commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := cli.New(eng)
		c.In = f
		c.EchoInput = true
		c.Trace = trace
		c.Run()
		return
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		c := cli.New(eng)
		c.Trace = trace
		c.Run()
		return
	}

	if err := tui.Run(eng); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
