package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"galaxy-server/internal/galaxy"
	"galaxy-server/internal/shared/config"
	"galaxy-server/internal/shared/logger"
	"galaxy-server/internal/viewer"

	"github.com/gdamore/tcell/v2"
)

func main() {
	seed := flag.Uint64("seed", 0, "random seed (0 picks one)")
	count := flag.Int("count", 0, "number of points (0 uses the configured default)")
	inner := flag.String("inner", "", "inner color as #rrggbb")
	outer := flag.String("outer", "", "outer color as #rrggbb")
	debounce := flag.Duration("debounce", 0, "delay before a settled edit regenerates (0 uses SESSION_DEBOUNCE)")
	logFile := flag.String("log", "", "write logs to this file")
	flag.Parse()

	if err := run(*seed, *count, *inner, *outer, *debounce, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "galaxy-view: %v\n", err)
		os.Exit(1)
	}
}

func run(seed uint64, count int, inner, outer string, debounce time.Duration, logFile string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The screen owns stdout, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	log := logger.New(cfg.Logging, out)
	slog.SetDefault(log)

	params, err := galaxy.ParametersFromConfig(cfg.Galaxy)
	if err != nil {
		return err
	}
	if count > 0 {
		params.Count = count
	}
	if inner != "" {
		if params.InnerColor, err = galaxy.ParseColor(inner); err != nil {
			return err
		}
	}
	if outer != "" {
		if params.OuterColor, err = galaxy.ParseColor(outer); err != nil {
			return err
		}
	}

	ranges := galaxy.DefaultRanges()
	if err := ranges.Check(params); err != nil {
		return err
	}

	if seed == 0 {
		seed = galaxy.NewSeed()
	}
	if debounce == 0 {
		debounce = cfg.Session.Debounce
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()

	v, err := viewer.New(screen, viewer.Options{
		Settings: viewer.Settings{Parameters: params, RotationY: viewer.DefaultRotationY},
		Seed:     seed,
		Ranges:   ranges,
		Debounce: debounce,
	}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := v.Run(ctx)
	if err := v.Close(); err != nil {
		log.Warn("Failed to release cloud", "component", "galaxy_view", "error", err)
	}
	return runErr
}
