// Command bowietest is the developer harness for the bowiephone
// front-end: it verifies the app server is serving the expected assets,
// then runs the debug log collector the browser-side logger posts to.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/bowiephone/bowietest/internal/checker"
	"github.com/bowiephone/bowietest/internal/collector"
	"github.com/bowiephone/bowietest/internal/config"
	"github.com/bowiephone/bowietest/internal/console"
)

const (
	modeCombined  = ""
	modeDebugOnly = "debug-only"
	modeTestOnly  = "test-only"
)

const usageText = `bowietest - developer harness for the bowiephone front-end

Usage:
  bowietest [flags]             check assets, then collect debug logs
  bowietest [flags] test-only   check assets once and exit
  bowietest [flags] debug-only  skip the check and collect debug logs

Flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bowietest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a TOML config file")
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "too many arguments: %v\n\n", fs.Args())
		fs.Usage()
		return 2
	}
	mode := fs.Arg(0)
	switch mode {
	case modeCombined, modeDebugOnly, modeTestOnly:
	default:
		fmt.Fprintf(stderr, "unknown mode %q\n\n", mode)
		fs.Usage()
		return 2
	}

	// A .env next to the harness is the low-friction way to point it at
	// a non-default app server.
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error().Err(err).Msg("configuration failed")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mode != modeDebugOnly {
		results := checker.New(cfg, logger).Run(ctx)
		checker.NewReporter(stdout, cfg.Checker.BaseURL).Print(results)
		if mode == modeTestOnly {
			return 0
		}
		if !checker.AllPassed(results) {
			logger.Error().Msg("asset check failed, not starting the debug log collector")
			fmt.Fprintln(stdout, "💡 Start the app server and rerun, or use `bowietest debug-only` to collect logs anyway")
			return 1
		}
		fmt.Fprintln(stdout)
	}

	return runCollector(ctx, cfg, logger, stdout)
}

func runCollector(ctx context.Context, cfg *config.Config, logger zerolog.Logger, stdout io.Writer) int {
	printer := console.New(stdout, cfg.Checker.BaseURL)
	buf := collector.NewBuffer(cfg.Collector.BufferCapacity, &collector.BufferOpts{
		OnAdd: printer.Print,
	})

	if err := collector.New(cfg, buf, logger).Run(ctx); err != nil {
		if errors.Is(err, collector.ErrPortInUse) {
			logger.Error().Err(err).Msg("stop the other process or change collector.port")
		} else {
			logger.Error().Err(err).Msg("collector failed")
		}
		return 1
	}
	return 0
}
