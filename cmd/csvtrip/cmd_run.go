package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomyan/csvtrip/internal/csvdoc"
	"github.com/tomyan/csvtrip/internal/roundtrip"
)

// openSession is replaced in tests.
var openSession = roundtrip.OpenSession

// prepareTrip completes and checks the configuration of commands that drive
// the browser.
func prepareTrip(cfg *Config) int {
	if err := ensurePassword(cfg); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	if err := cfg.Trip.Validate(); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

func cmdRun(cfg *Config, args []string) int {
	if len(args) > 0 {
		return usageError(cfg, "usage: csvtrip [flags] run")
	}
	if code := prepareTrip(cfg); code != ExitSuccess {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The step log goes to stdout unless stdout carries JSON
	logOut := cfg.Stdout
	if cfg.Output == "json" {
		logOut = cfg.Stderr
	}

	runner := roundtrip.NewRunner(cfg.Trip, logOut)
	runner.Open = openSession
	report := runner.Run(ctx)

	if code := outputResult(cfg, runResult{Report: report, Summary: report.Summary()}); code != ExitSuccess {
		return code
	}
	return exitCode(cfg, report)
}

func cmdScrape(cfg *Config, args []string) int {
	if len(args) > 0 {
		return usageError(cfg, "usage: csvtrip [flags] scrape")
	}
	if code := prepareTrip(cfg); code != ExitSuccess {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := roundtrip.NewReporter(cfg.Stderr)
	sess, err := openSession(ctx, cfg.Trip)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitConnFailed
	}
	defer sess.Close()

	if _, err := roundtrip.Authenticate(ctx, sess.Page, cfg.Trip, rep); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	rows, err := roundtrip.WaitForTable(ctx, sess.Page, cfg.Trip)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: reading the table: %v\n", err)
		return ExitError
	}
	content, _ := csvdoc.FromTable(rows)

	if cfg.Output == "json" {
		return outputResult(cfg, map[string]interface{}{"csv": content, "rows": len(rows)})
	}
	fmt.Fprintln(cfg.Stdout, content)
	return ExitSuccess
}
