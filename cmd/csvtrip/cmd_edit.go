package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tomyan/csvtrip/internal/csvdoc"
)

// cmdEdit applies the configured mutation to a local CSV file (or stdin)
// and writes the result to stdout. The unified diff goes to stderr.
func cmdEdit(cfg *Config, args []string) int {
	if len(args) > 1 {
		return usageError(cfg, "usage: csvtrip [flags] edit [file|-]")
	}

	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cfg.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	m := cfg.Trip.Mutation
	text := string(data)
	edited, res, editErr := csvdoc.Edit(text, m)

	out := editResult{CSV: edited, Result: res}
	switch {
	case errors.Is(editErr, csvdoc.ErrColumnNotFound):
		fmt.Fprintf(cfg.Stderr, "error: column %q not found; input left unchanged\n", m.Column)
	case editErr != nil:
		fmt.Fprintf(cfg.Stderr, "error: %v\n", editErr)
	case res.Matched == 0:
		fmt.Fprintf(cfg.Stderr, "warning: no row with %q in the first column\n", m.RowKey)
	default:
		if diff := csvdoc.Diff(text, edited); diff != "" {
			fmt.Fprint(cfg.Stderr, diff)
		}
	}
	if editErr != nil {
		out.Error = editErr.Error()
	}

	if cfg.Output == "json" {
		if code := outputResult(cfg, out); code != ExitSuccess {
			return code
		}
	} else {
		fmt.Fprint(cfg.Stdout, edited)
	}

	if cfg.Strict && (editErr != nil || res.Matched == 0) {
		return ExitError
	}
	return ExitSuccess
}
