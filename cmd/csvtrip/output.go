package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tomyan/csvtrip/internal/chrome"
	"github.com/tomyan/csvtrip/internal/csvdoc"
	"github.com/tomyan/csvtrip/internal/roundtrip"
)

// TextValuer is implemented by result types that have an obvious plain-text representation.
type TextValuer interface {
	TextValue() string
}

// runResult is the machine-readable summary of a run.
type runResult struct {
	*roundtrip.Report
	Summary string `json:"summary"`
}

func (r runResult) TextValue() string { return r.Summary }

// editResult is the output of the edit command.
type editResult struct {
	CSV    string            `json:"csv"`
	Result csvdoc.EditResult `json:"result"`
	Error  string            `json:"error,omitempty"`
}

func outputResult(cfg *Config, v interface{}) int {
	switch cfg.Output {
	case "json":
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "text":
		if tv, ok := v.(TextValuer); ok {
			fmt.Fprintln(cfg.Stdout, tv.TextValue())
		} else {
			// Fall back to JSON for complex types
			enc := json.NewEncoder(cfg.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
				return ExitError
			}
		}
	default:
		fmt.Fprintf(cfg.Stderr, "error: unknown output format: %s\n", cfg.Output)
		return ExitError
	}
	return ExitSuccess
}

// exitCode maps a finished run to the process exit status. Without --strict
// every run that got as far as a summary exits 0.
func exitCode(cfg *Config, report *roundtrip.Report) int {
	if !cfg.Strict {
		return ExitSuccess
	}
	err := report.Err()
	switch {
	case err == nil && report.Verified:
		return ExitSuccess
	case err == nil:
		return ExitUnverified
	case errors.Is(err, roundtrip.ErrSessionFailed):
		return ExitConnFailed
	case errors.Is(err, chrome.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	default:
		return ExitError
	}
}
