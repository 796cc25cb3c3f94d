package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// isTerminal checks if the given reader is a terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// ensurePassword asks for the password without echo when none was
// configured and stdin is interactive.
func ensurePassword(cfg *Config) error {
	if cfg.Trip.Credentials.Password != "" || !isTerminal(cfg.Stdin) {
		return nil
	}

	fmt.Fprintf(cfg.Stderr, "Password for %s: ", cfg.Trip.Credentials.Username)
	b, err := term.ReadPassword(int(cfg.Stdin.(*os.File).Fd()))
	fmt.Fprintln(cfg.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	cfg.Trip.Credentials.Password = strings.TrimSpace(string(b))
	return nil
}
