package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomyan/csvtrip/internal/demoapp"
)

// cmdServe runs the demo CSV Manager app until interrupted.
func cmdServe(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	addr := fs.String("addr", ":3000", "Listen address")
	secret := fs.String("secret", os.Getenv("CSVTRIP_SESSION_SECRET"), "Session signing key (random if empty)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, *addr, []byte(*secret), nil)
}

// serve blocks until ctx is done or the listener fails. ready, if set,
// receives the bound address.
func serve(ctx context.Context, cfg *Config, addr string, secret []byte, ready chan<- string) int {
	logger := log.New(cfg.Stderr, "", log.LstdFlags)

	app, err := demoapp.New(demoapp.Options{Secret: secret, Logger: logger})
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	srv := &http.Server{Handler: app, ReadHeaderTimeout: 10 * time.Second}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	logger.Printf("[INFO] CSV Manager demo listening on http://%s", ln.Addr())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
		return ExitSuccess
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	logger.Print("[INFO] stopped")
	return ExitSuccess
}
