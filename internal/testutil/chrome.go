// Package testutil provides helpers for tests that need a real browser.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomyan/csvtrip/internal/chrome"
	"github.com/tomyan/csvtrip/internal/chrome/launcher"
)

// ChromeInstance represents a running headless Chrome for testing.
type ChromeInstance struct {
	inst *launcher.Instance
	Port int
}

// StartChrome starts a headless Chrome on a free port.
// Returns a ChromeInstance that must be stopped with Stop().
func StartChrome(ctx context.Context) (*ChromeInstance, error) {
	inst, err := launcher.Launch(ctx, launcher.LaunchOptions{
		Headless:     true,
		WindowWidth:  1280,
		WindowHeight: 800,
	})
	if err != nil {
		return nil, err
	}
	return &ChromeInstance{inst: inst, Port: inst.Port}, nil
}

// Stop terminates the Chrome instance and cleans up.
func (c *ChromeInstance) Stop() error {
	return c.inst.Stop()
}

// RequireChrome starts Chrome and connects a client, skipping the test in
// -short mode or when no browser is installed. Both are released on cleanup.
func RequireChrome(t *testing.T) (*chrome.Client, *ChromeInstance) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	inst, err := StartChrome(ctx)
	if errors.Is(err, launcher.ErrChromeNotFound) {
		t.Skip("Chrome not found on this system")
	}
	if err != nil {
		t.Fatalf("failed to start Chrome: %v", err)
	}
	t.Cleanup(func() { inst.Stop() })

	client, err := chrome.Connect(ctx, "127.0.0.1", inst.Port)
	if err != nil {
		t.Fatalf("failed to connect to Chrome: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, inst
}
