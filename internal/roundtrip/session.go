package roundtrip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tomyan/csvtrip/internal/chrome"
	"github.com/tomyan/csvtrip/internal/chrome/launcher"
)

// Session owns the browser side of one run: the Chrome process when it was
// launched here, the CDP connection, the tab, and the download directory.
type Session struct {
	Page        Page
	Client      *chrome.Client
	TargetID    string
	DownloadDir string

	inst     *launcher.Instance
	ownsDir  bool
	attached bool
}

// OpenSession prepares a browser for the run. Any error is fatal for the run;
// whatever was set up before it is released again.
func OpenSession(ctx context.Context, cfg Config) (s *Session, err error) {
	s = &Session{DownloadDir: cfg.DownloadDir, attached: cfg.Attach}
	defer func() {
		if err != nil {
			s.Close()
			s = nil
		}
	}()

	if s.DownloadDir == "" {
		s.DownloadDir = filepath.Join(os.TempDir(), "csvtrip-"+uuid.NewString())
		s.ownsDir = true
	}
	if err := os.MkdirAll(s.DownloadDir, 0o755); err != nil {
		return s, fmt.Errorf("creating download directory: %w", err)
	}

	host, port := cfg.Host, cfg.Port
	if cfg.Attach {
		if _, err := launcher.DetectRunning(host, port); err != nil {
			return s, err
		}
	} else {
		s.inst, err = launcher.Launch(ctx, launcher.LaunchOptions{
			ChromePath:   cfg.ChromePath,
			Headless:     cfg.Headless,
			WindowWidth:  cfg.WindowWidth,
			WindowHeight: cfg.WindowHeight,
		})
		if err != nil {
			return s, fmt.Errorf("launching Chrome: %w", err)
		}
		host, port = "127.0.0.1", s.inst.Port
	}

	s.Client, err = chrome.Connect(ctx, host, port)
	if err != nil {
		return s, fmt.Errorf("connecting to Chrome: %w", err)
	}

	s.TargetID, err = s.Client.NewTab(ctx, "")
	if err != nil {
		return s, fmt.Errorf("opening tab: %w", err)
	}

	if err := s.Client.SetDownloadBehavior(ctx, s.DownloadDir); err != nil {
		return s, err
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		if err := s.Client.SetViewport(ctx, s.TargetID, cfg.WindowWidth, cfg.WindowHeight); err != nil {
			return s, err
		}
	}

	s.Page = NewChromePage(s.Client, s.TargetID, cfg.StepTimeout)
	return s, nil
}

// Close releases everything the session holds. It is safe to call twice.
func (s *Session) Close() error {
	var errs []error

	if s.Client != nil {
		// Leave an attached browser as we found it
		if s.attached && s.TargetID != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.Client.CloseTab(ctx, s.TargetID)
			cancel()
		}
		if err := s.Client.Close(); err != nil {
			errs = append(errs, err)
		}
		s.Client = nil
	}

	if s.inst != nil {
		if err := s.inst.Stop(); err != nil {
			errs = append(errs, err)
		}
		s.inst = nil
	}

	if s.ownsDir && s.DownloadDir != "" {
		if err := os.RemoveAll(s.DownloadDir); err != nil {
			errs = append(errs, fmt.Errorf("removing download directory: %w", err))
		}
		s.ownsDir = false
	}

	return errors.Join(errs...)
}
