package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
)

// SetDownloadBehavior makes the browser save downloads into dir without
// prompting and report progress events.
func (c *Client) SetDownloadBehavior(ctx context.Context, dir string) error {
	_, err := c.Call(ctx, "Browser.setDownloadBehavior",
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(dir).
			WithEventsEnabled(true))
	if err != nil {
		return fmt.Errorf("setting download behavior: %w", err)
	}
	return nil
}

// DownloadWatch observes browser downloads. Start it before triggering the
// download so no progress event is missed.
type DownloadWatch struct {
	c      *Client
	events chan json.RawMessage
	dir    string
	name   string
}

// WatchDownload starts observing downloads of name into dir.
func (c *Client) WatchDownload(dir string, name string) *DownloadWatch {
	return &DownloadWatch{
		c:      c,
		events: c.subscribeEvent("", "Browser.downloadProgress"),
		dir:    dir,
		name:   name,
	}
}

// Stop releases the event subscription.
func (w *DownloadWatch) Stop() {
	w.c.unsubscribeEvent("", "Browser.downloadProgress", w.events)
}

// Wait blocks until the file is complete on disk, the download is canceled,
// or the timeout elapses. A file counts as complete once a completed progress
// event has arrived or, for browsers that send none, once it exists with a
// non-zero size that is stable across two polls.
func (w *DownloadWatch) Wait(ctx context.Context, timeout time.Duration) (*DownloadResult, error) {
	path := filepath.Join(w.dir, w.name)
	deadline := time.After(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var (
		guid      string
		completed bool
		lastSize  int64 = -1
	)

	for {
		select {
		case raw, ok := <-w.events:
			if !ok {
				return nil, ErrConnectionClosed
			}
			var ev browser.EventDownloadProgress
			if err := json.Unmarshal(raw, &ev); err != nil {
				continue
			}
			guid = ev.GUID
			switch ev.State {
			case browser.DownloadProgressStateCanceled:
				return nil, fmt.Errorf("%w: %s", ErrDownloadCanceled, w.name)
			case browser.DownloadProgressStateCompleted:
				completed = true
				if ev.FilePath != "" {
					path = ev.FilePath
				}
			}
		case <-ticker.C:
		case <-deadline:
			return nil, newTimeout("download of %s", w.name)
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		size := info.Size()
		if completed || (size > 0 && size == lastSize) {
			return &DownloadResult{GUID: guid, Path: path, Bytes: size}, nil
		}
		lastSize = size
	}
}
