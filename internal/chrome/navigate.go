package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
)

// Targets returns all browser targets (pages, workers, etc.).
func (c *Client) Targets(ctx context.Context) ([]TargetInfo, error) {
	result, err := c.Call(ctx, "Target.getTargets", target.GetTargets())
	if err != nil {
		return nil, err
	}

	var resp target.GetTargetsReturns
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling targets: %w", err)
	}

	targets := make([]TargetInfo, 0, len(resp.TargetInfos))
	for _, t := range resp.TargetInfos {
		targets = append(targets, TargetInfo{
			ID:    string(t.TargetID),
			Type:  t.Type,
			Title: t.Title,
			URL:   t.URL,
		})
	}

	return targets, nil
}

// NewTab opens a new tab at url and returns its target ID.
func (c *Client) NewTab(ctx context.Context, url string) (string, error) {
	if url == "" {
		url = "about:blank"
	}

	result, err := c.Call(ctx, "Target.createTarget", target.CreateTarget(url))
	if err != nil {
		return "", err
	}

	var resp target.CreateTargetReturns
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	return string(resp.TargetID), nil
}

// CloseTab closes a tab by its target ID.
func (c *Client) CloseTab(ctx context.Context, targetID string) error {
	c.sessionsMu.Lock()
	delete(c.sessions, targetID)
	c.sessionsMu.Unlock()

	_, err := c.Call(ctx, "Target.closeTarget", target.CloseTarget(target.ID(targetID)))
	return err
}

// NavigateAndWait navigates to a URL and waits for the page load event.
func (c *Client) NavigateAndWait(ctx context.Context, targetID string, url string, timeout time.Duration) (*NavigateResult, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	// Enable Page domain on the session
	_, err = c.CallSession(ctx, sessionID, "Page.enable", page.Enable())
	if err != nil {
		return nil, fmt.Errorf("enabling Page domain: %w", err)
	}

	// Subscribe to load event before navigating
	loadCh := c.subscribeEvent(sessionID, "Page.loadEventFired")
	defer c.unsubscribeEvent(sessionID, "Page.loadEventFired", loadCh)

	navResult, err := c.CallSession(ctx, sessionID, "Page.navigate", page.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("navigating: %w", err)
	}

	var navResp page.NavigateReturns
	if err := json.Unmarshal(navResult, &navResp); err != nil {
		return nil, fmt.Errorf("parsing navigate response: %w", err)
	}

	result := &NavigateResult{
		FrameID:   string(navResp.FrameID),
		LoaderID:  string(navResp.LoaderID),
		URL:       url,
		ErrorText: navResp.ErrorText,
	}
	if navResp.ErrorText != "" {
		return result, fmt.Errorf("navigating to %s: %s", url, navResp.ErrorText)
	}

	if err := waitForEvent(ctx, loadCh, timeout, "page load"); err != nil {
		return nil, err
	}

	return result, nil
}

// Reload reloads the page and waits for the load event.
func (c *Client) Reload(ctx context.Context, targetID string, ignoreCache bool, timeout time.Duration) error {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return err
	}

	_, err = c.CallSession(ctx, sessionID, "Page.enable", page.Enable())
	if err != nil {
		return fmt.Errorf("enabling Page domain: %w", err)
	}

	loadCh := c.subscribeEvent(sessionID, "Page.loadEventFired")
	defer c.unsubscribeEvent(sessionID, "Page.loadEventFired", loadCh)

	_, err = c.CallSession(ctx, sessionID, "Page.reload", page.Reload().WithIgnoreCache(ignoreCache))
	if err != nil {
		return fmt.Errorf("reloading: %w", err)
	}

	return waitForEvent(ctx, loadCh, timeout, "page reload")
}

func waitForEvent(ctx context.Context, ch <-chan json.RawMessage, timeout time.Duration, what string) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return newTimeout("%s", what)
	}
}
