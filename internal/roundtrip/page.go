package roundtrip

import (
	"context"
	"time"

	"github.com/tomyan/csvtrip/internal/chrome"
)

// Page is the browser surface the round trip needs. Every method blocks
// until its condition holds or its bound expires.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Click(ctx context.Context, selector string) error
	ClickText(ctx context.Context, scope, text string) error
	Fill(ctx context.Context, selector, text string) error
	WaitForURL(ctx context.Context, url string, timeout time.Duration) error
	WaitForText(ctx context.Context, text string, timeout time.Duration) error
	UploadFile(ctx context.Context, selector, path string) error
	TableRows(ctx context.Context, rowSelector string) ([][]string, error)

	// Download runs trigger and waits for name to be saved in dir, returning
	// the file's path.
	Download(ctx context.Context, dir, name string, timeout time.Duration, trigger func() error) (string, error)
}

// chromePage drives one tab through the CDP client.
type chromePage struct {
	client      *chrome.Client
	targetID    string
	loadTimeout time.Duration
}

// NewChromePage adapts a tab of client to Page.
func NewChromePage(client *chrome.Client, targetID string, loadTimeout time.Duration) Page {
	return &chromePage{client: client, targetID: targetID, loadTimeout: loadTimeout}
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	_, err := p.client.NavigateAndWait(ctx, p.targetID, url, p.loadTimeout)
	return err
}

func (p *chromePage) Reload(ctx context.Context) error {
	return p.client.Reload(ctx, p.targetID, true, p.loadTimeout)
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	if err := p.client.WaitFor(ctx, p.targetID, selector, p.loadTimeout); err != nil {
		return err
	}
	return p.client.Click(ctx, p.targetID, selector)
}

func (p *chromePage) ClickText(ctx context.Context, scope, text string) error {
	if err := p.client.WaitForElementText(ctx, p.targetID, scope, text, p.loadTimeout); err != nil {
		return err
	}
	return p.client.ClickText(ctx, p.targetID, scope, text)
}

func (p *chromePage) Fill(ctx context.Context, selector, text string) error {
	if err := p.client.WaitFor(ctx, p.targetID, selector, p.loadTimeout); err != nil {
		return err
	}
	return p.client.Fill(ctx, p.targetID, selector, text)
}

func (p *chromePage) WaitForURL(ctx context.Context, url string, timeout time.Duration) error {
	return p.client.WaitForURL(ctx, p.targetID, url, timeout)
}

func (p *chromePage) WaitForText(ctx context.Context, text string, timeout time.Duration) error {
	return p.client.WaitForText(ctx, p.targetID, text, timeout)
}

func (p *chromePage) UploadFile(ctx context.Context, selector, path string) error {
	if err := p.client.WaitFor(ctx, p.targetID, selector, p.loadTimeout); err != nil {
		return err
	}
	return p.client.UploadFile(ctx, p.targetID, selector, []string{path})
}

func (p *chromePage) TableRows(ctx context.Context, rowSelector string) ([][]string, error) {
	return p.client.TableRows(ctx, p.targetID, rowSelector)
}

func (p *chromePage) Download(ctx context.Context, dir, name string, timeout time.Duration, trigger func() error) (string, error) {
	w := p.client.WatchDownload(dir, name)
	defer w.Stop()

	if err := trigger(); err != nil {
		return "", err
	}

	res, err := w.Wait(ctx, timeout)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}
