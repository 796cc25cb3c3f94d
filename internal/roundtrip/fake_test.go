package roundtrip

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tomyan/csvtrip/internal/chrome"
	"github.com/tomyan/csvtrip/internal/csvdoc"
)

const fakeBase = "http://csv.test"

// fakeApp is an in-memory stand-in for the CSV Manager UI behind Page.
type fakeApp struct {
	sel      Selectors
	accounts map[string]string // username -> password

	url      string
	tab      string
	fields   map[string]string
	loggedIn bool
	toast    bool

	// Download writes exportCSV when non-empty; otherwise no file appears.
	exportCSV string
	rows      [][]string

	// Knobs
	noToast     bool
	uploadErr   error
	downloadErr error

	calls    []string
	uploaded string
	reloads  int
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		sel:      DefaultSelectors(),
		accounts: map[string]string{},
		fields:   map[string]string{},
	}
}

func (f *fakeApp) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeApp) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeApp) Navigate(ctx context.Context, url string) error {
	f.record("navigate %s", url)
	f.url = url
	return nil
}

func (f *fakeApp) Reload(ctx context.Context) error {
	f.reloads++
	f.toast = false
	return nil
}

func (f *fakeApp) Click(ctx context.Context, selector string) error {
	f.record("click %s", selector)
	switch selector {
	case f.sel.LoginTab:
		f.tab = "login"
	case f.sel.RegisterTab:
		f.tab = "register"
	default:
		return fmt.Errorf("%w: %s", chrome.ErrElementNotFound, selector)
	}
	return nil
}

func (f *fakeApp) ClickText(ctx context.Context, scope, text string) error {
	f.record("click-text %s", text)
	switch text {
	case f.sel.LoginButtonText:
		user, pass := f.fields[f.sel.LoginUsername], f.fields[f.sel.LoginPassword]
		if want, ok := f.accounts[user]; ok && want == pass {
			f.signIn()
		}
	case f.sel.RegisterText:
		user := f.fields[f.sel.RegisterUsername]
		if _, taken := f.accounts[user]; !taken {
			f.accounts[user] = f.fields[f.sel.RegisterPassword]
			f.signIn()
		}
	case f.sel.DownloadText:
		if !f.loggedIn {
			return fmt.Errorf("%w: button containing %q", chrome.ErrElementNotFound, text)
		}
	default:
		return fmt.Errorf("%w: %s containing %q", chrome.ErrElementNotFound, scope, text)
	}
	return nil
}

func (f *fakeApp) signIn() {
	f.loggedIn = true
	f.url = fakeBase + "/"
}

func (f *fakeApp) Fill(ctx context.Context, selector, text string) error {
	f.record("fill %s", selector)
	f.fields[selector] = text
	return nil
}

func (f *fakeApp) WaitForURL(ctx context.Context, url string, timeout time.Duration) error {
	if f.url == url {
		return nil
	}
	return fmt.Errorf("%w: URL %s", chrome.ErrTimeout, url)
}

func (f *fakeApp) WaitForText(ctx context.Context, text string, timeout time.Duration) error {
	switch {
	case text == f.sel.WelcomeText && f.loggedIn:
		return nil
	case text == f.sel.ImportToastText && f.toast:
		return nil
	}
	return fmt.Errorf("%w: text %q", chrome.ErrTimeout, text)
}

func (f *fakeApp) UploadFile(ctx context.Context, selector, path string) error {
	f.record("upload %s", filepath.Base(path))
	if f.uploadErr != nil {
		return f.uploadErr
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f.uploaded = string(data)

	doc, err := csvdoc.Parse(f.uploaded)
	if err != nil {
		return nil
	}
	f.rows = nil
	for i, r := range doc.Rows {
		if len(r) < 3 {
			continue
		}
		f.rows = append(f.rows, []string{strconv.Itoa(i + 6), r[0], r[1], "¥" + r[2], "2026/10/18 10:00:00"})
	}
	f.toast = !f.noToast
	return nil
}

func (f *fakeApp) TableRows(ctx context.Context, rowSelector string) ([][]string, error) {
	if !f.loggedIn {
		return nil, nil
	}
	return f.rows, nil
}

func (f *fakeApp) Download(ctx context.Context, dir, name string, timeout time.Duration, trigger func() error) (string, error) {
	if err := trigger(); err != nil {
		return "", err
	}
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	if f.exportCSV == "" {
		return "", fmt.Errorf("%w: download of %s", chrome.ErrTimeout, name)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(f.exportCSV), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// seedRows is the table a fresh account sees.
func seedRows() [][]string {
	return [][]string{
		{"1", "TestProduct1", "10", "¥1,000", "2026/10/18 09:00:00"},
		{"2", "TestProduct2", "20", "¥2,000", "2026/10/18 09:00:00"},
	}
}

func testConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = fakeBase
	cfg.DownloadDir = dir
	cfg.StepTimeout = 200 * time.Millisecond
	cfg.DownloadTimeout = 200 * time.Millisecond
	cfg.UploadTimeout = 200 * time.Millisecond
	return cfg
}
