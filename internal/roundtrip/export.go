package roundtrip

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/tomyan/csvtrip/internal/csvdoc"
)

// Where the CSV the run edits came from.
const (
	SourceDownload = "download"
	SourceTable    = "table"
	SourceDefault  = "default"
)

// DownloadCSV clicks the export button and returns the saved file's
// contents. When no file arrives in time it scrapes the on-screen table
// instead. It reports false only when the click fails or neither source
// produced data.
func DownloadCSV(ctx context.Context, page Page, cfg Config, rep *Reporter) (string, bool) {
	content, source := retrieveCSV(ctx, page, cfg, rep)
	return content, source != ""
}

// retrieveCSV is DownloadCSV that also names the source; "" means no data.
func retrieveCSV(ctx context.Context, page Page, cfg Config, rep *Reporter) (string, string) {
	rep.Info("starting CSV download")

	clicked := false
	path, err := page.Download(ctx, cfg.DownloadDir, DownloadName, cfg.DownloadTimeout, func() error {
		if err := page.ClickText(ctx, "button", cfg.Selectors.DownloadText); err != nil {
			return err
		}
		clicked = true
		return nil
	})
	if !clicked {
		rep.Error("CSV download failed: %v", err)
		return "", ""
	}

	if err == nil {
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil && len(data) > 0 {
			content := string(data)
			rep.Success("CSV downloaded to %s", path)
			rep.Block("downloaded CSV", content)
			return content, SourceDownload
		}
		if err == nil {
			err = errors.New("file is empty")
		}
	}

	rep.Info("no file at %s (%v), reading the table instead", filepath.Join(cfg.DownloadDir, DownloadName), err)
	if content, ok := ScrapeTableCSV(ctx, page, cfg, rep); ok {
		return content, SourceTable
	}
	return "", ""
}

// ScrapeTableCSV rebuilds the CSV from the table on screen. The header is
// always Product,Quantity,Price whatever columns the table has.
func ScrapeTableCSV(ctx context.Context, page Page, cfg Config, rep *Reporter) (string, bool) {
	rows, err := page.TableRows(ctx, cfg.Selectors.TableRows)
	if err != nil {
		rep.Error("reading the table failed: %v", err)
		return "", false
	}

	content, ok := csvdoc.FromTable(rows)
	if !ok {
		rep.Error("reading the table failed: no rows with at least 4 cells")
		return "", false
	}

	rep.Block("CSV from table", content)
	return content, true
}
