package roundtrip

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/tomyan/csvtrip/internal/chrome"
)

// UploadOutcome is the result of an import attempt.
type UploadOutcome int

const (
	UploadSkipped     UploadOutcome = iota // the run stopped before the upload step
	UploadFailed                           // the file never reached the input
	UploadUnconfirmed                      // file set, no confirmation toast seen
	UploadConfirmed
)

func (o UploadOutcome) String() string {
	switch o {
	case UploadConfirmed:
		return "confirmed"
	case UploadUnconfirmed:
		return "unconfirmed"
	case UploadFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// MarshalText lets reports print the outcome by name.
func (o UploadOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UploadCSV stages text as UploadName in the download directory, hands it to
// the file input and waits for the import toast.
func UploadCSV(ctx context.Context, page Page, cfg Config, text string, rep *Reporter) UploadOutcome {
	rep.Info("starting CSV upload")

	path := filepath.Join(cfg.DownloadDir, UploadName)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		rep.Error("CSV upload failed: staging %s: %v", path, err)
		return UploadFailed
	}
	rep.Info("staged upload file: %s", path)

	if err := page.UploadFile(ctx, cfg.Selectors.FileInput, path); err != nil {
		rep.Error("CSV upload failed: %v", err)
		return UploadFailed
	}

	err := page.WaitForText(ctx, cfg.Selectors.ImportToastText, cfg.UploadTimeout)
	switch {
	case err == nil:
		rep.Success("CSV uploaded, the app reported %q", cfg.Selectors.ImportToastText)
		return UploadConfirmed
	case errors.Is(err, chrome.ErrTimeout):
		rep.Warning("no confirmation message within %s; the upload may still have completed", cfg.UploadTimeout)
		return UploadUnconfirmed
	default:
		rep.Warning("could not check for the confirmation message: %v", err)
		return UploadUnconfirmed
	}
}
