// Package roundtrip drives the CSV Manager app through one download, edit
// and upload cycle and checks that the edit shows up in the UI.
package roundtrip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tomyan/csvtrip/internal/csvdoc"
)

// Errors
var (
	ErrSessionFailed     = errors.New("browser session failed")
	ErrAuthFailed        = errors.New("login and registration both failed")
	ErrUploadFailed      = errors.New("CSV upload failed")
	ErrUploadUnconfirmed = errors.New("CSV upload not confirmed")
)

// State is a point in the run.
type State string

const (
	StateInit           State = "init"
	StateAuthLoggedIn   State = "auth_logged_in"
	StateAuthRegistered State = "auth_registered"
	StateDownloaded     State = "downloaded"
	StateEdited         State = "edited"
	StateUploaded       State = "uploaded"
	StateVerified       State = "verified"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// StepTiming records how long one state transition took.
type StepTiming struct {
	State    State         `json:"state"`
	Duration time.Duration `json:"duration"`
}

// Report summarizes a run.
type Report struct {
	States   []State       `json:"states"`
	Final    State         `json:"final"`
	Error    string        `json:"error,omitempty"`
	Source   string        `json:"source,omitempty"`
	Edit     *EditSummary  `json:"edit,omitempty"`
	Upload   UploadOutcome `json:"upload"`
	Verify   *VerifyResult `json:"verify,omitempty"`
	Verified bool          `json:"verified"`
	Steps    []StepTiming  `json:"steps"`
	Elapsed  time.Duration `json:"elapsed"`

	err error
}

// EditSummary is what the CSV edit changed.
type EditSummary struct {
	Mutation csvdoc.Mutation   `json:"mutation"`
	Result   csvdoc.EditResult `json:"result"`
	Changed  bool              `json:"changed"`
}

// Err returns the error that failed the run, or nil.
func (r *Report) Err() error {
	return r.err
}

// Runner executes the round trip once. Open is called to obtain the browser
// session; tests replace it.
type Runner struct {
	Config   Config
	Reporter *Reporter
	Open     func(ctx context.Context, cfg Config) (*Session, error)
}

// NewRunner returns a Runner that launches or attaches to Chrome and logs to w.
func NewRunner(cfg Config, w io.Writer) *Runner {
	return &Runner{Config: cfg, Reporter: NewReporter(w), Open: OpenSession}
}

type tracker struct {
	report *Report
	last   time.Time
}

func (t *tracker) enter(s State) {
	now := time.Now()
	t.report.States = append(t.report.States, s)
	t.report.Steps = append(t.report.Steps, StepTiming{State: s, Duration: now.Sub(t.last)})
	t.report.Final = s
	t.last = now
}

func (t *tracker) fail(err error) {
	t.report.err = err
	t.report.Error = err.Error()
	t.enter(StateFailed)
}

// Run executes every step once. The first unrecoverable error moves the run
// to StateFailed and skips to teardown, which always runs.
func (r *Runner) Run(ctx context.Context) *Report {
	start := time.Now()
	report := &Report{}
	t := &tracker{report: report, last: start}
	t.enter(StateInit)

	cfg := r.Config
	rep := r.Reporter
	rep.Banner(cfg)

	rep.Step(1, "starting the browser")
	sess, err := r.Open(ctx, cfg)
	if err != nil {
		rep.Fatal("%v", err)
		t.fail(fmt.Errorf("%w: %w", ErrSessionFailed, err))
		report.Elapsed = time.Since(start)
		return report
	}
	defer func() {
		rep.Log("")
		rep.Info("closing the browser")
		ownsDir := sess.ownsDir
		if err := sess.Close(); err != nil {
			rep.Warning("teardown: %v", err)
		} else if ownsDir {
			rep.Info("removed temporary directory %s", sess.DownloadDir)
		}
		report.Elapsed = time.Since(start)
	}()
	cfg.DownloadDir = sess.DownloadDir

	if err := r.steps(ctx, sess.Page, cfg, t); err != nil {
		rep.Fatal("%v", err)
		t.fail(err)
	}
	return report
}

// RunPage runs the pipeline against an already prepared page. Teardown is
// left to the caller.
func (r *Runner) RunPage(ctx context.Context, page Page) *Report {
	start := time.Now()
	report := &Report{}
	t := &tracker{report: report, last: start}
	t.enter(StateInit)

	r.Reporter.Banner(r.Config)
	if err := r.steps(ctx, page, r.Config, t); err != nil {
		r.Reporter.Fatal("%v", err)
		t.fail(err)
	}
	report.Elapsed = time.Since(start)
	return report
}

func (r *Runner) steps(ctx context.Context, page Page, cfg Config, t *tracker) error {
	rep := r.Reporter
	report := t.report

	rep.Step(2, "logging in")
	state, err := Authenticate(ctx, page, cfg, rep)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return err
	}
	t.enter(state)

	rep.Step(3, "downloading the CSV")
	content, source := retrieveCSV(ctx, page, cfg, rep)
	if source == "" {
		rep.Info("using the default CSV data")
		content = csvdoc.DefaultCSV
		source = SourceDefault
	}
	report.Source = source
	if err := ctx.Err(); err != nil {
		return err
	}
	t.enter(StateDownloaded)

	rep.Step(4, "editing the CSV")
	edited := editCSV(content, cfg.Mutation, rep, report)
	t.enter(StateEdited)

	rep.Step(5, "uploading the CSV")
	report.Upload = UploadCSV(ctx, page, cfg, edited, rep)
	switch report.Upload {
	case UploadFailed:
		return ErrUploadFailed
	case UploadUnconfirmed:
		if cfg.RequireUploadConfirmation {
			return ErrUploadUnconfirmed
		}
	}
	t.enter(StateUploaded)

	rep.Step(6, "checking the update")
	res := VerifyUpdate(ctx, page, cfg, rep)
	report.Verify = &res
	report.Verified = res.Matched
	if err := ctx.Err(); err != nil {
		return err
	}
	if res.Matched {
		t.enter(StateVerified)
		t.enter(StateDone)
		rep.Complete()
		return nil
	}

	rep.Log("")
	rep.Warning("the data update could not be confirmed")
	t.enter(StateDone)
	return nil
}

func editCSV(content string, m csvdoc.Mutation, rep *Reporter, report *Report) string {
	rep.Info("editing CSV data")
	rep.Info("target: %s", m)

	edited, res, err := csvdoc.Edit(content, m)
	report.Edit = &EditSummary{Mutation: m, Result: res, Changed: edited != content}
	switch {
	case errors.Is(err, csvdoc.ErrColumnNotFound):
		rep.Error("column %q not found", m.Column)
		return edited
	case err != nil:
		rep.Error("editing CSV: %v", err)
		return edited
	}

	for _, prev := range res.Previous {
		rep.Info("%s: %s changed from %s to %s", m.RowKey, m.Column, prev, m.Value)
	}
	if res.Matched == 0 {
		rep.Warning("no row with %q in the first column", m.RowKey)
	}
	if res.Short > 0 {
		rep.Warning("%d matching row(s) too short to hold %q", res.Short, m.Column)
	}

	rep.Success("CSV edit finished")
	if diff := csvdoc.Diff(content, edited); diff != "" {
		rep.Block("changes", diff)
	}
	rep.Block("edited CSV", edited)
	return edited
}

// Summary is a one-line description of the report.
func (r *Report) Summary() string {
	switch {
	case r.Final == StateFailed:
		return fmt.Sprintf("failed after %s: %s", r.Elapsed.Round(time.Millisecond), r.Error)
	case r.Verified:
		return fmt.Sprintf("done in %s, change verified", r.Elapsed.Round(time.Millisecond))
	default:
		return fmt.Sprintf("done in %s, change not verified (%s)", r.Elapsed.Round(time.Millisecond), verifyReason(r.Verify))
	}
}

func verifyReason(v *VerifyResult) VerifyReason {
	if v == nil {
		return ReasonScrapeFailed
	}
	return v.Reason
}
