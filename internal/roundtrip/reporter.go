package roundtrip

import (
	"fmt"
	"io"
	"log"
	"strings"
)

const rule = "============================================================"

// Reporter writes the run's console log. Every line carries a severity tag.
type Reporter struct {
	log *log.Logger
}

// NewReporter returns a Reporter writing to w. A nil w discards output.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{log: log.New(w, "", 0)}
}

func (r *Reporter) tagged(tag, format string, args ...interface{}) {
	r.log.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (r *Reporter) Info(format string, args ...interface{})    { r.tagged("INFO", format, args...) }
func (r *Reporter) Success(format string, args ...interface{}) { r.tagged("SUCCESS", format, args...) }
func (r *Reporter) Warning(format string, args ...interface{}) { r.tagged("WARNING", format, args...) }
func (r *Reporter) Error(format string, args ...interface{})   { r.tagged("ERROR", format, args...) }
func (r *Reporter) Fatal(format string, args ...interface{})   { r.tagged("FATAL ERROR", format, args...) }

// Log writes an untagged line.
func (r *Reporter) Log(line string) {
	r.log.Print(line)
}

// Step starts a numbered pipeline step with a blank line before it.
func (r *Reporter) Step(n int, format string, args ...interface{}) {
	r.Log("")
	r.tagged(fmt.Sprintf("STEP %d", n), format, args...)
}

// Block logs a multi-line payload such as CSV text or a diff under an
// [INFO] heading.
func (r *Reporter) Block(heading, body string) {
	r.log.Printf("[INFO] %s:\n%s", heading, strings.TrimRight(body, "\n"))
}

// Banner prints the run header.
func (r *Reporter) Banner(cfg Config) {
	r.log.Print(rule)
	r.log.Print("CSV Manager round trip")
	r.log.Print(rule)
	r.log.Printf("Site:     %s", cfg.BaseURL)
	r.log.Printf("Username: %s", cfg.Credentials.Username)
	r.log.Printf("Change:   %s", cfg.Mutation)
	r.log.Print(rule)
}

// Complete prints the closing line of a fully verified run.
func (r *Reporter) Complete() {
	r.Log("")
	r.log.Print(rule)
	r.tagged("COMPLETE", "all steps finished and the change was verified")
	r.log.Print(rule)
}
