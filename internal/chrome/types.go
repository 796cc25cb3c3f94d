package chrome

import (
	"encoding/json"
	"errors"
	"fmt"
)

// --- Errors ---

// Errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrProtocolError    = errors.New("protocol error")
	ErrElementNotFound  = errors.New("element not found")
	ErrTimeout          = errors.New("timeout")
	ErrDownloadCanceled = errors.New("download canceled")
)

// ProtocolError represents an error returned by the Chrome DevTools Protocol.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocolError
}

// timeoutError reports a bounded wait that expired. It matches ErrTimeout
// with errors.Is.
type timeoutError struct {
	what string
}

func (e *timeoutError) Error() string {
	return "timeout waiting for " + e.what
}

func (e *timeoutError) Unwrap() error {
	return ErrTimeout
}

func newTimeout(format string, args ...interface{}) error {
	return &timeoutError{what: fmt.Sprintf(format, args...)}
}

// --- Targets & navigation ---

// TargetInfo represents a browser target (tab, worker, etc.).
type TargetInfo struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NavigateResult contains the result of a navigation.
type NavigateResult struct {
	FrameID   string `json:"frameId"`
	LoaderID  string `json:"loaderId,omitempty"`
	URL       string `json:"url"`
	ErrorText string `json:"errorText,omitempty"`
}

// --- JavaScript ---

// EvalResult contains the result of evaluating a JavaScript expression.
type EvalResult struct {
	Value interface{} `json:"value"`
	Type  string      `json:"type,omitempty"`
}

// Point is a viewport coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// --- Downloads ---

// DownloadResult describes a finished browser download.
type DownloadResult struct {
	GUID  string `json:"guid,omitempty"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// --- Helper Functions ---

// isTruthy checks if a value is truthy in JavaScript terms.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	default:
		return true
	}
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
