package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestConnect_FailsWithBadPort(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Port 1 should fail to connect
	_, err := Connect(ctx, "127.0.0.1", 1)
	if err == nil {
		t.Error("expected connection to fail on port 1")
	}
}

func TestCall_ReturnsResult(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		if call.Method == "Browser.getVersion" {
			return fakeReply{Result: map[string]string{"product": "FakeChrome/1.0"}}
		}
		return fakeReply{}
	})
	client := fb.connect()

	raw, err := client.Call(context.Background(), "Browser.getVersion", nil)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	var resp struct {
		Product string `json:"product"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Product != "FakeChrome/1.0" {
		t.Errorf("product = %q", resp.Product)
	}
	if client.WebSocketURL() == "" {
		t.Error("expected WebSocket URL to be recorded")
	}
}

func TestCall_ProtocolError(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		return fakeReply{Err: &ProtocolError{Code: -32601, Message: "method not found"}}
	})
	client := fb.connect()

	_, err := client.Call(context.Background(), "Nope.nothing", nil)
	if !errors.Is(err, ErrProtocolError) {
		t.Fatalf("expected ErrProtocolError, got %v", err)
	}

	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.Code != -32601 {
		t.Errorf("expected code -32601, got %v", err)
	}
}

func TestCall_AfterClose(t *testing.T) {
	fb := newFakeBrowser(t, nil)
	client := fb.connect()

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Second close is a no-op
	client.Close()

	_, err := client.Call(context.Background(), "Browser.getVersion", nil)
	if !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestTargets(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		if call.Method != "Target.getTargets" {
			return fakeReply{}
		}
		return fakeReply{Result: map[string]interface{}{
			"targetInfos": []map[string]interface{}{
				{"targetId": "T1", "type": "page", "title": "CSV Manager", "url": "http://csv.test/", "attached": true, "canAccessOpener": false},
				{"targetId": "W1", "type": "service_worker", "title": "sw", "url": "http://csv.test/sw.js", "attached": false, "canAccessOpener": false},
			},
		}}
	})
	client := fb.connect()

	targets, err := client.Targets(context.Background())
	if err != nil {
		t.Fatalf("Targets failed: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	if targets[0].ID != "T1" || targets[0].Type != "page" || targets[0].URL != "http://csv.test/" {
		t.Errorf("unexpected first target %+v", targets[0])
	}
}

func TestNavigateAndWait_WaitsForLoadEvent(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		if call.Method == "Page.navigate" {
			return fakeReply{
				Result: map[string]string{"frameId": "F1", "loaderId": "L1"},
				Events: []fakeEvent{{SessionID: call.SessionID, Method: "Page.loadEventFired", Params: map[string]float64{"timestamp": 1}}},
			}
		}
		return fakeReply{}
	})
	client := fb.connect()

	res, err := client.NavigateAndWait(context.Background(), "T1", "http://app.test/login", 2*time.Second)
	if err != nil {
		t.Fatalf("NavigateAndWait failed: %v", err)
	}
	if res.FrameID != "F1" || res.URL != "http://app.test/login" {
		t.Errorf("unexpected result: %+v", res)
	}

	navs := fb.callsTo("Page.navigate")
	if len(navs) != 1 || navs[0].SessionID != "session-1" {
		t.Fatalf("expected one session-scoped Page.navigate, got %+v", navs)
	}
	var params struct {
		URL string `json:"url"`
	}
	json.Unmarshal(navs[0].Params, &params)
	if params.URL != "http://app.test/login" {
		t.Errorf("navigated to %q", params.URL)
	}
}

func TestNavigateAndWait_ErrorText(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		if call.Method == "Page.navigate" {
			return fakeReply{Result: map[string]string{"frameId": "F1", "errorText": "net::ERR_CONNECTION_REFUSED"}}
		}
		return fakeReply{}
	})
	client := fb.connect()

	res, err := client.NavigateAndWait(context.Background(), "T1", "http://127.0.0.1:1/", time.Second)
	if err == nil {
		t.Fatal("expected navigation error")
	}
	if res == nil || res.ErrorText != "net::ERR_CONNECTION_REFUSED" {
		t.Errorf("expected error text in result, got %+v", res)
	}
}

func TestNavigateAndWait_TimesOut(t *testing.T) {
	fb := newFakeBrowser(t, nil)
	client := fb.connect()

	_, err := client.NavigateAndWait(context.Background(), "T1", "http://app.test/", 150*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestWaitFor_FindsElementAfterPolling(t *testing.T) {
	var queries atomic.Int32
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		switch call.Method {
		case "DOM.getDocument":
			return fakeReply{Result: map[string]interface{}{"root": map[string]int{"nodeId": 1}}}
		case "DOM.querySelector":
			if queries.Add(1) < 3 {
				return fakeReply{Result: map[string]int{"nodeId": 0}}
			}
			return fakeReply{Result: map[string]int{"nodeId": 42}}
		}
		return fakeReply{}
	})
	client := fb.connect()

	if err := client.WaitFor(context.Background(), "T1", "table tbody tr", 2*time.Second); err != nil {
		t.Fatalf("WaitFor failed: %v", err)
	}
	if queries.Load() < 3 {
		t.Errorf("expected polling, got %d queries", queries.Load())
	}
}

func TestWaitFor_Timeout(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		switch call.Method {
		case "DOM.getDocument":
			return fakeReply{Result: map[string]interface{}{"root": map[string]int{"nodeId": 1}}}
		case "DOM.querySelector":
			return fakeReply{Result: map[string]int{"nodeId": 0}}
		}
		return fakeReply{}
	})
	client := fb.connect()

	err := client.WaitFor(context.Background(), "T1", "#missing", 250*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestWaitForURL_RetriesProtocolErrors(t *testing.T) {
	var evals atomic.Int32
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		if call.Method != "Runtime.evaluate" {
			return fakeReply{}
		}
		switch evals.Add(1) {
		case 1:
			return fakeReply{Err: &ProtocolError{Code: -32000, Message: "Execution context was destroyed."}}
		case 2:
			return fakeReply{Result: evalValue(false)}
		default:
			return fakeReply{Result: evalValue(true)}
		}
	})
	client := fb.connect()

	if err := client.WaitForURL(context.Background(), "T1", "http://app.test/", 2*time.Second); err != nil {
		t.Fatalf("WaitForURL failed: %v", err)
	}
}

func TestEval_Exception(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		if call.Method == "Runtime.evaluate" {
			return fakeReply{Result: map[string]interface{}{
				"result": map[string]string{"type": "object"},
				"exceptionDetails": map[string]interface{}{
					"text":      "Uncaught",
					"exception": map[string]string{"description": "ReferenceError: nope is not defined"},
				},
			}}
		}
		return fakeReply{}
	})
	client := fb.connect()

	_, err := client.Eval(context.Background(), "T1", "nope()")
	if err == nil || err.Error() != "JS exception: ReferenceError: nope is not defined" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTableRows(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		if call.Method == "Runtime.evaluate" {
			return fakeReply{Result: evalValue([][]string{
				{"1", "Laptop", "10", "¥120,000", "2024/1/1"},
				{"2", "Mouse", "50", "¥2,500", "2024/1/1"},
			})}
		}
		return fakeReply{}
	})
	client := fb.connect()

	rows, err := client.TableRows(context.Background(), "T1", "table tbody tr")
	if err != nil {
		t.Fatalf("TableRows failed: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "Mouse" || rows[0][3] != "¥120,000" {
		t.Errorf("unexpected rows: %v", rows)
	}

	calls := fb.callsTo("Runtime.evaluate")
	if len(calls) != 1 {
		t.Fatalf("expected 1 evaluate call, got %d", len(calls))
	}
	var params struct {
		Expression string `json:"expression"`
	}
	if err := json.Unmarshal(calls[0].Params, &params); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(params.Expression, "querySelectorAll('td')") || strings.Contains(params.Expression, ", th") {
		t.Errorf("table cells should come from td only: %s", params.Expression)
	}
}

func TestClickText_NotFound(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		if call.Method == "Runtime.evaluate" {
			return fakeReply{Result: evalValue(nil)}
		}
		return fakeReply{}
	})
	client := fb.connect()

	err := client.ClickText(context.Background(), "T1", "button", "ログイン")
	if !errors.Is(err, ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}
	if n := len(fb.callsTo("Input.dispatchMouseEvent")); n != 0 {
		t.Errorf("expected no mouse events, got %d", n)
	}
}

func TestClickText_DispatchesClick(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		if call.Method == "Runtime.evaluate" {
			return fakeReply{Result: evalValue(map[string]float64{"x": 100, "y": 40})}
		}
		return fakeReply{}
	})
	client := fb.connect()

	if err := client.ClickText(context.Background(), "T1", "button", "ログイン"); err != nil {
		t.Fatalf("ClickText failed: %v", err)
	}

	events := fb.callsTo("Input.dispatchMouseEvent")
	if len(events) != 3 {
		t.Fatalf("expected 3 mouse events, got %d", len(events))
	}
	var pressed struct {
		Type   string  `json:"type"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Button string  `json:"button"`
	}
	json.Unmarshal(events[1].Params, &pressed)
	if pressed.Type != "mousePressed" || pressed.X != 100 || pressed.Y != 40 || pressed.Button != "left" {
		t.Errorf("unexpected press: %+v", pressed)
	}
}

func TestUploadFile_SetsFiles(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		switch call.Method {
		case "DOM.getDocument":
			return fakeReply{Result: map[string]interface{}{"root": map[string]int{"nodeId": 1}}}
		case "DOM.querySelector":
			return fakeReply{Result: map[string]int{"nodeId": 7}}
		}
		return fakeReply{}
	})
	client := fb.connect()

	if err := client.UploadFile(context.Background(), "T1", "input[type='file']", []string{"/tmp/data.csv"}); err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}

	calls := fb.callsTo("DOM.setFileInputFiles")
	if len(calls) != 1 {
		t.Fatalf("expected one setFileInputFiles call, got %d", len(calls))
	}
	var params struct {
		Files  []string `json:"files"`
		NodeID int64    `json:"nodeId"`
	}
	json.Unmarshal(calls[0].Params, &params)
	if params.NodeID != 7 || len(params.Files) != 1 || params.Files[0] != "/tmp/data.csv" {
		t.Errorf("unexpected params: %+v", params)
	}
}

func TestUploadFile_MissingInput(t *testing.T) {
	fb := newFakeBrowser(t, func(call fakeCall) fakeReply {
		switch call.Method {
		case "DOM.getDocument":
			return fakeReply{Result: map[string]interface{}{"root": map[string]int{"nodeId": 1}}}
		case "DOM.querySelector":
			return fakeReply{Result: map[string]int{"nodeId": 0}}
		}
		return fakeReply{}
	})
	client := fb.connect()

	err := client.UploadFile(context.Background(), "T1", "input[type='file']", []string{"/tmp/data.csv"})
	if !errors.Is(err, ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}
}

func TestSetDownloadBehavior(t *testing.T) {
	fb := newFakeBrowser(t, nil)
	client := fb.connect()

	if err := client.SetDownloadBehavior(context.Background(), "/tmp/dl"); err != nil {
		t.Fatalf("SetDownloadBehavior failed: %v", err)
	}

	calls := fb.callsTo("Browser.setDownloadBehavior")
	if len(calls) != 1 || calls[0].SessionID != "" {
		t.Fatalf("expected one browser-level call, got %+v", calls)
	}
	var params struct {
		Behavior      string `json:"behavior"`
		DownloadPath  string `json:"downloadPath"`
		EventsEnabled bool   `json:"eventsEnabled"`
	}
	json.Unmarshal(calls[0].Params, &params)
	if params.Behavior != "allow" || params.DownloadPath != "/tmp/dl" || !params.EventsEnabled {
		t.Errorf("unexpected params: %+v", params)
	}
}

func TestWatchDownload_Completed(t *testing.T) {
	fb := newFakeBrowser(t, nil)
	client := fb.connect()
	dir := t.TempDir()

	w := client.WatchDownload(dir, "data.csv")
	defer w.Stop()

	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("Product,Quantity,Price\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fb.emit(fakeEvent{Method: "Browser.downloadProgress", Params: map[string]interface{}{
		"guid": "g-1", "totalBytes": 23, "receivedBytes": 23, "state": "completed",
	}})

	res, err := w.Wait(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if res.Path != path || res.Bytes != 23 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestWatchDownload_Canceled(t *testing.T) {
	fb := newFakeBrowser(t, nil)
	client := fb.connect()
	dir := t.TempDir()

	w := client.WatchDownload(dir, "data.csv")
	defer w.Stop()

	fb.emit(fakeEvent{Method: "Browser.downloadProgress", Params: map[string]interface{}{
		"guid": "g-1", "totalBytes": 0, "receivedBytes": 0, "state": "canceled",
	}})

	_, err := w.Wait(context.Background(), 2*time.Second)
	if !errors.Is(err, ErrDownloadCanceled) {
		t.Errorf("expected ErrDownloadCanceled, got %v", err)
	}
}

func TestWatchDownload_FileWithoutEvents(t *testing.T) {
	fb := newFakeBrowser(t, nil)
	client := fb.connect()
	dir := t.TempDir()

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "data.csv"), []byte("a,b\n"), 0o644)
	}()

	w := client.WatchDownload(dir, "data.csv")
	defer w.Stop()

	res, err := w.Wait(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if res.Bytes != 4 {
		t.Errorf("bytes = %d, want 4", res.Bytes)
	}
}

func TestWatchDownload_Timeout(t *testing.T) {
	fb := newFakeBrowser(t, nil)
	client := fb.connect()

	w := client.WatchDownload(t.TempDir(), "data.csv")
	defer w.Stop()

	_, err := w.Wait(context.Background(), 200*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}
