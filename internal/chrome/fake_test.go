package chrome

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeEvent is a protocol event the fake browser emits after a reply.
type fakeEvent struct {
	SessionID string
	Method    string
	Params    interface{}
}

// fakeReply is what a fakeBrowser handler returns for one command.
type fakeReply struct {
	Result interface{}
	Err    *ProtocolError
	Events []fakeEvent
}

type fakeCall struct {
	SessionID string
	Method    string
	Params    json.RawMessage
}

// fakeBrowser speaks just enough of the DevTools wire protocol to drive the
// client: a /json/version endpoint and a websocket answering commands.
type fakeBrowser struct {
	t       *testing.T
	srv     *httptest.Server
	handler func(call fakeCall) fakeReply

	mu    sync.Mutex
	calls []fakeCall
	conn  *websocket.Conn
	wmu   sync.Mutex
}

func newFakeBrowser(t *testing.T, handler func(call fakeCall) fakeReply) *fakeBrowser {
	t.Helper()

	fb := &fakeBrowser{t: t, handler: handler}
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		wsURL := "ws://" + r.Host + "/devtools/browser/fake"
		json.NewEncoder(w).Encode(map[string]string{
			"Browser":              "FakeChrome/1.0",
			"webSocketDebuggerUrl": wsURL,
		})
	})
	mux.HandleFunc("/devtools/browser/fake", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fb.mu.Lock()
		fb.conn = conn
		fb.mu.Unlock()
		fb.serve(conn)
	})

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBrowser) serve(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var req cdpRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		call := fakeCall{SessionID: req.SessionID, Method: req.Method, Params: req.Params}
		fb.mu.Lock()
		fb.calls = append(fb.calls, call)
		fb.mu.Unlock()

		reply := fakeReply{Result: map[string]interface{}{}}
		switch {
		case req.Method == "Target.attachToTarget":
			reply.Result = map[string]string{"sessionId": "session-1"}
		case fb.handler != nil:
			reply = fb.handler(call)
			if reply.Result == nil && reply.Err == nil {
				reply.Result = map[string]interface{}{}
			}
		}

		msg := map[string]interface{}{"id": req.ID}
		if reply.Err != nil {
			msg["error"] = reply.Err
		} else {
			msg["result"] = reply.Result
		}
		if req.SessionID != "" {
			msg["sessionId"] = req.SessionID
		}
		fb.write(msg)

		for _, ev := range reply.Events {
			fb.emit(ev)
		}
	}
}

func (fb *fakeBrowser) write(v interface{}) {
	fb.wmu.Lock()
	defer fb.wmu.Unlock()
	fb.mu.Lock()
	conn := fb.conn
	fb.mu.Unlock()
	if conn != nil {
		conn.WriteJSON(v)
	}
}

// emit sends an unsolicited event.
func (fb *fakeBrowser) emit(ev fakeEvent) {
	msg := map[string]interface{}{"method": ev.Method, "params": ev.Params}
	if ev.SessionID != "" {
		msg["sessionId"] = ev.SessionID
	}
	fb.write(msg)
}

// callsTo returns the recorded calls for method.
func (fb *fakeBrowser) callsTo(method string) []fakeCall {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var out []fakeCall
	for _, c := range fb.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// connect returns a client connected to the fake browser.
func (fb *fakeBrowser) connect() *Client {
	fb.t.Helper()

	host, port, err := net.SplitHostPort(strings.TrimPrefix(fb.srv.URL, "http://"))
	if err != nil {
		fb.t.Fatal(err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		fb.t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, host, p)
	if err != nil {
		fb.t.Fatalf("failed to connect to fake browser: %v", err)
	}
	fb.t.Cleanup(func() { client.Close() })
	return client
}

// evalValue wraps v the way Runtime.evaluate returns a by-value result.
func evalValue(v interface{}) map[string]interface{} {
	return map[string]interface{}{
		"result": map[string]interface{}{"type": "object", "value": v},
	}
}
