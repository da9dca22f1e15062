package bridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/stegovox/internal/bridge"
	"github.com/MrWong99/stegovox/internal/service"
	"github.com/MrWong99/stegovox/internal/store"
	"github.com/MrWong99/stegovox/pkg/stego"
	"github.com/MrWong99/stegovox/pkg/stego/stegotest"
)

func newServer(t *testing.T, cfg bridge.Config) *httptest.Server {
	t.Helper()
	st := store.NewMemory(0)
	mux := http.NewServeMux()
	bridge.New(service.New(st, st), cfg, nil).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path string, body any) (int, bridge.Response) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	resp, err := http.Post(srv.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.Header.Get(bridge.RequestIDHeader) == "" {
		t.Errorf("POST %s: missing %s header", path, bridge.RequestIDHeader)
	}
	var out bridge.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func TestHTTPRoundTrip(t *testing.T) {
	t.Parallel()
	srv := newServer(t, bridge.Config{})

	code, enc := post(t, srv, "/v1/encode", bridge.Request{Buffer: stegotest.Opus(t), Secret: "hello", Password: "p@ss"})
	if code != http.StatusOK || !enc.OK {
		t.Fatalf("encode: %d %+v", code, enc)
	}
	if enc.Format != "ogg" || stego.DetectFormat(enc.Buffer) != stego.FormatOgg {
		t.Errorf("encode format = %q", enc.Format)
	}

	code, dec := post(t, srv, "/v1/decode", bridge.Request{Buffer: enc.Buffer, Password: "p@ss"})
	if code != http.StatusOK || dec.Message == nil || *dec.Message != "hello" {
		t.Fatalf("decode: %d %+v", code, dec)
	}

	code, link := post(t, srv, "/v1/link", bridge.Request{DocID: "doc-1"})
	if code != http.StatusOK || !link.OK {
		t.Errorf("link: %d %+v", code, link)
	}

	code, insp := post(t, srv, "/v1/inspect", bridge.Request{Buffer: enc.Buffer})
	if code != http.StatusOK || insp.Report == nil || !insp.Report.HasPayload {
		t.Errorf("inspect: %d %+v", code, insp)
	}
}

func TestHTTPEmptyMessage(t *testing.T) {
	t.Parallel()
	srv := newServer(t, bridge.Config{})

	_, enc := post(t, srv, "/v1/encode", bridge.Request{Buffer: stegotest.Opus(t), Secret: "", Password: "pw"})
	_, dec := post(t, srv, "/v1/decode", bridge.Request{Buffer: enc.Buffer, Password: "pw"})
	if dec.Message == nil || *dec.Message != "" {
		t.Errorf("empty secret should decode to a present empty message, got %+v", dec)
	}
}

func TestHTTPErrors(t *testing.T) {
	t.Parallel()
	srv := newServer(t, bridge.Config{MaxBodyBytes: 4 << 10})

	encoded, err := stego.Encode("s", "right", stegotest.Opus(t))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unsupported format", "/v1/encode", bridge.Request{Buffer: []byte("ID3 not audio"), Secret: "s", Password: "p"}, http.StatusUnsupportedMediaType, service.CodeUnsupportedFormat},
		{"no hidden message", "/v1/decode", bridge.Request{Buffer: stegotest.Opus(t), Password: "p"}, http.StatusNotFound, service.CodeNoHiddenMessage},
		{"wrong password", "/v1/decode", bridge.Request{Buffer: encoded, Password: "wrong"}, http.StatusForbidden, service.CodeAuthentication},
		{"empty password", "/v1/encode", bridge.Request{Buffer: stegotest.Opus(t), Secret: "s"}, http.StatusBadRequest, service.CodeEmptyPassword},
		{"invalid container", "/v1/encode", bridge.Request{Buffer: []byte("OggS"), Secret: "s", Password: "p"}, http.StatusUnprocessableEntity, service.CodeInvalidContainer},
		{"nothing to link", "/v1/link", bridge.Request{DocID: "x"}, http.StatusNotFound, service.CodeNothingToLink},
		{"empty doc id", "/v1/link", bridge.Request{}, http.StatusBadRequest, service.CodeInvalidRequest},
		{"bad json", "/v1/decode", "{not json", http.StatusBadRequest, service.CodeInvalidRequest},
		{"too large", "/v1/encode", bridge.Request{Buffer: make([]byte, 8<<10), Secret: "s", Password: "p"}, http.StatusRequestEntityTooLarge, "body_too_large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, resp := post(t, srv, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d (%+v)", status, tt.wantStatus, resp)
			}
			if resp.OK || resp.Code != tt.wantCode {
				t.Errorf("code = %q ok=%v, want %q", resp.Code, resp.OK, tt.wantCode)
			}
			if resp.Error == "" {
				t.Error("missing error message")
			}
		})
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetReadLimit(1 << 22)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) bridge.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp bridge.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp
}

func TestWebSocketRequests(t *testing.T) {
	t.Parallel()
	srv := newServer(t, bridge.Config{MaxInFlight: 4})
	conn := dial(t, srv)

	send(t, conn, bridge.Request{ID: "enc-1", Action: bridge.ActionEncode, Buffer: stegotest.Opus(t), Secret: "over ws", Password: "pw", DocID: "d"})
	enc := receive(t, conn)
	if enc.ID != "enc-1" || !enc.OK {
		t.Fatalf("encode response = %+v", enc)
	}

	// Several concurrent requests; responses are matched by id.
	want := map[string]string{}
	for i, secret := range []string{"a", "b", "c"} {
		id := string(rune('x' + i))
		out, err := stego.Encode(secret, "pw", stegotest.Opus(t))
		if err != nil {
			t.Fatal(err)
		}
		want[id] = secret
		send(t, conn, bridge.Request{ID: id, Action: bridge.ActionDecode, Buffer: out, Password: "pw"})
	}
	send(t, conn, bridge.Request{ID: "link", Action: bridge.ActionLink, DocID: "d2"})
	want["link"] = ""

	for range len(want) {
		resp := receive(t, conn)
		secret, ok := want[resp.ID]
		if !ok {
			t.Fatalf("unexpected response id %q", resp.ID)
		}
		delete(want, resp.ID)
		if !resp.OK {
			t.Errorf("%s failed: %+v", resp.ID, resp)
			continue
		}
		if resp.ID != "link" && (resp.Message == nil || *resp.Message != secret) {
			t.Errorf("%s message = %v, want %q", resp.ID, resp.Message, secret)
		}
	}
}

func TestWebSocketErrors(t *testing.T) {
	t.Parallel()
	srv := newServer(t, bridge.Config{})
	conn := dial(t, srv)

	send(t, conn, bridge.Request{ID: "u", Action: "shred"})
	if resp := receive(t, conn); resp.ID != "u" || resp.Code != service.CodeInvalidRequest {
		t.Errorf("unknown action = %+v", resp)
	}

	send(t, conn, bridge.Request{Action: bridge.ActionDecode, Buffer: stegotest.WAV(t, 4), Password: "pw"})
	resp := receive(t, conn)
	if resp.ID == "" {
		t.Error("missing generated id")
	}
	if resp.Code != service.CodeNoHiddenMessage {
		t.Errorf("code = %q, want %q", resp.Code, service.CodeNoHiddenMessage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte("{oops")); err != nil {
		t.Fatal(err)
	}
	if resp := receive(t, conn); resp.Code != service.CodeInvalidRequest {
		t.Errorf("bad frame = %+v", resp)
	}
}
