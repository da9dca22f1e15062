package mcptools_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/stegovox/internal/mcptools"
	"github.com/MrWong99/stegovox/internal/service"
	"github.com/MrWong99/stegovox/internal/store"
	"github.com/MrWong99/stegovox/pkg/stego/stegotest"
)

func connect(t *testing.T) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory(16)
	srv := mcptools.NewServer(service.New(mem, mem), "test")
	serverT, clientT := mcpsdk.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

// call invokes a tool and decodes its JSON text content into out. It returns
// the text of an error result instead.
func call(t *testing.T, cs *mcpsdk.ClientSession, name string, args any, out any) (errText string) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(res.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): content is %T, want *TextContent", name, res.Content[0])
	}
	if res.IsError {
		return text.Text
	}
	if err := json.Unmarshal([]byte(text.Text), out); err != nil {
		t.Fatalf("CallTool(%s): decode result %q: %v", name, text.Text, err)
	}
	return ""
}

func TestListTools(t *testing.T) {
	t.Parallel()

	cs := connect(t)
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	got := map[string]bool{}
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{mcptools.ToolEncode, mcptools.ToolDecode, mcptools.ToolInspect} {
		if !got[name] {
			t.Errorf("tool %q not listed", name)
		}
	}
}

func TestEncodeDecodeInspect(t *testing.T) {
	t.Parallel()

	cs := connect(t)
	audio := base64.StdEncoding.EncodeToString(stegotest.Opus(t))

	var enc mcptools.EncodeResult
	if msg := call(t, cs, mcptools.ToolEncode, map[string]any{
		"audio_base64": audio,
		"secret":       "over the wire",
		"password":     "pw",
	}, &enc); msg != "" {
		t.Fatalf("encode failed: %s", msg)
	}
	if enc.Format != "ogg" {
		t.Errorf("format = %q, want ogg", enc.Format)
	}

	var dec mcptools.DecodeResult
	if msg := call(t, cs, mcptools.ToolDecode, map[string]any{
		"audio_base64": enc.AudioBase64,
		"password":     "pw",
	}, &dec); msg != "" {
		t.Fatalf("decode failed: %s", msg)
	}
	if dec.Message != "over the wire" {
		t.Errorf("message = %q", dec.Message)
	}

	var rep mcptools.InspectResult
	if msg := call(t, cs, mcptools.ToolInspect, map[string]any{"audio_base64": enc.AudioBase64}, &rep); msg != "" {
		t.Fatalf("inspect failed: %s", msg)
	}
	if !rep.HasPayload || rep.Format != "ogg" || rep.Vendor != "fixture" {
		t.Errorf("report = %+v", rep)
	}
}

func TestToolErrors(t *testing.T) {
	t.Parallel()

	cs := connect(t)
	clean := base64.StdEncoding.EncodeToString(stegotest.WAV(t, 16))

	tests := []struct {
		name string
		tool string
		args map[string]any
		code string
	}{
		{
			name: "no hidden message",
			tool: mcptools.ToolDecode,
			args: map[string]any{"audio_base64": clean, "password": "pw"},
			code: service.CodeNoHiddenMessage,
		},
		{
			name: "bad base64",
			tool: mcptools.ToolInspect,
			args: map[string]any{"audio_base64": "***"},
			code: service.CodeInvalidRequest,
		},
		{
			name: "unsupported format",
			tool: mcptools.ToolEncode,
			args: map[string]any{
				"audio_base64": base64.StdEncoding.EncodeToString([]byte("ID3 not audio we know")),
				"secret":       "s",
				"password":     "pw",
			},
			code: service.CodeUnsupportedFormat,
		},
		{
			name: "empty password",
			tool: mcptools.ToolEncode,
			args: map[string]any{"audio_base64": clean, "secret": "s", "password": ""},
			code: service.CodeEmptyPassword,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := call(t, cs, tt.tool, tt.args, &struct{}{})
			if !strings.HasPrefix(msg, tt.code+":") {
				t.Errorf("error text = %q, want prefix %q", msg, tt.code+":")
			}
		})
	}
}

func TestHandlerServesStreamableHTTP(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory(4)
	ts := httptest.NewServer(mcptools.Handler(mcptools.NewServer(service.New(mem, mem), "test")))
	t.Cleanup(ts.Close)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(context.Background(), &mcpsdk.StreamableClientTransport{Endpoint: ts.URL}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer cs.Close()

	var rep mcptools.InspectResult
	audio := base64.StdEncoding.EncodeToString(stegotest.Opus(t))
	if msg := call(t, cs, mcptools.ToolInspect, map[string]any{"audio_base64": audio}, &rep); msg != "" {
		t.Fatalf("inspect failed: %s", msg)
	}
	if rep.HasPayload || rep.Pages != 3 {
		t.Errorf("report = %+v", rep)
	}
}
