// Package mcptools exposes the stego service as MCP tools so that agents can
// hide, recover and inspect messages in audio they handle.
//
// Three tools are registered by [NewServer]:
//   - "stego_encode"  hides a message in base64 audio.
//   - "stego_decode"  recovers a hidden message.
//   - "stego_inspect" describes a container without decrypting it.
//
// The server can be run over stdio ([RunStdio]) or mounted as a streamable
// HTTP endpoint ([Handler]).
package mcptools

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/stegovox/internal/service"
	"github.com/MrWong99/stegovox/pkg/stego"
)

// Tool names.
const (
	ToolEncode  = "stego_encode"
	ToolDecode  = "stego_decode"
	ToolInspect = "stego_inspect"
)

// Service is the subset of *service.Service the tools call.
type Service interface {
	EncodeBuffer(ctx context.Context, req service.EncodeRequest) (service.EncodeResponse, error)
	DecodeBuffer(ctx context.Context, req service.DecodeRequest) (service.DecodeResponse, error)
	Inspect(ctx context.Context, buf []byte) (stego.Report, error)
}

// EncodeArgs is the input of "stego_encode".
type EncodeArgs struct {
	AudioBase64 string `json:"audio_base64" jsonschema:"the Ogg/Opus or WAV file, standard base64"`
	Secret      string `json:"secret" jsonschema:"the message to hide"`
	Password    string `json:"password" jsonschema:"the password that seals the message"`
}

// EncodeResult is the output of "stego_encode".
type EncodeResult struct {
	AudioBase64 string `json:"audio_base64"`
	Format      string `json:"format"`
}

// DecodeArgs is the input of "stego_decode".
type DecodeArgs struct {
	AudioBase64 string `json:"audio_base64" jsonschema:"the Ogg/Opus or WAV file, standard base64"`
	Password    string `json:"password" jsonschema:"the password the message was sealed with"`
}

// DecodeResult is the output of "stego_decode".
type DecodeResult struct {
	Message string `json:"message"`
}

// InspectArgs is the input of "stego_inspect".
type InspectArgs struct {
	AudioBase64 string `json:"audio_base64" jsonschema:"the Ogg/Opus or WAV file, standard base64"`
}

// InspectResult is the output of "stego_inspect".
type InspectResult struct {
	Format       string   `json:"format"`
	Size         int      `json:"size"`
	SampleRate   int      `json:"sample_rate,omitempty"`
	Channels     int      `json:"channels,omitempty"`
	Pages        int      `json:"pages,omitempty"`
	Vendor       string   `json:"vendor,omitempty"`
	CommentKeys  []string `json:"comment_keys,omitempty"`
	Chunks       []string `json:"chunks,omitempty"`
	HasPayload   bool     `json:"has_payload"`
	PayloadBytes int      `json:"payload_bytes,omitempty"`
}

// NewServer returns an MCP server with the stego tools registered.
func NewServer(svc Service, version string) *mcpsdk.Server {
	srv := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "stegovox", Version: version}, nil)
	t := &tools{svc: svc}

	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        ToolEncode,
		Description: "Hide a password-protected text message in an Ogg/Opus or WAV file.",
	}, t.encode)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        ToolDecode,
		Description: "Recover the message hidden in an Ogg/Opus or WAV file.",
	}, t.decode)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        ToolInspect,
		Description: "Describe an audio container and report whether it carries a hidden message.",
		Annotations: &mcpsdk.ToolAnnotations{ReadOnlyHint: true},
	}, t.inspect)
	return srv
}

// Handler serves srv over the streamable HTTP transport. Every session shares
// srv.
func Handler(srv *mcpsdk.Server) http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return srv }, &mcpsdk.StreamableHTTPOptions{
		Logger: slog.Default(),
	})
}

// RunStdio serves srv on stdin/stdout until the client disconnects or ctx is
// cancelled.
func RunStdio(ctx context.Context, srv *mcpsdk.Server) error {
	if err := srv.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcptools: run stdio: %w", err)
	}
	return nil
}

type tools struct {
	svc Service
}

func (t *tools) encode(ctx context.Context, _ *mcpsdk.CallToolRequest, args EncodeArgs) (*mcpsdk.CallToolResult, EncodeResult, error) {
	buf, err := decodeAudio(args.AudioBase64)
	if err != nil {
		return nil, EncodeResult{}, err
	}
	resp, err := t.svc.EncodeBuffer(ctx, service.EncodeRequest{
		Buffer:   buf,
		Secret:   args.Secret,
		Password: args.Password,
	})
	if err != nil {
		return nil, EncodeResult{}, toolError(err)
	}
	return nil, EncodeResult{
		AudioBase64: base64.StdEncoding.EncodeToString(resp.Buffer),
		Format:      resp.Format.String(),
	}, nil
}

func (t *tools) decode(ctx context.Context, _ *mcpsdk.CallToolRequest, args DecodeArgs) (*mcpsdk.CallToolResult, DecodeResult, error) {
	buf, err := decodeAudio(args.AudioBase64)
	if err != nil {
		return nil, DecodeResult{}, err
	}
	resp, err := t.svc.DecodeBuffer(ctx, service.DecodeRequest{Buffer: buf, Password: args.Password})
	if err != nil {
		return nil, DecodeResult{}, toolError(err)
	}
	return nil, DecodeResult{Message: resp.Message}, nil
}

func (t *tools) inspect(ctx context.Context, _ *mcpsdk.CallToolRequest, args InspectArgs) (*mcpsdk.CallToolResult, InspectResult, error) {
	buf, err := decodeAudio(args.AudioBase64)
	if err != nil {
		return nil, InspectResult{}, err
	}
	r, err := t.svc.Inspect(ctx, buf)
	if err != nil {
		return nil, InspectResult{}, toolError(err)
	}
	return nil, InspectResult{
		Format:       r.Format.String(),
		Size:         r.Size,
		SampleRate:   r.SampleRate,
		Channels:     r.Channels,
		Pages:        r.Pages,
		Vendor:       r.Vendor,
		CommentKeys:  r.CommentKeys,
		Chunks:       r.Chunks,
		HasPayload:   r.HasPayload,
		PayloadBytes: r.PayloadBytes,
	}, nil
}

func decodeAudio(s string) ([]byte, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: audio_base64: %w", service.CodeInvalidRequest, err)
	}
	return buf, nil
}

// toolError prefixes err with its service code so agents can branch on it.
// Internal errors are masked.
func toolError(err error) error {
	code := service.Code(err)
	if code == service.CodeInternal {
		slog.Error("mcptools: tool call failed", "err", err)
		return fmt.Errorf("%s: internal error", code)
	}
	return fmt.Errorf("%s: %w", code, err)
}
