// Package bridge exposes the service over HTTP and WebSocket for host
// applications.
//
// HTTP: POST /v1/encode, /v1/decode, /v1/link and /v1/inspect take and return
// JSON; byte fields are standard base64. GET /v1/ws upgrades to a WebSocket
// that accepts the same requests as text frames, tagged with an id and an
// action, and answers each with a response carrying the same id. Requests on
// one connection run concurrently up to the configured limit.
package bridge

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrWong99/stegovox/internal/config"
	"github.com/MrWong99/stegovox/internal/observe"
	"github.com/MrWong99/stegovox/internal/service"
	"github.com/MrWong99/stegovox/pkg/stego"
)

// WebSocket actions.
const (
	ActionEncode  = "encodeBuffer"
	ActionDecode  = "decodeBuffer"
	ActionLink    = "linkLastEncodedToDoc"
	ActionInspect = "inspectBuffer"
)

// Service is the subset of *service.Service the bridge calls.
type Service interface {
	EncodeBuffer(ctx context.Context, req service.EncodeRequest) (service.EncodeResponse, error)
	DecodeBuffer(ctx context.Context, req service.DecodeRequest) (service.DecodeResponse, error)
	LinkLastEncoded(ctx context.Context, docID string) error
	Inspect(ctx context.Context, buf []byte) (stego.Report, error)
}

// Request is the body of every bridge call. Action is only read on the
// WebSocket; over HTTP the route selects it.
type Request struct {
	ID             string `json:"id,omitempty"`
	Action         string `json:"action,omitempty"`
	Buffer         []byte `json:"buffer,omitempty"`
	Secret         string `json:"secret,omitempty"`
	Password       string `json:"password,omitempty"`
	DocID          string `json:"docId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Remember       bool   `json:"remember,omitempty"`
}

// Response answers a [Request]. On failure OK is false and Error and Code
// describe the problem.
type Response struct {
	ID        string        `json:"id,omitempty"`
	OK        bool          `json:"ok"`
	Buffer    []byte        `json:"buffer,omitempty"`
	Format    string        `json:"format,omitempty"`
	Message   *string       `json:"message,omitempty"`
	FromCache bool          `json:"fromCache,omitempty"`
	Report    *stego.Report `json:"report,omitempty"`
	Error     string        `json:"error,omitempty"`
	Code      string        `json:"code,omitempty"`
}

// Config limits the bridge.
type Config struct {
	MaxBodyBytes   int64
	MaxInFlight    int
	AllowedOrigins []string
}

// Handler serves the bridge routes.
type Handler struct {
	svc     Service
	cfg     Config
	metrics *observe.Metrics
}

// New creates a Handler. Zero limits take the config defaults; a nil
// metrics uses [observe.DefaultMetrics].
func New(svc Service, cfg Config, metrics *observe.Metrics) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = config.DefaultMaxInFlight
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Handler{svc: svc, cfg: cfg, metrics: metrics}
}

// Register adds the bridge routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/encode", h.handle(ActionEncode))
	mux.HandleFunc("POST /v1/decode", h.handle(ActionDecode))
	mux.HandleFunc("POST /v1/link", h.handle(ActionLink))
	mux.HandleFunc("POST /v1/inspect", h.handle(ActionInspect))
	mux.HandleFunc("GET /v1/ws", h.serveWS)
}

// dispatch runs req and never returns an error; failures are folded into the
// response.
func (h *Handler) dispatch(ctx context.Context, req Request) Response {
	resp := Response{ID: req.ID}
	var err error

	switch req.Action {
	case ActionEncode:
		var out service.EncodeResponse
		out, err = h.svc.EncodeBuffer(ctx, service.EncodeRequest{
			Buffer:         req.Buffer,
			Secret:         req.Secret,
			Password:       req.Password,
			ConversationID: req.ConversationID,
			DocID:          req.DocID,
			Remember:       req.Remember,
		})
		resp.Buffer, resp.Format = out.Buffer, out.Format.String()
	case ActionDecode:
		var out service.DecodeResponse
		out, err = h.svc.DecodeBuffer(ctx, service.DecodeRequest{
			Buffer:         req.Buffer,
			Password:       req.Password,
			ConversationID: req.ConversationID,
			DocID:          req.DocID,
			Remember:       req.Remember,
		})
		if err == nil {
			resp.Message, resp.FromCache = &out.Message, out.FromCache
		}
	case ActionLink:
		err = h.svc.LinkLastEncoded(ctx, req.DocID)
	case ActionInspect:
		var r stego.Report
		if r, err = h.svc.Inspect(ctx, req.Buffer); err == nil {
			resp.Report = &r
		}
	default:
		return errorResponse(req.ID, service.CodeInvalidRequest, fmt.Sprintf("unknown action %q", req.Action))
	}

	if err != nil {
		code := service.Code(err)
		msg := err.Error()
		if code == service.CodeInternal {
			observe.Logger(ctx).Error("bridge: request failed", "action", req.Action, "id", req.ID, "err", err)
			msg = "internal error"
		}
		return errorResponse(req.ID, code, msg)
	}
	resp.OK = true
	return resp
}

func errorResponse(id, code, msg string) Response {
	return Response{ID: id, Error: msg, Code: code}
}

// statusFor maps a response code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case service.CodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case service.CodeInvalidContainer, service.CodeMalformedPayload:
		return http.StatusUnprocessableEntity
	case service.CodeNoHiddenMessage, service.CodeNothingToLink:
		return http.StatusNotFound
	case service.CodeAuthentication:
		return http.StatusForbidden
	case service.CodeEmptyPassword, service.CodeInvalidRequest:
		return http.StatusBadRequest
	case codeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
