package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/MrWong99/stegovox/internal/observe"
	"github.com/MrWong99/stegovox/internal/service"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"

	codeTooLarge = "body_too_large"
)

func (h *Handler) handle(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		var req Request
		body := http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeResponse(w, errorResponse(id, codeTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
				return
			}
			writeResponse(w, errorResponse(id, service.CodeInvalidRequest, "invalid JSON body: "+err.Error()))
			return
		}
		req.ID, req.Action = id, action

		resp := h.dispatch(r.Context(), req)
		if !resp.OK {
			observe.Logger(r.Context()).Info("bridge: request rejected", "action", action, "id", id, "code", resp.Code)
		}
		writeResponse(w, resp)
	}
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusFor(resp.Code))
	_ = json.NewEncoder(w).Encode(resp)
}
