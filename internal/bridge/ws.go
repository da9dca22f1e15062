package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/stegovox/internal/observe"
	"github.com/MrWong99/stegovox/internal/service"
)

const wsWriteTimeout = 10 * time.Second

// serveWS handles one WebSocket connection. Each text frame is a [Request];
// up to MaxInFlight run at once and further reads wait for a free slot.
// Responses may arrive out of order and are matched by id.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.AllowedOrigins,
	})
	if err != nil {
		observe.Logger(r.Context()).Warn("bridge: websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	// base64 inflates binary fields by a third.
	conn.SetReadLimit(h.cfg.MaxBodyBytes*4/3 + 4096)

	ctx := r.Context()
	h.metrics.WSConnections.Add(ctx, 1)
	defer h.metrics.WSConnections.Add(context.Background(), -1)

	log := observe.Logger(ctx)
	log.Debug("bridge: websocket connected", "remote", r.RemoteAddr)

	var g errgroup.Group
	g.SetLimit(h.cfg.MaxInFlight)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				log.Debug("bridge: websocket read ended", "err", err)
			}
			break
		}

		var req Request
		if typ != websocket.MessageText {
			h.write(ctx, conn, errorResponse("", service.CodeInvalidRequest, "binary frames are not supported"))
			continue
		}
		if err := json.Unmarshal(data, &req); err != nil {
			h.write(ctx, conn, errorResponse("", service.CodeInvalidRequest, "invalid JSON frame: "+err.Error()))
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		g.Go(func() error {
			h.write(ctx, conn, h.dispatch(ctx, req))
			return nil
		})
	}

	_ = g.Wait()
	conn.Close(websocket.StatusNormalClosure, "")
}

// write sends resp. Conn.Write is safe for concurrent use, so in-flight
// requests need no extra locking.
func (h *Handler) write(ctx context.Context, conn *websocket.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		observe.Logger(ctx).Error("bridge: marshal response", "id", resp.ID, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil && !errors.Is(err, context.Canceled) {
		observe.Logger(ctx).Debug("bridge: websocket write failed", "id", resp.ID, "err", err)
	}
}
